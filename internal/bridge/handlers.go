package bridge

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/frameview/frameview/internal/metrics"
	"github.com/frameview/frameview/internal/preview"
	"github.com/frameview/frameview/internal/surface"
)

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { writeText(w, http.StatusOK, "ok\n") })
	if s.collector != nil {
		r.Method(http.MethodGet, s.metricsPath, s.collector.Handler(metrics.HandlerOptions{
			State:    func() string { return string(s.ctrl.Snapshot().State) },
			Watchers: func() int { return int(s.watchers.Load()) },
		}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/state", s.getState)
		r.Get("/devices", s.listDevices)
		r.Post("/actions", s.postAction)
		r.Get("/watch", s.watchSnapshots)
	})

	return r
}

func (s *Server) getState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.Snapshot())
}

func (s *Server) listDevices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"devices": s.ctrl.Devices()})
}

func (s *Server) postAction(w http.ResponseWriter, r *http.Request) {
	var a surface.Action
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json"})
		return
	}
	if err := s.ctrl.Do(r.Context(), a); err != nil {
		writeJSON(w, statusForError(err), map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, s.ctrl.Snapshot())
}

// statusForError maps controller failures onto HTTP statuses: caller mistakes
// are 400, lifecycle collisions 409, a closed controller 503, and anything
// else is the orchestrator's fault.
func statusForError(err error) int {
	switch {
	case errors.Is(err, surface.ErrUnknownAction),
		errors.Is(err, surface.ErrUnknownDevice),
		errors.Is(err, surface.ErrUnknownZoomMode):
		return http.StatusBadRequest
	case errors.Is(err, preview.ErrStopInProgress):
		return http.StatusConflict
	case errors.Is(err, preview.ErrClientClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

// watchSnapshots upgrades to a websocket and pushes every snapshot until the
// peer hangs up or the controller closes. The subscription mailbox is
// latest-wins, so a slow peer skips intermediate snapshots instead of
// building a backlog.
func (s *Server) watchSnapshots(w http.ResponseWriter, r *http.Request) {
	if !websocket.IsWebSocketUpgrade(r) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "websocket upgrade required"})
		return
	}
	up := websocket.Upgrader{
		// The bridge serves local tooling; allow any origin.
		CheckOrigin: func(*http.Request) bool { return true },
	}
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	conn.SetReadLimit(1 << 20)

	id, snaps := s.ctrl.Subscribe()
	defer s.ctrl.Unsubscribe(id)
	s.watchers.Add(1)
	defer s.watchers.Add(-1)

	// Reader loop: the peer sends nothing we act on; watch for close.
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case snap, ok := <-snaps:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "controller closed"),
					time.Now().Add(500*time.Millisecond))
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, mustJSON(snap)); err != nil {
				return
			}
		case <-readDone:
			return
		}
	}
}

func mustJSON(v any) []byte {
	b, _ := json.Marshal(v)
	return b
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeText(w http.ResponseWriter, status int, s string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(s))
}
