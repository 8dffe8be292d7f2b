package mockorch

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/frameview/frameview/pkg/types"
)

// Config shapes the simulated orchestrator's behavior.
type Config struct {
	// ProvisionDelay is how long a new session reports "creating" before
	// flipping to "active". Zero means sessions are born active.
	ProvisionDelay time.Duration

	// FailStarts rejects that many create calls with 503 before succeeding,
	// for exercising client-side error handling.
	FailStarts int

	// FailProvision makes every provisioned session land in "error"
	// instead of "active".
	FailProvision bool

	// SurfaceBase is the absolute URL prefix for surface links, typically
	// the service's own listen address. Empty disables surface URLs.
	SurfaceBase string

	// Token, when set, requires "Authorization: Bearer <Token>" on the
	// session endpoints.
	Token string
}

type record struct {
	info       types.SessionInfo
	project    string
	activateAt time.Time
}

// Service simulates the sandbox orchestration API: sessions provision on a
// timer, surface pages answer once active, and failures can be injected. It
// exists so the full client stack can run without real infrastructure.
type Service struct {
	cfg    Config
	logger *slog.Logger

	mu         sync.Mutex
	sessions   map[string]*record
	failStarts int
}

func New(cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cfg:        cfg,
		logger:     logger,
		sessions:   make(map[string]*record),
		failStarts: cfg.FailStarts,
	}
}

// SetSurfaceBase points surface links at base, typically the service's own
// listen address once it is known.
func (s *Service) SetSurfaceBase(base string) {
	s.mu.Lock()
	s.cfg.SurfaceBase = base
	s.mu.Unlock()
}

func (s *Service) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { writeText(w, http.StatusOK, "ok\n") })
	r.Get("/surface/{id}", s.surfacePage)

	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Post("/sessions/start", s.startSession)
		r.Get("/sessions", s.listSessions)
		r.Get("/sessions/{id}/status", s.sessionStatus)
		r.Post("/sessions/stop", s.stopSession)
	})

	return r
}

func (s *Service) authMiddleware(next http.Handler) http.Handler {
	if s.cfg.Token == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if got == "" || got != s.cfg.Token {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Service) startSession(w http.ResponseWriter, r *http.Request) {
	var req types.StartSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json"})
		return
	}
	if req.ProjectID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "project_id is required"})
		return
	}

	s.mu.Lock()
	if s.failStarts > 0 {
		s.failStarts--
		s.mu.Unlock()
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": "no sandbox capacity"})
		return
	}

	id := uuid.NewString()
	rec := &record{
		project:    req.ProjectID,
		activateAt: time.Now().Add(s.cfg.ProvisionDelay),
		info: types.SessionInfo{
			SessionID: id,
			Status:    types.RemoteCreating,
		},
	}
	if s.cfg.ProvisionDelay <= 0 {
		s.settleLocked(rec)
	}
	s.sessions[id] = rec
	info := rec.info
	s.mu.Unlock()

	s.logger.Info("session created",
		"session_id", id,
		"project", req.ProjectID,
		"device_hint", req.DeviceHint,
		"status", info.Status)
	writeJSON(w, http.StatusOK, info)
}

func (s *Service) sessionStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	rec, ok := s.sessions[id]
	if ok && rec.info.Status == types.RemoteCreating && !time.Now().Before(rec.activateAt) {
		s.settleLocked(rec)
	}
	var info types.SessionInfo
	if ok {
		info = rec.info
	}
	s.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "session not found"})
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Service) stopSession(w http.ResponseWriter, r *http.Request) {
	var req types.StopSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json"})
		return
	}

	s.mu.Lock()
	rec, ok := s.sessions[req.SessionID]
	if ok {
		rec.info.Status = types.RemoteEnded
		rec.info.SurfaceURL = ""
	}
	s.mu.Unlock()

	if ok {
		s.logger.Info("session stopped", "session_id", req.SessionID)
	}
	writeJSON(w, http.StatusOK, types.StopSessionResponse{Stopped: ok})
}

func (s *Service) listSessions(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	out := make([]types.SessionInfo, 0, len(s.sessions))
	for _, rec := range s.sessions {
		if rec.info.Status == types.RemoteCreating && !time.Now().Before(rec.activateAt) {
			s.settleLocked(rec)
		}
		out = append(out, rec.info)
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"sessions": out})
}

// surfacePage stands in for the app running inside the sandbox: it answers
// once the session is active, so load probes behave like a real preview.
func (s *Service) surfacePage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	rec, ok := s.sessions[id]
	if ok && rec.info.Status == types.RemoteCreating && !time.Now().Before(rec.activateAt) {
		s.settleLocked(rec)
	}
	var status types.RemoteStatus
	if ok {
		status = rec.info.Status
	}
	s.mu.Unlock()

	switch {
	case !ok, status == types.RemoteEnded:
		writeText(w, http.StatusNotFound, "no such preview\n")
	case status == types.RemoteCreating:
		writeText(w, http.StatusServiceUnavailable, "preview is still starting\n")
	case status == types.RemoteError:
		writeText(w, http.StatusBadGateway, "preview crashed\n")
	default:
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("<!doctype html><title>preview</title><h1>preview " + id + "</h1>\n"))
	}
}

// settleLocked finishes provisioning for a creating session. Callers hold mu.
func (s *Service) settleLocked(rec *record) {
	if s.cfg.FailProvision {
		rec.info.Status = types.RemoteError
		rec.info.ErrorMessage = "sandbox boot failed"
		return
	}
	rec.info.Status = types.RemoteActive
	if s.cfg.SurfaceBase != "" {
		rec.info.SurfaceURL = strings.TrimRight(s.cfg.SurfaceBase, "/") + "/surface/" + rec.info.SessionID
	}
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
