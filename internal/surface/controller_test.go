package surface

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/frameview/frameview/internal/frame"
	"github.com/frameview/frameview/internal/prefs"
	"github.com/frameview/frameview/internal/preview"
	"github.com/frameview/frameview/pkg/types"
)

// scriptedOrch provisions instantly and records what it was asked.
type scriptedOrch struct {
	mu         sync.Mutex
	starts     int
	stops      int
	statuses   int
	lastHint   string
	surfaceURL string
}

func (o *scriptedOrch) StartSession(_ context.Context, req types.StartSessionRequest) (types.SessionInfo, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.starts++
	o.lastHint = req.DeviceHint
	return types.SessionInfo{SessionID: "sess-1", Status: types.RemoteActive, SurfaceURL: o.surfaceURL}, nil
}

func (o *scriptedOrch) SessionStatus(_ context.Context, id string) (types.SessionInfo, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.statuses++
	return types.SessionInfo{SessionID: id, Status: types.RemoteActive, SurfaceURL: o.surfaceURL}, nil
}

func (o *scriptedOrch) StopSession(_ context.Context, id string) (types.StopSessionResponse, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stops++
	return types.StopSessionResponse{Stopped: true}, nil
}

func (o *scriptedOrch) counts() (starts, stops, statuses int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.starts, o.stops, o.statuses
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestController(t *testing.T, orch preview.Orchestrator, mutate func(*Config)) *Controller {
	t.Helper()
	cfg := Config{
		ProjectID:       "proj-1",
		UserID:          "user-1",
		WatchdogTimeout: 5 * time.Second,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	c, err := New(orch, cfg, quietLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func waitSnap(t *testing.T, ch <-chan Snapshot, what string, cond func(Snapshot) bool) Snapshot {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case s, ok := <-ch:
			if !ok {
				t.Fatalf("snapshot channel closed while waiting for %s", what)
			}
			if cond(s) {
				return s
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", what)
		}
	}
}

func TestDecidePanel(t *testing.T) {
	cases := []struct {
		state   types.PreviewState
		surface preview.SurfaceState
		want    Panel
	}{
		{types.StateIdle, preview.SurfaceIdle, PanelIdle},
		{types.StateStarting, preview.SurfaceIdle, PanelBusy},
		{types.StateStopping, preview.SurfaceIdle, PanelBusy},
		{types.StateError, preview.SurfaceIdle, PanelError},
		{types.StateRunning, preview.SurfaceWaiting, PanelRunning},
		{types.StateRunning, preview.SurfaceLoaded, PanelRunning},
		{types.StateRunning, preview.SurfaceFailed, PanelError},
	}
	for _, tc := range cases {
		if got := decidePanel(tc.state, tc.surface); got != tc.want {
			t.Errorf("decidePanel(%s, %s) = %s, want %s", tc.state, tc.surface, got, tc.want)
		}
	}
}

func TestStartToRunningSnapshotFlow(t *testing.T) {
	orch := &scriptedOrch{surfaceURL: "https://preview.example/app"}
	c := newTestController(t, orch, nil)

	id, ch := c.Subscribe()
	defer c.Unsubscribe(id)

	first := waitSnap(t, ch, "initial snapshot", func(Snapshot) bool { return true })
	if first.Panel != PanelIdle || first.State != types.StateIdle {
		t.Fatalf("initial snapshot = %s/%s, want idle", first.Panel, first.State)
	}

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	snap := waitSnap(t, ch, "running snapshot", func(s Snapshot) bool { return s.Panel == PanelRunning })
	if snap.Session == nil || snap.Session.SurfaceURL != "https://preview.example/app" {
		t.Fatalf("running snapshot session = %+v", snap.Session)
	}
	if snap.Surface != preview.SurfaceWaiting {
		t.Fatalf("surface = %s, want waiting while the load watchdog runs", snap.Surface)
	}

	orch.mu.Lock()
	hint := orch.lastHint
	orch.mu.Unlock()
	if hint != c.Snapshot().Device.ID {
		t.Fatalf("device hint = %q, want the selected profile id %q", hint, c.Snapshot().Device.ID)
	}
}

func TestSurfaceLoadClearsWatchdog(t *testing.T) {
	orch := &scriptedOrch{surfaceURL: "https://x"}
	c := newTestController(t, orch, nil)

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	c.SurfaceLoaded()

	snap := c.Snapshot()
	if snap.Surface != preview.SurfaceLoaded || snap.Panel != PanelRunning {
		t.Fatalf("snapshot = surface %s panel %s, want loaded/running", snap.Surface, snap.Panel)
	}
}

func TestWatchdogFailureRendersErrorPanel(t *testing.T) {
	orch := &scriptedOrch{surfaceURL: "https://x"}
	var fires atomic.Int64
	c := newTestController(t, orch, func(cfg *Config) {
		cfg.WatchdogTimeout = 20 * time.Millisecond
		cfg.OnWatchdogFire = func() { fires.Add(1) }
	})

	id, ch := c.Subscribe()
	defer c.Unsubscribe(id)

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	snap := waitSnap(t, ch, "watchdog failure", func(s Snapshot) bool { return s.Surface == preview.SurfaceFailed })

	if snap.Panel != PanelError {
		t.Fatalf("panel = %s, want error despite the running session", snap.Panel)
	}
	if snap.State != types.StateRunning {
		t.Fatalf("state = %s, want running underneath the error panel", snap.State)
	}
	if !strings.Contains(snap.ErrorMessage, "took too long to respond") {
		t.Fatalf("error message = %q, want the load-timeout reason", snap.ErrorMessage)
	}
	if n := fires.Load(); n != 1 {
		t.Fatalf("watchdog fire hook ran %d times, want 1", n)
	}
}

func TestRetryAfterWatchdogFailureRecreatesSession(t *testing.T) {
	orch := &scriptedOrch{surfaceURL: "https://x"}
	c := newTestController(t, orch, func(cfg *Config) {
		cfg.WatchdogTimeout = 20 * time.Millisecond
	})

	id, ch := c.Subscribe()
	defer c.Unsubscribe(id)

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitSnap(t, ch, "watchdog failure", func(s Snapshot) bool { return s.Surface == preview.SurfaceFailed })

	if err := c.Retry(context.Background()); err != nil {
		t.Fatalf("Retry: %v", err)
	}
	waitSnap(t, ch, "recreated session", func(s Snapshot) bool {
		return s.Panel == PanelRunning && s.Surface == preview.SurfaceWaiting
	})

	starts, stops, _ := orch.counts()
	if starts != 2 || stops != 1 {
		t.Fatalf("starts=%d stops=%d, want a teardown and a fresh create", starts, stops)
	}
}

func TestGeometryActionsNeverTouchSessionClient(t *testing.T) {
	orch := &scriptedOrch{surfaceURL: "https://x"}
	c := newTestController(t, orch, nil)

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	startsBefore, stopsBefore, statusesBefore := orch.counts()

	c.Rotate()
	c.ZoomIn()
	c.ZoomOut()
	c.NextDevice()
	if err := c.SetDevice("pixel-7"); err != nil {
		t.Fatalf("SetDevice: %v", err)
	}
	if err := c.SetZoomMode(frame.ZoomAutoFit); err != nil {
		t.Fatalf("SetZoomMode: %v", err)
	}
	c.Resize(800, 600)

	starts, stops, statuses := orch.counts()
	if starts != startsBefore || stops != stopsBefore || statuses != statusesBefore {
		t.Fatalf("geometry actions reached the orchestrator: starts %d->%d stops %d->%d statuses %d->%d",
			startsBefore, starts, stopsBefore, stops, statusesBefore, statuses)
	}

	snap := c.Snapshot()
	if snap.Device.ID != "pixel-7" {
		t.Fatalf("device = %s, want pixel-7", snap.Device.ID)
	}
}

func TestResizeRecomputesLayout(t *testing.T) {
	orch := &scriptedOrch{surfaceURL: "https://x"}
	c := newTestController(t, orch, func(cfg *Config) { cfg.Device = "iphone-se" })

	c.Resize(800, 600)
	snap := c.Snapshot()
	if snap.Layout.Width != 270 || snap.Layout.Height != 480 {
		t.Fatalf("layout = %dx%d, want 270x480 for iphone-se in 800x600", snap.Layout.Width, snap.Layout.Height)
	}

	c.Resize(1600, 1200)
	snap = c.Snapshot()
	if snap.Layout.Width != 375 || snap.Layout.Height != 667 {
		t.Fatalf("layout = %dx%d, want native 375x667 once the fit scale clamps at 1", snap.Layout.Width, snap.Layout.Height)
	}
}

func TestRefreshBumpsNonceAndRearmsWatchdog(t *testing.T) {
	orch := &scriptedOrch{surfaceURL: "https://x"}
	c := newTestController(t, orch, nil)

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	c.SurfaceLoaded()
	before := c.Snapshot()
	if before.Surface != preview.SurfaceLoaded {
		t.Fatalf("surface = %s, want loaded before refresh", before.Surface)
	}

	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	after := c.Snapshot()
	if after.ReloadNonce != before.ReloadNonce+1 {
		t.Fatalf("nonce = %d, want %d", after.ReloadNonce, before.ReloadNonce+1)
	}
	if after.Surface != preview.SurfaceWaiting {
		t.Fatalf("surface = %s, want waiting after the watchdog was rearmed", after.Surface)
	}
	if _, _, statuses := orch.counts(); statuses != 1 {
		t.Fatalf("status calls = %d, want 1 from the refresh", statuses)
	}
}

func TestViewportPrefsPersistAcrossControllers(t *testing.T) {
	store, err := prefs.NewStore(filepath.Join(t.TempDir(), "prefs.json"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	orch := &scriptedOrch{surfaceURL: "https://x"}

	c1 := newTestController(t, orch, func(cfg *Config) { cfg.Prefs = store })
	if err := c1.SetDevice("pixel-7"); err != nil {
		t.Fatalf("SetDevice: %v", err)
	}
	c1.Rotate()
	c1.ZoomIn() // manual 1.25
	if err := c1.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	c2 := newTestController(t, orch, func(cfg *Config) { cfg.Prefs = store })
	snap := c2.Snapshot()
	if snap.Device.ID != "pixel-7" || !snap.Rotated {
		t.Fatalf("restored viewport = %s rotated=%v, want pixel-7 rotated", snap.Device.ID, snap.Rotated)
	}
	if snap.ZoomMode != frame.ZoomManual || snap.ZoomPercent != 125 {
		t.Fatalf("restored zoom = %s %d%%, want manual 125%%", snap.ZoomMode, snap.ZoomPercent)
	}
}

func TestSubscribeMailboxKeepsLatest(t *testing.T) {
	orch := &scriptedOrch{surfaceURL: "https://x"}
	c := newTestController(t, orch, nil)

	id, ch := c.Subscribe()
	defer c.Unsubscribe(id)

	// Never drain while a burst of publishes lands.
	c.ZoomIn()
	c.ZoomIn()
	c.ZoomOut()
	c.Rotate()

	var last Snapshot
	for drained := false; !drained; {
		select {
		case s := <-ch:
			last = s
		default:
			drained = true
		}
	}
	want := c.Snapshot()
	if last.ZoomPercent != want.ZoomPercent || last.Rotated != want.Rotated {
		t.Fatalf("mailbox held %d%%/rotated=%v, want the newest %d%%/rotated=%v",
			last.ZoomPercent, last.Rotated, want.ZoomPercent, want.Rotated)
	}
}

func TestDoRoutesActions(t *testing.T) {
	orch := &scriptedOrch{surfaceURL: "https://x"}
	c := newTestController(t, orch, nil)
	ctx := context.Background()

	if err := c.Do(ctx, Action{Type: ActionStart}); err != nil {
		t.Fatalf("Do(start): %v", err)
	}
	if err := c.Do(ctx, Action{Type: ActionDevice, Device: "ipad-mini"}); err != nil {
		t.Fatalf("Do(device): %v", err)
	}
	if err := c.Do(ctx, Action{Type: ActionResize, Width: 900, Height: 700}); err != nil {
		t.Fatalf("Do(resize): %v", err)
	}
	if err := c.Do(ctx, Action{Type: ActionZoomMode, ZoomMode: frame.ZoomManual}); err != nil {
		t.Fatalf("Do(zoom_mode): %v", err)
	}
	if err := c.Do(ctx, Action{Type: ActionSurfaceLoad}); err != nil {
		t.Fatalf("Do(surface_load): %v", err)
	}

	snap := c.Snapshot()
	if snap.Device.ID != "ipad-mini" || snap.Container.Width != 900 {
		t.Fatalf("snapshot after actions = %+v", snap)
	}

	if err := c.Do(ctx, Action{Type: "teleport"}); err == nil {
		t.Fatal("expected error for an unknown action")
	}
	if err := c.Do(ctx, Action{Type: ActionDevice, Device: "nokia-3310"}); err == nil {
		t.Fatal("expected error for an unknown device")
	}
}

func TestStopDisarmsWatchdog(t *testing.T) {
	orch := &scriptedOrch{surfaceURL: "https://x"}
	c := newTestController(t, orch, nil)

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if snap := c.Snapshot(); snap.Surface != preview.SurfaceWaiting {
		t.Fatalf("surface = %s, want waiting after start", snap.Surface)
	}

	if err := c.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	snap := c.Snapshot()
	if snap.Panel != PanelIdle || snap.Surface != preview.SurfaceIdle {
		t.Fatalf("snapshot after stop = %s/%s, want idle/idle", snap.Panel, snap.Surface)
	}
}

func TestNewRejectsUnknownDevice(t *testing.T) {
	orch := &scriptedOrch{}
	_, err := New(orch, Config{ProjectID: "p", Device: "nokia-3310"}, quietLogger())
	if err == nil {
		t.Fatal("expected error for an unknown initial device")
	}
}
