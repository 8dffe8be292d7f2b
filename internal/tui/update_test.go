package tui

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frameview/frameview/internal/surface"
	"github.com/frameview/frameview/pkg/types"
)

type stubOrch struct {
	mu     sync.Mutex
	starts int
	stops  int
}

func (o *stubOrch) StartSession(_ context.Context, _ types.StartSessionRequest) (types.SessionInfo, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.starts++
	return types.SessionInfo{
		SessionID:  "sess-1",
		Status:     types.RemoteActive,
		SurfaceURL: "https://preview.example/app",
	}, nil
}

func (o *stubOrch) SessionStatus(_ context.Context, id string) (types.SessionInfo, error) {
	return types.SessionInfo{
		SessionID:  id,
		Status:     types.RemoteActive,
		SurfaceURL: "https://preview.example/app",
	}, nil
}

func (o *stubOrch) StopSession(_ context.Context, _ string) (types.StopSessionResponse, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stops++
	return types.StopSessionResponse{Stopped: true}, nil
}

func (o *stubOrch) counts() (int, int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.starts, o.stops
}

func newTestModel(t *testing.T) (model, *stubOrch) {
	t.Helper()

	orch := &stubOrch{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctrl, err := surface.New(orch, surface.Config{ProjectID: "proj-1"}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { ctrl.Close() })

	m := newModel(ctrl, "proj-1")
	m.width, m.height = 100, 30
	return m, orch
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func apply(t *testing.T, m model, msg tea.Msg) (model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(model)
	require.True(t, ok, "Update must return the tui model")
	return nm, cmd
}

// run the whole start flow: press s, execute the returned command, then
// feed the resulting snapshot back in like the subscription loop would.
func startPreview(t *testing.T, m model, orch *stubOrch) model {
	t.Helper()

	m, cmd := apply(t, m, key("s"))
	require.NotNil(t, cmd)
	done, ok := cmd().(actionDoneMsg)
	require.True(t, ok)
	require.NoError(t, done.err)

	starts, _ := orch.counts()
	require.Equal(t, 1, starts)

	m, _ = apply(t, m, snapshotMsg(m.ctrl.Snapshot()))
	require.Equal(t, surface.PanelRunning, m.snap.Panel)
	return m
}

func TestWindowSizeFeedsGeometry(t *testing.T) {
	m, _ := newTestModel(t)

	m, cmd := apply(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	assert.Nil(t, cmd)
	assert.Equal(t, 120, m.width)

	snap := m.ctrl.Snapshot()
	assert.Equal(t, 120*cellWidthPx, snap.Container.Width)
	assert.Equal(t, (40-6)*cellHeightPx, snap.Container.Height)
}

func TestStartKeyRunsSessionAction(t *testing.T) {
	m, orch := newTestModel(t)

	m = startPreview(t, m, orch)

	assert.Equal(t, "sess-1", m.snap.Session.SessionID)
	assert.Empty(t, m.message)
}

func TestGeometryKeysNeverCallOrchestrator(t *testing.T) {
	m, orch := newTestModel(t)

	m, _ = apply(t, m, key("o"))
	assert.True(t, m.ctrl.Snapshot().Rotated)

	m, _ = apply(t, m, key("+"))
	assert.Equal(t, 125, m.ctrl.Snapshot().ZoomPercent)

	before := m.ctrl.Snapshot().Device.ID
	m, _ = apply(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.NotEqual(t, before, m.ctrl.Snapshot().Device.ID)

	starts, stops := orch.counts()
	assert.Zero(t, starts)
	assert.Zero(t, stops)
}

func TestZoomModeKeyToggles(t *testing.T) {
	m, _ := newTestModel(t)
	m, _ = apply(t, m, snapshotMsg(m.ctrl.Snapshot()))

	m, _ = apply(t, m, key("z"))
	m, _ = apply(t, m, snapshotMsg(m.ctrl.Snapshot()))
	assert.Equal(t, "manual", string(m.snap.ZoomMode))

	m, _ = apply(t, m, key("z"))
	m, _ = apply(t, m, snapshotMsg(m.ctrl.Snapshot()))
	assert.Equal(t, "auto-fit", string(m.snap.ZoomMode))
}

func TestIdleViewPromptsToStart(t *testing.T) {
	m, _ := newTestModel(t)
	m, _ = apply(t, m, snapshotMsg(m.ctrl.Snapshot()))

	view := m.View()
	assert.Contains(t, view, "No preview running")
	assert.Contains(t, view, "[s]tart")
}

func TestRunningViewShowsFrameLabel(t *testing.T) {
	m, orch := newTestModel(t)
	m = startPreview(t, m, orch)

	m.ctrl.SurfaceLoaded()
	m, _ = apply(t, m, snapshotMsg(m.ctrl.Snapshot()))

	view := m.View()
	assert.Contains(t, view, m.snap.Device.Name)
	assert.Contains(t, view, "preview.example")
	assert.Contains(t, view, "[o] rotate")
}

func TestErrorViewOffersRetry(t *testing.T) {
	m, _ := newTestModel(t)

	snap := m.ctrl.Snapshot()
	snap.Panel = surface.PanelError
	snap.State = types.StateError
	snap.ErrorMessage = "the app crashed"
	m, _ = apply(t, m, snapshotMsg(snap))

	view := m.View()
	assert.Contains(t, view, "Preview failed")
	assert.Contains(t, view, "the app crashed")
	assert.Contains(t, view, "[t] retry")
}

func TestHelpOverlayToggles(t *testing.T) {
	m, _ := newTestModel(t)

	m, _ = apply(t, m, key("?"))
	assert.True(t, m.showHelp)
	assert.Contains(t, m.View(), "close this help")

	m, _ = apply(t, m, key("j"))
	assert.False(t, m.showHelp)
}

func TestQRNeedsASurfaceURL(t *testing.T) {
	m, orch := newTestModel(t)

	m, _ = apply(t, m, key("p"))
	assert.False(t, m.showQR)
	assert.Equal(t, "no preview URL yet", m.message)
	assert.True(t, m.isError)

	m = startPreview(t, m, orch)
	m, _ = apply(t, m, key("p"))
	assert.True(t, m.showQR)
	assert.Contains(t, m.View(), "scan to open on a phone")

	m, _ = apply(t, m, key("j"))
	assert.False(t, m.showQR)
}

func TestActionErrorLandsInStatusLine(t *testing.T) {
	m, _ := newTestModel(t)

	m, _ = apply(t, m, actionDoneMsg{verb: "stop", err: context.DeadlineExceeded})
	assert.True(t, m.isError)
	assert.Contains(t, m.message, "stop:")

	m, _ = apply(t, m, actionDoneMsg{verb: "start"})
	assert.False(t, m.isError)
	assert.Empty(t, m.message)
}

func TestClosedSnapshotStreamQuits(t *testing.T) {
	m, _ := newTestModel(t)

	m, cmd := apply(t, m, snapshotsClosedMsg{})
	assert.True(t, m.quitting)
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Empty(t, m.View())
}

func TestQuitKeys(t *testing.T) {
	for _, msg := range []tea.KeyMsg{key("q"), {Type: tea.KeyCtrlC}} {
		m, _ := newTestModel(t)
		m, cmd := apply(t, m, msg)
		assert.True(t, m.quitting)
		require.NotNil(t, cmd)
	}
}

func TestTruncateKeepsShortStrings(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	long := strings.Repeat("a", 30)
	assert.Equal(t, 20, len(truncate(long, 20)))
	assert.True(t, strings.HasSuffix(truncate(long, 20), "..."))
}
