package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/frameview/frameview/internal/surface"
)

// snapshotMsg carries a controller snapshot pushed through the
// subscription channel.
type snapshotMsg surface.Snapshot

// snapshotsClosedMsg signals that the controller shut down and no more
// snapshots will arrive.
type snapshotsClosedMsg struct{}

// actionDoneMsg reports the outcome of a session action that ran off
// the UI goroutine.
type actionDoneMsg struct {
	verb string
	err  error
}

// runAction executes a controller action as a command so slow
// orchestrator calls never block rendering.
func runAction(ctrl *surface.Controller, verb string, action surface.Action) tea.Cmd {
	return func() tea.Msg {
		return actionDoneMsg{verb: verb, err: ctrl.Do(context.Background(), action)}
	}
}
