package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/frameview/frameview/internal/surface"
)

// Run drives the Bubble Tea dashboard until the user quits. Controller
// snapshots stream into the program as messages, so every state change
// repaints without polling.
func Run(ctrl *surface.Controller, project string) error {
	m := newModel(ctrl, project)
	p := tea.NewProgram(m, tea.WithAltScreen())

	id, snaps := ctrl.Subscribe()
	defer ctrl.Unsubscribe(id)
	go func() {
		for snap := range snaps {
			p.Send(snapshotMsg(snap))
		}
		p.Send(snapshotsClosedMsg{})
	}()

	result, err := p.Run()
	if err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	if final, ok := result.(model); ok && final.quitting && final.snap.State.IsActive() {
		fmt.Println("Preview left running. Use `frameview session stop` to tear it down.")
	}
	return nil
}
