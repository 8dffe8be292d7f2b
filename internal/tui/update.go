package tui

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/frameview/frameview/internal/frame"
	"github.com/frameview/frameview/internal/surface"
)

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		w, h := m.containerPx()
		m.ctrl.Resize(w, h)
		return m, nil

	case snapshotMsg:
		m.snap = surface.Snapshot(msg)
		return m, nil

	case snapshotsClosedMsg:
		m.quitting = true
		return m, tea.Quit

	case actionDoneMsg:
		if msg.err != nil {
			m.message = msg.verb + ": " + msg.err.Error()
			m.isError = true
		} else {
			m.message = ""
			m.isError = false
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}
	if m.showQR {
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}
		m.showQR = false
		return m, nil
	}

	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "?":
		m.showHelp = true

	case "s":
		m.message, m.isError = "starting preview", false
		return m, runAction(m.ctrl, "start", surface.Action{Type: surface.ActionStart})

	case "x":
		m.message, m.isError = "stopping preview", false
		return m, runAction(m.ctrl, "stop", surface.Action{Type: surface.ActionStop})

	case "r":
		m.message, m.isError = "reloading preview", false
		return m, runAction(m.ctrl, "reload", surface.Action{Type: surface.ActionRefresh})

	case "t":
		m.message, m.isError = "recreating session", false
		return m, runAction(m.ctrl, "retry", surface.Action{Type: surface.ActionRetry})

	case "o":
		m.ctrl.Rotate()

	case "+", "=":
		m.ctrl.ZoomIn()

	case "-", "_":
		m.ctrl.ZoomOut()

	case "z":
		mode := frame.ZoomAutoFit
		if m.snap.ZoomMode == frame.ZoomAutoFit {
			mode = frame.ZoomManual
		}
		_ = m.ctrl.SetZoomMode(mode)

	case "d", "tab":
		m.ctrl.NextDevice()

	case "p":
		if m.snap.Session != nil && m.snap.Session.SurfaceURL != "" {
			m.showQR = true
		} else {
			m.message, m.isError = "no preview URL yet", true
		}
	}

	return m, nil
}
