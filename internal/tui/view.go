package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/frameview/frameview/internal/frame"
	"github.com/frameview/frameview/internal/preview"
	"github.com/frameview/frameview/internal/surface"
	"github.com/frameview/frameview/pkg/types"
)

func (m model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(dividerStyle.Render(strings.Repeat("─", m.width)))
	b.WriteString("\n")

	var pane string
	switch {
	case m.showQR:
		pane = m.renderQR()
	case m.snap.Panel == surface.PanelBusy:
		pane = m.renderBusy()
	case m.snap.Panel == surface.PanelError:
		pane = m.renderError()
	case m.snap.Panel == surface.PanelRunning:
		pane = m.renderFrame()
	default:
		pane = emptyStyle.Render("No preview running. Press s to start one.")
	}
	b.WriteString(lipgloss.Place(m.width, m.paneHeight(), lipgloss.Center, lipgloss.Center, pane))
	b.WriteString("\n")
	b.WriteString(dividerStyle.Render(strings.Repeat("─", m.width)))
	b.WriteString("\n")
	b.WriteString(hotkeysStyle.Render(m.hotkeys()))
	b.WriteString("\n")
	m.renderStatus(&b)

	if m.showHelp {
		return m.renderHelpOverlay(b.String())
	}
	return b.String()
}

func (m model) renderHeader() string {
	title := "frameview"
	if m.project != "" {
		title += "  " + m.project
	}
	badge := m.stateBadge()
	gap := m.width - lipgloss.Width(title) - lipgloss.Width(badge) - 4
	if gap < 1 {
		gap = 1
	}
	return headerStyle.Width(m.width).Render(title + strings.Repeat(" ", gap) + badge)
}

func (m model) stateBadge() string {
	switch m.snap.State {
	case types.StateStarting:
		return stateBusy.Render(m.spin.View() + " starting")
	case types.StateRunning:
		return stateRunning.Render("● running")
	case types.StateStopping:
		return stateBusy.Render(m.spin.View() + " stopping")
	case types.StateError:
		return stateErrored.Render("● error")
	default:
		return stateIdle.Render("○ idle")
	}
}

func (m model) renderBusy() string {
	label := m.snap.BusyLabel
	if label == "" {
		label = "working"
	}
	return m.spin.View() + " " + label
}

func (m model) renderError() string {
	msg := m.snap.ErrorMessage
	if msg == "" {
		msg = "the preview failed"
	}
	w := m.width - 8
	if w > 60 {
		w = 60
	}
	return errorPanelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Center,
		stateErrored.Render("Preview failed"),
		"",
		msg,
		"",
		frameLabelStyle.Render("[t] retry  [r]eload"),
	))
}

// renderFrame draws the device bezel scaled to the current layout. Pixel
// dimensions come from the geometry engine; here they only get mapped to
// terminal cells.
func (m model) renderFrame() string {
	lay := m.snap.Layout

	cw := lay.Width / cellWidthPx
	ch := lay.Height / cellHeightPx
	if maxW := m.width - 6; cw > maxW {
		cw = maxW
	}
	if maxH := m.paneHeight() - 3; ch > maxH {
		ch = maxH
	}
	if cw < 12 {
		cw = 12
	}
	if ch < 4 {
		ch = 4
	}

	var inner string
	switch {
	case m.snap.Surface == preview.SurfaceLoaded && m.snap.Session != nil:
		inner = urlStyle.Render(truncate(m.snap.Session.SurfaceURL, cw-2))
	default:
		inner = m.spin.View() + " loading app"
	}

	box := frameStyle.Render(lipgloss.Place(cw, ch, lipgloss.Center, lipgloss.Center, inner))

	zoom := fmt.Sprintf("fit %.0f%%", lay.Scale*100)
	if m.snap.ZoomMode == frame.ZoomManual {
		zoom = fmt.Sprintf("zoom %d%%", m.snap.ZoomPercent)
	}
	label := fmt.Sprintf("%s  %dx%d  %s", m.snap.Device.Name, lay.Width, lay.Height, zoom)
	if m.snap.Rotated {
		label += "  landscape"
	}
	return lipgloss.JoinVertical(lipgloss.Center, box, frameLabelStyle.Render(label))
}

func (m model) renderQR() string {
	url := ""
	if m.snap.Session != nil {
		url = m.snap.Session.SurfaceURL
	}
	qr, err := qrcode.New(url, qrcode.Medium)
	if err != nil {
		return errorStyle.Render("qr encode failed: " + err.Error())
	}
	return lipgloss.JoinVertical(lipgloss.Center,
		qr.ToSmallString(false),
		urlStyle.Render(url),
		frameLabelStyle.Render("scan to open on a phone, any key to close"),
	)
}

func (m model) hotkeys() string {
	switch m.snap.Panel {
	case surface.PanelRunning:
		return "[o] rotate  [+/-] zoom  [z] fit  [d]evice  [r]eload  [p]hone  [x] stop  [?] help"
	case surface.PanelError:
		return "[t] retry  [r]eload  [x] stop  [?] help  [q] quit"
	case surface.PanelBusy:
		return "[?] help  [q] quit"
	default:
		return "[s]tart  [d]evice  [?] help  [q] quit"
	}
}

func (m model) renderStatus(b *strings.Builder) {
	if m.message == "" {
		return
	}
	if m.isError {
		b.WriteString(errorStyle.Render(m.message))
	} else {
		b.WriteString(messageStyle.Render(m.message))
	}
	b.WriteString("\n")
}

func (m model) renderHelpOverlay(base string) string {
	help := strings.Join([]string{
		helpHeaderStyle.Render("Session"),
		helpKeyStyle.Render("  s") + helpDescStyle.Render("      start the preview"),
		helpKeyStyle.Render("  x") + helpDescStyle.Render("      stop the session"),
		helpKeyStyle.Render("  r") + helpDescStyle.Render("      reload the surface"),
		helpKeyStyle.Render("  t") + helpDescStyle.Render("      retry after a failure"),
		"",
		helpHeaderStyle.Render("Frame"),
		helpKeyStyle.Render("  d/tab") + helpDescStyle.Render("  next device"),
		helpKeyStyle.Render("  o") + helpDescStyle.Render("      rotate portrait/landscape"),
		helpKeyStyle.Render("  +/-") + helpDescStyle.Render("    zoom in or out"),
		helpKeyStyle.Render("  z") + helpDescStyle.Render("      toggle auto-fit"),
		"",
		helpHeaderStyle.Render("Other"),
		helpKeyStyle.Render("  p") + helpDescStyle.Render("      QR code for the preview URL"),
		helpKeyStyle.Render("  q") + helpDescStyle.Render("  quit") + "     " + helpKeyStyle.Render("?") + helpDescStyle.Render("  close this help"),
	}, "\n")

	modal := helpStyle.Render(help)

	modalWidth := lipgloss.Width(modal)
	modalHeight := lipgloss.Height(modal)

	baseLines := strings.Split(base, "\n")

	xOffset := max(0, (m.width-modalWidth)/2)
	yOffset := max(0, (m.height-modalHeight)/2)

	modalLines := strings.Split(modal, "\n")
	for i, line := range modalLines {
		row := yOffset + i
		if row < len(baseLines) {
			baseLines[row] = strings.Repeat(" ", xOffset) + line +
				strings.Repeat(" ", max(0, m.width-xOffset-lipgloss.Width(line)))
		}
	}

	return strings.Join(baseLines, "\n")
}

func truncate(s string, n int) string {
	if n < 4 {
		n = 4
	}
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
