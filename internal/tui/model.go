package tui

import (
	"os"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/frameview/frameview/internal/surface"
)

// Terminal cells are not square, so the device frame maps layout pixels
// onto cells at a fixed ratio before drawing.
const (
	cellWidthPx  = 8
	cellHeightPx = 16
)

type model struct {
	ctrl    *surface.Controller
	project string

	snap surface.Snapshot
	spin spinner.Model

	width  int
	height int

	showHelp bool
	showQR   bool

	message string
	isError bool

	quitting bool
}

func newModel(ctrl *surface.Controller, project string) model {
	w, h, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 || h <= 0 {
		w, h = 80, 24
	}

	spin := spinner.New()
	spin.Spinner = spinner.MiniDot
	spin.Style = stateBusy

	return model{
		ctrl:    ctrl,
		project: project,
		snap:    ctrl.Snapshot(),
		spin:    spin,
		width:   w,
		height:  h,
	}
}

func (m model) Init() tea.Cmd {
	return m.spin.Tick
}

// paneHeight is the vertical space left for the device panel once the
// header, dividers, hotkey line and message line are accounted for.
func (m model) paneHeight() int {
	h := m.height - 6
	if h < 4 {
		h = 4
	}
	return h
}

// containerPx converts the panel area to the pixel box handed to the
// geometry engine.
func (m model) containerPx() (int, int) {
	return m.width * cellWidthPx, m.paneHeight() * cellHeightPx
}
