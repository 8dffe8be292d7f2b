package frame

import (
	"math"
	"sort"
)

// ZoomMode selects how the effective scale is derived.
type ZoomMode string

const (
	// ZoomAutoFit always scales the device frame to exactly fill the
	// available container space, recomputed on every resize.
	ZoomAutoFit ZoomMode = "auto-fit"
	// ZoomManual applies a discrete multiplier on top of the fit scale.
	ZoomManual ZoomMode = "manual"
)

// DefaultZoomLadder is the discrete manual zoom ladder. Steps clamp at both
// ends; zooming past a limit is a no-op, never a wrap-around.
var DefaultZoomLadder = []float64{0.25, 0.5, 0.75, 1, 1.25, 1.5, 2}

// Viewport is the ephemeral per-surface view state: which device is
// simulated, how it is oriented and zoomed, and the last observed container
// box. It is owned by the surface controller and recomputed synchronously
// whenever any input changes; it is never persisted as-is.
type Viewport struct {
	Profile    Profile
	Rotated    bool
	ZoomMode   ZoomMode
	ManualZoom float64
	Container  Box

	ladder []float64
}

// NewViewport returns a viewport for the given profile in auto-fit mode with
// the default zoom ladder.
func NewViewport(p Profile) Viewport {
	return Viewport{
		Profile:    p,
		ZoomMode:   ZoomAutoFit,
		ManualZoom: 1,
		ladder:     DefaultZoomLadder,
	}
}

// WithLadder replaces the zoom ladder. Empty ladders keep the default; the
// rungs are sorted so stepping sees them in ascending order.
func (v Viewport) WithLadder(ladder []float64) Viewport {
	if len(ladder) > 0 {
		l := append([]float64(nil), ladder...)
		sort.Float64s(l)
		v.ladder = l
	}
	return v
}

// DeviceBox returns the effective device pixel box, swapped when rotated.
func (v Viewport) DeviceBox() Box {
	if v.Rotated {
		return Box{Width: v.Profile.Height, Height: v.Profile.Width}
	}
	return Box{Width: v.Profile.Width, Height: v.Profile.Height}
}

// SetProfile switches the simulated device. Changing hardware resets the
// manual zoom to 1 ("fit"): a numeric zoom picked for a different screen
// must not carry over.
func (v *Viewport) SetProfile(p Profile) {
	if p.ID == v.Profile.ID {
		return
	}
	v.Profile = p
	v.ManualZoom = 1
}

// ToggleRotation flips between portrait and landscape and resets the manual
// zoom to 1, same as a device switch.
func (v *Viewport) ToggleRotation() {
	v.Rotated = !v.Rotated
	v.ManualZoom = 1
}

// SetZoomMode switches between auto-fit and manual. The manual zoom level is
// preserved across mode switches, so toggling away and back restores it
// exactly.
func (v *Viewport) SetZoomMode(mode ZoomMode) {
	v.ZoomMode = mode
}

// SetContainer records the latest observed container box.
func (v *Viewport) SetContainer(b Box) {
	v.Container = b
}

// ZoomIn steps the manual zoom to the next ladder rung above the current
// level, clamping at the top, and switches to manual mode. An off-ladder
// level, as restored from saved preferences against a changed ladder, lands
// on a real rung after one step.
func (v *Viewport) ZoomIn() {
	for _, step := range v.ladder {
		if step > v.ManualZoom {
			v.ManualZoom = step
			break
		}
	}
	v.ZoomMode = ZoomManual
}

// ZoomOut steps the manual zoom to the next ladder rung below the current
// level, clamping at the bottom, and switches to manual mode.
func (v *Viewport) ZoomOut() {
	for i := len(v.ladder) - 1; i >= 0; i-- {
		if v.ladder[i] < v.ManualZoom {
			v.ManualZoom = v.ladder[i]
			break
		}
	}
	v.ZoomMode = ZoomManual
}

// ZoomPercent is the number displayed to the user for manual zoom. It is
// the manual level times 100, independent of the fit scale, so it does not
// jump around as the container resizes.
func (v Viewport) ZoomPercent() int {
	return int(math.Round(v.ManualZoom * 100))
}
