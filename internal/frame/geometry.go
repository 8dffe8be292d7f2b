package frame

import "math"

// Box is a pixel rectangle, width by height.
type Box struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// HasArea reports whether both dimensions are positive.
func (b Box) HasArea() bool {
	return b.Width > 0 && b.Height > 0
}

// Padding is the chrome allowance reserved around the device frame for
// on-screen controls. The defaults match the editor's toolbar and status bar;
// both values are configuration, not invariants.
type Padding struct {
	Horizontal int `json:"horizontal" yaml:"horizontal"`
	Vertical   int `json:"vertical" yaml:"vertical"`
}

// DefaultPadding is the chrome allowance applied when none is configured.
var DefaultPadding = Padding{Horizontal: 48, Vertical: 120}

// Layout is the exact pixel box at which the embedded surface renders, plus
// the scale factor applied to the device box. Dimensions are rounded with
// math.Round; the rounding rule is fixed and covered by tests.
type Layout struct {
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Scale  float64 `json:"scale"`
}

// BaseScale computes the largest scale at most 1 at which the device box, inflated
// by the chrome allowance, fits entirely inside the container. A container
// without positive area yields 1: before the first layout measurement there
// is nothing meaningful to fit against, and dividing by a zero-sized box must
// never poison the scale with NaN or Inf.
func BaseScale(device, container Box, pad Padding) float64 {
	if !device.HasArea() {
		return 1
	}
	if !container.HasArea() {
		return 1
	}
	availW := container.Width - pad.Horizontal
	availH := container.Height - pad.Vertical
	if availW < 0 {
		availW = 0
	}
	if availH < 0 {
		availH = 0
	}
	scale := math.Min(float64(availW)/float64(device.Width), float64(availH)/float64(device.Height))
	if scale > 1 {
		scale = 1
	}
	if scale < 0 {
		scale = 0
	}
	return scale
}

// Compute maps the viewport onto the pixel box for the embedded surface.
//
// Desktop-category devices bypass the device frame and render at 100% of the
// container. Otherwise the effective scale is the fit scale, multiplied by the
// manual zoom level when manual zoom is active: manual zoom is a multiplier of
// "fits in container", not of true device pixel size, so the percentage shown
// to the user stays stable across container resizes.
func Compute(v Viewport, pad Padding) Layout {
	if v.Profile.Category == CategoryDesktop {
		return Layout{Width: v.Container.Width, Height: v.Container.Height, Scale: 1}
	}
	device := v.DeviceBox()
	scale := BaseScale(device, v.Container, pad)
	if v.ZoomMode == ZoomManual {
		scale *= v.ManualZoom
	}
	return Layout{
		Width:  int(math.Round(float64(device.Width) * scale)),
		Height: int(math.Round(float64(device.Height) * scale)),
		Scale:  scale,
	}
}
