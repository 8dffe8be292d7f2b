package surface

import "github.com/frameview/frameview/internal/frame"

// ActionType names a user action routed through the controller.
type ActionType string

const (
	ActionStart        ActionType = "start"
	ActionStop         ActionType = "stop"
	ActionRefresh      ActionType = "refresh"
	ActionRetry        ActionType = "retry"
	ActionRotate       ActionType = "rotate"
	ActionZoomIn       ActionType = "zoom_in"
	ActionZoomOut      ActionType = "zoom_out"
	ActionZoomMode     ActionType = "zoom_mode"
	ActionDevice       ActionType = "device"
	ActionNextDevice   ActionType = "next_device"
	ActionResize       ActionType = "resize"
	ActionSurfaceLoad  ActionType = "surface_load"
	ActionSurfaceError ActionType = "surface_error"
)

// Action is the wire form of a user action. Only the fields relevant to the
// type are read: Device for device selection, ZoomMode for mode switches,
// Width/Height for resize, Detail for surface errors.
type Action struct {
	Type     ActionType     `json:"type"`
	Device   string         `json:"device,omitempty"`
	ZoomMode frame.ZoomMode `json:"zoom_mode,omitempty"`
	Width    int            `json:"width,omitempty"`
	Height   int            `json:"height,omitempty"`
	Detail   string         `json:"detail,omitempty"`
}
