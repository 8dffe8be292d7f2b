package surface

import "errors"

var (
	// ErrUnknownAction is wrapped by Do for unroutable action types.
	ErrUnknownAction = errors.New("unknown action")
	// ErrUnknownDevice is wrapped when a device id is not in the catalog.
	ErrUnknownDevice = errors.New("unknown device")
	// ErrUnknownZoomMode is wrapped for zoom modes other than auto-fit and
	// manual.
	ErrUnknownZoomMode = errors.New("unknown zoom mode")
)
