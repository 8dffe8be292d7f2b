package types

// RemoteStatus is the orchestration service's own view of sandbox health.
// It is distinct from the client-side PreviewState: the service only knows
// whether the sandbox exists and is reachable, not what the editor is doing
// with it.
type RemoteStatus string

const (
	RemoteCreating RemoteStatus = "creating" // Sandbox is being provisioned
	RemoteActive   RemoteStatus = "active"   // Sandbox is live and reachable
	RemoteEnded    RemoteStatus = "ended"    // Sandbox was torn down
	RemoteError    RemoteStatus = "error"    // Provisioning or runtime failure
)

// IsTerminal returns true if the remote status is final.
func (s RemoteStatus) IsTerminal() bool {
	switch s {
	case RemoteEnded, RemoteError:
		return true
	default:
		return false
	}
}

// PreviewState is the client-side session state machine.
//
// Legal transitions: idle -> starting -> running, with error reachable from
// starting or running, and stopping -> idle as the only path back.
type PreviewState string

const (
	StateIdle     PreviewState = "idle"     // No session
	StateStarting PreviewState = "starting" // Create issued or polling for active
	StateRunning  PreviewState = "running"  // Sandbox reachable, surface URL known
	StateStopping PreviewState = "stopping" // Stop issued, waiting for it to settle
	StateError    PreviewState = "error"    // Failed; retryable via a new start
)

// IsActive returns true while a session exists or is being created.
func (s PreviewState) IsActive() bool {
	switch s {
	case StateStarting, StateRunning, StateStopping:
		return true
	default:
		return false
	}
}

// CanStart reports whether a start call is legal from this state.
func (s PreviewState) CanStart() bool {
	return s == StateIdle || s == StateError
}

// CanStop reports whether a stop call has anything to do in this state.
func (s PreviewState) CanStop() bool {
	return s == StateStarting || s == StateRunning
}

// SessionInfo describes one remote sandbox instance. It is replaced wholesale
// on every status refresh; no field is mutated in place.
type SessionInfo struct {
	SessionID    string       `json:"session_id"`
	Status       RemoteStatus `json:"status"`
	SurfaceURL   string       `json:"surface_url,omitempty"`
	ErrorMessage string       `json:"error_message,omitempty"`
}

// Clone returns an independent copy so consumers can hold a snapshot without
// sharing memory with the session client.
func (s *SessionInfo) Clone() *SessionInfo {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

type StartSessionRequest struct {
	ProjectID  string `json:"project_id"`
	UserID     string `json:"user_id,omitempty"`
	DeviceHint string `json:"device_hint,omitempty"`
}

type StopSessionRequest struct {
	SessionID string `json:"session_id"`
}

// StopSessionResponse is the ack returned by the orchestration service. The
// client treats stop as settled regardless of its content.
type StopSessionResponse struct {
	Stopped bool `json:"stopped"`
}
