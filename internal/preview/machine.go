package preview

import (
	"fmt"

	"github.com/frameview/frameview/pkg/types"
)

// The transition rules live here as pure functions so the legality table and
// the remote-status mapping can be tested without timers or a live client.

// startDisposition decides what a start call may do from the given state.
// proceed=true means issue a create request. proceed=false with a nil error
// is a settled no-op (a session already exists or is on its way).
func startDisposition(s types.PreviewState) (proceed bool, err error) {
	switch s {
	case types.StateIdle, types.StateError:
		return true, nil
	case types.StateStopping:
		return false, ErrStopInProgress
	default:
		return false, nil
	}
}

// stopDisposition reports whether a stop call has work to do. From idle,
// error, or stopping there is nothing to release and stop settles
// immediately.
func stopDisposition(s types.PreviewState) bool {
	return s.CanStop()
}

// reconcileResult is the local consequence of one remote status observation.
type reconcileResult struct {
	Next        types.PreviewState
	KeepSession bool
	// Poll is set when the remote is still provisioning and the status
	// needs to be watched until it settles.
	Poll bool
	// Err carries the failure to record when Next is error.
	Err error
}

// reconcileRemote maps the orchestrator's view of a session onto the client
// state machine: creating -> starting, active -> running, ended -> idle with
// the session discarded, error -> error.
func reconcileRemote(info types.SessionInfo) reconcileResult {
	switch info.Status {
	case types.RemoteActive:
		return reconcileResult{Next: types.StateRunning, KeepSession: true}
	case types.RemoteCreating:
		return reconcileResult{Next: types.StateStarting, KeepSession: true, Poll: true}
	case types.RemoteEnded:
		return reconcileResult{Next: types.StateIdle}
	case types.RemoteError:
		return reconcileResult{Next: types.StateError, KeepSession: true, Err: remoteFailure(info)}
	default:
		return reconcileResult{Next: types.StateError, Err: fmt.Errorf("unknown remote status %q", info.Status)}
	}
}

func remoteFailure(info types.SessionInfo) error {
	if info.ErrorMessage != "" {
		return fmt.Errorf("sandbox failed: %s", info.ErrorMessage)
	}
	return fmt.Errorf("sandbox reported an error")
}
