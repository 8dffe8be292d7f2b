package preview

import "errors"

var (
	// ErrStopInProgress rejects a start issued while a stop is still settling.
	ErrStopInProgress = errors.New("stop in progress")

	// ErrClientClosed rejects operations on a closed client.
	ErrClientClosed = errors.New("preview client is closed")

	// ErrProvisionTimeout is recorded when the polling budget is exhausted
	// while the sandbox still reports creating.
	ErrProvisionTimeout = errors.New("timed out waiting for sandbox to become ready")

	// ErrLoadTimeout is recorded by the watchdog when the surface never
	// signals load after the session became reachable.
	ErrLoadTimeout = errors.New("preview took too long to respond")
)
