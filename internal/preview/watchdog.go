package preview

import (
	"fmt"
	"sync"
	"time"
)

// DefaultWatchdogTimeout is how long a reachable session's surface gets to
// signal load before a failure is recorded.
const DefaultWatchdogTimeout = 30 * time.Second

// SurfaceState tracks whether the embedded content surface ever finished
// loading after the session became reachable.
type SurfaceState string

const (
	SurfaceIdle    SurfaceState = "idle"    // no session, watchdog disarmed
	SurfaceWaiting SurfaceState = "waiting" // armed, no load signal yet
	SurfaceLoaded  SurfaceState = "loaded"  // surface signalled load in time
	SurfaceFailed  SurfaceState = "failed"  // timer fired or surface errored
)

// Watchdog is the single-shot load timer for the content surface. A session
// can be reachable at the network level while the app inside it never
// finishes loading; the watchdog makes that distinguishable from a
// session-creation failure.
//
// Arm starts (or restarts) the timer; a load signal cancels it; the timer
// firing records a failure exactly once per arming. A surface error signal
// records a failure immediately without waiting for the timer.
type Watchdog struct {
	timeout   time.Duration
	onFailure func(err error)

	mu     sync.Mutex
	gen    uint64
	state  SurfaceState
	reason error
	timer  *time.Timer
}

// NewWatchdog builds a disarmed watchdog. timeout <= 0 falls back to the
// default; onFailure may be nil.
func NewWatchdog(timeout time.Duration, onFailure func(err error)) *Watchdog {
	if timeout <= 0 {
		timeout = DefaultWatchdogTimeout
	}
	return &Watchdog{
		timeout:   timeout,
		onFailure: onFailure,
		state:     SurfaceIdle,
	}
}

// Arm starts the timer for a fresh load attempt, replacing any previous
// arming. Called when the session becomes reachable and again on every
// user-initiated refresh.
func (w *Watchdog) Arm() {
	w.mu.Lock()
	w.gen++
	gen := w.gen
	w.stopTimerLocked()
	w.state = SurfaceWaiting
	w.reason = nil
	w.timer = time.AfterFunc(w.timeout, func() { w.fire(gen) })
	w.mu.Unlock()
}

// Loaded records the surface's load signal, cancelling the pending timer.
// Ignored unless a load is actually awaited.
func (w *Watchdog) Loaded() {
	w.mu.Lock()
	if w.state != SurfaceWaiting {
		w.mu.Unlock()
		return
	}
	w.stopTimerLocked()
	w.state = SurfaceLoaded
	w.mu.Unlock()
}

// Errored records an explicit failure signal from the surface. Unlike the
// timer, it also applies after a successful load: an app can load and then
// crash.
func (w *Watchdog) Errored(detail string) {
	w.mu.Lock()
	if w.state != SurfaceWaiting && w.state != SurfaceLoaded {
		w.mu.Unlock()
		return
	}
	w.stopTimerLocked()
	w.state = SurfaceFailed
	if detail != "" {
		w.reason = fmt.Errorf("surface reported an error: %s", detail)
	} else {
		w.reason = fmt.Errorf("surface reported an error")
	}
	reason := w.reason
	cb := w.onFailure
	w.mu.Unlock()
	if cb != nil {
		cb(reason)
	}
}

// Disarm cancels any pending timer and clears recorded state. Called when
// the session leaves running.
func (w *Watchdog) Disarm() {
	w.mu.Lock()
	w.gen++
	w.stopTimerLocked()
	w.state = SurfaceIdle
	w.reason = nil
	w.mu.Unlock()
}

// State returns the current surface state and the recorded failure, if any.
func (w *Watchdog) State() (SurfaceState, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state, w.reason
}

func (w *Watchdog) fire(gen uint64) {
	w.mu.Lock()
	if gen != w.gen || w.state != SurfaceWaiting {
		// A stale timer from a previous arming, or the load already
		// settled.
		w.mu.Unlock()
		return
	}
	w.state = SurfaceFailed
	w.reason = ErrLoadTimeout
	cb := w.onFailure
	w.mu.Unlock()
	if cb != nil {
		cb(ErrLoadTimeout)
	}
}

func (w *Watchdog) stopTimerLocked() {
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}
