package preview

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/frameview/frameview/pkg/types"
)

// Orchestrator is the slice of the orchestration service the session client
// consumes. *orchestrator.Client satisfies it; tests substitute a scripted
// fake.
type Orchestrator interface {
	StartSession(ctx context.Context, req types.StartSessionRequest) (types.SessionInfo, error)
	SessionStatus(ctx context.Context, id string) (types.SessionInfo, error)
	StopSession(ctx context.Context, id string) (types.StopSessionResponse, error)
}

// PollResult classifies one poll of the remote status, for logging and
// metrics.
type PollResult string

const (
	PollActive    PollResult = "active"
	PollCreating  PollResult = "creating"
	PollEnded     PollResult = "ended"
	PollError     PollResult = "error"
	PollTransport PollResult = "transport"
)

const (
	DefaultInitialPollDelay = 2 * time.Second
	DefaultPollInterval     = 10 * time.Second
	DefaultMaxPollAttempts  = 30
)

// Config carries the identity the client attaches to create requests plus
// the polling bounds and consumer callbacks. Zero durations and counts fall
// back to the production defaults; tests shrink them.
type Config struct {
	ProjectID string
	UserID    string

	InitialPollDelay time.Duration
	PollInterval     time.Duration
	MaxPollAttempts  int

	// OnStateChange receives every state transition together with a
	// snapshot of the session, nil once the session is discarded.
	OnStateChange func(state types.PreviewState, session *types.SessionInfo)
	// OnError receives recorded failures: create rejections, remote error
	// statuses, and the polling timeout.
	OnError func(err error)
	// OnPoll observes each status poll, including wasted transport
	// attempts.
	OnPoll func(result PollResult)
}

// Client owns the preview session lifecycle for one project: it issues
// create/status/stop calls, runs the bounded provisioning poll, and
// guarantees at most one create or stop is in flight at a time.
//
// All callbacks are delivered in transition order on a single goroutine at a
// time, never while the client's lock is held, so a callback may call back
// into the client.
type Client struct {
	orch   Orchestrator
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	state   types.PreviewState
	session *types.SessionInfo
	lastErr error
	closed  bool

	// epoch is bumped by every start, stop, and close. Async completions
	// (a settling create, a poll response, a manual refresh) capture the
	// epoch they were issued under and are discarded if it moved on.
	epoch      uint64
	pollEpoch  uint64
	pollCancel context.CancelFunc

	queue   []func()
	pumping bool
}

func New(orch Orchestrator, cfg Config, logger *slog.Logger) (*Client, error) {
	if orch == nil {
		return nil, fmt.Errorf("orchestrator is required")
	}
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("project id is required")
	}
	if cfg.InitialPollDelay <= 0 {
		cfg.InitialPollDelay = DefaultInitialPollDelay
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.MaxPollAttempts <= 0 {
		cfg.MaxPollAttempts = DefaultMaxPollAttempts
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		orch:   orch,
		cfg:    cfg,
		logger: logger,
		state:  types.StateIdle,
	}, nil
}

// Snapshot returns the current state, a copy of the session, and the last
// recorded failure.
func (c *Client) Snapshot() (types.PreviewState, *types.SessionInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, c.session.Clone(), c.lastErr
}

// Start brings up a session. From idle or error it issues a create request;
// while one is already starting or running it settles immediately; during a
// stop it returns ErrStopInProgress. Start returns once the create request
// settles: on a creating answer the provisioning poll continues in the
// background.
func (c *Client) Start(ctx context.Context, deviceHint string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClientClosed
	}
	proceed, err := startDisposition(c.state)
	if !proceed {
		c.mu.Unlock()
		return err
	}
	c.epoch++
	epoch := c.epoch
	c.cancelPollLocked()
	// A leftover errored session still holds server-side resources until
	// its own idle timeout; release it before provisioning a new one.
	if old := c.session; old != nil && old.SessionID != "" {
		go c.fireAndForgetStop(old.SessionID)
	}
	c.session = nil
	c.lastErr = nil
	c.transitionLocked(types.StateStarting)
	c.mu.Unlock()
	c.pump()

	info, createErr := c.orch.StartSession(ctx, types.StartSessionRequest{
		ProjectID:  c.cfg.ProjectID,
		UserID:     c.cfg.UserID,
		DeviceHint: deviceHint,
	})

	c.mu.Lock()
	if c.epoch != epoch || c.closed {
		// A stop or close raced the create. Discard the answer, but
		// release any sandbox it provisioned.
		c.mu.Unlock()
		if createErr == nil && info.SessionID != "" {
			go c.fireAndForgetStop(info.SessionID)
		}
		return nil
	}
	if createErr != nil {
		err := fmt.Errorf("create session: %w", createErr)
		c.failLocked(err)
		c.mu.Unlock()
		c.pump()
		return err
	}

	switch info.Status {
	case types.RemoteActive:
		c.session = info.Clone()
		c.transitionLocked(types.StateRunning)
		c.logger.Info("preview session running", "session", info.SessionID, "surface_url", info.SurfaceURL)
	case types.RemoteCreating:
		if info.SessionID == "" {
			err := fmt.Errorf("create session: response missing session id")
			c.failLocked(err)
			c.mu.Unlock()
			c.pump()
			return err
		}
		c.session = info.Clone()
		c.startPollLocked(epoch, info.SessionID)
		c.logger.Info("preview session provisioning", "session", info.SessionID)
	default:
		err := fmt.Errorf("create session: unexpected status %q", info.Status)
		c.failLocked(err)
		c.mu.Unlock()
		c.pump()
		return err
	}
	c.mu.Unlock()
	c.pump()
	return nil
}

// Stop tears the session down. From idle, error, or stopping it settles
// immediately. Local state is always released when the remote call settles,
// success or failure, so the consumer can never get stuck unable to start
// again.
func (c *Client) Stop(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClientClosed
	}
	if !stopDisposition(c.state) {
		c.mu.Unlock()
		return nil
	}
	c.epoch++
	c.cancelPollLocked()
	sess := c.session.Clone()
	c.transitionLocked(types.StateStopping)
	c.mu.Unlock()
	c.pump()

	var remoteErr error
	if sess != nil && sess.SessionID != "" {
		_, remoteErr = c.orch.StopSession(ctx, sess.SessionID)
	}
	if remoteErr != nil {
		c.logger.Warn("remote stop failed, releasing local state anyway",
			"session", sess.SessionID, "error", remoteErr)
	}

	c.mu.Lock()
	c.session = nil
	c.lastErr = nil
	c.transitionLocked(types.StateIdle)
	c.mu.Unlock()
	c.pump()
	return nil
}

// RefreshStatus fetches the remote status and reconciles local state. It is
// idempotent and callable in any state; with no session it settles
// immediately. A response that arrives after the session it described was
// stopped is discarded, not applied. A transport failure is returned to the
// caller without a state transition.
func (c *Client) RefreshStatus(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClientClosed
	}
	sess := c.session
	if sess == nil || sess.SessionID == "" || c.state == types.StateStopping {
		c.mu.Unlock()
		return nil
	}
	id := sess.SessionID
	epoch := c.epoch
	c.mu.Unlock()

	info, err := c.orch.SessionStatus(ctx, id)

	c.mu.Lock()
	if c.epoch != epoch || c.closed || c.session == nil || c.session.SessionID != id || c.state == types.StateStopping {
		c.mu.Unlock()
		return nil
	}
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("refresh status: %w", err)
	}
	c.applyRemoteLocked(info)
	c.mu.Unlock()
	c.pump()
	return nil
}

// Close tears the client down: pending polls are cancelled and any live
// session gets a best-effort stop without waiting for the result.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.epoch++
	c.cancelPollLocked()
	sess := c.session
	c.session = nil
	c.state = types.StateIdle
	c.mu.Unlock()

	if sess != nil && sess.SessionID != "" {
		go c.fireAndForgetStop(sess.SessionID)
	}
	return nil
}

// applyRemoteLocked reconciles one healthy status observation. Callers hold
// c.mu and pump afterwards.
func (c *Client) applyRemoteLocked(info types.SessionInfo) {
	r := reconcileRemote(info)
	if r.KeepSession {
		c.session = info.Clone()
	} else {
		c.session = nil
	}
	if r.Err != nil {
		c.failLocked(r.Err)
		return
	}
	if r.Poll && c.pollEpoch != c.epoch {
		// The remote is still provisioning and nothing is watching it.
		c.startPollLocked(c.epoch, info.SessionID)
	}
	c.transitionLocked(r.Next)
}

func (c *Client) startPollLocked(epoch uint64, sessionID string) {
	ctx, cancel := context.WithCancel(context.Background())
	c.pollCancel = cancel
	c.pollEpoch = epoch
	go c.pollUntilReady(ctx, epoch, sessionID)
}

func (c *Client) cancelPollLocked() {
	if c.pollCancel != nil {
		c.pollCancel()
		c.pollCancel = nil
	}
	c.pollEpoch = 0
}

// pollUntilReady watches a provisioning session: first check after the
// initial delay, then on a fixed interval, bounded by the attempt budget.
func (c *Client) pollUntilReady(ctx context.Context, epoch uint64, sessionID string) {
	timer := time.NewTimer(c.cfg.InitialPollDelay)
	defer timer.Stop()
	for attempt := 1; ; attempt++ {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		info, err := c.orch.SessionStatus(ctx, sessionID)
		if c.settlePoll(epoch, sessionID, info, err, attempt) {
			return
		}
		timer.Reset(c.cfg.PollInterval)
	}
}

// settlePoll applies one poll result and reports whether the loop is done.
func (c *Client) settlePoll(epoch uint64, sessionID string, info types.SessionInfo, err error, attempt int) bool {
	c.mu.Lock()
	if c.epoch != epoch || c.closed {
		c.mu.Unlock()
		return true
	}

	if err != nil {
		// Transport noise while the sandbox boots: burn the attempt and
		// retry rather than giving up on a live provisioning.
		c.observePollLocked(PollTransport)
		c.logger.Warn("status poll failed", "session", sessionID, "attempt", attempt, "error", err)
		if attempt >= c.cfg.MaxPollAttempts {
			c.failLocked(ErrProvisionTimeout)
			c.finishPollLocked(epoch)
			c.mu.Unlock()
			c.pump()
			return true
		}
		c.mu.Unlock()
		c.pump()
		return false
	}

	switch info.Status {
	case types.RemoteActive:
		c.observePollLocked(PollActive)
		c.session = info.Clone()
		c.lastErr = nil
		c.transitionLocked(types.StateRunning)
		c.logger.Info("preview session running", "session", sessionID, "attempts", attempt, "surface_url", info.SurfaceURL)
	case types.RemoteCreating:
		c.observePollLocked(PollCreating)
		c.session = info.Clone()
		if attempt >= c.cfg.MaxPollAttempts {
			c.failLocked(ErrProvisionTimeout)
			c.logger.Warn("provisioning timed out", "session", sessionID, "attempts", attempt)
			c.finishPollLocked(epoch)
			c.mu.Unlock()
			c.pump()
			return true
		}
		c.mu.Unlock()
		c.pump()
		return false
	case types.RemoteEnded:
		c.observePollLocked(PollEnded)
		c.session = nil
		c.transitionLocked(types.StateIdle)
		c.logger.Info("session ended during provisioning", "session", sessionID)
	default:
		c.observePollLocked(PollError)
		c.session = info.Clone()
		c.failLocked(remoteFailure(info))
		c.logger.Warn("session failed during provisioning", "session", sessionID, "error", info.ErrorMessage)
	}
	c.finishPollLocked(epoch)
	c.mu.Unlock()
	c.pump()
	return true
}

func (c *Client) finishPollLocked(epoch uint64) {
	if c.pollEpoch == epoch {
		c.pollEpoch = 0
		c.pollCancel = nil
	}
}

func (c *Client) fireAndForgetStop(sessionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := c.orch.StopSession(ctx, sessionID); err != nil {
		c.logger.Debug("best-effort stop failed", "session", sessionID, "error", err)
		return
	}
	c.logger.Debug("released orphaned session", "session", sessionID)
}

// transitionLocked moves to next and queues the notification. No-op when the
// state is unchanged.
func (c *Client) transitionLocked(next types.PreviewState) {
	if next == c.state {
		return
	}
	prev := c.state
	c.state = next
	c.logger.Debug("state transition", "from", prev, "to", next)
	if cb := c.cfg.OnStateChange; cb != nil {
		snap := c.session.Clone()
		c.queue = append(c.queue, func() { cb(next, snap) })
	}
}

// failLocked records err and moves to the error state.
func (c *Client) failLocked(err error) {
	c.lastErr = err
	c.transitionLocked(types.StateError)
	if cb := c.cfg.OnError; cb != nil {
		c.queue = append(c.queue, func() { cb(err) })
	}
}

func (c *Client) observePollLocked(result PollResult) {
	if cb := c.cfg.OnPoll; cb != nil {
		c.queue = append(c.queue, func() { cb(result) })
	}
}

// pump delivers queued notifications in order. Exactly one goroutine drains
// at a time; the lock is dropped around each callback so callbacks may
// re-enter the client.
func (c *Client) pump() {
	c.mu.Lock()
	if c.pumping {
		c.mu.Unlock()
		return
	}
	c.pumping = true
	for len(c.queue) > 0 {
		fn := c.queue[0]
		c.queue = c.queue[1:]
		c.mu.Unlock()
		fn()
		c.mu.Lock()
	}
	c.pumping = false
	c.mu.Unlock()
}
