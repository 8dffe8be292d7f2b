package surface

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/frameview/frameview/internal/frame"
	"github.com/frameview/frameview/internal/prefs"
	"github.com/frameview/frameview/internal/preview"
	"github.com/frameview/frameview/pkg/types"
)

// Panel names what the consumer should render.
type Panel string

const (
	PanelIdle    Panel = "idle"    // prompt to start a preview
	PanelBusy    Panel = "busy"    // starting or stopping spinner
	PanelError   Panel = "error"   // failure with a retry affordance
	PanelRunning Panel = "running" // the framed surface itself
)

// Snapshot is the complete render-ready view: session state, surface health,
// and geometry, composed at one instant. Consumers receive it wholesale and
// never reach back into the controller's internals.
type Snapshot struct {
	Panel        Panel                `json:"panel"`
	State        types.PreviewState   `json:"state"`
	BusyLabel    string               `json:"busy_label,omitempty"`
	ErrorMessage string               `json:"error_message,omitempty"`
	Session      *types.SessionInfo   `json:"session,omitempty"`
	Device       frame.Profile        `json:"device"`
	Rotated      bool                 `json:"rotated"`
	ZoomMode     frame.ZoomMode       `json:"zoom_mode"`
	ZoomPercent  int                  `json:"zoom_percent"`
	Container    frame.Box            `json:"container"`
	Layout       frame.Layout         `json:"layout"`
	ReloadNonce  uint64               `json:"reload_nonce"`
	Surface      preview.SurfaceState `json:"surface"`
}

// decidePanel picks the panel strictly from session state and surface
// health. A running session whose surface failed to load renders the error
// panel, not the frame: the sandbox being reachable is not the same thing as
// the app inside it working.
func decidePanel(state types.PreviewState, surface preview.SurfaceState) Panel {
	switch state {
	case types.StateStarting, types.StateStopping:
		return PanelBusy
	case types.StateError:
		return PanelError
	case types.StateRunning:
		if surface == preview.SurfaceFailed {
			return PanelError
		}
		return PanelRunning
	default:
		return PanelIdle
	}
}

// Config wires a controller: project identity, initial geometry, lifecycle
// timing, and optional collaborators.
type Config struct {
	ProjectID string
	UserID    string

	// Device selects the initial profile by id; empty means the saved
	// preference, falling back to the catalog's first entry.
	Device     string
	Catalog    *frame.Catalog
	Padding    frame.Padding
	ZoomLadder []float64

	InitialPollDelay time.Duration
	PollInterval     time.Duration
	MaxPollAttempts  int
	WatchdogTimeout  time.Duration

	// OnPoll is forwarded to the session client, typically to feed metrics.
	OnPoll func(preview.PollResult)

	// OnWatchdogFire observes each load watchdog expiry.
	OnWatchdogFire func()

	// Prefs persists viewport choices per project; nil disables
	// persistence.
	Prefs *prefs.Store

	// Probe stands in for the surface's own load signal when no browser is
	// embedding the preview; nil means signals arrive externally.
	Probe *Prober
}

// Controller composes the session client, the load watchdog, and the
// viewport into snapshots, and routes user actions to the right collaborator.
// Device, rotation, and zoom changes touch only the geometry; they never
// reach the session client.
type Controller struct {
	sessions        *preview.Client
	watchdog        *preview.Watchdog
	probe           *Prober
	store           *prefs.Store
	catalog         *frame.Catalog
	padding         frame.Padding
	watchdogTimeout time.Duration
	projectID       string
	onWatchdogFire  func()
	logger          *slog.Logger

	mu       sync.Mutex
	viewport frame.Viewport
	nonce    uint64
	closed   bool
	subs     map[string]chan Snapshot
}

func New(orch preview.Orchestrator, cfg Config, logger *slog.Logger) (*Controller, error) {
	if logger == nil {
		logger = slog.Default()
	}
	catalog := cfg.Catalog
	if catalog == nil {
		catalog = frame.DefaultCatalog()
	}
	padding := cfg.Padding
	if padding == (frame.Padding{}) {
		padding = frame.DefaultPadding
	}
	watchdogTimeout := cfg.WatchdogTimeout
	if watchdogTimeout <= 0 {
		watchdogTimeout = preview.DefaultWatchdogTimeout
	}

	vp := frame.NewViewport(catalog.First())
	if cfg.ZoomLadder != nil {
		vp = vp.WithLadder(cfg.ZoomLadder)
	}

	c := &Controller{
		probe:           cfg.Probe,
		store:           cfg.Prefs,
		catalog:         catalog,
		padding:         padding,
		watchdogTimeout: watchdogTimeout,
		projectID:       cfg.ProjectID,
		onWatchdogFire:  cfg.OnWatchdogFire,
		logger:          logger,
		viewport:        vp,
		subs:            make(map[string]chan Snapshot),
	}
	c.restorePrefs()
	if cfg.Device != "" {
		p, ok := catalog.Get(cfg.Device)
		if !ok {
			return nil, fmt.Errorf("%w %q", ErrUnknownDevice, cfg.Device)
		}
		c.viewport.SetProfile(p)
	}

	c.watchdog = preview.NewWatchdog(watchdogTimeout, c.onWatchdogFailure)

	client, err := preview.New(orch, preview.Config{
		ProjectID:        cfg.ProjectID,
		UserID:           cfg.UserID,
		InitialPollDelay: cfg.InitialPollDelay,
		PollInterval:     cfg.PollInterval,
		MaxPollAttempts:  cfg.MaxPollAttempts,
		OnStateChange:    c.onStateChange,
		OnError:          c.onError,
		OnPoll:           cfg.OnPoll,
	}, logger)
	if err != nil {
		return nil, err
	}
	c.sessions = client
	return c, nil
}

// Snapshot composes the current render-ready view.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Devices lists the selectable profiles.
func (c *Controller) Devices() []frame.Profile {
	return c.catalog.List()
}

// Subscribe registers a snapshot mailbox, primed with the current view.
// Mailboxes are latest-wins: a slow consumer sees the newest snapshot, not a
// backlog. Priming happens under the lock so no publish can slip in between
// registration and the first delivery. Subscribing to a closed controller
// yields the final snapshot and an already-closed channel.
func (c *Controller) Subscribe() (string, <-chan Snapshot) {
	id := uuid.NewString()
	ch := make(chan Snapshot, 1)
	c.mu.Lock()
	ch <- c.snapshotLocked()
	if c.subs == nil {
		c.mu.Unlock()
		close(ch)
		return id, ch
	}
	c.subs[id] = ch
	c.mu.Unlock()
	return id, ch
}

func (c *Controller) Unsubscribe(id string) {
	c.mu.Lock()
	ch, ok := c.subs[id]
	if ok {
		delete(c.subs, id)
	}
	c.mu.Unlock()
	if ok {
		close(ch)
	}
}

// Start brings up a session for the currently selected device.
func (c *Controller) Start(ctx context.Context) error {
	return c.sessions.Start(ctx, c.deviceID())
}

// Stop tears the session down.
func (c *Controller) Stop(ctx context.Context) error {
	return c.sessions.Stop(ctx)
}

// Refresh forces the surface to reload and reconciles remote state: the
// reload nonce is bumped, the watchdog gets a fresh window, and the
// orchestrator is asked for current status.
func (c *Controller) Refresh(ctx context.Context) error {
	state, sess, _ := c.sessions.Snapshot()
	c.mu.Lock()
	c.nonce++
	c.mu.Unlock()
	if state == types.StateRunning && sess != nil && sess.SurfaceURL != "" {
		c.watchdog.Arm()
		c.maybeProbe(sess.SurfaceURL)
	}
	err := c.sessions.RefreshStatus(ctx)
	c.publish()
	return err
}

// Retry recovers from a failure. From the error state it simply starts
// again. From a running session whose surface failed, it tears the session
// down first and recreates it: a hung surface may mean a hung sandbox, so
// reloading alone is not enough.
func (c *Controller) Retry(ctx context.Context) error {
	state, _, _ := c.sessions.Snapshot()
	if state == types.StateRunning {
		if err := c.sessions.Stop(ctx); err != nil {
			return err
		}
	}
	return c.sessions.Start(ctx, c.deviceID())
}

// SurfaceLoaded records the surface's load signal.
func (c *Controller) SurfaceLoaded() {
	c.watchdog.Loaded()
	c.publish()
}

// SurfaceErrored records an explicit failure signal from the surface.
func (c *Controller) SurfaceErrored(detail string) {
	c.watchdog.Errored(detail)
	c.publish()
}

// Rotate flips the device orientation.
func (c *Controller) Rotate() {
	c.mutateViewport(true, func(v *frame.Viewport) { v.ToggleRotation() })
}

// ZoomIn steps up the zoom ladder, switching to manual mode.
func (c *Controller) ZoomIn() {
	c.mutateViewport(true, func(v *frame.Viewport) { v.ZoomIn() })
}

// ZoomOut steps down the zoom ladder, switching to manual mode.
func (c *Controller) ZoomOut() {
	c.mutateViewport(true, func(v *frame.Viewport) { v.ZoomOut() })
}

// SetZoomMode switches between auto-fit and manual zoom.
func (c *Controller) SetZoomMode(mode frame.ZoomMode) error {
	if mode != frame.ZoomAutoFit && mode != frame.ZoomManual {
		return fmt.Errorf("%w %q", ErrUnknownZoomMode, mode)
	}
	c.mutateViewport(true, func(v *frame.Viewport) { v.SetZoomMode(mode) })
	return nil
}

// SetDevice selects a profile by id.
func (c *Controller) SetDevice(id string) error {
	p, ok := c.catalog.Get(id)
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownDevice, id)
	}
	c.mutateViewport(true, func(v *frame.Viewport) { v.SetProfile(p) })
	return nil
}

// NextDevice cycles to the following profile in the catalog.
func (c *Controller) NextDevice() {
	c.mutateViewport(true, func(v *frame.Viewport) {
		v.SetProfile(c.catalog.Next(v.Profile.ID))
	})
}

// Resize records a new container measurement. The geometry is recomputed on
// the next snapshot; the measurement itself is never persisted.
func (c *Controller) Resize(width, height int) {
	c.mutateViewport(false, func(v *frame.Viewport) {
		v.SetContainer(frame.Box{Width: width, Height: height})
	})
}

// Do routes a wire-level action to the matching operation.
func (c *Controller) Do(ctx context.Context, a Action) error {
	switch a.Type {
	case ActionStart:
		return c.Start(ctx)
	case ActionStop:
		return c.Stop(ctx)
	case ActionRefresh:
		return c.Refresh(ctx)
	case ActionRetry:
		return c.Retry(ctx)
	case ActionRotate:
		c.Rotate()
		return nil
	case ActionZoomIn:
		c.ZoomIn()
		return nil
	case ActionZoomOut:
		c.ZoomOut()
		return nil
	case ActionZoomMode:
		return c.SetZoomMode(a.ZoomMode)
	case ActionDevice:
		return c.SetDevice(a.Device)
	case ActionNextDevice:
		c.NextDevice()
		return nil
	case ActionResize:
		c.Resize(a.Width, a.Height)
		return nil
	case ActionSurfaceLoad:
		c.SurfaceLoaded()
		return nil
	case ActionSurfaceError:
		c.SurfaceErrored(a.Detail)
		return nil
	default:
		return fmt.Errorf("%w %q", ErrUnknownAction, a.Type)
	}
}

// Close tears everything down: subscribers are closed, the watchdog is
// disarmed, and the session client releases any live sandbox best-effort.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()

	c.watchdog.Disarm()
	err := c.sessions.Close()
	for _, ch := range subs {
		close(ch)
	}
	return err
}

func (c *Controller) deviceID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewport.Profile.ID
}

// onStateChange arms the watchdog when the session becomes reachable and
// disarms it on the way out, then publishes.
func (c *Controller) onStateChange(state types.PreviewState, session *types.SessionInfo) {
	if state == types.StateRunning && session != nil && session.SurfaceURL != "" {
		c.watchdog.Arm()
		c.maybeProbe(session.SurfaceURL)
	} else if state != types.StateRunning {
		c.watchdog.Disarm()
	}
	c.publish()
}

func (c *Controller) onError(err error) {
	c.publish()
}

func (c *Controller) onWatchdogFailure(err error) {
	c.logger.Warn("surface load failed", "project", c.projectID, "error", err)
	if c.onWatchdogFire != nil && errors.Is(err, preview.ErrLoadTimeout) {
		c.onWatchdogFire()
	}
	c.publish()
}

// maybeProbe asks the prober to stand in for the surface's load signal.
func (c *Controller) maybeProbe(url string) {
	if c.probe == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.watchdogTimeout)
		defer cancel()
		if err := c.probe.Probe(ctx, url); err != nil {
			c.SurfaceErrored(err.Error())
			return
		}
		c.SurfaceLoaded()
	}()
}

func (c *Controller) mutateViewport(persist bool, fn func(*frame.Viewport)) {
	c.mu.Lock()
	fn(&c.viewport)
	vp := c.viewport
	c.mu.Unlock()
	c.publish()
	if persist {
		c.savePrefs(vp)
	}
}

func (c *Controller) restorePrefs() {
	if c.store == nil || c.projectID == "" {
		return
	}
	saved, ok, err := c.store.Load(c.projectID)
	if err != nil {
		c.logger.Warn("load viewport prefs", "project", c.projectID, "error", err)
		return
	}
	if !ok {
		return
	}
	if p, found := c.catalog.Get(saved.Device); found {
		c.viewport.SetProfile(p)
	}
	c.viewport.Rotated = saved.Rotated
	if saved.ZoomMode == string(frame.ZoomManual) {
		c.viewport.ZoomMode = frame.ZoomManual
	}
	if saved.ManualZoom > 0 {
		c.viewport.ManualZoom = saved.ManualZoom
	}
}

func (c *Controller) savePrefs(vp frame.Viewport) {
	if c.store == nil || c.projectID == "" {
		return
	}
	err := c.store.Save(c.projectID, prefs.Viewport{
		Device:     vp.Profile.ID,
		Rotated:    vp.Rotated,
		ZoomMode:   string(vp.ZoomMode),
		ManualZoom: vp.ManualZoom,
	})
	if err != nil {
		c.logger.Warn("save viewport prefs", "project", c.projectID, "error", err)
	}
}

// publish delivers a fresh snapshot to every mailbox, evicting a stale one
// when the consumer has not caught up.
func (c *Controller) publish() {
	c.mu.Lock()
	snap := c.snapshotLocked()
	for _, ch := range c.subs {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
	c.mu.Unlock()
}

func (c *Controller) snapshotLocked() Snapshot {
	state, sess, lastErr := c.sessions.Snapshot()
	surfState, surfErr := c.watchdog.State()
	snap := Snapshot{
		Panel:       decidePanel(state, surfState),
		State:       state,
		Session:     sess,
		Device:      c.viewport.Profile,
		Rotated:     c.viewport.Rotated,
		ZoomMode:    c.viewport.ZoomMode,
		ZoomPercent: c.viewport.ZoomPercent(),
		Container:   c.viewport.Container,
		Layout:      frame.Compute(c.viewport, c.padding),
		ReloadNonce: c.nonce,
		Surface:     surfState,
	}
	switch state {
	case types.StateStarting:
		snap.BusyLabel = "starting preview"
	case types.StateStopping:
		snap.BusyLabel = "stopping preview"
	}
	if state == types.StateError && lastErr != nil {
		snap.ErrorMessage = lastErr.Error()
	} else if snap.Panel == PanelError && surfErr != nil {
		snap.ErrorMessage = surfErr.Error()
	}
	return snap
}
