package nav

import (
	"context"
	"sync"

	"notations/internal/core"
	"notations/internal/route"
	"notations/pkg/domain"
)

// View identifies the surface the controller currently presents.
type View string

// Controller views.
const (
	ViewLogin   View = "login"
	ViewLibrary View = "library"
	ViewEditor  View = "editor"
)

// State is the controller's externally visible position.
type State struct {
	View    View
	StackID string // current stack, set for library and editor views
	SheetID string // active sheet, set for editor views
}

// Options control a single navigation transition. SyncHash writes the
// canonical hash after the transition; Persist records the focus change in
// the store.
type Options struct {
	SyncHash bool
	Persist  bool
}

// DefaultOptions matches user-initiated navigation.
var DefaultOptions = Options{SyncHash: true, Persist: true}

// Controller orchestrates view transitions. It holds ids only and
// re-resolves nodes through the service on every transition.
type Controller struct {
	svc    *core.Service
	hash   HashBus
	logger core.Logger

	mu              sync.Mutex
	view            View
	stackID         string
	sheetID         string
	started         bool
	pendingDeepLink string
	hasPending      bool
	lastWrittenHash string
	onViewChange    func(State)
}

// ControllerOption customizes controller construction.
type ControllerOption func(*Controller)

// WithLogger attaches a logger to the controller.
func WithLogger(logger core.Logger) ControllerOption {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithViewChangeFunc registers a callback invoked after every successful
// transition. The callback runs with the controller lock held; it must not
// call back into the controller.
func WithViewChangeFunc(fn func(State)) ControllerOption {
	return func(c *Controller) {
		c.onViewChange = fn
	}
}

// NewController builds a controller over the given service and hash bus.
func NewController(svc *core.Service, hash HashBus, options ...ControllerOption) *Controller {
	c := &Controller{
		svc:     svc,
		hash:    hash,
		logger:  core.NopLogger(),
		view:    ViewLogin,
		stackID: svc.RootID(),
	}
	for _, apply := range options {
		apply(c)
	}
	return c
}

// Current returns the controller's position.
func (c *Controller) Current() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{View: c.view, StackID: c.stackID, SheetID: c.sheetID}
}

func (c *Controller) notifyLocked() {
	if c.onViewChange != nil {
		c.onViewChange(State{View: c.view, StackID: c.stackID, SheetID: c.sheetID})
	}
}

// NavigateToLogin shows the login view and resets focus to the root.
func (c *Controller) NavigateToLogin(ctx context.Context, opts Options) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.navigateToLoginLocked(ctx, opts)
}

func (c *Controller) navigateToLoginLocked(ctx context.Context, opts Options) bool {
	rootID := c.svc.RootID()
	if opts.Persist {
		if err := c.persistFocus(ctx, rootID, "", ""); err != nil {
			return false
		}
	}
	c.view = ViewLogin
	c.stackID = rootID
	c.sheetID = ""
	if opts.SyncHash {
		c.syncHashLocked(ctx)
	}
	c.notifyLocked()
	return true
}

// NavigateToLibrary shows a stack. Unknown or non-stack ids are rejected.
func (c *Controller) NavigateToLibrary(ctx context.Context, stackID string, opts Options) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.navigateToLibraryLocked(ctx, stackID, opts)
}

func (c *Controller) navigateToLibraryLocked(ctx context.Context, stackID string, opts Options) bool {
	stack, ok := c.svc.GetStack(stackID)
	if !ok {
		return false
	}
	selected := stack.ID
	if stack.ID == c.svc.RootID() {
		selected = ""
	}
	if opts.Persist {
		if err := c.persistFocus(ctx, stack.ID, "", selected); err != nil {
			return false
		}
	}
	c.view = ViewLibrary
	c.stackID = stack.ID
	c.sheetID = ""
	if opts.SyncHash {
		c.syncHashLocked(ctx)
	}
	c.notifyLocked()
	return true
}

// NavigateToSheet opens a sheet in the editor, deriving the current stack
// from the sheet's parent.
func (c *Controller) NavigateToSheet(ctx context.Context, sheetID string, opts Options) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.navigateToSheetLocked(ctx, sheetID, opts)
}

func (c *Controller) navigateToSheetLocked(ctx context.Context, sheetID string, opts Options) bool {
	sheet, ok := c.svc.GetSheet(sheetID)
	if !ok {
		return false
	}
	parentID := sheet.ParentID
	if parentID == "" {
		parentID = c.svc.RootID()
	}
	if opts.Persist {
		if err := c.persistFocus(ctx, parentID, sheet.ID, sheet.ID); err != nil {
			return false
		}
	}
	c.view = ViewEditor
	c.stackID = parentID
	c.sheetID = sheet.ID
	if opts.SyncHash {
		c.syncHashLocked(ctx)
	}
	c.notifyLocked()
	return true
}

func (c *Controller) persistFocus(ctx context.Context, stackID, sheetID, selectedCardID string) error {
	if _, err := c.svc.SetFocus(ctx, stackID, sheetID); err != nil {
		c.logger.Error("persist focus failed", "stack", stackID, "sheet", sheetID, "error", err)
		return err
	}
	if _, _, err := c.svc.UpdateUI(ctx, func(u *domain.UIState) error {
		u.SelectedCardID = selectedCardID
		return nil
	}); err != nil {
		c.logger.Error("persist selection failed", "error", err)
		return err
	}
	return nil
}

// currentHashLocked computes the canonical hash for the controller position.
func (c *Controller) currentHashLocked(ctx context.Context) string {
	hash := route.BuildHash(nil)
	_ = c.svc.View(ctx, func(view domain.TransactionView) error {
		if !view.Auth().LoggedIn {
			hash = route.BuildHash([]string{"login"})
			return nil
		}
		if c.sheetID != "" {
			hash = route.BuildHash(route.RouteForSheet(view, c.sheetID))
			return nil
		}
		if c.stackID == "" || c.stackID == view.RootID() {
			hash = route.BuildHash(nil)
			return nil
		}
		hash = route.BuildHash(route.RouteForStack(view, c.stackID))
		return nil
	})
	return hash
}

func (c *Controller) syncHashLocked(ctx context.Context) {
	c.writeHashLocked(c.currentHashLocked(ctx))
}

// writeHashLocked records the value as the last programmatic write so the
// resulting change notification is not re-applied as a navigation.
func (c *Controller) writeHashLocked(next string) {
	if c.hash == nil || c.hash.Current() == next {
		return
	}
	c.lastWrittenHash = next
	c.hash.Set(next)
}

// ApplyRoute resolves segments and performs the corresponding transition.
// Unauthenticated sessions land on the login view regardless of the route;
// a login route while authenticated falls back to the root library. The
// return value reports whether the route was handled.
func (c *Controller) ApplyRoute(ctx context.Context, segments []string, opts Options) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.applyRouteLocked(ctx, segments, opts)
}

func (c *Controller) applyRouteLocked(ctx context.Context, segments []string, opts Options) bool {
	var (
		r        route.Route
		ok       bool
		loggedIn bool
	)
	_ = c.svc.View(ctx, func(view domain.TransactionView) error {
		r, ok = route.ResolveRoute(view, segments)
		loggedIn = view.Auth().LoggedIn
		return nil
	})
	if !ok {
		return false
	}

	if r.Kind == route.KindLogin {
		if !loggedIn {
			if opts.SyncHash {
				c.writeHashLocked(route.BuildHash([]string{"login"}))
			}
			c.view = ViewLogin
			c.sheetID = ""
			c.notifyLocked()
			return true
		}
		return c.navigateToLibraryLocked(ctx, c.svc.RootID(), opts)
	}

	if !loggedIn {
		if opts.SyncHash {
			c.writeHashLocked(route.BuildHash(segments))
		}
		c.view = ViewLogin
		c.sheetID = ""
		c.notifyLocked()
		return true
	}

	switch r.Kind {
	case route.KindLibrary:
		return c.navigateToLibraryLocked(ctx, r.StackID, opts)
	case route.KindEditor:
		return c.navigateToSheetLocked(ctx, r.SheetID, opts)
	}
	return false
}

// OnHashChange handles an external hash edit. Notifications matching the
// last programmatic write are suppressed; unresolved routes fall back to the
// root library.
func (c *Controller) OnHashChange(ctx context.Context, hash string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if hash == c.lastWrittenHash {
		return
	}
	if !c.applyRouteLocked(ctx, route.SegmentsFromHash(hash), DefaultOptions) {
		c.navigateToLibraryLocked(ctx, c.svc.RootID(), DefaultOptions)
	}
}

// HandleDeepLink applies an externally delivered absolute path. Paths
// arriving before Startup completes are queued in a single pending slot; the
// most recent one wins and is applied exactly once during Startup.
func (c *Controller) HandleDeepLink(ctx context.Context, path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started {
		c.pendingDeepLink = path
		c.hasPending = true
		return
	}
	if !c.applyRouteLocked(ctx, route.ParsePath(path), DefaultOptions) {
		c.navigateToLibraryLocked(ctx, c.svc.RootID(), DefaultOptions)
	}
}

// consumePendingLocked returns and clears the queued deep-link path.
func (c *Controller) consumePendingLocked() (string, bool) {
	if !c.hasPending {
		return "", false
	}
	path := c.pendingDeepLink
	c.pendingDeepLink = ""
	c.hasPending = false
	return path, true
}

// Startup reconciles the initial view: a queued deep link first, then the
// external hash, then the persisted focus, then the root library.
func (c *Controller) Startup(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started = true

	if path, ok := c.consumePendingLocked(); ok {
		if c.applyRouteLocked(ctx, route.ParsePath(path), DefaultOptions) {
			return
		}
	}

	if c.hash != nil {
		if current := c.hash.Current(); current != "" {
			if c.applyRouteLocked(ctx, route.SegmentsFromHash(current), DefaultOptions) {
				return
			}
		}
	}

	var (
		loggedIn    bool
		activeSheet string
		focusStack  string
		rootID      string
	)
	_ = c.svc.View(ctx, func(view domain.TransactionView) error {
		loggedIn = view.Auth().LoggedIn
		activeSheet = view.ActiveSheetID()
		focusStack = view.CurrentStackID()
		rootID = view.RootID()
		return nil
	})

	if !loggedIn {
		c.view = ViewLogin
		c.sheetID = ""
		c.notifyLocked()
		return
	}

	if activeSheet != "" {
		if _, ok := c.svc.GetSheet(activeSheet); ok {
			c.navigateToSheetLocked(ctx, activeSheet, Options{SyncHash: true, Persist: false})
			return
		}
	}

	fallback := rootID
	if _, ok := c.svc.GetStack(focusStack); ok && focusStack != "" {
		fallback = focusStack
	}
	c.navigateToLibraryLocked(ctx, fallback, Options{SyncHash: true, Persist: false})
}
