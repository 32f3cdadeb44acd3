// Copyright (c) 2025 Emitron
// Licensed under the MIT License. See LICENSE file in the project root for details.

package session

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	apperrors "emitron/cli/internal/errors"
)

// Controller owns the session lifecycle and the observable status.
//
// Login and RefreshPermissionsIfDue return as soon as the work is queued; callers
// observe the outcome through Observe, Subscribe or Snapshot. Logout waits for the
// local teardown to finish. Observers run on the controller goroutine and must not
// call Logout directly.
type Controller struct {
	deps  Deps
	opts  options
	queue *mainQueue
	hub   hub
	snap  atomic.Pointer[Snapshot]

	// Fields below are owned by the queue goroutine.
	status   Status
	session  *Session
	reason   string
	deferred bool
	skipped  bool
	inFlight bool
	epoch    uint64
	gate     *RefreshGate
}

// New builds a controller and restores the cached session from the broker.
func New(deps Deps, opts ...Option) (*Controller, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	o := options{
		refreshInterval: DefaultRefreshInterval,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if deps.Logger == nil {
		deps.Logger = nopLogger{}
	}

	c := &Controller{
		deps: deps,
		opts: o,
		gate: NewRefreshGate(o.refreshInterval),
	}
	c.snap.Store(&Snapshot{Status: StatusInitial, At: o.now()})

	if deps.Presentation != nil {
		deps.Broker.SetPresentationProvider(deps.Presentation)
	}

	c.queue = newMainQueue()
	c.queue.post(func() { c.restore(context.Background()) })
	return c, nil
}

// Login starts or resumes a session. See the package documentation for the flow.
func (c *Controller) Login(ctx context.Context) {
	c.queue.post(func() { c.login(ctx) })
}

// Logout tears down the local session. It never fails: broker errors are logged.
func (c *Controller) Logout(ctx context.Context) {
	detached := context.WithoutCancel(ctx)
	_ = c.queue.sync(ctx, func() { c.logout(detached) })
}

// RefreshPermissionsIfDue refreshes entitlements when the refresh gate allows it.
// Call it on launch and when the app returns to the foreground.
func (c *Controller) RefreshPermissionsIfDue(ctx context.Context) {
	c.queue.post(func() { c.refreshIfDue(ctx) })
}

// Snapshot returns the latest published state.
func (c *Controller) Snapshot() Snapshot {
	s := *c.snap.Load()
	s.Session = s.Session.Clone()
	return s
}

// Observe registers o for every state change. The returned func unregisters it.
func (c *Controller) Observe(o Observer) (cancel func()) {
	return c.hub.add(o)
}

// Subscribe returns a channel that first receives the current snapshot and then
// every later one. A slow reader only loses intermediate snapshots, never the latest.
func (c *Controller) Subscribe(buffer int) (<-chan Snapshot, func()) {
	co := newChanObserver(buffer)

	var (
		mu        sync.Mutex
		cancelled bool
		unhook    func()
	)
	posted := c.queue.post(func() {
		mu.Lock()
		defer mu.Unlock()
		if cancelled {
			return
		}
		co.SessionChanged(c.current())
		unhook = c.hub.add(co)
	})
	if !posted {
		co.close()
		return co.ch, func() {}
	}

	return co.ch, func() {
		mu.Lock()
		cancelled = true
		if unhook != nil {
			unhook()
		}
		mu.Unlock()
		co.close()
	}
}

// WaitIdle blocks until the controller has no queued or running work.
func (c *Controller) WaitIdle(ctx context.Context) error {
	return c.queue.waitIdle(ctx)
}

// Close stops the controller goroutine. Pending completions are dropped.
func (c *Controller) Close() {
	c.queue.close()
}

func (c *Controller) restore(ctx context.Context) {
	if gs := c.deps.GateStore; gs != nil {
		t, ok, err := gs.LoadLastRefresh()
		switch {
		case err != nil:
			// The gate stays due so the next refresh rewrites the value.
			c.deps.Logger.LogFailure(TagPreferences, fmt.Sprintf("load last refresh: %v", err))
		case ok:
			c.gate.Record(t)
		}
	}

	c.session = c.deps.Broker.CurrentSession().Clone()
	switch {
	case c.session == nil:
		c.purge(ctx)
	case c.session.HasPermissions() && !c.session.CanDownload:
		c.purge(ctx)
	}
	if c.session != nil {
		c.sessionChanged()
	}
	c.publish()
}

func (c *Controller) login(ctx context.Context) {
	if c.inFlight {
		c.deps.Logger.LogEvent(TagLogin, "login ignored: an operation is already in flight")
		return
	}

	c.reason = ""
	c.skipped = false
	c.setStatus(StatusLoading)

	if c.session != nil {
		if c.session.HasPermissions() {
			c.setStatus(StatusHasData)
			return
		}
		c.refresh(ctx)
		return
	}

	c.inFlight = true
	epoch := c.epoch
	c.deps.Broker.Login(ctx, func(s *Session, err error) {
		s = s.Clone()
		c.queue.post(func() { c.finishLogin(ctx, epoch, s, err) })
	})
}

func (c *Controller) finishLogin(ctx context.Context, epoch uint64, s *Session, err error) {
	if epoch != c.epoch {
		return
	}
	c.inFlight = false

	if err == nil && s == nil {
		err = apperrors.New(apperrors.LoginFailed, "broker returned no session")
	}
	if err != nil {
		c.fail(TagLogin, err)
		return
	}

	c.session = s
	c.sessionChanged()
	c.deps.Logger.LogEvent(TagLogin, fmt.Sprintf("logged in as %s", s.UserID))
	c.refresh(ctx)
}

func (c *Controller) logout(ctx context.Context) {
	// Completions of an abandoned login or refresh are dropped.
	c.epoch++
	c.inFlight = false

	if err := c.deps.Broker.Logout(ctx); err != nil {
		c.deps.Logger.LogFailure(TagLogout, err.Error())
	}

	c.session = nil
	c.sessionChanged()
	c.purge(ctx)

	if p := c.deps.Preferences; p != nil && len(c.opts.preferenceKeys) > 0 {
		if err := p.ClearKeys(c.opts.preferenceKeys...); err != nil {
			c.deps.Logger.LogFailure(TagPreferences, err.Error())
		}
	}

	c.gate.Reset()
	if gs := c.deps.GateStore; gs != nil {
		if err := gs.ClearLastRefresh(); err != nil {
			c.deps.Logger.LogFailure(TagPreferences, err.Error())
		}
	}

	c.reason = ""
	c.deferred = false
	c.skipped = false
	c.deps.Logger.LogEvent(TagLogout, "session cleared")
	c.setStatus(StatusInitial)
}

func (c *Controller) purge(ctx context.Context) {
	if err := c.deps.Purger.PurgeAll(ctx); err != nil {
		c.deps.Logger.LogFailure(TagDownloads, err.Error())
	}
}

func (c *Controller) fail(tag string, err error) {
	c.reason = err.Error()
	c.deps.Logger.LogFailure(tag, c.reason)
	c.setStatus(StatusFailed)
}

func (c *Controller) sessionChanged() {
	if c.opts.onSessionChange != nil {
		c.opts.onSessionChange(c.session.Clone())
	}
}

func (c *Controller) setStatus(s Status) {
	c.status = s
	c.publish()
}

func (c *Controller) current() Snapshot {
	return Snapshot{
		Status:          c.status,
		Session:         c.session.Clone(),
		Reason:          c.reason,
		RefreshDeferred: c.deferred,
		RefreshSkipped:  c.skipped,
		LastRefreshedAt: c.gate.LastRefreshedAt(),
		NextRefreshAt:   c.gate.NextDue(),
		At:              c.opts.now(),
	}
}

// store updates the readable snapshot without notifying observers.
func (c *Controller) store() Snapshot {
	s := c.current()
	c.snap.Store(&s)
	return s
}

func (c *Controller) publish() {
	c.hub.notify(c.store())
}

type nopLogger struct{}

func (nopLogger) LogEvent(string, string)   {}
func (nopLogger) LogFailure(string, string) {}
