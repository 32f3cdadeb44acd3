// Copyright (c) 2025 Emitron
// Licensed under the MIT License. See LICENSE file in the project root for details.

package session

import (
	"context"
	"fmt"
)

func (c *Controller) refreshIfDue(ctx context.Context) {
	if c.session == nil {
		return
	}
	if c.inFlight {
		c.deps.Logger.LogEvent(TagPermissions, "refresh ignored: an operation is already in flight")
		return
	}
	if !c.gate.Due(c.opts.now()) {
		// Not published: status and session are unchanged.
		c.skipped = true
		c.store()
		return
	}
	c.refresh(ctx)
}

// refresh fetches entitlements for the current session. Without connectivity it
// leaves status, session and gate untouched and only records the deferral.
func (c *Controller) refresh(ctx context.Context) {
	if c.session == nil {
		return
	}
	c.skipped = false

	if c.deps.Connectivity.CurrentState() != ConnectivitySatisfied {
		c.deferred = true
		c.deps.Logger.LogEvent(TagPermissions, "refresh deferred: connectivity unsatisfied")
		if c.opts.offlinePolicy == OfflineUseCached && c.status == StatusLoading {
			c.setStatus(StatusHasData)
			return
		}
		c.store()
		return
	}

	c.deferred = false
	c.inFlight = true
	epoch := c.epoch
	c.deps.Fetcher.Fetch(ctx, *c.session.Clone(), func(set PermissionSet, err error) {
		set = set.Clone()
		c.queue.post(func() { c.finishRefresh(ctx, epoch, set, err) })
	})
}

func (c *Controller) finishRefresh(ctx context.Context, epoch uint64, set PermissionSet, err error) {
	if epoch != c.epoch {
		return
	}
	c.inFlight = false
	if c.session == nil {
		return
	}
	if err != nil {
		c.fail(TagPermissions, err)
		return
	}

	now := c.opts.now()
	c.session.mergePermissions(set)

	if err := c.deps.Store.Persist(*c.session.Clone()); err != nil {
		c.deps.Logger.LogFailure(TagStorage, err.Error())
	}

	c.gate.Record(now)
	if gs := c.deps.GateStore; gs != nil {
		if err := gs.SaveLastRefresh(now); err != nil {
			c.deps.Logger.LogFailure(TagPreferences, err.Error())
		}
	}

	if !c.session.CanDownload {
		c.purge(ctx)
	}

	c.deps.Broker.UpdateSession(c.session.Clone())
	c.sessionChanged()
	c.deps.Logger.LogEvent(TagPermissions, fmt.Sprintf("refreshed %d permissions", set.Len()))

	c.reason = ""
	c.setStatus(StatusHasData)
}
