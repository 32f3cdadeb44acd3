// Copyright (c) 2025 Emitron
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package permissions fetches a user's entitlement tags from the account API.
package permissions

import (
	"context"
	"time"

	"emitron/cli/internal/backend"
	apperrors "emitron/cli/internal/errors"
	"emitron/cli/internal/session"
)

// DefaultTimeout bounds a single fetch.
const DefaultTimeout = 15 * time.Second

// Fetcher implements session.PermissionsFetcher over backend.API.
type Fetcher struct {
	api     backend.API
	timeout time.Duration
}

var _ session.PermissionsFetcher = (*Fetcher)(nil)

// NewFetcher returns a Fetcher. A non-positive timeout selects DefaultTimeout.
func NewFetcher(api backend.API, timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Fetcher{api: api, timeout: timeout}
}

// Fetch requests the tags for s on a new goroutine and calls done from there.
func (f *Fetcher) Fetch(ctx context.Context, s session.Session, done func(session.PermissionSet, error)) {
	go func() {
		set, err := f.fetch(ctx, s.Token)
		done(set, err)
	}()
}

func (f *Fetcher) fetch(ctx context.Context, token string) (session.PermissionSet, error) {
	if token == "" {
		return session.PermissionSet{}, apperrors.New(apperrors.PermissionFetchFailed, "session has no access token")
	}
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	tags, err := f.api.GetPermissions(ctx, token)
	if err != nil {
		return session.PermissionSet{}, apperrors.Wrap(apperrors.PermissionFetchFailed, "fetch permissions", err)
	}
	perms := make([]session.Permission, 0, len(tags))
	for _, t := range tags {
		perms = append(perms, session.Permission(t))
	}
	return session.NewPermissionSet(perms...), nil
}
