// Copyright (c) 2025 Emitron
// Licensed under the MIT License. See LICENSE file in the project root for details.

package session

import (
	"context"
	"time"
)

// AuthBroker performs interactive login and logout and keeps a cached copy of the user.
// Login may invoke done on any goroutine.
type AuthBroker interface {
	CurrentSession() *Session
	Login(ctx context.Context, done func(*Session, error))
	Logout(ctx context.Context) error
	UpdateSession(s *Session)
	SetPresentationProvider(p PresentationProvider)
}

// PermissionsFetcher returns the entitlement set for a session.
// Fetch may invoke done on any goroutine.
type PermissionsFetcher interface {
	Fetch(ctx context.Context, s Session, done func(PermissionSet, error))
}

// ConnectivityMonitor exposes the current network reachability.
type ConnectivityMonitor interface {
	CurrentState() ConnectivityState
}

// SecureStore persists the user record across process restarts.
type SecureStore interface {
	Persist(s Session) error
}

// ContentPurger deletes locally cached protected content.
type ContentPurger interface {
	PurgeAll(ctx context.Context) error
}

// Logger receives tagged events and failures.
type Logger interface {
	LogEvent(tag, message string)
	LogFailure(tag, reason string)
}

// PreferencesStore holds persisted filter and preference keys. Implementations
// may treat a key ending in "*" as a prefix match.
type PreferencesStore interface {
	ClearKeys(keys ...string) error
}

// GateStore persists the refresh gate timestamp. LoadLastRefresh reports
// ok=false with a nil error when nothing was saved.
type GateStore interface {
	LoadLastRefresh() (t time.Time, ok bool, err error)
	SaveLastRefresh(t time.Time) error
	ClearLastRefresh() error
}

// Surface is a UI surface able to show an interactive web consent screen.
type Surface interface {
	Present(ctx context.Context, authURL string) error
}

// PresentationProvider returns the current top-level surface on request.
type PresentationProvider interface {
	PresentationSurface() Surface
}

// PresentationProviderFunc adapts a function to PresentationProvider.
type PresentationProviderFunc func() Surface

func (f PresentationProviderFunc) PresentationSurface() Surface { return f() }

// Observer is notified with the latest snapshot after every state change.
type Observer interface {
	SessionChanged(s Snapshot)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Snapshot)

func (f ObserverFunc) SessionChanged(s Snapshot) { f(s) }

// Log tags used by the controller.
const (
	TagLogin       = "login"
	TagLogout      = "logout"
	TagPermissions = "permissions"
	TagStorage     = "secure_store"
	TagDownloads   = "downloads"
	TagPreferences = "preferences"
)
