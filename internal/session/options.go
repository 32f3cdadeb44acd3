// Copyright (c) 2025 Emitron
// Licensed under the MIT License. See LICENSE file in the project root for details.

package session

import (
	"fmt"
	"strings"
	"time"
)

// OfflinePolicy decides what happens to a Loading status when a refresh is
// deferred for lack of connectivity.
type OfflinePolicy int

const (
	// OfflineStayLoading leaves the status untouched. A login that needs a first
	// refresh stays at Loading until retried with connectivity.
	OfflineStayLoading OfflinePolicy = iota
	// OfflineUseCached moves Loading to HasData with the cached session as is.
	OfflineUseCached
)

func (p OfflinePolicy) String() string {
	if p == OfflineUseCached {
		return "use_cached"
	}
	return "stay_loading"
}

// ParseOfflinePolicy parses "stay_loading" or "use_cached".
func ParseOfflinePolicy(s string) (OfflinePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "stay_loading", "stay-loading":
		return OfflineStayLoading, nil
	case "use_cached", "use-cached":
		return OfflineUseCached, nil
	default:
		return OfflineStayLoading, fmt.Errorf("unknown offline policy %q", s)
	}
}

// Deps are the collaborators of a Controller. Broker, Fetcher, Connectivity,
// Store and Purger are required.
type Deps struct {
	Broker       AuthBroker
	Fetcher      PermissionsFetcher
	Connectivity ConnectivityMonitor
	Store        SecureStore
	Purger       ContentPurger
	Logger       Logger
	Preferences  PreferencesStore
	GateStore    GateStore
	Presentation PresentationProvider
}

func (d Deps) validate() error {
	var missing []string
	if d.Broker == nil {
		missing = append(missing, "broker")
	}
	if d.Fetcher == nil {
		missing = append(missing, "fetcher")
	}
	if d.Connectivity == nil {
		missing = append(missing, "connectivity")
	}
	if d.Store == nil {
		missing = append(missing, "store")
	}
	if d.Purger == nil {
		missing = append(missing, "purger")
	}
	if len(missing) > 0 {
		return fmt.Errorf("session: missing dependencies: %s", strings.Join(missing, ", "))
	}
	return nil
}

type options struct {
	refreshInterval time.Duration
	offlinePolicy   OfflinePolicy
	preferenceKeys  []string
	now             func() time.Time
	onSessionChange func(*Session)
}

// Option configures a Controller.
type Option func(*options)

// WithRefreshInterval sets the refresh gate threshold.
func WithRefreshInterval(d time.Duration) Option {
	return func(o *options) { o.refreshInterval = d }
}

// WithOfflinePolicy selects the behavior of a deferred refresh.
func WithOfflinePolicy(p OfflinePolicy) Option {
	return func(o *options) { o.offlinePolicy = p }
}

// WithPreferenceKeys lists the preference keys cleared on logout.
func WithPreferenceKeys(keys ...string) Option {
	return func(o *options) { o.preferenceKeys = append([]string(nil), keys...) }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithSessionChangedHook registers fn to run on the controller goroutine after
// every session mutation, including logout (fn receives nil). It is the place to
// rebuild clients bound to the session token.
func WithSessionChangedHook(fn func(*Session)) Option {
	return func(o *options) { o.onSessionChange = fn }
}
