// Copyright (c) 2025 Emitron
// Licensed under the MIT License. See LICENSE file in the project root for details.

package session

import "time"

// DefaultRefreshInterval is the minimum time between two permission refreshes.
const DefaultRefreshInterval = 24 * time.Hour

// RefreshGate is a time-based throttle for permission refreshes.
// It is owned by the controller loop and is not safe for concurrent use.
type RefreshGate struct {
	lastRefreshedAt time.Time
	minInterval     time.Duration
}

// NewRefreshGate returns a gate with the given interval. A non-positive interval
// falls back to DefaultRefreshInterval.
func NewRefreshGate(minInterval time.Duration) *RefreshGate {
	if minInterval <= 0 {
		minInterval = DefaultRefreshInterval
	}
	return &RefreshGate{minInterval: minInterval}
}

// Due reports whether a refresh is permitted at now.
func (g *RefreshGate) Due(now time.Time) bool {
	if g.lastRefreshedAt.IsZero() {
		return true
	}
	return now.Sub(g.lastRefreshedAt) >= g.minInterval
}

// Record marks a successful refresh at now.
func (g *RefreshGate) Record(now time.Time) { g.lastRefreshedAt = now }

// Reset forgets the last refresh.
func (g *RefreshGate) Reset() { g.lastRefreshedAt = time.Time{} }

// LastRefreshedAt returns the last recorded refresh, zero if none.
func (g *RefreshGate) LastRefreshedAt() time.Time { return g.lastRefreshedAt }

// NextDue returns the earliest time Due reports true, zero if it already would
// for any time.
func (g *RefreshGate) NextDue() time.Time {
	if g.lastRefreshedAt.IsZero() {
		return time.Time{}
	}
	return g.lastRefreshedAt.Add(g.minInterval)
}

// MinInterval returns the configured threshold.
func (g *RefreshGate) MinInterval() time.Duration { return g.minInterval }
