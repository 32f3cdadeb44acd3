// Copyright (c) 2025 Emitron
// Licensed under the MIT License. See LICENSE file in the project root for details.

package session

import (
	"encoding/json"
	"sort"
	"time"
)

// Permission is a server-issued entitlement tag such as "download-videos".
type Permission string

// Known entitlement tags.
const (
	PermissionDownload           Permission = "download-videos"
	PermissionStreamBeginner     Permission = "stream-beginner-videos"
	PermissionStreamProfessional Permission = "stream-professional-videos"
)

// PermissionSet is an unordered set of entitlement tags.
// The zero value is an empty, usable set.
type PermissionSet struct {
	tags map[Permission]struct{}
}

// NewPermissionSet builds a set from the given tags. Empty tags are skipped.
func NewPermissionSet(perms ...Permission) PermissionSet {
	s := PermissionSet{tags: make(map[Permission]struct{}, len(perms))}
	for _, p := range perms {
		if p == "" {
			continue
		}
		s.tags[p] = struct{}{}
	}
	return s
}

// Has reports whether the set contains p.
func (s PermissionSet) Has(p Permission) bool {
	_, ok := s.tags[p]
	return ok
}

// Len returns the number of tags in the set.
func (s PermissionSet) Len() int { return len(s.tags) }

// List returns the tags sorted lexically.
func (s PermissionSet) List() []Permission {
	out := make([]Permission, 0, len(s.tags))
	for p := range s.tags {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Clone returns an independent copy of the set.
func (s PermissionSet) Clone() PermissionSet {
	return NewPermissionSet(s.List()...)
}

// MarshalJSON encodes the set as a sorted JSON array.
func (s PermissionSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.List())
}

// UnmarshalJSON decodes a JSON array of tags.
func (s *PermissionSet) UnmarshalJSON(b []byte) error {
	var list []Permission
	if err := json.Unmarshal(b, &list); err != nil {
		return err
	}
	*s = NewPermissionSet(list...)
	return nil
}

// Session is an authenticated user plus token and entitlement data.
// A nil Permissions pointer means the entitlements have not been fetched yet.
type Session struct {
	UserID      string         `json:"user_id"`
	Token       string         `json:"token,omitempty"`
	Permissions *PermissionSet `json:"permissions,omitempty"`
	CanDownload bool           `json:"can_download"`
}

// HasPermissions reports whether entitlements have been populated.
func (s *Session) HasPermissions() bool {
	return s != nil && s.Permissions != nil
}

// Clone returns a deep copy of s. Clone of nil is nil.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	if s.Permissions != nil {
		p := s.Permissions.Clone()
		out.Permissions = &p
	}
	return &out
}

// mergePermissions replaces the entitlements and derives the download capability.
func (s *Session) mergePermissions(set PermissionSet) {
	merged := set.Clone()
	s.Permissions = &merged
	s.CanDownload = merged.Has(PermissionDownload)
}

// Status is the single authoritative field driving the UI.
type Status int

const (
	// StatusInitial means no attempt has been made yet, or the session was reset.
	StatusInitial Status = iota
	// StatusLoading means a login or refresh is in flight.
	StatusLoading
	// StatusHasData means the session is usable.
	StatusHasData
	// StatusFailed means the last operation errored.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusInitial:
		return "initial"
	case StatusLoading:
		return "loading"
	case StatusHasData:
		return "has_data"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ConnectivityState is a point-in-time reachability snapshot.
type ConnectivityState int

const (
	ConnectivityUnsatisfied ConnectivityState = iota
	ConnectivitySatisfied
)

func (c ConnectivityState) String() string {
	if c == ConnectivitySatisfied {
		return "satisfied"
	}
	return "unsatisfied"
}

// Snapshot is the observable status/session pair published after each transition.
type Snapshot struct {
	Status  Status
	Session *Session
	// Reason is the human-readable reason of the last failure, empty otherwise.
	Reason string
	// RefreshDeferred is set when the last refresh attempt was skipped for lack of connectivity.
	RefreshDeferred bool
	// RefreshSkipped is set when the last RefreshPermissionsIfDue found the gate closed.
	RefreshSkipped  bool
	LastRefreshedAt time.Time
	// NextRefreshAt is when the gate opens again, zero if it is open.
	NextRefreshAt time.Time
	At            time.Time
}

// LoggedIn reports whether the snapshot carries a session.
func (s Snapshot) LoggedIn() bool { return s.Session != nil }
