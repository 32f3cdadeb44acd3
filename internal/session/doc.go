// Copyright (c) 2025 Emitron
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package session implements the user-session controller used by the Emitron CLI.
//
// The Controller owns the current Session and a single Status field, drives login
// through an AuthBroker, and keeps the session's entitlements fresh through a
// PermissionsFetcher gated by connectivity and a time-based RefreshGate.
//
// All controller state is owned by one goroutine (the main queue). Collaborators may
// deliver completions on any goroutine; the controller re-posts them to the queue
// before it touches state. Observers receive a Snapshot after every transition.
//
// The package only depends on the narrow interfaces in contracts.go. Concrete
// collaborators live in internal/guardpost, internal/permissions,
// internal/connectivity, internal/downloads and internal/prefs.
package session
