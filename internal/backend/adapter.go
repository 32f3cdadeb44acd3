// Copyright (c) 2025 Emitron
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package backend is the HTTP client for the Emitron account API.
// It covers the device-link login flow, logout, the current user and the
// user's entitlement tags.
package backend

import (
	"context"
	"errors"
	"time"
)

// ErrUnauthorized is returned when the API rejects the access token.
var ErrUnauthorized = errors.New("unauthorized")

// DeviceLink is a pending browser login.
type DeviceLink struct {
	URL          string
	DeviceID     string
	PollInterval time.Duration
}

// Tokens are issued once the device link is approved.
type Tokens struct {
	Access  string
	Refresh string
}

// Ready reports whether an access token was issued.
func (t Tokens) Ready() bool { return t.Access != "" }

// User is the subset of the account the CLI displays.
type User struct {
	ID    string
	Email string
	Name  string
}

// API defines the backend operations the CLI depends on.
// Implementations may call the real service or provide fakes for tests.
type API interface {
	BeginDeviceLink(ctx context.Context) (DeviceLink, error)
	// PollDeviceLink returns zero Tokens while the link is still pending.
	PollDeviceLink(ctx context.Context, deviceID string) (Tokens, error)
	// Logout invalidates the access token on the server.
	Logout(ctx context.Context, accessToken string) error
	GetMe(ctx context.Context, accessToken string) (User, error)
	// GetPermissions returns the entitlement tags of the token's user.
	GetPermissions(ctx context.Context, accessToken string) ([]string, error)
}
