// Copyright (c) 2025 Emitron
// Licensed under the MIT License. See LICENSE file in the project root for details.

package backend

import (
	"net/http"
	"time"
)

// Endpoints are the REST paths relative to the base URL.
type Endpoints struct {
	GetLink     string `json:"device_get_link"`
	GetToken    string `json:"token_issue"`
	Logout      string `json:"device_logout"`
	Me          string `json:"account_whoami"`
	Permissions string `json:"permissions"`
}

// DefaultEndpoints returns the production API paths.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		GetLink:     "/api/cli/get-link",
		GetToken:    "/api/cli/get-token",
		Logout:      "/api/cli/logout",
		Me:          "/api/cli/me",
		Permissions: "/api/permissions",
	}
}

// withDefaults fills empty paths from DefaultEndpoints.
func (e Endpoints) withDefaults() Endpoints {
	d := DefaultEndpoints()
	if e.GetLink == "" {
		e.GetLink = d.GetLink
	}
	if e.GetToken == "" {
		e.GetToken = d.GetToken
	}
	if e.Logout == "" {
		e.Logout = d.Logout
	}
	if e.Me == "" {
		e.Me = d.Me
	}
	if e.Permissions == "" {
		e.Permissions = d.Permissions
	}
	return e
}

// Option configures the HTTP client.
type Option func(*HTTP)

// WithHTTPClient replaces the default client (10s timeout).
func WithHTTPClient(c *http.Client) Option {
	return func(h *HTTP) {
		if c != nil {
			h.client = c
		}
	}
}

// WithUserAgent sets the User-Agent header on every request.
func WithUserAgent(ua string) Option {
	return func(h *HTTP) { h.userAgent = ua }
}

// WithMeCacheTTL sets how long GetMe results are reused. Zero disables the cache.
func WithMeCacheTTL(d time.Duration) Option {
	return func(h *HTTP) { h.meTTL = d }
}

// New creates the HTTP implementation of API.
func New(baseURL string, endpoints Endpoints, opts ...Option) *HTTP {
	return newHTTP(baseURL, endpoints.withDefaults(), opts...)
}
