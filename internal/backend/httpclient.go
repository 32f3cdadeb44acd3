// Copyright (c) 2025 Emitron
// Licensed under the MIT License. See LICENSE file in the project root for details.

package backend

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// HTTP implements API over REST endpoints.
// The current user is cached in memory so whoami keeps working through brief outages.
type HTTP struct {
	baseURL   string
	endpoints Endpoints
	client    *http.Client
	userAgent string
	meTTL     time.Duration

	mu          sync.Mutex
	meCache     *User
	meCacheTime time.Time
}

var _ API = (*HTTP)(nil)

func newHTTP(baseURL string, endpoints Endpoints, opts ...Option) *HTTP {
	h := &HTTP{
		baseURL:   strings.TrimRight(baseURL, "/"),
		endpoints: endpoints,
		client:    &http.Client{Timeout: 10 * time.Second},
		userAgent: "emitron-cli",
		meTTL:     10 * time.Minute,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// BaseURL returns the normalized base URL.
func (h *HTTP) BaseURL() string { return h.baseURL }

func (h *HTTP) newRequest(ctx context.Context, method, path, accessToken string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, h.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if h.userAgent != "" {
		req.Header.Set("User-Agent", h.userAgent)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
	return req, nil
}

// statusError builds the error for an unexpected status code.
func statusError(op string, resp *http.Response) error {
	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("%s failed: %d %s", op, resp.StatusCode, strings.TrimSpace(string(b)))
}

func (h *HTTP) cachedMe() (User, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.meCache == nil {
		return User{}, false
	}
	return *h.meCache, true
}

func (h *HTTP) freshMe() (User, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.meCache == nil || h.meTTL <= 0 || time.Since(h.meCacheTime) >= h.meTTL {
		return User{}, false
	}
	return *h.meCache, true
}

func (h *HTTP) storeMe(u *User) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.meCache = u
	h.meCacheTime = time.Now()
}
