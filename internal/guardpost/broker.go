// Copyright (c) 2025 Emitron
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package guardpost is the Emitron login broker. It runs the browser device-link
// flow against the account API, keeps tokens in the OS keychain and holds the
// cached copy of the current session.
package guardpost

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"emitron/cli/internal/backend"
	apperrors "emitron/cli/internal/errors"
	"emitron/cli/internal/keychain"
	"emitron/cli/internal/session"
)

// DefaultLoginTimeout bounds how long Login waits for the browser approval.
const DefaultLoginTimeout = 5 * time.Minute

// Broker implements session.AuthBroker.
type Broker struct {
	api          backend.API
	km           *keychain.Manager
	storage      *Storage
	timeout      time.Duration
	pollInterval time.Duration

	mu       sync.Mutex
	current  *session.Session
	provider session.PresentationProvider
	// gen changes on every Logout; a login started under an older gen is discarded.
	gen         uint64
	cancelLogin context.CancelFunc
}

var _ session.AuthBroker = (*Broker)(nil)

// Option configures a Broker.
type Option func(*Broker)

// WithLoginTimeout overrides DefaultLoginTimeout.
func WithLoginTimeout(d time.Duration) Option {
	return func(b *Broker) {
		if d > 0 {
			b.timeout = d
		}
	}
}

// WithPollInterval forces the token poll interval instead of the server hint.
func WithPollInterval(d time.Duration) Option {
	return func(b *Broker) { b.pollInterval = d }
}

// NewBroker returns a broker that restores the stored session, if any.
// A keychain read failure is returned together with a usable, logged-out broker.
func NewBroker(api backend.API, km *keychain.Manager, opts ...Option) (*Broker, error) {
	b := &Broker{
		api:     api,
		km:      km,
		storage: NewStorage(km),
		timeout: DefaultLoginTimeout,
	}
	for _, opt := range opts {
		opt(b)
	}
	s, err := b.storage.Load()
	b.current = s
	return b, err
}

// Storage returns the keychain-backed session store shared with the broker.
func (b *Broker) Storage() *Storage { return b.storage }

func (b *Broker) CurrentSession() *session.Session {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current.Clone()
}

func (b *Broker) UpdateSession(s *session.Session) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.current = s.Clone()
}

func (b *Broker) SetPresentationProvider(p session.PresentationProvider) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.provider = p
}

// Login runs the device-link flow on its own goroutine and reports through done.
func (b *Broker) Login(ctx context.Context, done func(*session.Session, error)) {
	ctx, cancel := context.WithCancel(ctx)
	b.mu.Lock()
	provider := b.provider
	gen := b.gen
	if b.cancelLogin != nil {
		b.cancelLogin()
	}
	b.cancelLogin = cancel
	b.mu.Unlock()

	go func() {
		defer cancel()
		s, err := b.login(ctx, provider, gen)
		if err != nil {
			done(nil, err)
			return
		}
		done(s, nil)
	}()
}

func (b *Broker) login(ctx context.Context, provider session.PresentationProvider, gen uint64) (*session.Session, error) {
	if provider == nil {
		return nil, apperrors.New(apperrors.LoginFailed, "no presentation surface registered")
	}
	surface := provider.PresentationSurface()
	if surface == nil {
		return nil, apperrors.New(apperrors.LoginFailed, "no presentation surface available")
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	link, err := b.api.BeginDeviceLink(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.LoginFailed, "start login", err)
	}
	if err := surface.Present(ctx, link.URL); err != nil {
		return nil, apperrors.Wrap(apperrors.LoginFailed, "present login page", err)
	}

	tokens, err := b.poll(ctx, link)
	if err != nil {
		return nil, err
	}
	s := &session.Session{Token: tokens.Access, UserID: b.resolveUserID(ctx, tokens.Access)}
	if err := b.commit(gen, tokens, s); err != nil {
		return nil, err
	}
	return s.Clone(), nil
}

// commit stores the tokens and adopts s unless a Logout happened since the
// login started. Logout waits on b.mu, so it either sees the saved tokens and
// clears them or bumps gen before they are written.
func (b *Broker) commit(gen uint64, tokens backend.Tokens, s *session.Session) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.gen != gen {
		return apperrors.New(apperrors.LoginFailed, "login cancelled by logout")
	}
	if err := b.km.SaveTokens(tokens.Access, tokens.Refresh); err != nil {
		return apperrors.Wrap(apperrors.LoginFailed, "save tokens", err)
	}
	b.current = s.Clone()
	return nil
}

func (b *Broker) poll(ctx context.Context, link backend.DeviceLink) (backend.Tokens, error) {
	interval := link.PollInterval
	if b.pollInterval > 0 {
		interval = b.pollInterval
	}
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return backend.Tokens{}, apperrors.New(apperrors.LoginFailed, "timed out waiting for browser approval")
			}
			return backend.Tokens{}, apperrors.Wrap(apperrors.LoginFailed, "login cancelled", ctx.Err())
		case <-ticker.C:
			t, err := b.api.PollDeviceLink(ctx, link.DeviceID)
			if err != nil {
				return backend.Tokens{}, apperrors.Wrap(apperrors.LoginFailed, "poll login", err)
			}
			if t.Ready() {
				return t, nil
			}
		}
	}
}

// resolveUserID prefers the token's sub claim and falls back to the me endpoint.
func (b *Broker) resolveUserID(ctx context.Context, token string) string {
	if sub, ok := subjectFromToken(token); ok {
		return sub
	}
	if u, err := b.api.GetMe(ctx, token); err == nil {
		switch {
		case u.ID != "":
			return u.ID
		case u.Email != "":
			return u.Email
		}
	}
	return "user"
}

// Logout revokes the token remotely when possible and always clears local state.
// The returned error describes the remote or keychain failure; the broker is
// logged out either way.
func (b *Broker) Logout(ctx context.Context) error {
	b.mu.Lock()
	cur := b.current
	b.current = nil
	b.gen++
	if b.cancelLogin != nil {
		b.cancelLogin()
		b.cancelLogin = nil
	}
	b.mu.Unlock()

	token := ""
	if cur != nil {
		token = cur.Token
	}
	if token == "" {
		token, _ = b.km.LoadAccessToken()
	}

	var errs []error
	if token != "" {
		if err := b.api.Logout(ctx, token); err != nil {
			errs = append(errs, apperrors.Wrap(apperrors.LogoutFailed, "revoke token", err))
		}
	}
	if err := b.storage.Clear(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("guardpost logout: %w", errors.Join(errs...))
}
