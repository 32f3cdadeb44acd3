// Copyright (c) 2025 Emitron
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"emitron/cli/internal/backend"
	"emitron/cli/internal/config"
	"emitron/cli/internal/connectivity"
	"emitron/cli/internal/downloads"
	"emitron/cli/internal/guardpost"
	"emitron/cli/internal/keychain"
	"emitron/cli/internal/logging"
	"emitron/cli/internal/permissions"
	"emitron/cli/internal/prefs"
	"emitron/cli/internal/session"
	"emitron/cli/internal/xdg"
)

// app holds the collaborators of one CLI invocation.
type app struct {
	cfg     config.Config
	log     *logging.Logger
	api     *backend.HTTP
	broker  *guardpost.Broker
	monitor *connectivity.Monitor
	catalog *downloads.Catalog
	prefs   *prefs.Store
	surface *terminalSurface
	ctrl    *session.Controller
}

func loadConfig() (config.Config, error) {
	var (
		cfg config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if logFormat != "" {
		cfg.LogFormat = logFormat
	}
	return cfg, nil
}

// newApp wires the session controller. Close must be called when done.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log, err := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}
	policy, err := session.ParseOfflinePolicy(cfg.Session.OfflinePolicy)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: log, surface: newTerminalSurface(os.Stdout)}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	km, err := keychain.GetManager()
	if err != nil {
		return nil, fmt.Errorf("open keychain: %w", err)
	}

	a.api = backend.New(cfg.API.BaseURL, cfg.API.Endpoints,
		backend.WithHTTPClient(&http.Client{Timeout: cfg.API.Timeout.Std()}),
		backend.WithUserAgent("emitron-cli/"+Version),
	)

	a.broker, err = guardpost.NewBroker(a.api, km,
		guardpost.WithLoginTimeout(cfg.Login.Timeout.Std()),
		guardpost.WithPollInterval(cfg.Login.PollInterval.Std()),
	)
	if err != nil {
		// The broker is usable but starts logged out.
		log.LogFailure(session.TagStorage, err.Error())
	}

	conn, err := a.reachability(ctx)
	if err != nil {
		return nil, err
	}

	dir := cfg.Downloads.Dir
	data, err := xdg.DataDir()
	if err != nil {
		return nil, err
	}
	if dir == "" {
		dir = filepath.Join(data, "videos")
	}
	a.catalog, err = downloads.Open(ctx, filepath.Join(data, "downloads.db"), dir)
	if err != nil {
		return nil, fmt.Errorf("open downloads catalog: %w", err)
	}

	a.prefs, err = prefs.Open()
	if err != nil {
		return nil, err
	}

	a.ctrl, err = session.New(session.Deps{
		Broker:       a.broker,
		Fetcher:      permissions.NewFetcher(a.api, permissions.DefaultTimeout),
		Connectivity: conn,
		Store:        a.broker.Storage(),
		Purger:       a.catalog,
		Logger:       log,
		Preferences:  a.prefs,
		GateStore:    a.prefs,
		Presentation: session.PresentationProviderFunc(func() session.Surface { return a.surface }),
	},
		session.WithRefreshInterval(cfg.Session.RefreshInterval.Std()),
		session.WithOfflinePolicy(policy),
		session.WithPreferenceKeys(cfg.Session.PreferenceKeys...),
		session.WithSessionChangedHook(func(s *session.Session) {
			if s == nil {
				log.Debug("session changed", "user", "")
				return
			}
			log.Debug("session changed", "user", s.UserID, "can_download", s.CanDownload)
		}),
	)
	if err != nil {
		return nil, err
	}
	// Restore runs first on the controller queue.
	if err := a.ctrl.WaitIdle(ctx); err != nil {
		return nil, err
	}
	ok = true
	return a, nil
}

// reachability returns the connectivity source. With --offline or an empty
// target the network counts as unreachable.
func (a *app) reachability(ctx context.Context) (session.ConnectivityMonitor, error) {
	c := a.cfg.Connectivity
	if offline || c.Target == "" {
		return connectivity.Static(session.ConnectivityUnsatisfied), nil
	}
	m, err := connectivity.NewMonitor(connectivity.Config{
		Target:        c.Target,
		Insecure:      c.Insecure,
		ProbeInterval: c.ProbeInterval.Std(),
		HealthService: c.HealthService,
	})
	if err != nil {
		return nil, fmt.Errorf("connectivity: %w", err)
	}
	a.monitor = m

	if wait := c.Wait.Std(); wait > 0 {
		wctx, cancel := context.WithTimeout(ctx, wait)
		defer cancel()
		if err := m.WaitSatisfied(wctx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
	}
	a.log.Debug("connectivity", "target", c.Target, "state", m.CurrentState().String())
	return m, nil
}

// online reports whether the API is currently reachable.
func (a *app) online() bool {
	return a.monitor != nil && a.monitor.CurrentState() == session.ConnectivitySatisfied
}

// Close releases the controller, the catalog and the gRPC channel.
func (a *app) Close() {
	if a.ctrl != nil {
		a.ctrl.Close()
	}
	if a.catalog != nil {
		_ = a.catalog.Close()
	}
	if a.monitor != nil {
		_ = a.monitor.Close()
	}
}
