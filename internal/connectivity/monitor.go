// Copyright (c) 2025 Emitron
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package connectivity reports whether the Emitron API is reachable.
//
// Monitor keeps a gRPC channel open to the configured target and watches its
// connectivity state. When probing is enabled it also polls the standard gRPC
// health service, so a reachable but unhealthy backend counts as offline.
package connectivity

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"emitron/cli/internal/session"
)

const probeTimeout = 3 * time.Second

// Config describes how to reach the API.
type Config struct {
	// Target is host[:port] or a gRPC target URI such as dns:///api.emitron.dev:443.
	Target   string
	Insecure bool
	// ProbeInterval enables health probing when positive.
	ProbeInterval time.Duration
	// HealthService is the service name sent in health checks; empty means the whole server.
	HealthService string
	DialOptions   []grpc.DialOption
}

// Monitor implements session.ConnectivityMonitor.
type Monitor struct {
	conn   *grpc.ClientConn
	health healthpb.HealthClient
	cfg    Config

	ready   atomic.Bool
	healthy atomic.Bool

	mu      sync.Mutex
	changed chan struct{}

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var _ session.ConnectivityMonitor = (*Monitor)(nil)

// NewMonitor creates the channel and starts watching it in the background.
func NewMonitor(cfg Config) (*Monitor, error) {
	if strings.TrimSpace(cfg.Target) == "" {
		return nil, errors.New("connectivity: empty target")
	}
	target, host := normalizeTarget(cfg.Target, cfg.Insecure)

	creds := insecure.NewCredentials()
	if !cfg.Insecure {
		creds = credentials.NewTLS(&tls.Config{ServerName: host, MinVersion: tls.VersionTLS12})
	}
	opts := append([]grpc.DialOption{grpc.WithTransportCredentials(creds)}, cfg.DialOptions...)
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Monitor{
		conn:    conn,
		health:  healthpb.NewHealthClient(conn),
		cfg:     cfg,
		changed: make(chan struct{}),
		cancel:  cancel,
	}
	// Without probing only the channel state matters.
	m.healthy.Store(cfg.ProbeInterval <= 0)

	conn.Connect()
	m.wg.Add(1)
	go m.watch(ctx)
	if cfg.ProbeInterval > 0 {
		m.wg.Add(1)
		go m.probeLoop(ctx)
	}
	return m, nil
}

// normalizeTarget adds the default TLS port and derives the SNI host.
func normalizeTarget(addr string, plaintext bool) (target, host string) {
	if strings.Contains(addr, ":///") {
		rest := addr[strings.Index(addr, ":///")+4:]
		host = rest
		if h, _, err := net.SplitHostPort(rest); err == nil {
			host = h
		}
		return addr, host
	}
	if h, _, err := net.SplitHostPort(addr); err == nil {
		return addr, h
	}
	port := "443"
	if plaintext {
		port = "80"
	}
	return net.JoinHostPort(addr, port), addr
}

// CurrentState reports Satisfied when the channel is ready and, with probing, healthy.
func (m *Monitor) CurrentState() session.ConnectivityState {
	if m.ready.Load() && m.healthy.Load() {
		return session.ConnectivitySatisfied
	}
	return session.ConnectivityUnsatisfied
}

// WaitSatisfied blocks until CurrentState is Satisfied or ctx is done.
func (m *Monitor) WaitSatisfied(ctx context.Context) error {
	for {
		m.mu.Lock()
		ch := m.changed
		m.mu.Unlock()
		if m.CurrentState() == session.ConnectivitySatisfied {
			return nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close stops the watchers and closes the channel.
func (m *Monitor) Close() error {
	m.cancel()
	m.wg.Wait()
	return m.conn.Close()
}

func (m *Monitor) broadcast() {
	m.mu.Lock()
	close(m.changed)
	m.changed = make(chan struct{})
	m.mu.Unlock()
}

func (m *Monitor) watch(ctx context.Context) {
	defer m.wg.Done()
	for {
		s := m.conn.GetState()
		if m.ready.Swap(s == connectivity.Ready) != (s == connectivity.Ready) {
			m.broadcast()
		}
		if s == connectivity.Idle {
			m.conn.Connect()
		}
		if !m.conn.WaitForStateChange(ctx, s) {
			return
		}
	}
}

func (m *Monitor) probeLoop(ctx context.Context) {
	defer m.wg.Done()
	ticker := time.NewTicker(m.cfg.ProbeInterval)
	defer ticker.Stop()
	for {
		m.probe(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (m *Monitor) probe(ctx context.Context) {
	pctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	resp, err := m.health.Check(pctx, &healthpb.HealthCheckRequest{Service: m.cfg.HealthService})
	ok := err == nil && resp.GetStatus() == healthpb.HealthCheckResponse_SERVING
	if m.healthy.Swap(ok) != ok {
		m.broadcast()
	}
}

// Static is a monitor with a fixed state, used for --offline and in tests.
type Static session.ConnectivityState

func (s Static) CurrentState() session.ConnectivityState { return session.ConnectivityState(s) }
