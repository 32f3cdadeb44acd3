package session

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// recorder keeps a shared, ordered trace of side effects across fakes.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(e string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

type fakeBroker struct {
	mu           sync.Mutex
	current      *Session
	loginSession *Session
	loginErr     error
	logoutErr    error
	async        bool
	hold         bool
	pending      func(*Session, error)
	loginCalls   int
	logoutCalls  int
	updated      []*Session
	provider     PresentationProvider
}

func (b *fakeBroker) CurrentSession() *Session {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current.Clone()
}

func (b *fakeBroker) Login(_ context.Context, done func(*Session, error)) {
	b.mu.Lock()
	b.loginCalls++
	s, err := b.loginSession.Clone(), b.loginErr
	if b.hold {
		b.pending = done
		b.mu.Unlock()
		return
	}
	async := b.async
	b.mu.Unlock()

	if async {
		go done(s, err)
		return
	}
	done(s, err)
}

func (b *fakeBroker) release(s *Session, err error) {
	b.mu.Lock()
	done := b.pending
	b.pending = nil
	b.mu.Unlock()
	if done != nil {
		done(s, err)
	}
}

func (b *fakeBroker) Logout(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logoutCalls++
	b.current = nil
	return b.logoutErr
}

func (b *fakeBroker) UpdateSession(s *Session) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.current = s.Clone()
	b.updated = append(b.updated, s.Clone())
}

func (b *fakeBroker) SetPresentationProvider(p PresentationProvider) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.provider = p
}

func (b *fakeBroker) counts() (logins, logouts, updates int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loginCalls, b.logoutCalls, len(b.updated)
}

type fakeFetcher struct {
	mu    sync.Mutex
	set   PermissionSet
	err   error
	async bool
	calls int
}

func (f *fakeFetcher) Fetch(_ context.Context, _ Session, done func(PermissionSet, error)) {
	f.mu.Lock()
	f.calls++
	set, err, async := f.set, f.err, f.async
	f.mu.Unlock()
	if async {
		go done(set, err)
		return
	}
	done(set, err)
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeConnectivity struct {
	state atomic.Int32
}

func (c *fakeConnectivity) set(s ConnectivityState) { c.state.Store(int32(s)) }

func (c *fakeConnectivity) CurrentState() ConnectivityState {
	return ConnectivityState(c.state.Load())
}

type fakeStore struct {
	mu        sync.Mutex
	persisted []Session
	err       error
}

func (s *fakeStore) Persist(sess Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persisted = append(s.persisted, sess)
	return s.err
}

func (s *fakeStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.persisted)
}

type fakePurger struct {
	rec   *recorder
	calls atomic.Int32
}

func (p *fakePurger) PurgeAll(context.Context) error {
	p.calls.Add(1)
	p.rec.add("purge")
	return nil
}

type logEntry struct {
	failure bool
	tag     string
	text    string
}

type fakeLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *fakeLogger) LogEvent(tag, message string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{tag: tag, text: message})
}

func (l *fakeLogger) LogFailure(tag, reason string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{failure: true, tag: tag, text: reason})
}

func (l *fakeLogger) failures(tag string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	for _, e := range l.entries {
		if e.failure && e.tag == tag {
			out = append(out, e.text)
		}
	}
	return out
}

func (l *fakeLogger) events(tag string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	for _, e := range l.entries {
		if !e.failure && e.tag == tag {
			out = append(out, e.text)
		}
	}
	return out
}

type fakePrefs struct {
	mu      sync.Mutex
	cleared []string
}

func (p *fakePrefs) ClearKeys(keys ...string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cleared = append(p.cleared, keys...)
	return nil
}

type fakeGateStore struct {
	mu      sync.Mutex
	last    time.Time
	loadErr error
	saves   int
	cleared int
}

func (g *fakeGateStore) LoadLastRefresh() (time.Time, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.loadErr != nil {
		return time.Time{}, false, g.loadErr
	}
	return g.last, !g.last.IsZero(), nil
}

func (g *fakeGateStore) SaveLastRefresh(t time.Time) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.last = t
	g.saves++
	return nil
}

func (g *fakeGateStore) ClearLastRefresh() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.last = time.Time{}
	g.cleared++
	return nil
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type harness struct {
	rec     *recorder
	broker  *fakeBroker
	fetcher *fakeFetcher
	conn    *fakeConnectivity
	store   *fakeStore
	purger  *fakePurger
	logger  *fakeLogger
	prefs   *fakePrefs
	gates   *fakeGateStore
	clock   *fakeClock
}

func newHarness() *harness {
	rec := &recorder{}
	h := &harness{
		rec:     rec,
		broker:  &fakeBroker{},
		fetcher: &fakeFetcher{},
		conn:    &fakeConnectivity{},
		store:   &fakeStore{},
		purger:  &fakePurger{rec: rec},
		logger:  &fakeLogger{},
		prefs:   &fakePrefs{},
		gates:   &fakeGateStore{},
		clock:   newFakeClock(),
	}
	h.conn.set(ConnectivitySatisfied)
	h.fetcher.set = NewPermissionSet(PermissionDownload, PermissionStreamProfessional)
	return h
}

func (h *harness) deps() Deps {
	return Deps{
		Broker:       h.broker,
		Fetcher:      h.fetcher,
		Connectivity: h.conn,
		Store:        h.store,
		Purger:       h.purger,
		Logger:       h.logger,
		Preferences:  h.prefs,
		GateStore:    h.gates,
	}
}

// start builds the controller, records every published status and waits for restore.
func (h *harness) start(t *testing.T, opts ...Option) *Controller {
	t.Helper()
	opts = append([]Option{WithClock(h.clock.Now)}, opts...)
	c, err := New(h.deps(), opts...)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	settle(t, c)

	c.Observe(ObserverFunc(func(s Snapshot) {
		h.rec.add("status:" + s.Status.String())
	}))
	return c
}

func settle(t *testing.T, c *Controller) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.WaitIdle(ctx))
}

func waitForStatus(t *testing.T, ch <-chan Snapshot, want Status) Snapshot {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case s, ok := <-ch:
			require.True(t, ok, "subscription closed before reaching %s", want)
			if s.Status == want {
				return s
			}
		case <-timeout:
			t.Fatalf("timed out waiting for status %s", want)
		}
	}
}

func sessionWith(perms ...Permission) *Session {
	s := &Session{UserID: "user-1", Token: "tok-1"}
	if perms != nil {
		set := NewPermissionSet(perms...)
		s.Permissions = &set
		s.CanDownload = set.Has(PermissionDownload)
	}
	return s
}
