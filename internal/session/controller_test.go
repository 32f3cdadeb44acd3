package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "emitron/cli/internal/errors"
)

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(Deps{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker")
	assert.Contains(t, err.Error(), "purger")
}

func TestNewRegistersPresentationProvider(t *testing.T) {
	h := newHarness()
	deps := h.deps()
	deps.Presentation = PresentationProviderFunc(func() Surface { return nil })

	c, err := New(deps)
	require.NoError(t, err)
	t.Cleanup(c.Close)

	h.broker.mu.Lock()
	defer h.broker.mu.Unlock()
	assert.NotNil(t, h.broker.provider)
}

func TestRestorePurgesWhenNoSession(t *testing.T) {
	h := newHarness()
	c := h.start(t)

	assert.Equal(t, int32(1), h.purger.calls.Load())
	assert.False(t, c.Snapshot().LoggedIn())
	assert.Equal(t, StatusInitial, c.Snapshot().Status)
}

func TestRestorePurgesWhenCachedSessionCannotDownload(t *testing.T) {
	h := newHarness()
	h.broker.current = sessionWith(PermissionStreamBeginner)
	c := h.start(t)

	assert.Equal(t, int32(1), h.purger.calls.Load())
	require.True(t, c.Snapshot().LoggedIn())
	assert.Equal(t, "user-1", c.Snapshot().Session.UserID)
}

func TestRestoreKeepsContentForDownloader(t *testing.T) {
	h := newHarness()
	h.broker.current = sessionWith(PermissionDownload)
	h.start(t)

	assert.Equal(t, int32(0), h.purger.calls.Load())
}

func TestLoginWithPopulatedPermissionsSkipsFetch(t *testing.T) {
	h := newHarness()
	h.broker.current = sessionWith(PermissionDownload)
	c := h.start(t)

	c.Login(context.Background())
	settle(t, c)

	assert.Equal(t, StatusHasData, c.Snapshot().Status)
	assert.Equal(t, 0, h.fetcher.callCount())
	logins, _, _ := h.broker.counts()
	assert.Equal(t, 0, logins)
	assert.Equal(t, []string{"status:loading", "status:has_data"}, h.rec.list())
}

func TestLoginFromScratch(t *testing.T) {
	h := newHarness()
	h.broker.loginSession = &Session{UserID: "ada", Token: "t-ada"}

	var hooked []*Session
	c := h.start(t, WithSessionChangedHook(func(s *Session) { hooked = append(hooked, s) }))

	c.Login(context.Background())
	settle(t, c)

	snap := c.Snapshot()
	assert.Equal(t, StatusHasData, snap.Status)
	require.NotNil(t, snap.Session)
	assert.Equal(t, "ada", snap.Session.UserID)
	assert.True(t, snap.Session.CanDownload)
	assert.True(t, snap.Session.Permissions.Has(PermissionStreamProfessional))
	assert.Equal(t, h.clock.Now(), snap.LastRefreshedAt)

	// The purge comes from restoring without a cached session.
	assert.Equal(t, []string{"purge", "status:loading", "status:has_data"}, h.rec.list())
	assert.Equal(t, 1, h.store.count())
	assert.Equal(t, 1, h.fetcher.callCount())

	_, _, updates := h.broker.counts()
	assert.Equal(t, 1, updates)
	assert.Len(t, hooked, 2, "hook runs after adoption and after the permission merge")
	assert.Equal(t, []string{"logged in as ada"}, h.logger.events(TagLogin))
	assert.Equal(t, 1, h.gates.saves)
}

func TestLoginFailureIsTerminalForAttempt(t *testing.T) {
	h := newHarness()
	h.broker.loginErr = apperrors.New(apperrors.LoginFailed, "user cancelled")
	c := h.start(t)

	c.Login(context.Background())
	settle(t, c)

	snap := c.Snapshot()
	assert.Equal(t, StatusFailed, snap.Status)
	assert.Equal(t, "login_failed: user cancelled", snap.Reason)
	assert.Equal(t, []string{"login_failed: user cancelled"}, h.logger.failures(TagLogin))
	assert.Equal(t, 0, h.fetcher.callCount())

	// A new attempt is allowed after a failure.
	h.broker.mu.Lock()
	h.broker.loginErr = nil
	h.broker.loginSession = &Session{UserID: "ada", Token: "t"}
	h.broker.mu.Unlock()

	c.Login(context.Background())
	settle(t, c)
	assert.Equal(t, StatusHasData, c.Snapshot().Status)
	assert.Empty(t, c.Snapshot().Reason)
}

func TestLoginWithoutSessionOrErrorFails(t *testing.T) {
	h := newHarness()
	c := h.start(t)

	c.Login(context.Background())
	settle(t, c)

	assert.Equal(t, StatusFailed, c.Snapshot().Status)
	assert.Contains(t, c.Snapshot().Reason, "no session")
}

func TestPermissionFetchFailure(t *testing.T) {
	h := newHarness()
	h.broker.current = sessionWith()
	h.fetcher.err = errors.New("entitlements unavailable")
	c := h.start(t)

	c.Login(context.Background())
	settle(t, c)

	assert.Equal(t, StatusFailed, c.Snapshot().Status)
	assert.Equal(t, []string{"entitlements unavailable"}, h.logger.failures(TagPermissions))
	assert.Equal(t, 0, h.store.count())
	assert.True(t, c.Snapshot().LastRefreshedAt.IsZero())
}

func TestLogoutAlwaysResetsLocally(t *testing.T) {
	h := newHarness()
	h.broker.current = sessionWith(PermissionDownload)
	h.broker.logoutErr = errors.New("remote logout: 502")
	c := h.start(t, WithPreferenceKeys("filters.domains", "filters.sort"))

	c.Login(context.Background())
	settle(t, c)
	require.Equal(t, StatusHasData, c.Snapshot().Status)

	var cleared int
	c.Observe(ObserverFunc(func(s Snapshot) {
		if s.Session == nil {
			cleared++
		}
	}))
	c.Logout(context.Background())

	snap := c.Snapshot()
	assert.Nil(t, snap.Session)
	assert.Equal(t, StatusInitial, snap.Status)
	assert.Equal(t, int32(1), h.purger.calls.Load())
	assert.Equal(t, []string{"remote logout: 502"}, h.logger.failures(TagLogout))
	assert.Equal(t, []string{"filters.domains", "filters.sort"}, h.prefs.cleared)
	assert.Equal(t, 1, h.gates.cleared)
	assert.True(t, snap.LastRefreshedAt.IsZero())
	assert.Equal(t, 1, cleared)
}

func TestLogoutDropsLateCompletions(t *testing.T) {
	h := newHarness()
	h.broker.hold = true
	c := h.start(t)

	c.Login(context.Background())
	settle(t, c)
	require.Equal(t, StatusLoading, c.Snapshot().Status)

	c.Logout(context.Background())
	h.broker.release(&Session{UserID: "late", Token: "t"}, nil)
	settle(t, c)

	assert.Nil(t, c.Snapshot().Session)
	assert.Equal(t, StatusInitial, c.Snapshot().Status)
	assert.Equal(t, 0, h.fetcher.callCount())
}

func TestLoginIgnoredWhileInFlight(t *testing.T) {
	h := newHarness()
	h.broker.hold = true
	c := h.start(t)

	c.Login(context.Background())
	c.Login(context.Background())
	c.RefreshPermissionsIfDue(context.Background())
	settle(t, c)

	logins, _, _ := h.broker.counts()
	assert.Equal(t, 1, logins)
	assert.Len(t, h.logger.events(TagLogin), 1)

	h.broker.release(&Session{UserID: "ada", Token: "t"}, nil)
	settle(t, c)
	assert.Equal(t, StatusHasData, c.Snapshot().Status)

	// RefreshPermissionsIfDue without a session was a no-op, so only the login refresh ran.
	assert.Equal(t, 1, h.fetcher.callCount())
}

func TestCompletionsFromOtherGoroutines(t *testing.T) {
	h := newHarness()
	h.broker.async = true
	h.fetcher.async = true
	h.broker.loginSession = &Session{UserID: "ada", Token: "t"}
	c := h.start(t)

	ch, cancel := c.Subscribe(8)
	defer cancel()

	c.Login(context.Background())
	snap := waitForStatus(t, ch, StatusHasData)
	assert.Equal(t, "ada", snap.Session.UserID)
	assert.True(t, snap.Session.CanDownload)
}

func TestSnapshotIsACopy(t *testing.T) {
	h := newHarness()
	h.broker.current = sessionWith(PermissionDownload)
	c := h.start(t)

	snap := c.Snapshot()
	snap.Session.UserID = "mallory"
	assert.Equal(t, "user-1", c.Snapshot().Session.UserID)
}

func TestSubscribeDeliversCurrentThenLatest(t *testing.T) {
	h := newHarness()
	h.broker.current = sessionWith(PermissionDownload)
	c := h.start(t)

	ch, cancel := c.Subscribe(1)
	first := <-ch
	assert.Equal(t, StatusInitial, first.Status)

	c.Login(context.Background())
	settle(t, c)

	// Buffer of one keeps only the newest snapshot.
	latest := <-ch
	assert.Equal(t, StatusHasData, latest.Status)

	cancel()
	_, ok := <-ch
	assert.False(t, ok)
}

func TestCloseIgnoresLaterOperations(t *testing.T) {
	h := newHarness()
	h.broker.loginSession = &Session{UserID: "ada", Token: "t"}
	c, err := New(h.deps())
	require.NoError(t, err)
	c.Close()

	c.Login(context.Background())
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	c.Logout(ctx)

	logins, logouts, _ := h.broker.counts()
	assert.Equal(t, 0, logins)
	assert.Equal(t, 0, logouts)
}
