package devstub

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"stride/config"
	domainerrors "stride/internal/domain/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// manualClock only moves when the test advances it.
type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *manualClock) After(d time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- c.Now()

	return ch
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestStore_AuthenticateAndSessionRoundTrip(t *testing.T) {
	cfg := &config.Config{Devstub: &config.DevstubConfig{
		SessionSecret: "test-secret",
		Accounts: []config.DevstubAccount{
			{Email: "Coach@Example.com", Password: "hunter2", Name: "Coach"},
		},
	}}

	store, err := NewStore(cfg, discardLogger())
	require.NoError(t, err)

	user, err := store.Authenticate("coach@example.com", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "coach@example.com", user.Email)

	_, err = store.Authenticate("coach@example.com", "wrong")
	assert.ErrorIs(t, err, domainerrors.ErrInvalidCredentials)

	_, err = store.Authenticate("nobody@example.com", "hunter2")
	assert.ErrorIs(t, err, domainerrors.ErrInvalidCredentials)

	token, err := store.IssueSession(user)
	require.NoError(t, err)

	verified, err := store.VerifySession(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, verified.ID)
	assert.Equal(t, user.Email, verified.Email)
}

func TestStore_VerifySessionRejectsForgedToken(t *testing.T) {
	store, err := NewStore(&config.Config{}, discardLogger())
	require.NoError(t, err)

	_, err = store.VerifySession("not-a-token")
	assert.Error(t, err)

	other, err := NewStore(&config.Config{Devstub: &config.DevstubConfig{SessionSecret: "different"}}, discardLogger())
	require.NoError(t, err)

	user, err := other.Authenticate("runner@example.com", "password")
	require.NoError(t, err)
	foreign, err := other.IssueSession(user)
	require.NoError(t, err)

	_, err = store.VerifySession(foreign)
	assert.Error(t, err, "a token signed with another secret is rejected")
}

func TestStore_UserFromIDToken(t *testing.T) {
	store, err := NewStore(&config.Config{}, discardLogger())
	require.NoError(t, err)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   "ext-1",
		"email": "runner@example.com",
		"name":  "Runner",
	}).SignedString([]byte("whatever"))
	require.NoError(t, err)

	user, err := store.UserFromIDToken(token)
	require.NoError(t, err)
	assert.Equal(t, "runner@example.com", user.Email)
	assert.Equal(t, "Runner", user.Name)

	again, err := store.UserFromIDToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, again.ID, "the synthesized identity is stable")

	noEmail, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "ext-2"}).
		SignedString([]byte("whatever"))
	require.NoError(t, err)

	_, err = store.UserFromIDToken(noEmail)
	assert.Error(t, err)

	_, err = store.UserFromIDToken("garbage")
	assert.Error(t, err)
}

func TestSimulator_JobLifecycle(t *testing.T) {
	clock := newManualClock()
	cfg := &config.Config{Devstub: &config.DevstubConfig{JobDuration: 10 * time.Second}}
	sim := NewSimulator(cfg, clock, discardLogger())

	status := sim.Status()
	assert.False(t, status.Running)
	assert.Empty(t, status.SyncStates)

	endpoints, err := sim.Trigger([]string{"activities"})
	require.NoError(t, err)
	assert.Equal(t, []string{"activities"}, endpoints)

	assert.True(t, sim.Status().Running)

	_, err = sim.Trigger(nil)
	assert.ErrorIs(t, err, domainerrors.ErrSyncAlreadyRunning)

	clock.Advance(11 * time.Second)

	status = sim.Status()
	assert.False(t, status.Running)
	assert.Empty(t, status.LastError)
	require.Len(t, status.SyncStates, 1)
	assert.Equal(t, "activities", status.SyncStates[0].Endpoint)
	assert.NotNil(t, status.SyncStates[0].LastSuccessAt)

	records, total := sim.History(1, 20)
	assert.Equal(t, 1, total)
	require.Len(t, records, 1)
	assert.Equal(t, "completed", records[0].Status)

	conn := sim.Connection()
	assert.True(t, conn.Connected)
	require.NotNil(t, conn.LastSyncAt)
}

func TestSimulator_FailingJobSetsLastError(t *testing.T) {
	clock := newManualClock()
	cfg := &config.Config{Devstub: &config.DevstubConfig{JobDuration: time.Second, FailSyncs: true}}
	sim := NewSimulator(cfg, clock, discardLogger())

	_, err := sim.Trigger(nil)
	require.NoError(t, err)

	clock.Advance(2 * time.Second)

	status := sim.Status()
	assert.False(t, status.Running)
	assert.Equal(t, "simulated sync failure", status.LastError)

	records, _ := sim.History(1, 20)
	require.Len(t, records, 1)
	assert.Equal(t, "errored", records[0].Status)

	// A failed run leaves no success timestamps behind.
	for _, state := range status.SyncStates {
		assert.Nil(t, state.LastSuccessAt)
		assert.NotNil(t, state.LastSyncAt)
	}
}

func TestSimulator_HistoryPagination(t *testing.T) {
	clock := newManualClock()
	cfg := &config.Config{Devstub: &config.DevstubConfig{JobDuration: time.Second}}
	sim := NewSimulator(cfg, clock, discardLogger())

	for i := 0; i < 5; i++ {
		_, err := sim.Trigger([]string{"sleep"})
		require.NoError(t, err)
		clock.Advance(2 * time.Second)
		sim.Status()
	}

	first, total := sim.History(1, 2)
	assert.Equal(t, 5, total)
	require.Len(t, first, 2)

	second, _ := sim.History(2, 2)
	require.Len(t, second, 2)
	assert.NotEqual(t, first[0].ID, second[0].ID)

	// Newest first: page one holds the most recent run.
	assert.True(t, first[0].StartedAt.After(second[0].StartedAt))

	empty, _ := sim.History(4, 2)
	assert.Empty(t, empty)
}
