package identity

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"stride/config"
	"stride/internal/domain/entity"
	domainerrors "stride/internal/domain/errors"
	"stride/internal/infra/gateway"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newSessionClient(t *testing.T, baseURL string) *gateway.Client {
	t.Helper()

	cfg := &config.Config{}
	cfg.API.BaseURL = baseURL
	cfg.API.Timeout = 5 * time.Second
	cfg.Auth = &config.AuthConfig{Mode: "session"}

	client, err := gateway.New(gateway.Params{Config: cfg, Logger: discardLogger()})
	require.NoError(t, err)

	return client
}

func TestSessionProvider_ResolveIdentity_Authenticated(t *testing.T) {
	userID := uuid.New()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/me", r.URL.Path)
		json.NewEncoder(w).Encode(entity.User{ID: userID, Email: "runner@example.com", Name: "Runner"})
	}))
	defer server.Close()

	provider := NewSessionProvider(newSessionClient(t, server.URL), discardLogger())
	assert.True(t, provider.Session().IsLoading)

	session := provider.ResolveIdentity(context.Background())

	assert.True(t, session.IsAuthenticated())
	assert.False(t, session.IsLoading)
	assert.Equal(t, userID, session.User.ID)
}

func TestSessionProvider_ResolveIdentity_AnonymousOn401(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	provider := NewSessionProvider(newSessionClient(t, server.URL), discardLogger())

	// A failed session check is the normal logged-out state; no error
	// surfaces to the caller.
	session := provider.ResolveIdentity(context.Background())

	assert.False(t, session.IsAuthenticated())
	assert.False(t, session.IsLoading)
}

func TestSessionProvider_Login_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/login", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "runner@example.com", body["email"])

		json.NewEncoder(w).Encode(entity.User{ID: uuid.New(), Email: body["email"]})
	}))
	defer server.Close()

	provider := NewSessionProvider(newSessionClient(t, server.URL), discardLogger())

	user, err := provider.Login(context.Background(), "runner@example.com", "hunter2")

	require.NoError(t, err)
	assert.Equal(t, "runner@example.com", user.Email)
	assert.True(t, provider.Session().IsAuthenticated())
}

func TestSessionProvider_Login_PropagatesRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	provider := NewSessionProvider(newSessionClient(t, server.URL), discardLogger())

	_, err := provider.Login(context.Background(), "runner@example.com", "wrong")

	require.Error(t, err)
	var appErr domainerrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, domainerrors.ErrInvalidCredentials.ErrorCode(), appErr.ErrorCode())
	assert.False(t, provider.Session().IsAuthenticated())
}

func TestSessionProvider_Logout_ClearsUserEvenOnFailure(t *testing.T) {
	var loggedIn bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login":
			loggedIn = true
			json.NewEncoder(w).Encode(entity.User{ID: uuid.New(), Email: "runner@example.com"})
		case "/auth/logout":
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	defer server.Close()

	provider := NewSessionProvider(newSessionClient(t, server.URL), discardLogger())

	_, err := provider.Login(context.Background(), "runner@example.com", "hunter2")
	require.NoError(t, err)
	require.True(t, loggedIn)

	err = provider.Logout(context.Background())

	require.Error(t, err, "the network failure still propagates")
	assert.False(t, provider.Session().IsAuthenticated(), "the local user is cleared regardless")
}
