package identity

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"stride/config"
	"stride/internal/domain/entity"
	"stride/internal/infra/gateway"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
)

func newResolverConfig(baseURL, mode string, external *config.ExternalAuthConfig) *config.Config {
	cfg := &config.Config{}
	cfg.API.BaseURL = baseURL
	cfg.API.Timeout = 5 * time.Second
	cfg.Auth = &config.AuthConfig{Mode: mode}
	cfg.External = external

	return cfg
}

func TestNewProvider_SessionModeMountsSessionStrategy(t *testing.T) {
	cfg := newResolverConfig("http://localhost:8000", "session", nil)
	client, err := gateway.New(gateway.Params{Config: cfg, Logger: discardLogger()})
	require.NoError(t, err)

	lc := fxtest.NewLifecycle(t)
	provider, err := NewProvider(Params{Lc: lc, Config: cfg, Logger: discardLogger(), Client: client})
	require.NoError(t, err)

	assert.Equal(t, entity.AuthModeSession, provider.Mode())
	assert.True(t, client.Credentials().Resolved(), "session mount registers the no-op source")

	token, err := client.Credentials().Token(context.Background())
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestNewProvider_RequestedExternalWithoutKeyDegrades(t *testing.T) {
	cfg := newResolverConfig("http://localhost:8000", "external", nil)
	client, err := gateway.New(gateway.Params{Config: cfg, Logger: discardLogger()})
	require.NoError(t, err)

	provider, err := NewProvider(Params{Lc: fxtest.NewLifecycle(t), Config: cfg, Logger: discardLogger(), Client: client})
	require.NoError(t, err)

	assert.Equal(t, entity.AuthModeSession, provider.Mode())
}

func TestNewProvider_HybridModeMountsExternalStrategy(t *testing.T) {
	tokenFile := filepath.Join(t.TempDir(), "id_token")
	cfg := newResolverConfig("http://localhost:8000", "hybrid", &config.ExternalAuthConfig{
		ClientKey: "pk_test",
		TokenFile: tokenFile,
	})
	client, err := gateway.New(gateway.Params{Config: cfg, Logger: discardLogger()})
	require.NoError(t, err)

	lc := fxtest.NewLifecycle(t)
	provider, err := NewProvider(Params{Lc: lc, Config: cfg, Logger: discardLogger(), Client: client})
	require.NoError(t, err)

	assert.Equal(t, entity.AuthModeHybrid, provider.Mode())
	assert.True(t, client.Credentials().Resolved())

	lc.RequireStart()
	lc.RequireStop()
}
