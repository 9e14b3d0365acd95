package impl

import (
	"context"
	"testing"

	"stride/internal/domain/entity"
	domainerrors "stride/internal/domain/errors"
	"stride/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider is a minimal IdentityProvider for facade tests.
type fakeProvider struct {
	session  entity.AuthSession
	loginErr error
	logins   int
}

func (p *fakeProvider) Mode() entity.AuthMode { return p.session.Mode }

func (p *fakeProvider) ResolveIdentity(ctx context.Context) entity.AuthSession {
	p.session.IsLoading = false

	return p.session
}

func (p *fakeProvider) Session() entity.AuthSession { return p.session }

func (p *fakeProvider) Login(ctx context.Context, email, password string) (*entity.User, error) {
	p.logins++
	if p.loginErr != nil {
		return nil, p.loginErr
	}

	user := &entity.User{Email: email}
	p.session.User = user

	return user, nil
}

func (p *fakeProvider) Logout(ctx context.Context) error {
	p.session.User = nil

	return nil
}

func (p *fakeProvider) Refresh(ctx context.Context) entity.AuthSession {
	return p.ResolveIdentity(ctx)
}

func (p *fakeProvider) Credential(ctx context.Context) (string, error) { return "", nil }

func TestAuthLogin_ValidatesInput(t *testing.T) {
	provider := &fakeProvider{session: entity.AuthSession{Mode: entity.AuthModeSession}}
	auth := NewAuthService(AuthParams{Provider: provider, Logger: discardLogger()})

	tests := []struct {
		name  string
		input usecase.LoginInput
	}{
		{name: "missing email", input: usecase.LoginInput{Password: "hunter2"}},
		{name: "malformed email", input: usecase.LoginInput{Email: "not-an-email", Password: "hunter2"}},
		{name: "missing password", input: usecase.LoginInput{Email: "runner@example.com"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := auth.Login(context.Background(), tt.input)

			require.Error(t, err)
			var appErr domainerrors.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, domainerrors.ErrValidationFailed.ErrorCode(), appErr.ErrorCode())
		})
	}

	assert.Zero(t, provider.logins, "invalid input never reaches the provider")
}

func TestAuthLogin_DelegatesToProvider(t *testing.T) {
	provider := &fakeProvider{session: entity.AuthSession{Mode: entity.AuthModeSession}}
	auth := NewAuthService(AuthParams{Provider: provider, Logger: discardLogger()})

	out, err := auth.Login(context.Background(), usecase.LoginInput{
		Email:    "runner@example.com",
		Password: "hunter2",
	})

	require.NoError(t, err)
	assert.Equal(t, "runner@example.com", out.User.Email)
	assert.True(t, auth.Session().IsAuthenticated())
}

func TestAuthLogin_PropagatesProviderError(t *testing.T) {
	provider := &fakeProvider{
		session:  entity.AuthSession{Mode: entity.AuthModeExternal},
		loginErr: domainerrors.ErrPasswordLoginUnavailable,
	}
	auth := NewAuthService(AuthParams{Provider: provider, Logger: discardLogger()})

	_, err := auth.Login(context.Background(), usecase.LoginInput{
		Email:    "runner@example.com",
		Password: "hunter2",
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrPasswordLoginUnavailable)
}

func TestAuthResolveAndLogout(t *testing.T) {
	provider := &fakeProvider{session: entity.AuthSession{
		Mode:      entity.AuthModeSession,
		IsLoading: true,
		User:      &entity.User{Email: "runner@example.com"},
	}}
	auth := NewAuthService(AuthParams{Provider: provider, Logger: discardLogger()})

	session := auth.Resolve(context.Background())
	assert.False(t, session.IsLoading)
	assert.True(t, session.IsAuthenticated())

	require.NoError(t, auth.Logout(context.Background()))
	assert.False(t, auth.Session().IsAuthenticated())
}
