package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveAuthMode(t *testing.T) {
	tests := []struct {
		name      string
		requested string
		hasKey    bool
		want      AuthMode
	}{
		{name: "session stays session", requested: "session", hasKey: false, want: AuthModeSession},
		{name: "session with key stays session", requested: "session", hasKey: true, want: AuthModeSession},
		{name: "external without key degrades", requested: "external", hasKey: false, want: AuthModeSession},
		{name: "hybrid without key degrades", requested: "hybrid", hasKey: false, want: AuthModeSession},
		{name: "external with key", requested: "external", hasKey: true, want: AuthModeExternal},
		{name: "hybrid with key", requested: "hybrid", hasKey: true, want: AuthModeHybrid},
		{name: "empty defaults to session", requested: "", hasKey: true, want: AuthModeSession},
		{name: "garbage defaults to session", requested: "oauth2", hasKey: true, want: AuthModeSession},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveAuthMode(tt.requested, tt.hasKey))
		})
	}
}

func TestAuthSession_IsAuthenticated(t *testing.T) {
	assert.False(t, AuthSession{}.IsAuthenticated())
	assert.True(t, AuthSession{User: &User{Email: "a@b.c"}}.IsAuthenticated())
}

func TestAuthMode_RequiresToken(t *testing.T) {
	assert.False(t, AuthModeSession.RequiresToken())
	assert.True(t, AuthModeExternal.RequiresToken())
	assert.True(t, AuthModeHybrid.RequiresToken())
}
