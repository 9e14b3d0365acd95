package external

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	return token
}

func TestVerifier_AcceptsWellFormedToken(t *testing.T) {
	verifier := NewVerifier("pk_test", "https://id.example.com")

	token := signedToken(t, jwt.MapClaims{
		"iss":   "https://id.example.com",
		"aud":   "pk_test",
		"sub":   "user-1",
		"email": "runner@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})

	claims, err := verifier.ParseAndVerify(token)

	require.NoError(t, err)
	assert.Equal(t, "runner@example.com", claims.Email)
	assert.Equal(t, "user-1", claims.Subject)
}

func TestVerifier_RejectsWrongAudience(t *testing.T) {
	verifier := NewVerifier("pk_test", "")

	token := signedToken(t, jwt.MapClaims{
		"aud": "pk_other",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	_, err := verifier.ParseAndVerify(token)
	assert.Error(t, err)
}

func TestVerifier_RejectsWrongIssuer(t *testing.T) {
	verifier := NewVerifier("", "https://id.example.com")

	token := signedToken(t, jwt.MapClaims{
		"iss": "https://evil.example.com",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	_, err := verifier.ParseAndVerify(token)
	assert.Error(t, err)
}

func TestVerifier_RejectsExpiredToken(t *testing.T) {
	verifier := NewVerifier("pk_test", "")

	token := signedToken(t, jwt.MapClaims{
		"aud": "pk_test",
		"exp": time.Now().Add(-time.Minute).Unix(),
	})

	_, err := verifier.ParseAndVerify(token)
	assert.Error(t, err)
}

func TestVerifier_RejectsMissingExpiry(t *testing.T) {
	verifier := NewVerifier("pk_test", "")

	token := signedToken(t, jwt.MapClaims{"aud": "pk_test"})

	_, err := verifier.ParseAndVerify(token)
	assert.Error(t, err)
}

func TestVerifier_RejectsGarbage(t *testing.T) {
	verifier := NewVerifier("pk_test", "")

	_, err := verifier.ParseAndVerify("not-a-jwt")
	assert.Error(t, err)
}
