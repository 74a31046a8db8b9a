package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestAuthenticator(t *testing.T, now *time.Time) *Authenticator {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	return NewAuthenticator(string(hash), "signing-key", time.Hour).WithClock(func() time.Time { return *now })
}

func TestLoginIssuesVerifiableToken(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	a := newTestAuthenticator(t, &now)

	_, err := a.Login("wrong")
	assert.ErrorIs(t, err, ErrInvalidPassword)

	token, err := a.Login("s3cret")
	require.NoError(t, err)
	assert.NoError(t, a.VerifyToken(token))

	now = now.Add(2 * time.Hour)
	assert.ErrorIs(t, a.VerifyToken(token), ErrInvalidToken, "expired token")
}

func TestVerifyTokenRejectsForeignTokens(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	a := newTestAuthenticator(t, &now)

	other := NewAuthenticator("", "other-key", time.Hour).WithClock(func() time.Time { return now })
	foreign, err := other.IssueToken()
	require.NoError(t, err)
	assert.ErrorIs(t, a.VerifyToken(foreign), ErrInvalidToken)

	claims := jwt.RegisteredClaims{Subject: "reader", ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour))}
	wrongSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("signing-key"))
	require.NoError(t, err)
	assert.ErrorIs(t, a.VerifyToken(wrongSubject), ErrInvalidToken)

	assert.ErrorIs(t, a.VerifyToken("not-a-token"), ErrInvalidToken)
}

func TestVerifyPasswordRequiresConfiguredHash(t *testing.T) {
	a := NewAuthenticator("", "key", 0)
	assert.ErrorIs(t, a.VerifyPassword("anything"), ErrNotConfigured)
}

func TestHashPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("pw")
	require.NoError(t, err)
	assert.NoError(t, NewAuthenticator(hash, "key", 0).VerifyPassword("pw"))
}
