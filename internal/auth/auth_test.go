// ABOUTME: Tests for JWT tokens, the mock authenticator, the token holder and auth context
// ABOUTME: Uses a fixed clock for expiry and a low bcrypt cost for speed

package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var testSecret = []byte("test-secret-at-least-32-bytes-long!!")

func TestJWTVerifier_RoundTrip(t *testing.T) {
	v := NewJWTVerifier(testSecret)

	token, err := v.Generate("alice", time.Hour)
	require.NoError(t, err)

	sub, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", sub)
}

func TestJWTVerifier_Expired(t *testing.T) {
	v := NewJWTVerifier(testSecret)
	issued := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	v.now = func() time.Time { return issued }

	token, err := v.Generate("alice", time.Minute)
	require.NoError(t, err)

	v.now = func() time.Time { return issued.Add(2 * time.Minute) }
	_, err = v.Verify(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestJWTVerifier_WrongSecret(t *testing.T) {
	token, err := NewJWTVerifier(testSecret).Generate("alice", time.Hour)
	require.NoError(t, err)

	_, err = NewJWTVerifier([]byte("another-secret-that-is-long-enough")).Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTVerifier_RejectsForeignTokens(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name   string
		method jwt.SigningMethod
		claims jwt.MapClaims
		want   error
	}{
		{
			name:   "wrong issuer",
			method: jwt.SigningMethodHS256,
			claims: jwt.MapClaims{"sub": "alice", "iss": "someone-else", "exp": now.Add(time.Hour).Unix()},
			want:   ErrInvalidToken,
		},
		{
			name:   "no expiry",
			method: jwt.SigningMethodHS256,
			claims: jwt.MapClaims{"sub": "alice", "iss": Issuer},
			want:   ErrInvalidToken,
		},
		{
			name:   "other hmac algorithm",
			method: jwt.SigningMethodHS512,
			claims: jwt.MapClaims{"sub": "alice", "iss": Issuer, "exp": now.Add(time.Hour).Unix()},
			want:   ErrInvalidToken,
		},
		{
			name:   "missing subject",
			method: jwt.SigningMethodHS256,
			claims: jwt.MapClaims{"iss": Issuer, "exp": now.Add(time.Hour).Unix()},
			want:   ErrMissingClaim,
		},
	}

	v := NewJWTVerifier(testSecret)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := jwt.NewWithClaims(tt.method, tt.claims).SignedString(testSecret)
			require.NoError(t, err)

			_, err = v.Verify(token)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestJWTVerifier_Garbage(t *testing.T) {
	_, err := NewJWTVerifier(testSecret).Verify("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTVerifier_GenerateRequiresSubject(t *testing.T) {
	_, err := NewJWTVerifier(testSecret).Generate("", time.Hour)
	assert.ErrorIs(t, err, ErrMissingClaim)
}

func testUsers(t *testing.T) map[string]string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)
	return map[string]string{"alice": string(hash)}
}

func TestMockAuthenticator_Login(t *testing.T) {
	v := NewJWTVerifier(testSecret)
	a := NewMockAuthenticator(testUsers(t), v, nil)

	token, err := a.Login("alice", "hunter2")
	require.NoError(t, err)

	sub, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", sub)
}

func TestMockAuthenticator_RejectsBadCredentials(t *testing.T) {
	a := NewMockAuthenticator(testUsers(t), NewJWTVerifier(testSecret), nil)

	_, err := a.Login("alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = a.Login("mallory", "hunter2")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = a.Login("", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestMockAuthenticator_TokenTTL(t *testing.T) {
	v := NewJWTVerifier(testSecret)
	issued := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	v.now = func() time.Time { return issued }

	a := NewMockAuthenticator(testUsers(t), v, nil)
	a.SetTokenTTL(time.Minute)

	token, err := a.Login("alice", "hunter2")
	require.NoError(t, err)

	v.now = func() time.Time { return issued.Add(30 * time.Second) }
	_, err = v.Verify(token)
	require.NoError(t, err)

	v.now = func() time.Time { return issued.Add(time.Hour) }
	_, err = v.Verify(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret")))

	a := NewMockAuthenticator(map[string]string{"bob": hash}, NewJWTVerifier(testSecret), nil)
	_, err = a.Login("bob", "s3cret")
	assert.NoError(t, err)
}

func TestTokenHolder(t *testing.T) {
	var h TokenHolder
	assert.Empty(t, h.Token())

	h.Set("alice", "tok")
	assert.Equal(t, "tok", h.Token())
	assert.Equal(t, "alice", h.User())

	h.Clear()
	assert.Empty(t, h.Token())
	assert.Empty(t, h.User())
}

func TestAuthContext(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, FromContext(ctx))

	expires := time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC)
	ctx = WithAuth(ctx, &AuthContext{Username: "alice", ExpiresAt: expires})

	got := FromContext(ctx)
	require.NotNil(t, got)
	assert.Equal(t, "alice", got.Username)
	assert.False(t, got.Expired(expires.Add(-time.Second)))
	assert.True(t, got.Expired(expires))

	assert.False(t, (&AuthContext{Username: "bob"}).Expired(time.Now()), "zero expiry never lapses")
}
