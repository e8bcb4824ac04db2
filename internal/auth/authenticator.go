// ABOUTME: MockAuthenticator checks configured bcrypt credentials and issues login tokens
// ABOUTME: Unknown users still pay for a bcrypt compare so timing does not reveal usernames

package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned for an unknown user or a wrong password
var ErrInvalidCredentials = errors.New("invalid username or password")

// dummyHash is compared against when the user does not exist.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// MockAuthenticator authenticates against a fixed user table.
type MockAuthenticator struct {
	users    map[string]string // username -> bcrypt hash
	verifier *JWTVerifier
	ttl      time.Duration
	logger   *slog.Logger
}

// NewMockAuthenticator creates an authenticator. users maps usernames to
// bcrypt hashes.
func NewMockAuthenticator(users map[string]string, verifier *JWTVerifier, logger *slog.Logger) *MockAuthenticator {
	if logger == nil {
		logger = slog.Default()
	}
	table := make(map[string]string, len(users))
	for name, hash := range users {
		table[name] = hash
	}
	return &MockAuthenticator{
		users:    table,
		verifier: verifier,
		ttl:      DefaultTokenTTL,
		logger:   logger.With("component", "auth"),
	}
}

// SetTokenTTL changes the lifetime of issued tokens.
func (a *MockAuthenticator) SetTokenTTL(ttl time.Duration) {
	if ttl > 0 {
		a.ttl = ttl
	}
}

// Login checks the password and returns a signed token for username.
func (a *MockAuthenticator) Login(username, password string) (string, error) {
	hash, ok := a.users[username]
	if !ok || hash == "" {
		_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(password))
		a.logger.Debug("login rejected", "username", username, "reason", "unknown user")
		return "", ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		a.logger.Debug("login rejected", "username", username, "reason", "bad password")
		return "", ErrInvalidCredentials
	}

	token, err := a.verifier.Generate(username, a.ttl)
	if err != nil {
		return "", fmt.Errorf("issuing token: %w", err)
	}
	a.logger.Info("user logged in", "username", username)
	return token, nil
}

// HashPassword returns a bcrypt hash suitable for the users table.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}
