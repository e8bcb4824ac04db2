// ABOUTME: TokenHolder keeps the current login token for the backend client
// ABOUTME: Safe for concurrent use by the REPL and background pollers

package auth

import "sync"

// TokenHolder stores the bearer token. The zero value holds no token.
type TokenHolder struct {
	mu    sync.RWMutex
	token string
	user  string
}

// Token returns the current token, or "".
func (h *TokenHolder) Token() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.token
}

// User returns the username the token was issued to.
func (h *TokenHolder) User() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.user
}

// Set stores a token for user.
func (h *TokenHolder) Set(user, token string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.user = user
	h.token = token
}

// Clear drops the token.
func (h *TokenHolder) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.user = ""
	h.token = ""
}
