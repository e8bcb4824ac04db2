// Package auth provides the console's placeholder authentication.
//
// Users are configured as a username and a bcrypt hash. A successful Login
// issues an HS256-signed JWT whose sub claim is the username:
//
//	authn := auth.NewMockAuthenticator(users, verifier)
//	token, err := authn.Login("alice", "secret")
//
// The token is kept in a TokenHolder, which the backend client reads to set
// the Authorization header. Logout clears it.
//
// This is not a security boundary. Nothing here protects the backend; it only
// models a signed-in user for the console.
package auth
