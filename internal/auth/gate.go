// Package auth implements the admin gate: a stateless decision that turns
// a claimed credential into a token asserting admin privilege. Privileged
// ledger operations (delete-all, export) require such a token.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrUnauthorized is returned for any credential that does not match the
// configured admin secret, and by privileged operations handed an invalid
// token. It is never downgraded to a silent no-op.
var ErrUnauthorized = errors.New("unauthorized")

// Gate evaluates admin credentials. Each call is independent; the gate
// holds no session state. Construct one per configuration so independent
// instances can coexist in tests.
type Gate struct {
	username   string
	secretHash []byte
}

// Token asserts admin privilege for the holder. Only a Gate can mint a
// valid one; the zero Token is invalid.
type Token struct {
	id       string
	issuedAt time.Time
	admin    bool
}

// NewGate builds a gate for the given admin username and plaintext secret.
// The secret is hashed immediately and never retained.
func NewGate(username, secret string) *Gate {
	return &Gate{
		username:   username,
		secretHash: hashCredential(secret),
	}
}

// Authorize compares the claimed credential against the configured admin
// secret in constant time. On success it returns a token carrying a unique
// id and issue time for the audit trail.
func (g *Gate) Authorize(username, credential string) (Token, error) {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(g.username)) == 1
	credOK := subtle.ConstantTimeCompare(hashCredential(credential), g.secretHash) == 1
	if !userOK || !credOK {
		return Token{}, ErrUnauthorized
	}
	return g.mint(), nil
}

// Resume re-issues an admin token for a username already authenticated by
// the caller's session layer. The caller is responsible for having verified
// the session; the gate only checks that the username is the admin.
func (g *Gate) Resume(username string) (Token, error) {
	if subtle.ConstantTimeCompare([]byte(username), []byte(g.username)) != 1 {
		return Token{}, ErrUnauthorized
	}
	return g.mint(), nil
}

// Username returns the configured admin username.
func (g *Gate) Username() string {
	return g.username
}

func (g *Gate) mint() Token {
	return Token{
		id:       uuid.NewString(),
		issuedAt: time.Now().UTC(),
		admin:    true,
	}
}

// Valid reports whether the token asserts admin privilege.
func (t Token) Valid() bool {
	return t.admin
}

// ID returns the token's unique id, for audit logging.
func (t Token) ID() string {
	return t.id
}

// IssuedAt returns when the token was minted.
func (t Token) IssuedAt() time.Time {
	return t.issuedAt
}

func hashCredential(s string) []byte {
	sum := sha256.Sum256([]byte(s))
	out := make([]byte, hex.EncodedLen(len(sum)))
	hex.Encode(out, sum[:])
	return out
}
