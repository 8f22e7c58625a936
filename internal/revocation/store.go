// Package revocation tracks denylisted token identifiers (jti) until their
// natural expiry. Tokens are otherwise stateless; inserting a jti here is the
// single server-side mutation that can end a session early.
package revocation

import (
	"context"
	"errors"
	"time"
)

// ErrAlreadyRevoked is returned when a jti has already been inserted.
// Membership is append-only within a token's validity window, so the
// conflict is a terminal, user-visible condition — never retried.
var ErrAlreadyRevoked = errors.New("token already revoked")

// Store is a durable denylist with atomic conditional insert. Atomicity must
// come from the storage layer (unique constraint, SETNX), not from a
// check-then-insert in the caller.
type Store interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
}
