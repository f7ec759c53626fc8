// Package tokenstore persists the access/refresh credential pair between runs.
//
// A Store is pure storage: it has no refresh logic and never inspects tokens.
// Concurrent reads are safe on every backend. Writes are expected to be
// serialized by the caller; the HTTP client's refresh coordinator and the
// login/logout flow are the only writers.
package tokenstore

import (
	"context"
	"fmt"

	"github.com/waabox/qmsdeck/internal/domain"
)

// Store holds the current credential pair.
// Get returns the zero pair when no session is stored.
type Store interface {
	Get(ctx context.Context) (domain.CredentialPair, error)
	Set(ctx context.Context, pair domain.CredentialPair) error
	Clear(ctx context.Context) error
}

// StoreError indicates a failure of the persistence backend.
type StoreError struct {
	Backend   string // "file", "redis", "keyring"
	Operation string // "get", "set", "clear"
	Cause     error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s store: %s session: %v", e.Backend, e.Operation, e.Cause)
}

func (e *StoreError) Unwrap() error {
	return e.Cause
}

// normalize turns a partially persisted pair (e.g. hand-edited file) into the empty pair.
func normalize(pair domain.CredentialPair) domain.CredentialPair {
	if pair.Validate() != nil {
		return domain.CredentialPair{}
	}
	return pair
}
