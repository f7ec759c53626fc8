package tokenstore

import (
	"context"
	"sync"

	"github.com/waabox/qmsdeck/internal/domain"
)

// MemoryStore keeps the pair in process memory. It does not survive a restart.
type MemoryStore struct {
	mu   sync.RWMutex
	pair domain.CredentialPair
}

// Ensure MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a MemoryStore seeded with pair (pass the zero pair for an empty store).
func NewMemoryStore(pair domain.CredentialPair) *MemoryStore {
	return &MemoryStore{pair: normalize(pair)}
}

func (s *MemoryStore) Get(_ context.Context) (domain.CredentialPair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pair, nil
}

func (s *MemoryStore) Set(_ context.Context, pair domain.CredentialPair) error {
	if err := pair.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair = pair
	return nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair = domain.CredentialPair{}
	return nil
}
