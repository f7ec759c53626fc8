package tokenstore

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/waabox/qmsdeck/internal/domain"
	"github.com/zalando/go-keyring"
)

// KeyringStore keeps the pair in the operating system keychain as a single JSON
// secret, so both halves are always written and removed together.
type KeyringStore struct {
	service string
	user    string
}

// Ensure KeyringStore implements Store.
var _ Store = (*KeyringStore)(nil)

// NewKeyringStore creates a KeyringStore for the given keychain service and account.
func NewKeyringStore(service, user string) *KeyringStore {
	return &KeyringStore{service: service, user: user}
}

func (s *KeyringStore) Get(_ context.Context) (domain.CredentialPair, error) {
	secret, err := keyring.Get(s.service, s.user)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return domain.CredentialPair{}, nil
		}
		return domain.CredentialPair{}, &StoreError{Backend: "keyring", Operation: "get", Cause: err}
	}
	var pair domain.CredentialPair
	if err := json.Unmarshal([]byte(secret), &pair); err != nil {
		return domain.CredentialPair{}, &StoreError{Backend: "keyring", Operation: "get", Cause: err}
	}
	return normalize(pair), nil
}

func (s *KeyringStore) Set(ctx context.Context, pair domain.CredentialPair) error {
	if err := pair.Validate(); err != nil {
		return err
	}
	if pair.IsZero() {
		return s.Clear(ctx)
	}
	secret, err := json.Marshal(pair)
	if err != nil {
		return &StoreError{Backend: "keyring", Operation: "set", Cause: err}
	}
	if err := keyring.Set(s.service, s.user, string(secret)); err != nil {
		return &StoreError{Backend: "keyring", Operation: "set", Cause: err}
	}
	return nil
}

func (s *KeyringStore) Clear(_ context.Context) error {
	if err := keyring.Delete(s.service, s.user); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return &StoreError{Backend: "keyring", Operation: "clear", Cause: err}
	}
	return nil
}
