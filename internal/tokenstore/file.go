package tokenstore

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/waabox/qmsdeck/internal/config"
	"github.com/waabox/qmsdeck/internal/domain"
)

// sessionFile is the on-disk layout of the file store.
type sessionFile struct {
	Session domain.CredentialPair `toml:"session"`
}

// FileStore persists the pair in a TOML file readable only by the current user.
// A missing file means no session.
type FileStore struct {
	path string
	mu   sync.RWMutex
}

// Ensure FileStore implements Store.
var _ Store = (*FileStore)(nil)

// NewFileStore creates a FileStore backed by path. The file is created on first Set.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the session file path.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Get(_ context.Context) (domain.CredentialPair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var f sessionFile
	if _, err := toml.DecodeFile(s.path, &f); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.CredentialPair{}, nil
		}
		return domain.CredentialPair{}, &StoreError{Backend: "file", Operation: "get", Cause: err}
	}
	return normalize(f.Session), nil
}

func (s *FileStore) Set(_ context.Context, pair domain.CredentialPair) error {
	if err := pair.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := config.WriteTOML(s.path, sessionFile{Session: pair}); err != nil {
		return &StoreError{Backend: "file", Operation: "set", Cause: err}
	}
	return nil
}

func (s *FileStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &StoreError{Backend: "file", Operation: "clear", Cause: err}
	}
	return nil
}
