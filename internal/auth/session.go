// Package auth implements interactive login and logout against the QMS backend.
// After login the HTTP client's refresh coordinator owns the stored session.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/waabox/qmsdeck/internal/domain"
	"github.com/waabox/qmsdeck/internal/httpclient"
	"github.com/waabox/qmsdeck/internal/tokenstore"
)

// Session handles login, logout and session persistence.
type Session struct {
	client     *httpclient.Client
	store      tokenstore.Store
	loginPath  string
	logoutPath string
	log        *slog.Logger
	mu         sync.Mutex
}

// NewSession creates a Session. loginPath and logoutPath are relative to the
// client's base URL.
func NewSession(client *httpclient.Client, store tokenstore.Store, loginPath, logoutPath string, log *slog.Logger) *Session {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Session{
		client:     client,
		store:      store,
		loginPath:  loginPath,
		logoutPath: logoutPath,
		log:        log,
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login exchanges username and password for a credential pair, stores it and
// re-arms session refresh. Bad credentials surface as an *httpclient.Error of
// kind KindAuthExpired.
func (s *Session) Login(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return errors.New("username and password are required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var pair domain.CredentialPair
	err := s.client.PostJSON(ctx, s.loginPath, loginRequest{Username: username, Password: password}, &pair, httpclient.SkipAuth())
	if err != nil {
		return fmt.Errorf("logging in: %w", err)
	}
	if pair.IsZero() {
		return errors.New("logging in: server returned no credentials")
	}
	if err := s.store.Set(ctx, pair); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	s.client.ResetSession()
	s.log.InfoContext(ctx, "logged in", "user", username)
	return nil
}

// Logout tells the backend to revoke the session, then clears it locally.
// The local session is cleared even if the backend call fails.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pair, err := s.store.Get(ctx)
	if err != nil {
		return fmt.Errorf("reading session: %w", err)
	}
	if pair.IsZero() {
		return nil
	}
	if err := s.client.PostJSON(ctx, s.logoutPath, nil, nil); err != nil {
		s.log.WarnContext(ctx, "server logout failed", "error", err)
	}
	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	s.log.InfoContext(ctx, "logged out")
	return nil
}

// LoggedIn reports whether a session is stored. It does not check the
// session with the backend.
func (s *Session) LoggedIn(ctx context.Context) (bool, error) {
	pair, err := s.store.Get(ctx)
	if err != nil {
		return false, fmt.Errorf("reading session: %w", err)
	}
	return !pair.IsZero(), nil
}
