package auth_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/waabox/qmsdeck/internal/auth"
	"github.com/waabox/qmsdeck/internal/domain"
	"github.com/waabox/qmsdeck/internal/httpclient"
	"github.com/waabox/qmsdeck/internal/testserver"
	"github.com/waabox/qmsdeck/internal/tokenstore"
)

func newSession(t *testing.T, store tokenstore.Store) (*testserver.Server, *auth.Session, *httpclient.Client) {
	t.Helper()
	qms := testserver.New(testserver.Options{Username: "auditor", Password: "s3cret"})
	srv := httptest.NewServer(qms.Handler())
	t.Cleanup(srv.Close)

	client, err := httpclient.New(httpclient.Config{
		BaseURL:   srv.URL + "/api",
		Timeout:   2 * time.Second,
		BaseDelay: time.Millisecond,
	}, store)
	if err != nil {
		t.Fatalf("creating client: %v", err)
	}
	return qms, auth.NewSession(client, store, "/auth/login", "/auth/logout", nil), client
}

func TestSession_Login_StoresPair(t *testing.T) {
	store := tokenstore.NewFileStore(filepath.Join(t.TempDir(), "session.toml"))
	qms, session, _ := newSession(t, store)
	ctx := context.Background()

	if err := session.Login(ctx, "auditor", "s3cret"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pair, err := store.Get(ctx)
	if err != nil {
		t.Fatalf("reading store: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Errorf("expected a complete pair, got %+v", pair)
	}
	if qms.Logins() != 1 {
		t.Errorf("expected 1 login, got %d", qms.Logins())
	}
	loggedIn, err := session.LoggedIn(ctx)
	if err != nil || !loggedIn {
		t.Errorf("expected LoggedIn true, got %v (err %v)", loggedIn, err)
	}
}

func TestSession_Login_BadPasswordLeavesStoreAlone(t *testing.T) {
	store := tokenstore.NewMemoryStore(domain.CredentialPair{})
	qms, session, client := newSession(t, store)

	err := session.Login(context.Background(), "auditor", "wrong")
	if err == nil {
		t.Fatal("expected error for bad password, got nil")
	}
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
	if qms.Refreshes() != 0 || client.RefreshCount() != 0 {
		t.Error("a rejected login must not trigger a session refresh")
	}
	pair, _ := store.Get(context.Background())
	if !pair.IsZero() {
		t.Errorf("expected empty store, got %+v", pair)
	}
}

func TestSession_Login_ResetsFailedRefresh(t *testing.T) {
	store := tokenstore.NewMemoryStore(domain.CredentialPair{AccessToken: "stale", RefreshToken: "revoked"})
	_, session, client := newSession(t, store)
	ctx := context.Background()

	if err := client.GetJSON(ctx, "/collections/audits/records", nil); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized with a revoked session, got %v", err)
	}
	if client.RefreshState() != httpclient.StateFailed {
		t.Fatalf("expected failed state, got %s", client.RefreshState())
	}

	if err := session.Login(ctx, "auditor", "s3cret"); err != nil {
		t.Fatalf("unexpected login error: %v", err)
	}
	if client.RefreshState() != httpclient.StateIdle {
		t.Errorf("expected idle state after login, got %s", client.RefreshState())
	}
	if err := client.GetJSON(ctx, "/collections/audits/records", nil); err != nil {
		t.Errorf("expected request to succeed after login, got %v", err)
	}
}

func TestSession_Logout_ClearsAndRevokes(t *testing.T) {
	store := tokenstore.NewMemoryStore(domain.CredentialPair{})
	qms, session, client := newSession(t, store)
	ctx := context.Background()

	if err := session.Login(ctx, "auditor", "s3cret"); err != nil {
		t.Fatalf("unexpected login error: %v", err)
	}
	old, _ := store.Get(ctx)

	if err := session.Logout(ctx); err != nil {
		t.Fatalf("unexpected logout error: %v", err)
	}
	loggedIn, _ := session.LoggedIn(ctx)
	if loggedIn {
		t.Error("expected LoggedIn false after logout")
	}

	// The revoked refresh token must no longer work on the server.
	if _, err := client.Refresh(ctx, old.RefreshToken); err == nil {
		t.Error("expected refresh with a revoked token to fail")
	}
	if qms.Refreshes() != 1 {
		t.Errorf("expected only the explicit refresh call, got %d", qms.Refreshes())
	}
}

func TestSession_Logout_WithoutSessionIsNoop(t *testing.T) {
	store := tokenstore.NewMemoryStore(domain.CredentialPair{})
	_, session, _ := newSession(t, store)

	if err := session.Logout(context.Background()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestSession_Login_RequiresCredentials(t *testing.T) {
	_, session, _ := newSession(t, tokenstore.NewMemoryStore(domain.CredentialPair{}))
	if err := session.Login(context.Background(), "", ""); err == nil {
		t.Fatal("expected error for empty credentials")
	}
}
