package httpclient

import (
	"fmt"
	"net/http"

	"github.com/waabox/qmsdeck/internal/tokenstore"
)

// Authenticator stamps the stored access token on outgoing requests.
type Authenticator struct {
	store tokenstore.Store
}

// NewAuthenticator creates an Authenticator reading from store.
func NewAuthenticator(store tokenstore.Store) *Authenticator {
	return &Authenticator{store: store}
}

// Authenticate sets "Authorization: Bearer <token>" on req unless skipAuth is set.
// It returns the access token it attached, or "" when none was.
// An empty store is not an error: the request goes out unauthenticated and the
// server's 401 is handled downstream.
func (a *Authenticator) Authenticate(req *http.Request, skipAuth bool) (string, error) {
	if skipAuth {
		return "", nil
	}
	tok, err := tokenstore.TokenSource(req.Context(), a.store).Token()
	if err != nil {
		return "", fmt.Errorf("reading session: %w", err)
	}
	if tok.AccessToken == "" {
		return "", nil
	}
	tok.SetAuthHeader(req)
	return tok.AccessToken, nil
}
