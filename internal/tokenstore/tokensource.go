package tokenstore

import (
	"context"

	"golang.org/x/oauth2"
)

// storeTokenSource exposes the stored access token as an oauth2.TokenSource.
type storeTokenSource struct {
	ctx   context.Context
	store Store
}

// TokenSource returns an oauth2.TokenSource reading the current pair from store.
// It never refreshes; an empty store yields a token with an empty AccessToken.
func TokenSource(ctx context.Context, store Store) oauth2.TokenSource {
	return &storeTokenSource{ctx: ctx, store: store}
}

func (s *storeTokenSource) Token() (*oauth2.Token, error) {
	pair, err := s.store.Get(s.ctx)
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "Bearer",
	}, nil
}
