package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/waabox/qmsdeck/internal/config"
	"github.com/waabox/qmsdeck/internal/domain"
	"github.com/waabox/qmsdeck/internal/tokenstore"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout    = 15 * time.Second
	defaultMaxRetries = 2
	defaultBaseDelay  = time.Second

	requestIDHeader = "X-Request-ID"
)

// Config holds the settings Client needs from the application config.
type Config struct {
	BaseURL     string
	RefreshPath string
	Timeout     time.Duration
	MaxRetries  int // 0 means the default of 2; NoRetries disables retrying
	BaseDelay   time.Duration
}

// NoRetries turns off the transient-failure retry when set as Config.MaxRetries.
const NoRetries = -1

// ConfigFrom extracts the client settings from the application config.
func ConfigFrom(cfg config.Config) Config {
	return Config{
		BaseURL:     cfg.Server.BaseURL,
		RefreshPath: cfg.RefreshPathOrDefault(),
		Timeout:     cfg.TimeoutOrDefault(),
		MaxRetries:  cfg.MaxRetriesOrDefault(),
		BaseDelay:   cfg.BaseDelayOrDefault(),
	}
}

// Client is the entry point every feature uses to call the QMS backend.
// It attaches the session credential, refreshes an expired session once for
// all concurrent callers, retries transient failures, and returns every
// failure as an *Error.
type Client struct {
	cfg        Config
	base       *url.URL
	refreshURL *url.URL
	doer       Doer
	auth       *Authenticator
	retry      RetryPolicy
	coord      *Coordinator
	nav        NavigationNotifier
	limiter    *rate.Limiter
	log        *slog.Logger
	requestIDs bool
}

// Option configures a Client.
type Option func(*Client)

// WithTransport replaces the underlying HTTP client.
func WithTransport(d Doer) Option {
	return func(c *Client) { c.doer = d }
}

// WithNavigator sets the collaborator told to show the login surface when the
// session cannot be refreshed.
func WithNavigator(n NavigationNotifier) Option {
	return func(c *Client) { c.nav = n }
}

// WithLogger sets the structured logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithRateLimit caps outgoing round trips at rps per second with the given burst.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithRequestIDs controls whether each call is stamped with a fresh X-Request-ID.
// It is on by default.
func WithRequestIDs(enabled bool) Option {
	return func(c *Client) { c.requestIDs = enabled }
}

// New creates a Client for cfg.BaseURL reading credentials from store.
func New(cfg Config, store tokenstore.Store, opts ...Option) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("httpclient: base URL is required")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("httpclient: parsing base URL: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	switch {
	case cfg.MaxRetries == 0:
		cfg.MaxRetries = defaultMaxRetries
	case cfg.MaxRetries < 0:
		cfg.MaxRetries = 0
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = defaultBaseDelay
	}
	if cfg.RefreshPath == "" {
		cfg.RefreshPath = "/auth/refresh"
	}

	c := &Client{
		cfg:        cfg,
		base:       base,
		doer:       &http.Client{},
		auth:       NewAuthenticator(store),
		retry:      RetryPolicy{MaxRetries: cfg.MaxRetries, BaseDelay: cfg.BaseDelay},
		nav:        nopNavigator{},
		log:        slog.New(slog.DiscardHandler),
		requestIDs: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.refreshURL, err = c.resolve(cfg.RefreshPath)
	if err != nil {
		return nil, fmt.Errorf("httpclient: resolving refresh path: %w", err)
	}
	c.coord = NewCoordinator(store, c, c.nav, cfg.Timeout, c.log)
	return c, nil
}

// RefreshState returns the state of the session refresh cycle.
func (c *Client) RefreshState() RefreshState {
	return c.coord.State()
}

// RefreshCount returns how many refresh calls this client has started.
func (c *Client) RefreshCount() int {
	return c.coord.Cycles()
}

// ResetSession re-arms session refresh after a failed cycle. Call it after login.
func (c *Client) ResetSession() {
	c.coord.Reset()
}

// Do sends req and returns a 2xx response or an *Error.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	r := *req
	r.Header = req.Header.Clone()
	if r.Header == nil {
		r.Header = make(http.Header)
	}
	if c.requestIDs && r.Header.Get(requestIDHeader) == "" {
		r.Header.Set(requestIDHeader, uuid.NewString())
	}
	resp, err := c.send(ctx, &r, false)
	if err != nil {
		c.log.DebugContext(ctx, "request failed",
			"method", r.Method, "path", r.Path,
			"request_id", r.Header.Get(requestIDHeader), "error", err)
		return nil, err
	}
	return resp, nil
}

// send runs one logical pass: retry loop, then the 401 handling.
// refreshed is true for replays, which must not start another refresh.
func (c *Client) send(ctx context.Context, req *Request, refreshed bool) (*Response, error) {
	var sentToken string
	resp, err := c.retry.Do(ctx, func(ctx context.Context, attempt int) (*Response, error) {
		if attempt > 1 {
			c.log.InfoContext(ctx, "retrying transient failure",
				"method", req.Method, "path", req.Path, "attempt", attempt)
		}
		resp, token, err := c.exchange(ctx, req)
		sentToken = token
		return resp, err
	})
	if err != nil {
		return nil, Normalize(err, nil)
	}
	if isSuccess(resp.StatusCode) {
		return resp, nil
	}
	if resp.StatusCode != http.StatusUnauthorized || refreshed || req.SkipAuth || c.isRefreshRequest(req) {
		return nil, Normalize(nil, resp)
	}

	resp, err = c.coord.Await(ctx, sentToken, func(ctx context.Context) (*Response, error) {
		return c.send(ctx, req, true)
	})
	if err != nil {
		return nil, Normalize(err, nil)
	}
	return resp, nil
}

// exchange performs exactly one HTTP round trip with the current credential.
func (c *Client) exchange(ctx context.Context, req *Request) (*Response, string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, "", err
		}
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = c.cfg.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	target, err := c.resolve(req.Path)
	if err != nil {
		return nil, "", fmt.Errorf("building URL: %w", err)
	}
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target.String(), body)
	if err != nil {
		return nil, "", fmt.Errorf("creating request: %w", err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	token, err := c.auth.Authenticate(httpReq, req.SkipAuth)
	if err != nil {
		return nil, "", err
	}

	res, err := c.doer.Do(httpReq)
	if err != nil {
		return nil, token, &transportError{err: err}
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, token, &transportError{err: fmt.Errorf("reading response: %w", err)}
	}
	c.log.DebugContext(ctx, "round trip",
		"method", req.Method, "url", target.Redacted(), "status", res.StatusCode,
		"request_id", req.Header.Get(requestIDHeader))
	return &Response{StatusCode: res.StatusCode, Header: res.Header, Body: data}, token, nil
}

// resolve joins path to the base URL, keeping any query string.
func (c *Client) resolve(path string) (*url.URL, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return nil, err
	}
	if ref.IsAbs() {
		return ref, nil
	}
	u := c.base.JoinPath(ref.Path)
	u.RawQuery = ref.RawQuery
	return u, nil
}

func (c *Client) isRefreshRequest(req *Request) bool {
	u, err := c.resolve(req.Path)
	if err != nil {
		return false
	}
	return u.Host == c.refreshURL.Host && u.Path == c.refreshURL.Path
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Refresh calls the refresh endpoint once. It bypasses the retry loop and the
// refresh state machine: a 401 here is final.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (domain.CredentialPair, error) {
	body, err := json.Marshal(refreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return domain.CredentialPair{}, err
	}
	req := &Request{
		Method:   http.MethodPost,
		Path:     c.cfg.RefreshPath,
		Header:   http.Header{"Content-Type": {"application/json"}, "Accept": {"application/json"}},
		Body:     body,
		SkipAuth: true,
	}
	resp, _, err := c.exchange(ctx, req)
	if err != nil {
		return domain.CredentialPair{}, Normalize(err, nil)
	}
	if !isSuccess(resp.StatusCode) {
		return domain.CredentialPair{}, Normalize(nil, resp)
	}
	var pair domain.CredentialPair
	if err := resp.Decode(&pair); err != nil {
		return domain.CredentialPair{}, fmt.Errorf("decoding refresh response: %w", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		return domain.CredentialPair{}, errors.New("refresh response is missing a token")
	}
	return pair, nil
}

// GetJSON sends a GET and decodes the JSON response into out.
func (c *Client) GetJSON(ctx context.Context, path string, out any, opts ...RequestOption) error {
	return c.doJSON(ctx, http.MethodGet, path, nil, out, opts)
}

// PostJSON sends in as JSON and decodes the response into out (out may be nil).
func (c *Client) PostJSON(ctx context.Context, path string, in, out any, opts ...RequestOption) error {
	return c.doJSON(ctx, http.MethodPost, path, in, out, opts)
}

// PatchJSON sends in as a JSON PATCH and decodes the response into out.
func (c *Client) PatchJSON(ctx context.Context, path string, in, out any, opts ...RequestOption) error {
	return c.doJSON(ctx, http.MethodPatch, path, in, out, opts)
}

// Delete sends a DELETE and discards the response body.
func (c *Client) Delete(ctx context.Context, path string, opts ...RequestOption) error {
	return c.doJSON(ctx, http.MethodDelete, path, nil, nil, opts)
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any, opts []RequestOption) error {
	req := &Request{
		Method: method,
		Path:   path,
		Header: http.Header{"Accept": {"application/json"}},
	}
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return Normalize(fmt.Errorf("encoding request body: %w", err), nil)
		}
		req.Body = b
		req.Header.Set("Content-Type", "application/json")
	}
	for _, opt := range opts {
		opt(req)
	}

	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	if out == nil || len(resp.Body) == 0 {
		return nil
	}
	if err := resp.Decode(out); err != nil {
		return &Error{
			Kind:       KindUnknown,
			StatusCode: resp.StatusCode,
			Message:    "decoding response",
			Err:        err,
		}
	}
	return nil
}
