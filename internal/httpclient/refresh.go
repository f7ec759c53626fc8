package httpclient

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/waabox/qmsdeck/internal/domain"
	"github.com/waabox/qmsdeck/internal/tokenstore"
)

// RefreshState is the state of the session refresh cycle.
type RefreshState int

const (
	StateIdle RefreshState = iota
	StateRefreshing
	StateFailed
)

func (s RefreshState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRefreshing:
		return "refreshing"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Refresher exchanges a refresh token for a new credential pair.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (domain.CredentialPair, error)
}

// RefreshFunc adapts a function to Refresher.
type RefreshFunc func(ctx context.Context, refreshToken string) (domain.CredentialPair, error)

func (f RefreshFunc) Refresh(ctx context.Context, refreshToken string) (domain.CredentialPair, error) {
	return f(ctx, refreshToken)
}

var errSessionFailed = errors.New("session refresh failed earlier; log in again")

// replayFunc resends a request with whatever credential is stored when it runs.
type replayFunc func(ctx context.Context) (*Response, error)

type result struct {
	resp *Response
	err  error
}

// pendingRequest is a request parked while a refresh is in flight.
type pendingRequest struct {
	ctx    context.Context
	replay replayFunc
	done   chan result
}

// Coordinator runs the session refresh state machine:
//
//	Idle --401--> Refreshing --ok--> Idle
//	                         --fail--> Failed --Reset--> Idle
//
// Only one refresh call is ever in flight. Requests that hit a 401 while it
// runs are queued and replayed in arrival order once it resolves. The
// coordinator is the only writer of the token store after login.
type Coordinator struct {
	store     tokenstore.Store
	refresher Refresher
	nav       NavigationNotifier
	timeout   time.Duration
	log       *slog.Logger

	mu     sync.Mutex
	state  RefreshState
	queue  []*pendingRequest
	cycles int
}

// NewCoordinator creates an idle Coordinator. timeout bounds the refresh call
// together with the store update that follows it.
func NewCoordinator(store tokenstore.Store, refresher Refresher, nav NavigationNotifier, timeout time.Duration, log *slog.Logger) *Coordinator {
	if nav == nil {
		nav = nopNavigator{}
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Coordinator{
		store:     store,
		refresher: refresher,
		nav:       nav,
		timeout:   timeout,
		log:       log,
	}
}

// State returns the current refresh state.
func (c *Coordinator) State() RefreshState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Cycles returns how many refresh calls have been started.
func (c *Coordinator) Cycles() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cycles
}

// Reset moves a Failed coordinator back to Idle. Call it after a successful login.
func (c *Coordinator) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateFailed {
		c.state = StateIdle
	}
}

// Await handles a request that got 401 after being sent with sentToken.
// It either starts the single refresh call, joins the one in flight, or fails
// fast when the cycle already failed. replay is run once the new credential
// is stored and its result is returned.
func (c *Coordinator) Await(ctx context.Context, sentToken string, replay replayFunc) (*Response, error) {
	for {
		c.mu.Lock()
		switch c.state {
		case StateFailed:
			c.mu.Unlock()
			return nil, sessionExpired(errSessionFailed)

		case StateRefreshing:
			p := c.enqueueLocked(ctx, replay)
			queued := len(c.queue)
			c.mu.Unlock()
			c.log.DebugContext(ctx, "request queued behind session refresh", "queued", queued)
			return c.wait(ctx, p)
		}
		cycle := c.cycles
		c.mu.Unlock()

		current, err := c.readStore(ctx)
		if err != nil {
			return nil, &Error{Kind: KindUnknown, Message: "reading session", Retryable: true, Err: err}
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if current.AccessToken != "" && current.AccessToken != sentToken {
			// A refresh finished after this request went out: replay with the new token.
			return replay(ctx)
		}

		c.mu.Lock()
		if c.state != StateIdle || c.cycles != cycle {
			// Another cycle started while the store was being read.
			c.mu.Unlock()
			continue
		}
		c.state = StateRefreshing
		c.cycles++
		p := c.enqueueLocked(ctx, replay)
		c.mu.Unlock()

		go c.run(current)
		return c.wait(ctx, p)
	}
}

// storeContext bounds store I/O by the coordinator timeout without inheriting
// the cancellation of parent.
func (c *Coordinator) storeContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx := context.WithoutCancel(parent)
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

func (c *Coordinator) readStore(ctx context.Context) (domain.CredentialPair, error) {
	sctx, cancel := c.storeContext(ctx)
	defer cancel()
	return c.store.Get(sctx)
}

func (c *Coordinator) enqueueLocked(ctx context.Context, replay replayFunc) *pendingRequest {
	p := &pendingRequest{ctx: ctx, replay: replay, done: make(chan result, 1)}
	c.queue = append(c.queue, p)
	return p
}

func (c *Coordinator) wait(ctx context.Context, p *pendingRequest) (*Response, error) {
	select {
	case res := <-p.done:
		return res.resp, res.err
	case <-ctx.Done():
		if c.remove(p) {
			return nil, ctx.Err()
		}
		// Already handed to the replay loop, which will see the cancelled context.
		res := <-p.done
		return res.resp, res.err
	}
}

// remove drops p from the wait queue. It reports false if p was already taken.
func (c *Coordinator) remove(p *pendingRequest) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, q := range c.queue {
		if q == p {
			c.queue = append(c.queue[:i], c.queue[i+1:]...)
			return true
		}
	}
	return false
}

// run performs the single refresh call of a cycle and settles every queued request.
func (c *Coordinator) run(current domain.CredentialPair) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	start := time.Now()
	pair, err := c.refresh(ctx, current)

	// Nothing else writes the store while the state is Refreshing.
	sctx, scancel := c.storeContext(ctx)
	if err == nil {
		err = c.store.Set(sctx, pair)
	}
	if err != nil {
		if clearErr := c.store.Clear(sctx); clearErr != nil {
			c.log.ErrorContext(sctx, "clearing session after failed refresh", "error", clearErr)
		}
	}
	scancel()

	c.mu.Lock()
	if err != nil {
		c.state = StateFailed
	} else {
		c.state = StateIdle
	}
	queue := c.queue
	c.queue = nil
	c.mu.Unlock()

	if err != nil {
		c.log.WarnContext(ctx, "session refresh failed", "error", err, "rejected", len(queue), "elapsed", time.Since(start))
		expired := sessionExpired(err)
		for _, p := range queue {
			p.done <- result{err: expired}
		}
		if !c.nav.AtLogin() {
			c.nav.RedirectToLogin()
		}
		return
	}

	c.log.InfoContext(ctx, "session refreshed", "replaying", len(queue), "elapsed", time.Since(start))
	for _, p := range queue {
		if p.ctx.Err() != nil {
			p.done <- result{err: p.ctx.Err()}
			continue
		}
		resp, err := p.replay(p.ctx)
		p.done <- result{resp: resp, err: err}
	}
}

func (c *Coordinator) refresh(ctx context.Context, current domain.CredentialPair) (domain.CredentialPair, error) {
	if current.RefreshToken == "" {
		return domain.CredentialPair{}, domain.ErrNotLoggedIn
	}
	c.log.InfoContext(ctx, "refreshing session")
	pair, err := c.refresher.Refresh(ctx, current.RefreshToken)
	if err != nil {
		return domain.CredentialPair{}, err
	}
	if pair.IsZero() {
		return domain.CredentialPair{}, errors.New("refresh returned an empty credential pair")
	}
	if err := pair.Validate(); err != nil {
		return domain.CredentialPair{}, err
	}
	return pair, nil
}

func sessionExpired(cause error) *Error {
	return &Error{
		Kind:       KindAuthExpired,
		StatusCode: http.StatusUnauthorized,
		Message:    "session expired",
		Err:        cause,
	}
}
