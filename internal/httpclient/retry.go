package httpclient

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"
)

var errTransient = errors.New("transient server response")

// RetryPolicy resends a request that got a transient response (503, 504).
// Attempt n waits n*BaseDelay before resending; after MaxRetries retries the
// last response is handed back for normalization. Each call to Do has its own
// counter, so requests never share retry state.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
}

func isTransient(code int) bool {
	return code == http.StatusServiceUnavailable || code == http.StatusGatewayTimeout
}

func (p RetryPolicy) backoff() retry.Backoff {
	var attempt int64
	linear := retry.BackoffFunc(func() (time.Duration, bool) {
		attempt++
		return time.Duration(attempt) * p.BaseDelay, false
	})
	maxRetries := p.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	return retry.WithMaxRetries(uint64(maxRetries), linear)
}

// Do calls send until it returns a non-transient response, an error, or the
// retry cap is reached. attempt starts at 1.
func (p RetryPolicy) Do(ctx context.Context, send func(ctx context.Context, attempt int) (*Response, error)) (*Response, error) {
	var (
		last    *Response
		attempt int
	)
	err := retry.Do(ctx, p.backoff(), func(ctx context.Context) error {
		attempt++
		resp, err := send(ctx, attempt)
		if err != nil {
			return err
		}
		last = resp
		if isTransient(resp.StatusCode) {
			return retry.RetryableError(errTransient)
		}
		return nil
	})
	if errors.Is(err, errTransient) {
		return last, nil
	}
	if err != nil {
		return nil, err
	}
	return last, nil
}
