package httpclient

import (
	"encoding/json"
	"net/http"
	"time"
)

// Request describes one API call. It is never mutated once handed to the
// client, so the same value can be replayed after a retry or a refresh.
type Request struct {
	Method string
	// Path is joined to the client base URL; an absolute URL is used as is.
	Path   string
	Header http.Header
	Body   []byte
	// SkipAuth sends the request without the bearer credential (login, public endpoints).
	SkipAuth bool
	// Timeout bounds each round trip; zero uses the client default.
	Timeout time.Duration
}

// RequestOption tweaks a Request built by the JSON helpers.
type RequestOption func(*Request)

// SkipAuth marks the request as not needing the bearer credential.
func SkipAuth() RequestOption {
	return func(r *Request) { r.SkipAuth = true }
}

// WithTimeout overrides the per-round-trip timeout for one request.
func WithTimeout(d time.Duration) RequestOption {
	return func(r *Request) { r.Timeout = d }
}

// WithHeader adds a header to the request.
func WithHeader(key, value string) RequestOption {
	return func(r *Request) {
		if r.Header == nil {
			r.Header = make(http.Header)
		}
		r.Header.Add(key, value)
	}
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Decode unmarshals the JSON body into out.
func (r *Response) Decode(out any) error {
	return json.Unmarshal(r.Body, out)
}

// Doer sends a single HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

func isSuccess(code int) bool {
	return code >= 200 && code <= 299
}
