package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/waabox/qmsdeck/internal/domain"
)

// Kind is the closed set of failure categories every caller sees.
type Kind string

const (
	KindAuthExpired Kind = "AuthExpired"
	KindNetwork     Kind = "NetworkError"
	KindServer      Kind = "ServerError"
	KindClient      Kind = "ClientError"
	KindUnknown     Kind = "UnknownError"
)

// Error is the single error shape returned by Client. Every terminal failure,
// whatever its origin, is funnelled through Normalize into this type.
type Error struct {
	Kind       Kind
	StatusCode int // 0 when no response was received
	Message    string
	Retryable  bool // whether the caller may usefully try again later
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s (%d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets callers match the domain sentinels without knowing about Kind.
func (e *Error) Is(target error) bool {
	switch target {
	case domain.ErrUnauthorized:
		return e.Kind == KindAuthExpired
	case domain.ErrUnavailable:
		return e.Kind == KindNetwork
	}
	return false
}

// Status returns "fail" for client-side problems (4xx) and "error" for everything else.
func (e *Error) Status() string {
	if e.StatusCode >= 400 && e.StatusCode < 500 {
		return "fail"
	}
	return "error"
}

// MarshalJSON renders the caller-facing shape {statusCode, message, status}.
func (e *Error) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		StatusCode int    `json:"statusCode"`
		Message    string `json:"message"`
		Status     string `json:"status"`
	}{e.StatusCode, e.Message, e.Status()})
}

// KindOf returns the Kind of err, or KindUnknown if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// transportError marks a failure where no HTTP response was received.
type transportError struct {
	err error
}

func (e *transportError) Error() string { return e.err.Error() }
func (e *transportError) Unwrap() error { return e.err }

// Normalize maps a terminal failure into an *Error. Pass err for failures
// without a response and resp for terminal HTTP responses. An *Error passes
// through unchanged.
func Normalize(err error, resp *Response) *Error {
	if err != nil {
		var ne *Error
		if errors.As(err, &ne) {
			return ne
		}
		var te *transportError
		switch {
		case errors.Is(err, context.Canceled):
			return &Error{Kind: KindUnknown, Message: "request cancelled", Err: err}
		case errors.Is(err, context.DeadlineExceeded):
			return &Error{Kind: KindNetwork, Message: "request timed out", Err: err}
		case errors.As(err, &te):
			return &Error{Kind: KindNetwork, Message: "no response from server", Err: err}
		default:
			return &Error{Kind: KindUnknown, Message: err.Error(), Err: err}
		}
	}
	if resp == nil {
		return &Error{Kind: KindUnknown, Message: "no response"}
	}

	code := resp.StatusCode
	e := &Error{StatusCode: code, Message: responseMessage(resp)}
	switch {
	case code == http.StatusUnauthorized:
		e.Kind = KindAuthExpired
	case code >= 500 && code <= 599:
		e.Kind = KindServer
		e.Retryable = code == http.StatusBadGateway || isTransient(code)
	case code >= 400 && code <= 499:
		e.Kind = KindClient
	default:
		e.Kind = KindUnknown
	}
	return e
}

// responseMessage prefers the backend's own message over the generic status text.
func responseMessage(resp *Response) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if len(resp.Body) > 0 && json.Unmarshal(resp.Body, &body) == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	if text := http.StatusText(resp.StatusCode); text != "" {
		return text
	}
	return fmt.Sprintf("unexpected status %d", resp.StatusCode)
}
