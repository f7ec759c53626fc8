package domain

import "errors"

// ErrUnauthorized is reported when the backend rejects the session with HTTP 401
// and no refresh could recover it. Callers can check for it using errors.Is to
// send the user back to the login screen.
var ErrUnauthorized = errors.New("unauthorized")

// ErrUnavailable is reported when the backend could not be reached at all.
var ErrUnavailable = errors.New("server unavailable")

// ErrPartialCredentials is returned when only one half of a credential pair is set.
var ErrPartialCredentials = errors.New("credential pair must carry both access and refresh token")

// ErrNotLoggedIn is returned by operations that need a stored session when there is none.
var ErrNotLoggedIn = errors.New("not logged in")
