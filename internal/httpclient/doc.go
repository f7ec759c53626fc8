// Package httpclient is the single outbound HTTP path to the QMS backend.
//
// Every request goes through the same pipeline:
//
//	Authenticator -> round trip -> RetryPolicy (503/504) -> 401 handling -> Normalize
//
// A 401 on an authenticated request hands the request to the Coordinator,
// which performs at most one refresh call at a time and replays the parked
// requests in arrival order. If the refresh fails, the stored session is
// cleared, every parked request fails with KindAuthExpired, and the
// NavigationNotifier is asked to show the login surface.
//
// The refresh endpoint itself never goes through this handling, so a 401 from
// it cannot trigger another refresh.
package httpclient
