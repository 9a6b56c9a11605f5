package fetchx

import (
	"net/http"
)

// BeforeRequestHook is invoked exactly once per logical call, after option
// resolution and immediately before the first attempt. It receives the
// mutable request context and may rewrite URL, method, headers or body.
// Returning an error aborts the call without any transport activity.
type BeforeRequestHook func(req *Request) error

// AfterResponseHook is invoked after every attempt's transport send. A
// non-nil returned response replaces the received one for all subsequent
// processing. A returned error fails the attempt; an *HTTPError with
// ForceRetry set asks the retry controller to schedule another attempt even
// for a success-range status.
type AfterResponseHook func(req *Request, resp *http.Response) (*http.Response, error)

// RetryPredicate decides whether to retry a failure the built-in rules did
// not already accept: hook failures, opaque errors, and network errors when
// automatic network retry is disabled. It is never consulted for HTTP status
// failures or usage errors.
type RetryPredicate func(att AttemptContext) bool

// AttemptObserver is notified after every failed attempt, whether or not it
// will be retried. It is side-effect only; its view is read-only.
type AttemptObserver func(att AttemptContext)

// AttemptContext is the read-only view of a failed attempt handed to
// RetryPredicate and AttemptObserver.
type AttemptContext struct {
	// Attempt is the 1-based number of the attempt that just failed.
	Attempt int
	// RetriesLeft is how many more attempts the policy still allows.
	RetriesLeft int
	// Err is the failure of the most recent attempt.
	Err error
}

// Middleware wraps an attempt's transport send.
type Middleware func(req *http.Request, next RoundTripper) (*http.Response, error)

// RoundTripper represents the HTTP transport interface.
type RoundTripper interface {
	RoundTrip(*http.Request) (*http.Response, error)
}

// RoundTripperFunc is a helper type for middleware.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// Result is the settled outcome of a successful call.
type Result struct {
	// Response is the final HTTP response. Its body is left untouched unless
	// JSON mode consumed it, in which case it is restored from the buffered
	// bytes and remains readable.
	Response *http.Response
	// JSON holds the decoded response body when JSON mode is enabled.
	// It is nil when JSON mode is off, for 204/205 responses, and for
	// empty bodies.
	JSON any
}

// StatusCode returns the final response status code.
func (r *Result) StatusCode() int {
	if r == nil || r.Response == nil {
		return 0
	}
	return r.Response.StatusCode
}

// Option represents a configuration option. The same options configure a
// Client's defaults (New, Extend) and individual calls.
type Option func(*config)
