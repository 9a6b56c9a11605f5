package fetchx

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
)

// HTTPError reports a received response outside the success range, or a
// response a hook deliberately rejected. The original *http.Response is kept
// so callers can recover status, headers and body for error reporting.
type HTTPError struct {
	// StatusCode is the response status code.
	StatusCode int
	// Status is the response status line, e.g. "503 Service Unavailable".
	Status string
	// Response is the response that produced the error.
	Response *http.Response
	// Body is the best-effort decoded JSON body, captured only when JSON
	// mode is enabled. nil when decoding failed or JSON mode is off.
	Body any
	// ForceRetry marks the error as retryable regardless of the configured
	// status code set. Set it from an AfterResponse hook to request a retry.
	ForceRetry bool
}

// NewHTTPError builds an *HTTPError from a response. Hooks use it to reject
// a response; the retry controller treats the result like any failed attempt.
func NewHTTPError(resp *http.Response) *HTTPError {
	e := &HTTPError{Response: resp}
	if resp != nil {
		e.StatusCode = resp.StatusCode
		e.Status = resp.Status
	}
	return e
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Status != "" {
		return fmt.Sprintf("fetchx: unexpected response %s", e.Status)
	}
	return fmt.Sprintf("fetchx: unexpected response status %d", e.StatusCode)
}

// Is matches any *HTTPError, so errors.Is(err, &HTTPError{}) tests the kind
// without comparing fields.
func (e *HTTPError) Is(target error) bool {
	_, ok := target.(*HTTPError)
	return ok
}

// UsageError reports caller misconfiguration detected before any network
// activity. It is always fatal and never retried.
type UsageError struct {
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *UsageError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause != nil {
		return fmt.Sprintf("fetchx: %s (%v)", e.Message, e.Cause)
	}
	return fmt.Sprintf("fetchx: %s", e.Message)
}

// Unwrap returns the underlying cause.
func (e *UsageError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is matches any *UsageError.
func (e *UsageError) Is(target error) bool {
	_, ok := target.(*UsageError)
	return ok
}

// hookError marks a failure raised by a caller-supplied response hook.
// Hook failures are opaque to the retry controller: only the configured
// predicate may retry them, even when the hook's error wraps a net.Error.
type hookError struct {
	err error
}

func (e *hookError) Error() string {
	return e.err.Error()
}

func (e *hookError) Unwrap() error {
	return e.err
}

// IsNetworkError reports whether err represents a transport/connectivity
// failure that might succeed on a later attempt: connection refused, DNS
// failure, resets, timeouts. Programming and TLS trust errors surfaced
// through the transport (unsupported scheme, redirect loops, certificate
// verification) are not network errors.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		msg := urlErr.Error()
		if strings.Contains(msg, "stopped after") && strings.Contains(msg, "redirects") {
			return false
		}
		if strings.Contains(msg, "unsupported protocol scheme") {
			return false
		}
	}

	var hostnameErr x509.HostnameError
	var authorityErr x509.UnknownAuthorityError
	var certErr x509.CertificateInvalidError
	if errors.As(err, &hostnameErr) || errors.As(err, &authorityErr) || errors.As(err, &certErr) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	// url.Error that survived the checks above wraps a dial/read failure.
	return urlErr != nil
}

// IsTransient reports whether err might succeed if the call is repeated.
// True for network errors, 5xx responses and 429; false for other HTTP
// errors, usage errors and cancellation.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == http.StatusTooManyRequests || httpErr.StatusCode >= 500
	}

	var usageErr *UsageError
	if errors.As(err, &usageErr) {
		return false
	}

	return IsNetworkError(err)
}
