package fetchx

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"testing"
)

func TestHTTPErrorMessage(t *testing.T) {
	err := NewHTTPError(&http.Response{StatusCode: 503, Status: "503 Service Unavailable"})
	if !strings.Contains(err.Error(), "503 Service Unavailable") {
		t.Errorf("Expected status line in message, got %q", err.Error())
	}
}

func TestHTTPErrorKindMatching(t *testing.T) {
	var err error = NewHTTPError(&http.Response{StatusCode: 500, Status: "500 Internal Server Error"})

	if !errors.Is(err, &HTTPError{}) {
		t.Error("Expected errors.Is to match the HTTPError kind")
	}

	wrapped := fmt.Errorf("call failed: %w", err)
	var httpErr *HTTPError
	if !errors.As(wrapped, &httpErr) {
		t.Fatal("Expected errors.As through a wrap")
	}
	if httpErr.StatusCode != 500 {
		t.Errorf("Expected status 500, got %d", httpErr.StatusCode)
	}
}

func TestUsageErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := &UsageError{Message: "bad input", Cause: cause}

	if !errors.Is(err, cause) {
		t.Error("Expected Unwrap to expose the cause")
	}
	if !strings.Contains(err.Error(), "bad input") {
		t.Errorf("Unexpected message %q", err.Error())
	}
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestIsNetworkError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain error", errors.New("boom"), false},
		{"net error", timeoutError{}, true},
		{"op error", &net.OpError{Op: "dial", Err: errors.New("connection refused")}, true},
		{"url error wrapping dial failure", &url.Error{Op: "Get", URL: "http://x", Err: errors.New("connection refused")}, true},
		{"context canceled", context.Canceled, false},
		{"canceled inside url error", &url.Error{Op: "Get", URL: "http://x", Err: context.Canceled}, false},
		{"redirect loop", &url.Error{Op: "Get", URL: "http://x", Err: errors.New("stopped after 10 redirects")}, false},
		{"unsupported scheme", &url.Error{Op: "Get", URL: "ftp://x", Err: errors.New(`unsupported protocol scheme "ftp"`)}, false},
		{"http error", NewHTTPError(&http.Response{StatusCode: 500}), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNetworkError(tt.err); got != tt.want {
				t.Errorf("IsNetworkError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsTransient(t *testing.T) {
	if !IsTransient(NewHTTPError(&http.Response{StatusCode: 503})) {
		t.Error("Expected 503 to be transient")
	}
	if !IsTransient(NewHTTPError(&http.Response{StatusCode: 429})) {
		t.Error("Expected 429 to be transient")
	}
	if IsTransient(NewHTTPError(&http.Response{StatusCode: 404})) {
		t.Error("Expected 404 to not be transient")
	}
	if IsTransient(&UsageError{Message: "bad"}) {
		t.Error("Expected usage errors to not be transient")
	}
	if !IsTransient(&net.OpError{Op: "dial", Err: errors.New("refused")}) {
		t.Error("Expected dial failures to be transient")
	}
	if IsTransient(context.DeadlineExceeded) {
		t.Error("Expected deadline exceeded to not be transient")
	}
}
