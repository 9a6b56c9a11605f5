package fetchx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

func TestRateLimitThrottlesCalls(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := New(WithRateLimit(rate.Every(50*time.Millisecond), 1))

	start := time.Now()
	for i := 0; i < 3; i++ {
		res, err := client.Get(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("Get() returned error: %v", err)
		}
		res.Response.Body.Close()
	}
	elapsed := time.Since(start)

	// Burst of 1, so calls 2 and 3 each wait for a token.
	if elapsed < 100*time.Millisecond {
		t.Errorf("Expected at least 100ms across 3 calls, got %v", elapsed)
	}
}

func TestRateLimiterSharedAcrossDerivedClients(t *testing.T) {
	limiter := rate.NewLimiter(rate.Every(50*time.Millisecond), 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	parent := New(WithRateLimiter(limiter))
	child := parent.Extend(WithJSON(true))

	start := time.Now()
	if res, err := parent.Get(context.Background(), server.URL); err != nil {
		t.Fatalf("parent Get() returned error: %v", err)
	} else {
		res.Response.Body.Close()
	}
	if res, err := child.Get(context.Background(), server.URL); err != nil {
		t.Fatalf("child Get() returned error: %v", err)
	} else {
		res.Response.Body.Close()
	}
	elapsed := time.Since(start)

	if elapsed < 50*time.Millisecond {
		t.Errorf("Expected derived clients to share the bucket, got %v", elapsed)
	}
}

func TestCircuitBreakerOpensAfterFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	target := server.URL
	server.Close()

	client := New(
		WithRetryNetworkErrors(false),
		WithCircuitBreaker(gobreaker.Settings{
			Name: "test",
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 2
			},
			Timeout: time.Minute,
		}),
	)

	for i := 0; i < 2; i++ {
		if _, err := client.Get(context.Background(), target); err == nil {
			t.Fatal("Expected a network error")
		}
	}

	_, err := client.Get(context.Background(), target)
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("Expected the breaker to be open, got %v", err)
	}
}

func TestCircuitBreakerOpenErrorNotAutoRetried(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	target := server.URL
	server.Close()

	var failed int
	client := New(
		WithRetries(3),
		WithMinRetryWait(time.Millisecond),
		WithRetryNetworkErrors(false),
		WithOnFailedAttempt(func(att AttemptContext) { failed++ }),
		WithCircuitBreaker(gobreaker.Settings{
			Name: "test",
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 1
			},
			Timeout: time.Minute,
		}),
	)

	// First call trips the breaker, second observes the open state.
	_, _ = client.Get(context.Background(), target)
	failed = 0

	_, err := client.Get(context.Background(), target)
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("Expected ErrOpenState, got %v", err)
	}
	if failed != 1 {
		t.Errorf("Expected a single non-retried attempt, got %d", failed)
	}
}
