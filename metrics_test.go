package fetchx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsRecordSuccessfulCall(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	registry := prometheus.NewRegistry()
	collector := NewMetricsCollectorWithRegistry(registry)

	client := New(WithMetricsCollector(collector))
	res, err := client.Get(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Get() returned error: %v", err)
	}
	res.Response.Body.Close()

	endpoint := endpointFromURL(res.Response.Request.URL)
	got := testutil.ToFloat64(collector.requestsTotal.WithLabelValues("GET", "200", endpoint))
	if got != 1 {
		t.Errorf("Expected requests_total 1, got %f", got)
	}

	inFlight := testutil.ToFloat64(collector.requestsInFlight.WithLabelValues("GET", endpoint))
	if inFlight != 0 {
		t.Errorf("Expected in-flight gauge back to 0, got %f", inFlight)
	}
}

func TestMetricsRecordRetriesAndErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	registry := prometheus.NewRegistry()
	collector := NewMetricsCollectorWithRegistry(registry)

	client := New(
		WithMetricsCollector(collector),
		WithRetries(1),
		WithMinRetryWait(time.Millisecond),
	)
	res, err := client.Get(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Get() returned error: %v", err)
	}
	res.Response.Body.Close()

	endpoint := endpointFromURL(res.Response.Request.URL)

	retries := testutil.ToFloat64(collector.retriesTotal.WithLabelValues("GET", endpoint, "1"))
	if retries != 1 {
		t.Errorf("Expected retries_total 1, got %f", retries)
	}

	httpErrors := testutil.ToFloat64(collector.errorsTotal.WithLabelValues("HTTP", "GET", endpoint))
	if httpErrors != 1 {
		t.Errorf("Expected errors_total{type=HTTP} 1, got %f", httpErrors)
	}
}

func TestMetricsRecordCookiesPersisted(t *testing.T) {
	registry := prometheus.NewRegistry()
	collector := NewMetricsCollectorWithRegistry(registry)

	collector.RecordCookiesPersisted("example.com/", 3)

	got := testutil.ToFloat64(collector.cookiesPersisted.WithLabelValues("example.com/"))
	if got != 3 {
		t.Errorf("Expected cookies_persisted_total 3, got %f", got)
	}
}

func TestMetricsNilCollectorIsSafe(t *testing.T) {
	var collector *MetricsCollector

	collector.RecordRequest("GET", "example.com/", 200, time.Second)
	collector.RecordRequestStart("GET", "example.com/")
	collector.RecordRequestEnd("GET", "example.com/")
	collector.RecordRetry("GET", "example.com/", 1)
	collector.RecordRateLimiterTokens("default", 1)
	collector.RecordCookiesPersisted("example.com/", 1)
	collector.RecordError("Network", "GET", "example.com/")
}
