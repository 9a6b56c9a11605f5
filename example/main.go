// Minimal example for fetchx demonstrating a basic retrying GET plus a
// slightly more advanced derived client showing prefix URLs, hooks, JSON
// mode and metrics. See README for extended patterns.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/martinj/fetchx"
)

func main() {
	jar, err := cookiejar.New(nil)
	if err != nil {
		log.Fatalf("cookie jar: %v", err)
	}

	// --- Basic client ---
	basic := fetchx.New(
		fetchx.WithPrefixURL("https://httpbin.org"),
		fetchx.WithRetries(3),
		fetchx.WithMinRetryWait(100*time.Millisecond),
		fetchx.WithCookieJar(jar),
		fetchx.WithSimpleLogger(),
		fetchx.WithDebug(),
	)
	if !basic.IsValid() {
		log.Fatalf("invalid basic client config: %v", basic.ValidationError())
	}
	ctx := context.Background()
	res, err := basic.Get(ctx, "json")
	if err != nil {
		log.Fatalf("basic GET failed: %v", err)
	}
	_ = res.Response.Body.Close()
	fmt.Println("basic GET status", res.StatusCode())

	// --- Derived client: auth header, JSON mode, metrics, hooks ---
	api := basic.Extend(
		fetchx.WithHeader("Authorization", "Bearer example-token"),
		fetchx.WithJSON(true),
		fetchx.WithMetrics(),
		fetchx.WithBeforeRequest(func(req *fetchx.Request) error {
			req.Header.Set("User-Agent", "fetchx-example")
			return nil
		}),
		fetchx.WithAfterResponse(func(req *fetchx.Request, resp *http.Response) (*http.Response, error) {
			fmt.Printf("attempt to %s returned %d\n", req.URL.Host, resp.StatusCode)
			return resp, nil
		}),
	)
	r2, err := api.Get(ctx, "json")
	if err != nil {
		log.Fatalf("advanced GET failed: %v", err)
	}
	fmt.Println("advanced GET parsed body type:", fmt.Sprintf("%T", r2.JSON))
}
