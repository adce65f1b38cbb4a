// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared across stages.
package httputil

import (
	"context"
	"io"
	"math"
	"net/http"
	"time"
)

// RetryBaseDelay controls the base duration for exponential backoff on
// HTTP 429 responses. Tests override this to avoid real sleeps.
var RetryBaseDelay = 10 * time.Second

// BusyRetryDelay is the fixed wait between attempts when the server
// reports HTTP 503 (busy). Tests override this to avoid real sleeps.
var BusyRetryDelay = 5 * time.Second

const defaultMaxRetries = 5

// DoWithRetry executes an HTTP request and retries on HTTP 429 (Too Many
// Requests) with exponential backoff. The delay starts at RetryBaseDelay
// (10 s) and doubles each attempt: 10 s, 20 s, 40 s, 80 s, 160 s.
//
// When maxRetries is 0 the default (5) is used. On each 429 the response
// body is drained and closed before sleeping. If the context is cancelled
// during a backoff wait the function returns ctx.Err(). After exhausting
// retries the last 429 response is returned so the caller can inspect it.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, maxRetries int) (*http.Response, error) {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	for attempt := 0; ; attempt++ {
		clone, err := cloneRequest(ctx, req)
		if err != nil {
			return nil, err
		}
		resp, err := client.Do(clone)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		// Exhausted retries — return the 429 response as-is.
		if attempt >= maxRetries {
			return resp, nil
		}

		// Drain and close the body before retrying.
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		backoff := time.Duration(math.Pow(2, float64(attempt))) * RetryBaseDelay
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
}

// DoWithBusyRetry executes an HTTP request and retries on HTTP 503
// (Service Unavailable) with a fixed delay between attempts. Inside each
// attempt 429 responses are still handled by DoWithRetry, so a server that
// both rate-limits and reports busy is covered.
//
// When delay is 0 the BusyRetryDelay default is used; when maxRetries is 0
// the default (5) is used. After exhausting retries the last 503 response
// is returned so the caller can inspect it.
func DoWithBusyRetry(ctx context.Context, client *http.Client, req *http.Request, delay time.Duration, maxRetries int) (*http.Response, error) {
	if delay <= 0 {
		delay = BusyRetryDelay
	}
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	for attempt := 0; ; attempt++ {
		resp, err := DoWithRetry(ctx, client, req, 0)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode != http.StatusServiceUnavailable {
			return resp, nil
		}

		if attempt >= maxRetries {
			return resp, nil
		}

		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
}

// cloneRequest clones req for a fresh attempt, restoring the body from
// GetBody when present so POST retries resend the full payload.
func cloneRequest(ctx context.Context, req *http.Request) (*http.Request, error) {
	clone := req.Clone(ctx)
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		clone.Body = body
	}
	return clone, nil
}
