// Package httpx provides the rate-limited, retrying HTTP GET helper shared
// by the forecast, venue, and observation adapters: a token-bucket limiter
// in front of exponential backoff with a hard ceiling.
package httpx

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	maxRetries     = 3
	baseRetryWait  = 2 * time.Second
	maxRetryWait   = 10 * time.Second
)

// Client wraps an *http.Client with a per-instance rate limiter and retry
// policy. One Client is typically shared across all calls to one upstream.
type Client struct {
	HTTP    *http.Client
	Limiter *rate.Limiter
}

// New returns a Client limited to ratePerSec requests/second with the given
// burst.
func New(ratePerSec float64, burst int) *Client {
	return &Client{
		HTTP:    &http.Client{Timeout: 30 * time.Second},
		Limiter: rate.NewLimiter(rate.Limit(ratePerSec), burst),
	}
}

// StatusError is returned by Do when the upstream responds with a 4xx or
// 5xx status: immediately for 4xx other than 429, and for 429 and 5xx once
// the retries are used up.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("httpx: upstream returned %d: %s", e.StatusCode, e.Body)
}

// Do executes build (a factory for a fresh *http.Request each attempt,
// since a request body can only be read once) under the rate limiter, with
// up to maxRetries retries on network errors, 429, and 5xx. 4xx other than
// 429 fails immediately without retry. The response body is always closed.
func (c *Client) Do(ctx context.Context, build func() (*http.Request, error)) (*http.Response, []byte, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := c.Limiter.Wait(ctx); err != nil {
			return nil, nil, fmt.Errorf("httpx: rate limiter: %w", err)
		}

		req, err := build()
		if err != nil {
			return nil, nil, fmt.Errorf("httpx: build request: %w", err)
		}

		resp, err := c.HTTP.Do(req)
		if err != nil {
			lastErr = err
			if attempt < maxRetries {
				if serr := c.sleep(ctx, attempt); serr != nil {
					return nil, nil, serr
				}
				continue
			}
			return nil, nil, fmt.Errorf("httpx: request failed after %d attempts: %w", attempt+1, lastErr)
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, nil, fmt.Errorf("httpx: read body: %w", readErr)
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			lastErr = &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
			if attempt < maxRetries {
				if serr := c.sleep(ctx, attempt); serr != nil {
					return nil, nil, serr
				}
				continue
			}
			return resp, body, lastErr
		case resp.StatusCode >= 400:
			return resp, body, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
		default:
			return resp, body, nil
		}
	}
	return nil, nil, lastErr
}

func (c *Client) sleep(ctx context.Context, attempt int) error {
	wait := time.Duration(math.Pow(2, float64(attempt))) * baseRetryWait
	if wait > maxRetryWait {
		wait = maxRetryWait
	}
	select {
	case <-time.After(wait):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
