// Package apiclient wraps calls to third-party REST APIs with a circuit
// breaker, an optional rate limiter and latency metrics.
package apiclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/chrissnell/foilcast/internal/log"
	"github.com/chrissnell/foilcast/internal/metrics"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
)

// maxBodyBytes caps how much of a response we will buffer
const maxBodyBytes = 32 << 20

// APIError is returned for non-2xx responses
type APIError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API returned HTTP %d: %s", e.Service, e.StatusCode, e.Body)
}

// Client performs HTTP requests for one external service
type Client struct {
	service string
	http    *http.Client
	cb      *gobreaker.CircuitBreaker[[]byte]
	limiter *rate.Limiter
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithRateLimit allows at most n requests per window, with bursts up to n
func WithRateLimit(n int, window time.Duration) Option {
	return func(c *Client) {
		if n > 0 {
			c.limiter = rate.NewLimiter(rate.Every(window/time.Duration(n)), n)
		}
	}
}

// NewHTTPClient creates a standardized HTTP client with timeout
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &http.Client{
		Timeout: timeout,
	}
}

// New creates a client for the named service. The breaker opens after five
// consecutive server-side failures and probes again after a minute.
func New(service string, opts ...Option) *Client {
	c := &Client{
		service: service,
		http:    NewHTTPClient(0),
	}
	for _, opt := range opts {
		opt(c)
	}

	metrics.CircuitBreakerState.WithLabelValues(service).Set(0)

	c.cb = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        service,
		MaxRequests: 1,
		Interval:    5 * time.Minute,
		Timeout:     time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// 4xx responses are the caller's problem, not a sign the service is down
		IsSuccessful: func(err error) bool {
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				return apiErr.StatusCode < http.StatusInternalServerError
			}
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warnf("circuit breaker %s: %s -> %s", name, from, to)
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
		},
	})

	return c
}

// Do sends req and returns the response body. Non-2xx responses yield *APIError.
func (c *Client) Do(ctx context.Context, req *http.Request) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%s rate limiter: %w", c.service, err)
		}
	}

	start := time.Now()
	body, err := c.cb.Execute(func() ([]byte, error) {
		resp, err := c.http.Do(req.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("%s request failed: %w", c.service, err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return nil, fmt.Errorf("reading %s response: %w", c.service, err)
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, &APIError{Service: c.service, StatusCode: resp.StatusCode, Body: truncate(string(body), 512)}
		}
		return body, nil
	})

	outcome := "success"
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		outcome = "rejected"
	case err != nil:
		outcome = "failure"
	}
	metrics.APIRequestDuration.WithLabelValues(c.service, outcome).Observe(time.Since(start).Seconds())

	return body, err
}

// State reports the breaker state, mostly for health checks
func (c *Client) State() gobreaker.State {
	return c.cb.State()
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
