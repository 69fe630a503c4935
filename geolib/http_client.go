package geolib

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

type httpClient struct {
	userAgent      string
	client         *http.Client
	rateLimiter    *rate.Limiter
	circuitBreaker *circuitBreaker
}

type cancelOnCloseBody struct {
	io.ReadCloser

	cancel context.CancelFunc
}

func (c cancelOnCloseBody) Close() error {
	defer c.cancel()

	return c.ReadCloser.Close()
}

func (h httpClient) Do(req *http.Request) (*http.Response, error) {
	ctx, cancel := context.WithCancel(req.Context())

	if h.client.Timeout > 0 {
		cancel()
		ctx, cancel = context.WithTimeout(req.Context(), h.client.Timeout)
	}

	req.Header.Set("User-Agent", h.userAgent)

	resp, err := h.circuitBreaker.Do(ctx, func(ctx context.Context) (*http.Response, error) {
		if err := h.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCircuitBreakerIgnore, err)
		}

		resp, err := h.client.Do(req.WithContext(ctx))
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %v", ErrCircuitBreakerIgnore, err)
			}

			return nil, err
		}

		if resp.StatusCode >= http.StatusInternalServerError {
			flushResponse(resp.Body)

			return nil, fmt.Errorf("netloc has responded with %s", resp.Status)
		}

		return resp, nil
	})
	if err != nil {
		cancel()

		return nil, err
	}

	resp.Body = cancelOnCloseBody{
		ReadCloser: resp.Body,
		cancel:     cancel,
	}

	return resp, nil
}

// Opened reports if circuit breaker blocks access to a target.
func (h httpClient) Opened() bool {
	return h.circuitBreaker.Opened()
}

// Close stops pending circuit breaker timers. Client is still usable
// after that but failures are not reset by timeout anymore.
func (h httpClient) Close() error {
	h.circuitBreaker.shutdown()

	return nil
}

func flushResponse(body io.ReadCloser) {
	io.Copy(io.Discard, body) // nolint: errcheck
	body.Close()
}

// HTTPClientOpts are parameters of HTTP client used to talk to
// providers.
//
// Please see https://pkg.go.dev/golang.org/x/time/rate to get a meaning
// of rate limiter parameters.
//
// A meaning of circuit breaker parameters:
//
// CircuitBreakerOpenThreshold - this is a threshold of failures when
// circuit breaker becomes OPEN. So, if you pass 3 here, then after 3
// failures, circuit breaker switches into OPEN state and blocks access
// to a target.
//
// CircuitBreakerResetFailuresTimeout - is tightly coupled with
// CircuitBreakerOpenThreshold. Each time period when circuit breaker
// is closed, we try to reset a failure counter. So, if you pass 10s
// here, make 2 errors then after 10 seconds this counter is going to be
// reset.
//
// CircuitBreakerHalfOpenTimeout - when circuit breaker is opened, we
// close it after this time period and it goes into HALF_OPEN state.
// Within this state we allow 1 attempt. If this attempt fails, then it
// goes into OPEN state again. If succeed - goes to CLOSED.
//
// Responses with 5xx status codes are failures. Any other status code is
// returned as is: it is up to provider to decide what does it mean.
type HTTPClientOpts struct {
	UserAgent                          string
	RateLimitInterval                  time.Duration
	RateLimitBurst                     int
	CircuitBreakerOpenThreshold        uint32
	CircuitBreakerHalfOpenTimeout      time.Duration
	CircuitBreakerResetFailuresTimeout time.Duration
}

// NewHTTPClient prepares a new HTTP client, wraps it with rate limiter,
// circuit breaker, sets a user agent etc.
func NewHTTPClient(client *http.Client, opts HTTPClientOpts) HTTPClient {
	limit := rate.Inf

	if opts.RateLimitInterval > 0 {
		limit = rate.Every(opts.RateLimitInterval)
	}

	burst := opts.RateLimitBurst
	if burst <= 0 {
		burst = 1
	}

	return httpClient{
		userAgent:   opts.UserAgent,
		client:      client,
		rateLimiter: rate.NewLimiter(limit, burst),
		circuitBreaker: newCircuitBreaker(opts.CircuitBreakerOpenThreshold,
			opts.CircuitBreakerHalfOpenTimeout,
			opts.CircuitBreakerResetFailuresTimeout),
	}
}
