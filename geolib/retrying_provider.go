package geolib

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	DefaultMaxRetries      = 3
	DefaultBackoffInitial  = 200 * time.Millisecond
	DefaultBackoffMax      = 2 * time.Second
	DefaultBackoffJitter   = 0.5
	DefaultBackoffMultiply = 2
)

type RetryOpts struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

type retryingProvider struct {
	Provider

	opts RetryOpts
}

// Lookup retries only on ProviderUnavailable. Rate limiting is surfaced
// at once, not found and invalid responses are final.
func (r retryingProvider) Lookup(ctx context.Context, addr Address) (Location, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = r.opts.InitialInterval
	bo.MaxInterval = r.opts.MaxInterval
	bo.RandomizationFactor = DefaultBackoffJitter
	bo.Multiplier = DefaultBackoffMultiply
	bo.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(bo, r.opts.MaxRetries), ctx)

	result, err := backoff.RetryWithData(func() (Location, error) {
		loc, err := r.Provider.Lookup(ctx, addr)
		if err == nil {
			return loc, nil
		}

		perr := AsProviderError(err)

		if perr.Kind != ProviderUnavailable || ctx.Err() != nil {
			return loc, backoff.Permanent(perr)
		}

		return loc, perr
	}, policy)
	if err == nil {
		return result, nil
	}

	perr := AsProviderError(err)
	if perr.Provider == "" {
		perr.Provider = r.Name()
	}

	return Location{}, perr
}

// NewRetryingProvider wraps provider with retries of exponential
// backoff with jitter. Total time is bounded both by a number of retries
// and by a deadline of the context.
func NewRetryingProvider(provider Provider, opts RetryOpts) Provider {
	if opts.InitialInterval <= 0 {
		opts.InitialInterval = DefaultBackoffInitial
	}

	if opts.MaxInterval <= 0 {
		opts.MaxInterval = DefaultBackoffMax
	}

	return retryingProvider{
		Provider: provider,
		opts:     opts,
	}
}
