package geolib

import (
	"context"
	"errors"
	"time"
)

const DefaultFetchTimeout = 10 * time.Second

// OrchestratorOpts are parameters for NewOrchestrator. Store and
// Provider are mandatory.
type OrchestratorOpts struct {
	Store    Store
	Provider Provider
	Logger   Logger
	Metrics  *Metrics

	// FetchTimeout bounds a single provider lookup including all its
	// retries. Default is DefaultFetchTimeout.
	FetchTimeout time.Duration
}

// Orchestrator decides if a record has to be served from a store,
// fetched from a provider or served stale because provider has failed.
//
// It keeps no state between requests except of statistics: a store is
// the only shared resource.
type Orchestrator struct {
	store        Store
	provider     Provider
	logger       Logger
	metrics      *Metrics
	stats        *UsageStats
	fetchTimeout time.Duration
}

// GetOrFetch returns a stored record if there is any. Otherwise it asks
// provider and persists a result. If provider is rate limited or
// unavailable, it tries to serve a record which could be persisted in
// the meantime.
func (o *Orchestrator) GetOrFetch(ctx context.Context, addr Address) (GeolocationRecord, error) {
	record, ok, err := o.get(ctx, addr)

	switch {
	case err != nil:
		return GeolocationRecord{}, err
	case ok:
		return o.done(addr, record, SourceCached), nil
	}

	location, err := o.fetch(ctx, addr)
	if err == nil {
		return o.persist(ctx, addr, location)
	}

	perr := AsProviderError(err)

	switch perr.Kind {
	case ProviderRateLimited, ProviderUnavailable:
		record, ok, storeErr := o.get(ctx, addr)
		if storeErr == nil && ok {
			return o.done(addr, record, SourceStaleFallback), nil
		}
	}

	return GeolocationRecord{}, o.fail(addr, perr)
}

// CreateOrReplace skips a store lookup. If location is given, it is
// persisted as is, otherwise it is fetched from provider. There is no
// stale fallback here: provider failure is always an error.
func (o *Orchestrator) CreateOrReplace(ctx context.Context, addr Address, location *Location) (GeolocationRecord, error) {
	if location != nil {
		return o.persist(ctx, addr, location.Normalize())
	}

	fetched, err := o.fetch(ctx, addr)
	if err != nil {
		return GeolocationRecord{}, o.fail(addr, AsProviderError(err))
	}

	return o.persist(ctx, addr, fetched)
}

// Delete never calls provider.
func (o *Orchestrator) Delete(ctx context.Context, addr Address) (bool, error) {
	deleted, err := o.store.Delete(ctx, addr)
	if err != nil {
		o.logger.StoreError(addr, "delete", err)

		return false, &StoreError{Op: "delete", Err: err}
	}

	return deleted, nil
}

func (o *Orchestrator) UsageStats() *UsageStats {
	return o.stats
}

func (o *Orchestrator) get(ctx context.Context, addr Address) (GeolocationRecord, bool, error) {
	record, ok, err := o.store.Get(ctx, addr)
	if err != nil {
		o.logger.StoreError(addr, "get", err)

		return GeolocationRecord{}, false, &StoreError{Op: "get", Err: err}
	}

	return record, ok, nil
}

func (o *Orchestrator) persist(ctx context.Context, addr Address, location Location) (GeolocationRecord, error) {
	record, err := o.store.Upsert(ctx, GeolocationRecord{
		Location:  location,
		Address:   addr,
		FetchedAt: time.Now().UTC(),
	})
	if err != nil {
		o.logger.StoreError(addr, "upsert", err)

		return GeolocationRecord{}, &StoreError{Op: "upsert", Err: err}
	}

	return o.done(addr, record, SourceFresh), nil
}

func (o *Orchestrator) fetch(ctx context.Context, addr Address) (Location, error) {
	ctx, cancel := context.WithTimeout(ctx, o.fetchTimeout)
	defer cancel()

	started := time.Now()
	location, err := o.provider.Lookup(ctx, addr)

	o.stats.Used(err)
	o.metrics.providerCalled(o.provider.Name(), started, err)

	if err != nil {
		o.logger.LookupError(addr, o.provider.Name(), err)

		return Location{}, err
	}

	return location.Normalize(), nil
}

func (o *Orchestrator) done(addr Address, record GeolocationRecord, source Source) GeolocationRecord {
	record.Source = source

	o.metrics.resolved(source)
	o.logger.Resolved(addr, source)

	return record
}

func (o *Orchestrator) fail(addr Address, perr *ProviderError) error {
	kind := ResolutionServiceUnavailable

	switch perr.Kind {
	case ProviderNotFound:
		kind = ResolutionNotFound
	case ProviderInvalidResponse:
		kind = ResolutionProviderContractViolation
	}

	o.metrics.failed(kind)

	return &ResolutionError{
		Kind:    kind,
		Address: addr.String(),
		Err:     perr,
	}
}

type nopLogger struct{}

func (nopLogger) LookupError(Address, string, error) {}
func (nopLogger) StoreError(Address, string, error)  {}
func (nopLogger) Resolved(Address, Source)           {}

func NewOrchestrator(opts OrchestratorOpts) (*Orchestrator, error) {
	if opts.Store == nil {
		return nil, errors.New("store is not defined")
	}

	if opts.Provider == nil {
		return nil, errors.New("provider is not defined")
	}

	rv := &Orchestrator{
		store:        opts.Store,
		provider:     opts.Provider,
		logger:       opts.Logger,
		metrics:      opts.Metrics,
		fetchTimeout: opts.FetchTimeout,
		stats: &UsageStats{
			Name: opts.Provider.Name(),
		},
	}

	if rv.logger == nil {
		rv.logger = nopLogger{}
	}

	if rv.fetchTimeout <= 0 {
		rv.fetchTimeout = DefaultFetchTimeout
	}

	return rv, nil
}
