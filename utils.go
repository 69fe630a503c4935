package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/9seconds/geostash/geolib"
	"github.com/9seconds/geostash/providers"
	"github.com/9seconds/geostash/stores"
)

type appStore interface {
	geolib.Store
	geolib.Pinger
}

func makeRootContext() (context.Context, context.CancelFunc) {
	rootCtx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)

	go func() {
		for range sigChan {
			cancel()
		}
	}()

	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	return rootCtx, cancel
}

func makeProvider(conf configProvider, httpClient geolib.HTTPClient) (geolib.Provider, error) {
	var (
		prov geolib.Provider
		err  error
	)

	switch conf.Name {
	case providers.NameIPInfo:
		prov = providers.NewIPInfo(httpClient, conf.AuthToken)
	case providers.NameIPStack:
		prov, err = providers.NewIPStack(httpClient, conf.AuthToken, conf.Secure)
		if err != nil {
			return nil, fmt.Errorf("cannot create ipstack provider: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported provider name: %s", conf.Name)
	}

	return geolib.NewRetryingProvider(prov, geolib.RetryOpts{
		MaxRetries:      conf.GetMaxRetries(),
		InitialInterval: conf.GetBackoffInitial(),
		MaxInterval:     conf.GetBackoffMax(),
	}), nil
}

func makeHTTPClient(conf configProvider) geolib.HTTPClient {
	httpClient := &http.Client{
		Timeout: conf.GetHTTPTimeout(),
	}

	return geolib.NewHTTPClient(httpClient, geolib.HTTPClientOpts{
		UserAgent:                          "geostash/" + version,
		RateLimitInterval:                  conf.GetRateLimitInterval(),
		RateLimitBurst:                     conf.GetRateLimitBurst(),
		CircuitBreakerOpenThreshold:        conf.CircuitBreaker.GetOpenThreshold(),
		CircuitBreakerHalfOpenTimeout:      conf.CircuitBreaker.GetHalfOpenTimeout(),
		CircuitBreakerResetFailuresTimeout: conf.CircuitBreaker.GetResetFailuresTimeout(),
	})
}

func makeStore(ctx context.Context, conf configStore) (appStore, error) {
	switch conf.GetKind() {
	case storeKindSQLite:
		store, err := stores.NewSQLite(ctx, conf.DSN)
		if err != nil {
			return nil, fmt.Errorf("cannot open sqlite database: %w", err)
		}

		return store, nil
	case storeKindPostgres:
		store, err := stores.NewPostgres(ctx, conf.DSN, conf.GetMigrate())
		if err != nil {
			return nil, fmt.Errorf("cannot connect to postgres: %w", err)
		}

		return store, nil
	}

	return stores.NewMemory(), nil
}

func closeIfCloser(value interface{}) {
	if closer, ok := value.(io.Closer); ok {
		closer.Close() // nolint: errcheck
	}
}

func makeResolver(conf configDNS) geolib.HostResolver {
	if conf.Server == "" {
		return geolib.NewSystemResolver()
	}

	return geolib.NewDNSResolver(conf.Server, conf.GetTimeout())
}

type components struct {
	log        *logger
	store      appStore
	service    *geolib.Service
	metrics    *geolib.Metrics
	provider   geolib.Provider
	httpClient geolib.HTTPClient
}

func (a *components) Close() {
	a.service.Shutdown()
	closeIfCloser(a.store)
	closeIfCloser(a.httpClient)
}

// breaker returns nil if HTTP client has no circuit breaker.
func (a *components) breaker() geolib.Breaker {
	if breaker, ok := a.httpClient.(geolib.Breaker); ok {
		return breaker
	}

	return nil
}

func makeApp(ctx context.Context, conf *config, log *logger, metrics *geolib.Metrics) (*components, error) {
	httpClient := makeHTTPClient(conf.Provider)

	prov, err := makeProvider(conf.Provider, httpClient)
	if err != nil {
		closeIfCloser(httpClient)

		return nil, err
	}

	store, err := makeStore(ctx, conf.Store)
	if err != nil {
		closeIfCloser(httpClient)

		return nil, fmt.Errorf("cannot initialize a store: %w", err)
	}

	orchestrator, err := geolib.NewOrchestrator(geolib.OrchestratorOpts{
		Store:        store,
		Provider:     prov,
		Logger:       log,
		Metrics:      metrics,
		FetchTimeout: conf.GetFetchTimeout(),
	})
	if err != nil {
		closeIfCloser(store)
		closeIfCloser(httpClient)

		return nil, fmt.Errorf("cannot initialize orchestrator: %w", err)
	}

	service, err := geolib.NewService(geolib.NewNormalizer(makeResolver(conf.DNS)),
		orchestrator,
		conf.GetWorkerPoolSize())
	if err != nil {
		closeIfCloser(store)
		closeIfCloser(httpClient)

		return nil, fmt.Errorf("cannot initialize service: %w", err)
	}

	return &components{
		log:        log,
		store:      store,
		service:    service,
		metrics:    metrics,
		provider:   prov,
		httpClient: httpClient,
	}, nil
}
