package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/9seconds/geostash/geolib"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	kingpin "gopkg.in/alecthomas/kingpin.v2"
)

const (
	version = "0.1.0"

	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 5 * time.Second
)

var (
	app = kingpin.New(
		"geostash",
		"Geolocation service which caches lookups of IP addresses and URLs")

	debug = app.Flag("debug", "Run in debug mode.").
		Short('d').
		Envar("GEOSTASH_DEBUG").
		Bool()

	serveCommand    = app.Command("serve", "Run HTTP API.")
	serveConfigPath = serveCommand.Arg("config-path", "Path to the config.").
			Required().
			ExistingFile()

	lookupCommand    = app.Command("lookup", "Resolve IP addresses or URLs and print JSON.")
	lookupConfigPath = lookupCommand.Arg("config-path", "Path to the config.").
				Required().
				ExistingFile()
	lookupIdentifiers = lookupCommand.Arg("identifiers", "IP addresses or URLs.").
				Required().
				Strings()

	seedCommand    = app.Command("seed", "Populate a store with random records.")
	seedConfigPath = seedCommand.Arg("config-path", "Path to the config.").
			Required().
			ExistingFile()
	seedCount = seedCommand.Flag("count", "A number of records to generate.").
			Short('c').
			Default("100").
			Int()
)

func init() {
	app.Version(version)
}

func main() {
	command := kingpin.MustParse(app.Parse(os.Args[1:]))
	log := newLogger(os.Stderr, *debug)

	var err error

	switch command {
	case serveCommand.FullCommand():
		err = serve(*serveConfigPath, log)
	case lookupCommand.FullCommand():
		err = lookup(*lookupConfigPath, *lookupIdentifiers, log)
	case seedCommand.FullCommand():
		err = seed(*seedConfigPath, *seedCount, log)
	}

	if err != nil {
		log.appLog.Fatal().Err(err).Msg("")
	}
}

func serve(configPath string, log *logger) error {
	conf, err := parseConfig(configPath)
	if err != nil {
		return err
	}

	ctx, cancel := makeRootContext()
	defer cancel()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	application, err := makeApp(ctx, conf, log, geolib.NewMetrics(registry))
	if err != nil {
		return err
	}

	defer application.Close()

	opts := geolib.HTTPHandlerOpts{
		Service:     application.service,
		Pinger:      application.store,
		Breaker:     application.breaker(),
		Middlewares: []func(http.Handler) http.Handler{log.AccessLog},
	}

	if conf.CORS.Enabled() {
		opts.Middlewares = append(opts.Middlewares, newCORSMiddleware(conf.CORS))
	}

	if conf.BasicAuth.Enabled() {
		opts.WriteMiddlewares = append(opts.WriteMiddlewares,
			newBasicAuthMiddleware(conf.BasicAuth.User, conf.BasicAuth.Password))
	}

	router := chi.NewRouter()

	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	router.Mount("/", geolib.NewHTTPHandler(opts))

	srv := &http.Server{
		Addr:              conf.GetListen(),
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()

		srv.Shutdown(shutdownCtx) // nolint: errcheck
	}()

	log.appLog.Info().
		Str("listen", conf.GetListen()).
		Str("provider", application.provider.Name()).
		Str("store", conf.Store.GetKind()).
		Msg("Start server")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	log.appLog.Info().Msg("Server was stopped")

	return nil
}

func lookup(configPath string, identifiers []string, log *logger) error {
	conf, err := parseConfig(configPath)
	if err != nil {
		return err
	}

	ctx, cancel := makeRootContext()
	defer cancel()

	application, err := makeApp(ctx, conf, log, nil)
	if err != nil {
		return err
	}

	defer application.Close()

	requests := make([]geolib.Request, len(identifiers))
	for i, v := range identifiers {
		requests[i] = geolib.Request{IPAddress: v}

		if _, err := geolib.ParseAddress(v); err != nil {
			requests[i] = geolib.Request{URL: v}
		}
	}

	results, err := application.service.ResolveAll(ctx, requests)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(os.Stdout)

	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)

	return encoder.Encode(results)
}

func seed(configPath string, count int, log *logger) error {
	conf, err := parseConfig(configPath)
	if err != nil {
		return err
	}

	ctx, cancel := makeRootContext()
	defer cancel()

	application, err := makeApp(ctx, conf, log, nil)
	if err != nil {
		return err
	}

	defer application.Close()

	records, err := seedRecords(ctx, application.service, gofakeit.New(0), count)

	log.appLog.Info().
		Int("count", len(records)).
		Str("store", conf.Store.GetKind()).
		Msg("Store was seeded")

	return err
}
