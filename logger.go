package main

import (
	"io"
	"net/http"
	"time"

	"github.com/9seconds/geostash/geolib"
	"github.com/go-chi/chi/middleware"
	"github.com/rs/zerolog"
)

type logger struct {
	appLog     zerolog.Logger
	lookupLog  zerolog.Logger
	storeLog   zerolog.Logger
	resolveLog zerolog.Logger
	accessLog  zerolog.Logger
}

func (l *logger) LookupError(addr geolib.Address, name string, err error) {
	l.lookupLog.Error().
		Str("provider", name).
		Stringer("ip", addr).
		Str("host", addr.Host()).
		Err(err).
		Msg("")
}

func (l *logger) StoreError(addr geolib.Address, op string, err error) {
	l.storeLog.Error().
		Str("op", op).
		Stringer("ip", addr).
		Err(err).
		Msg("")
}

func (l *logger) Resolved(addr geolib.Address, source geolib.Source) {
	l.resolveLog.Debug().
		Stringer("ip", addr).
		Str("host", addr.Host()).
		Str("source", string(source)).
		Msg("")
}

func (l *logger) AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		started := time.Now()
		ww := middleware.NewWrapResponseWriter(w, req.ProtoMajor)

		defer func() {
			l.accessLog.Info().
				Str("request_id", middleware.GetReqID(req.Context())).
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Str("remote_addr", req.RemoteAddr).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("elapsed", time.Since(started)).
				Msg("")
		}()

		next.ServeHTTP(ww, req)
	})
}

func newLogger(output io.Writer, debug bool) *logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}

	makeLogger := func(eventName string) zerolog.Logger {
		return zerolog.New(output).
			Level(level).
			With().
			Timestamp().
			Str("event_name", eventName).
			Logger()
	}

	return &logger{
		appLog:     makeLogger("app"),
		lookupLog:  makeLogger("lookup"),
		storeLog:   makeLogger("store"),
		resolveLog: makeLogger("resolve"),
		accessLog:  makeLogger("access"),
	}
}
