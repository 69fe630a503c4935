package geolib

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
)

type httpHandler struct {
	service *Service
	pinger  Pinger
	breaker Breaker
}

type httpSuccessEnvelope struct {
	Status string      `json:"status"`
	Data   interface{} `json:"data"`
}

func (h httpHandler) sendSuccess(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	h.encodeJSON(w, httpSuccessEnvelope{
		Status: "success",
		Data:   data,
	})
}

func (h httpHandler) encodeJSON(w http.ResponseWriter, data interface{}) {
	encoder := json.NewEncoder(w)

	encoder.SetEscapeHTML(false)
	encoder.Encode(data) // nolint: errcheck
}

func (h httpHandler) sendError(w http.ResponseWriter, err error, message string, statusCode int) {
	h.sendHTTPError(w, &httpError{
		message:    message,
		statusCode: statusCode,
		err:        err,
	})
}

func (h httpHandler) sendHTTPError(w http.ResponseWriter, e *httpError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode())
	h.encodeJSON(w, e)
}

// HTTPHandlerOpts are parameters of NewHTTPHandler.
type HTTPHandlerOpts struct {
	Service *Service

	// Pinger is used by health check. If it is nil, service is always
	// healthy.
	Pinger Pinger

	// Breaker reports provider availability in health check. Opened
	// circuit breaker does not make service unhealthy: cached records
	// are still served.
	Breaker Breaker

	// WriteMiddlewares wrap routes which modify records.
	WriteMiddlewares []func(http.Handler) http.Handler

	// Middlewares wrap all routes.
	Middlewares []func(http.Handler) http.Handler
}

// NewHTTPHandler builds an HTTP API of the service.
func NewHTTPHandler(opts HTTPHandlerOpts) http.Handler {
	handler := httpHandler{
		service: opts.Service,
		pinger:  opts.Pinger,
		breaker: opts.Breaker,
	}
	router := chi.NewRouter()

	router.Use(middleware.RequestID, middleware.Recoverer)
	router.Use(opts.Middlewares...)

	router.Get("/geolocation", handler.handleGet)
	router.Get("/stats", handler.handleGetStats)
	router.Get("/health", handler.handleGetHealth)
	router.Post("/geolocation/batch", handler.handlePostBatch)

	router.Group(func(r chi.Router) {
		r.Use(opts.WriteMiddlewares...)

		r.Post("/geolocation", handler.handlePost)
		r.Delete("/geolocation", handler.handleDelete)
	})

	return router
}
