package main

import (
	"net/http"

	"github.com/go-chi/cors"
)

// newCORSMiddleware allows browsers from configured origins to call
// every route. Preflight requests are answered without reaching the
// router.
func newCORSMiddleware(conf configCORS) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: conf.AllowedOrigins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: conf.AllowCredentials,
		MaxAge:           int(conf.GetMaxAge().Seconds()),
	})
}
