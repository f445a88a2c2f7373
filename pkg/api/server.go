// Package api exposes the hywire inspection REST API: structural validation
// and decoding of protocol messages over HTTP, plus the schema listing and
// Prometheus metrics.
package api

import (
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ndegiovanni/hywire/pkg/capture"
	"github.com/ndegiovanni/hywire/pkg/codec"
)

// Router builds the chi router for the server. Split out from StartServer so
// tests can drive it with httptest.
func Router(server *Server) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, req.ProtoMajor)
			next.ServeHTTP(ww, req)
			server.metrics.RecordRequest(req.Method, req.URL.Path, strconv.Itoa(ww.Status()))
		})
	})
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Prometheus metrics endpoint (unprotected for scraping)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/health", server.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(apiKeyMiddleware(server))

		r.Post("/messages/validate", server.handleValidate)
		r.Post("/messages/decode", server.handleDecode)
		r.Get("/schemas", server.handleListSchemas)
	})

	return r
}

// StartServer starts the HTTP server with all routes configured. store may
// be nil when message capture is disabled.
func StartServer(registry *codec.Registry, config ServerConfig, store *capture.Store) error {
	metrics := NewMetrics()
	server := NewServer(registry, config, metrics, store)
	r := Router(server)

	addr := fmt.Sprintf("%s:%d", config.Bind, config.Port)
	fmt.Printf("hywire inspection API listening on %s\n", addr)
	log.Fatal(http.ListenAndServe(addr, r))
	return nil
}
