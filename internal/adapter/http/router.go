package http

import (
	"github.com/pomaicache/keycache/internal/adapter/http/handlers"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) setupRoutes() {
	h := handlers.NewHTTPHandlers(s.registry)
	api := s.router.PathPrefix("/v1").Subrouter()

	api.HandleFunc("/keys", NamespaceMiddleware(h.HandleKeys)).Methods("GET")
	api.HandleFunc("/stats", NamespaceMiddleware(h.HandleStats)).Methods("GET")

	// No namespace context required; neither of these selects or creates a
	// namespace (healthz only counts the existing ones).
	s.router.HandleFunc("/healthz", h.HandleHealthz).Methods("GET")
	s.router.Handle("/metrics", promhttp.Handler()).Methods("GET")
}
