// Package http is the admin/observability adapter: GET /v1/keys, GET
// /v1/stats, GET /healthz, GET /metrics. Like the tcp adapter, it goes
// through the Registry (Registry.Cache and Registry.Namespaces), never
// cache.KeyCache internals.
package http

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pomaicache/keycache/internal/registry"
)

type Server struct {
	registry *registry.Registry
	router   *mux.Router
}

func NewServer(reg *registry.Registry) *Server {
	s := &Server{
		registry: reg,
		router:   mux.NewRouter(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) Router() http.Handler {
	return CorsMiddleware(s.router)
}
