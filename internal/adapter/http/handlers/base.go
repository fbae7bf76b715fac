package handlers

import (
	"context"

	"github.com/pomaicache/keycache/internal/registry"
)

// HTTPHandlers holds the dependencies every handler needs.
type HTTPHandlers struct {
	Registry *registry.Registry
}

// NewHTTPHandlers constructs the handler set.
func NewHTTPHandlers(reg *registry.Registry) *HTTPHandlers {
	return &HTTPHandlers{Registry: reg}
}

// namespaceFromContext reads the namespace injected by NamespaceMiddleware.
// Uses a plain string key to avoid an import cycle with the http package.
func namespaceFromContext(ctx context.Context) string {
	if v := ctx.Value("namespace"); v != nil {
		if ns, ok := v.(string); ok {
			return ns
		}
	}
	return "default"
}
