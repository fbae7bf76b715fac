package http

import (
	"context"
	"net/http"
	"strings"
)

// CorsMiddleware allows requests from any origin (dev mode).
func CorsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, X-Requested-With, X-Namespace")
		w.Header().Set("Access-Control-Allow-Credentials", "true")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// NamespaceMiddleware injects the request's namespace into the context,
// the wire equivalent of the TCP adapter's NS field and, further down,
// of Redis SELECT <n>.
func NamespaceMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ns := r.Header.Get("X-Namespace")
		if strings.TrimSpace(ns) == "" {
			ns = "default"
		}
		// Plain string key, matching the teacher's "tenantID" convention,
		// so the handlers package can read it without importing this one.
		ctx := context.WithValue(r.Context(), "namespace", ns)
		next(w, r.WithContext(ctx))
	}
}
