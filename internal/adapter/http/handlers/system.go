package handlers

import (
	"encoding/json"
	"net/http"
	"time"
)

// HandleHealthz reports process liveness and how many namespaces have
// been touched so far. It does not require a namespace and never blocks
// on a WAL replay.
func (h *HTTPHandlers) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":     "ok",
		"timestamp":  time.Now().Unix(),
		"namespaces": len(h.Registry.Namespaces()),
	})
}

// HandleStats serves GET /v1/stats, reporting the live key count for the
// request's namespace.
func (h *HTTPHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	ns := namespaceFromContext(r.Context())
	c, err := h.Registry.Cache(ns)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"namespace": ns,
		"size":      c.Size(),
	})
}
