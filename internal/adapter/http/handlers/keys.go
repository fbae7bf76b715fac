package handlers

import (
	"encoding/json"
	"net/http"
)

// HandleKeys serves GET /v1/keys?pattern=<glob>, delegating directly to
// the namespace's KeyCache.Get.
func (h *HTTPHandlers) HandleKeys(w http.ResponseWriter, r *http.Request) {
	pattern := r.URL.Query().Get("pattern")
	if pattern == "" {
		pattern = "*"
	}

	ns := namespaceFromContext(r.Context())
	c, err := h.Registry.Cache(ns)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	keys := c.Get(pattern)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"namespace": ns,
		"pattern":   pattern,
		"keys":      keys,
		"count":     len(keys),
	})
}
