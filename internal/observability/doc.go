// Package observability exposes registry- and cache-level counters as
// Prometheus metrics, grounded on the teacher's atomic-counters-into-a-
// Stats-struct convention (internal/engine/store_stats.go) and wired at
// /metrics the way internal/adapter/http/router.go wires
// promhttp.Handler.
package observability
