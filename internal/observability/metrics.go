package observability

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/pomaicache/keycache/internal/registry"
)

// Collector implements prometheus.Collector by pulling each namespace's
// cache.Stats and bootstrap duration from a Registry on every scrape,
// rather than pushing updates through the hot path.
type Collector struct {
	registry *registry.Registry

	cacheSize           *prometheus.Desc
	sweepRemovals       *prometheus.Desc
	fastPathMatches     *prometheus.Desc
	globFallbackMatches *prometheus.Desc
	bootstrapSeconds    *prometheus.Desc
}

// NewCollector builds a Collector over reg. Register it with
// prometheus.MustRegister once at startup.
func NewCollector(reg *registry.Registry) *Collector {
	labels := []string{"namespace"}
	return &Collector{
		registry: reg,
		cacheSize: prometheus.NewDesc(
			"keycache_size", "Number of live keys in a namespace's cache.", labels, nil),
		sweepRemovals: prometheus.NewDesc(
			"keycache_sweep_removals_total", "Keys removed by the lazy TTL sweep.", labels, nil),
		fastPathMatches: prometheus.NewDesc(
			"keycache_pattern_fastpath_total", "KEYS calls served by an optimized matcher.", labels, nil),
		globFallbackMatches: prometheus.NewDesc(
			"keycache_pattern_glob_fallback_total", "KEYS calls that fell back to the full glob engine.", labels, nil),
		bootstrapSeconds: prometheus.NewDesc(
			"keycache_bootstrap_seconds", "Time spent on WAL replay plus the bootstrap scan.", labels, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.cacheSize
	ch <- c.sweepRemovals
	ch <- c.fastPathMatches
	ch <- c.globFallbackMatches
	ch <- c.bootstrapSeconds
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, ns := range c.registry.Namespaces() {
		n, err := c.registry.EnsureNamespace(ns)
		if err != nil {
			continue
		}
		stats := n.Cache.Stats()

		ch <- prometheus.MustNewConstMetric(c.cacheSize, prometheus.GaugeValue, float64(stats.Size), ns)
		ch <- prometheus.MustNewConstMetric(c.sweepRemovals, prometheus.CounterValue, float64(stats.SweepRemovals), ns)
		ch <- prometheus.MustNewConstMetric(c.fastPathMatches, prometheus.CounterValue, float64(stats.FastPathMatches), ns)
		ch <- prometheus.MustNewConstMetric(c.globFallbackMatches, prometheus.CounterValue, float64(stats.GlobFallbackMatches), ns)
		ch <- prometheus.MustNewConstMetric(c.bootstrapSeconds, prometheus.GaugeValue, n.BootstrapDuration.Seconds(), ns)
	}
}
