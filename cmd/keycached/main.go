// Command keycached runs the namespace registry behind the TCP and HTTP
// command-dispatch adapters.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	httpAdapter "github.com/pomaicache/keycache/internal/adapter/http"
	tcpAdapter "github.com/pomaicache/keycache/internal/adapter/tcp"
	"github.com/pomaicache/keycache/internal/observability"
	"github.com/pomaicache/keycache/internal/registry"
)

const (
	Version     = "1.0.0"
	ServiceName = "keycached"
)

type Config struct {
	HTTPPort string
	TCPPort  string

	DataDir    string
	Namespaces []string

	ShutdownTimeout time.Duration

	GCPercent int
	MaxProcs  int
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("configuration error: %v", err)
	}

	applyRuntimeTuning(cfg)
	printBanner(cfg)

	reg := registry.New(cfg.DataDir)

	collector := observability.NewCollector(reg)
	prometheus.MustRegister(collector)

	log.Printf("[keycached] bootstrapping %d namespace(s): %v", len(cfg.Namespaces), cfg.Namespaces)
	if err := reg.Bootstrap(cfg.Namespaces); err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}

	httpSrv, tcpSrv := startServers(cfg, reg)

	gracefulShutdown(cfg, httpSrv, tcpSrv, reg)
}

func applyRuntimeTuning(cfg *Config) {
	if cfg.MaxProcs > 0 {
		runtime.GOMAXPROCS(cfg.MaxProcs)
		log.Printf("[keycached] GOMAXPROCS set to %d", cfg.MaxProcs)
	}
	if cfg.GCPercent >= 0 {
		old := debug.SetGCPercent(cfg.GCPercent)
		log.Printf("[keycached] GC percent changed from %d to %d", old, cfg.GCPercent)
	}
}

func loadConfig() (*Config, error) {
	cfg := &Config{
		HTTPPort:        getenv("HTTP_PORT", "8080"),
		TCPPort:         getenv("TCP_PORT", "7600"),
		DataDir:         getenv("DATA_DIR", ""),
		Namespaces:      getenvList("BOOTSTRAP_NAMESPACES", []string{"default"}),
		ShutdownTimeout: getenvDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
		GCPercent:       getenvInt("GOGC", -1),
		MaxProcs:        getenvInt("GOMAXPROCS", 0),
	}

	if cfg.DataDir != "" {
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	return cfg, nil
}

func printBanner(cfg *Config) {
	persistence := "none (in-memory only)"
	if cfg.DataDir != "" {
		persistence = fmt.Sprintf("WAL under %s", cfg.DataDir)
	}

	log.Printf(`
========================================
  %s v%s
========================================
  HTTP:        :%s
  TCP:         :%s
  Persistence: %s
  Namespaces:  %s
  Go:          %s, %d cores, GOMAXPROCS=%d
========================================`,
		ServiceName, Version,
		cfg.HTTPPort, cfg.TCPPort,
		persistence,
		strings.Join(cfg.Namespaces, ","),
		runtime.Version(), runtime.NumCPU(), runtime.GOMAXPROCS(0))
}

func startServers(cfg *Config, reg *registry.Registry) (*http.Server, *tcpAdapter.Server) {
	httpSrv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: httpAdapter.NewServer(reg).Router(),
	}
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[keycached] HTTP server error: %v", err)
		}
	}()
	log.Printf("[keycached] HTTP server started on :%s", cfg.HTTPPort)

	tcpSrv := tcpAdapter.New(reg)
	go func() {
		if err := tcpSrv.ListenAndServe(":" + cfg.TCPPort); err != nil {
			log.Fatalf("[keycached] TCP server error: %v", err)
		}
	}()
	log.Printf("[keycached] TCP server started on :%s", cfg.TCPPort)

	return httpSrv, tcpSrv
}

func gracefulShutdown(cfg *Config, httpSrv *http.Server, tcpSrv *tcpAdapter.Server, reg *registry.Registry) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)

	sig := <-sigCh
	log.Printf("[keycached] signal received: %v, shutting down", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[keycached] HTTP shutdown error: %v", err)
	}
	// tcpSrv has no listener handle to close gracefully beyond process exit;
	// in-flight connections simply see the process go away.
	_ = tcpSrv

	if err := reg.Close(); err != nil {
		log.Printf("[keycached] registry close error: %v", err)
	}

	printFinalStats(reg)
	log.Println("[keycached] shutdown complete")
}

func printFinalStats(reg *registry.Registry) {
	for _, ns := range reg.Namespaces() {
		c, err := reg.Cache(ns)
		if err != nil {
			continue
		}
		s := c.Stats()
		log.Printf("[keycached] namespace %q: %d keys, %d sweep removals", ns, s.Size, s.SweepRemovals)
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getenvList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
