package registry

import (
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/pomaicache/keycache/internal/cache"
	"github.com/pomaicache/keycache/internal/engine"
	"github.com/pomaicache/keycache/internal/wal"
)

// Namespace pairs one KeyCache with the storage-engine collaborator that
// feeds it, per namespace.
type Namespace struct {
	Cache  *cache.KeyCache
	Engine *engine.Engine

	// BootstrapDuration is how long namespace creation took on first
	// access: WAL replay (when a WAL is configured) plus the bootstrap scan.
	BootstrapDuration time.Duration

	wal *wal.Log
}

// Registry lazily creates and bootstraps one Namespace per namespace
// identifier, coalescing concurrent first-access calls for the same
// namespace behind a singleflight group so only one caller pays for the
// WAL replay and bootstrap scan.
type Registry struct {
	mu         sync.RWMutex
	namespaces map[string]*Namespace

	walDir string // empty means run without durability
	group  singleflight.Group
}

// New creates a Registry. If walDir is non-empty, each namespace gets its
// own WAL file under walDir named "<namespace>.log"; otherwise namespaces
// run in-memory only.
func New(walDir string) *Registry {
	return &Registry{
		namespaces: make(map[string]*Namespace),
		walDir:     walDir,
	}
}

// EnsureNamespace returns the Namespace for ns, creating, WAL-replaying,
// and bootstrapping it on first access. Concurrent callers for the same ns
// share one creation attempt via singleflight and all observe the fully
// bootstrapped result.
func (r *Registry) EnsureNamespace(ns string) (*Namespace, error) {
	r.mu.RLock()
	n, ok := r.namespaces[ns]
	r.mu.RUnlock()
	if ok {
		return n, nil
	}

	result, err, _ := r.group.Do(ns, func() (interface{}, error) {
		r.mu.RLock()
		if n, ok := r.namespaces[ns]; ok {
			r.mu.RUnlock()
			return n, nil
		}
		r.mu.RUnlock()

		n, err := r.createNamespace(ns)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.namespaces[ns] = n
		r.mu.Unlock()

		return n, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*Namespace), nil
}

func (r *Registry) createNamespace(ns string) (*Namespace, error) {
	start := time.Now()

	var walLog *wal.Log
	if r.walDir != "" {
		var err error
		walLog, err = wal.Open(filepath.Join(r.walDir, ns+".log"))
		if err != nil {
			return nil, fmt.Errorf("registry: open WAL for namespace %q: %w", ns, err)
		}
	}

	c := cache.NewKeyCache()
	e := engine.New(c, walLog)

	if walLog != nil {
		n, err := e.LoadFromWAL(walLog)
		if err != nil {
			return nil, fmt.Errorf("registry: replay WAL for namespace %q: %w", ns, err)
		}
		log.Printf("[registry] namespace %q: replayed %d WAL records", ns, n)
	}

	cache.Bootstrap(c, e.OpenMetaIterator())

	return &Namespace{Cache: c, Engine: e, wal: walLog, BootstrapDuration: time.Since(start)}, nil
}

// Cache is a convenience for EnsureNamespace(ns).Cache. It returns the
// error EnsureNamespace reports if the namespace cannot be created (a WAL
// open/replay failure).
func (r *Registry) Cache(ns string) (*cache.KeyCache, error) {
	n, err := r.EnsureNamespace(ns)
	if err != nil {
		return nil, err
	}
	return n.Cache, nil
}

// Engine is the Engine-returning counterpart of Cache.
func (r *Registry) Engine(ns string) (*engine.Engine, error) {
	n, err := r.EnsureNamespace(ns)
	if err != nil {
		return nil, err
	}
	return n.Engine, nil
}

// Bootstrap warms every namespace in the given list concurrently, ahead of
// accepting traffic. Namespaces not listed here are still created lazily
// on first access through EnsureNamespace; this method exists only to let
// a deployment pre-warm a known set (for example, the 16 SELECT-able
// databases of a Redis-compatible server) so the first request against
// each is not the one that pays for its WAL replay.
func (r *Registry) Bootstrap(namespaces []string) error {
	var wg sync.WaitGroup
	errs := make([]error, len(namespaces))

	for i, ns := range namespaces {
		wg.Add(1)
		go func(i int, ns string) {
			defer wg.Done()
			if _, err := r.EnsureNamespace(ns); err != nil {
				errs[i] = err
			}
		}(i, ns)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return fmt.Errorf("registry: bootstrap namespace %q: %w", namespaces[i], err)
		}
	}
	return nil
}

// Namespaces returns every namespace identifier created so far.
func (r *Registry) Namespaces() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.namespaces))
	for ns := range r.namespaces {
		out = append(out, ns)
	}
	return out
}

// Close closes every namespace's WAL file.
func (r *Registry) Close() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var firstErr error
	for ns, n := range r.namespaces {
		if n.wal == nil {
			continue
		}
		if err := n.wal.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("registry: close WAL for namespace %q: %w", ns, err)
		}
	}
	return firstErr
}
