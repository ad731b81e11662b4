// pkg/apimount/registry.go
package apimount

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/vytenisu/api-mount-server/pkg/transport/httpx"
	"go.uber.org/zap"
)

// Launcher creates and starts the transport instance for one server name.
// Launchers honor cfg.BeforeListen between creating the handle and accepting
// connections.
type Launcher func(cfg Config) (*httpx.Server, error)

// Registry owns the launcher table and the per-name server instances. It is
// the only holder of mutable shared state in the package; every check-then-act
// on it happens under the mutex. Construct one per process (or per test).
type Registry struct {
	mu        sync.Mutex
	launchers map[string]Launcher
	servers   map[string]*httpx.Server
	bound     map[string]map[string]struct{}
	fallback  Launcher
	log       *zap.Logger
}

// NewRegistry builds an empty registry whose fallback is the built-in HTTP
// launcher (chi router, access log, metrics, /metrics route).
func NewRegistry(log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		launchers: map[string]Launcher{},
		servers:   map[string]*httpx.Server{},
		bound:     map[string]map[string]struct{}{},
		fallback:  defaultLauncher(log),
		log:       log,
	}
}

// RegisterLauncher binds l to name, replacing any previous launcher. It only
// affects names whose server has not been created yet; registering after
// first use is a no-op for the existing instance (logged, since the silence
// is easy to misread as a restart).
func (g *Registry) RegisterLauncher(name string, l Launcher) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.servers[name]; exists {
		g.log.Warn("launcher registered after first use; existing server unaffected",
			zap.String("server", name))
	}
	g.launchers[name] = l
}

// EnsureLaunched returns the server for cfg.Name, launching it on first use.
// Launch happens at most once per name for the registry's lifetime; a failed
// launch stores nothing, so a later mount may retry.
func (g *Registry) EnsureLaunched(cfg Config) (*httpx.Server, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if srv, ok := g.servers[cfg.Name]; ok {
		return srv, nil
	}
	l, ok := g.launchers[cfg.Name]
	if !ok {
		l = g.fallback
	}
	srv, err := l(cfg)
	if err != nil {
		return nil, fmt.Errorf("apimount: launch %q: %w", cfg.Name, err)
	}
	g.servers[cfg.Name] = srv
	g.log.Info("server launched", zap.String("server", cfg.Name), zap.Int("port", cfg.Port))
	return srv, nil
}

// Server returns the already-launched instance for name, if any.
func (g *Registry) Server(name string) (*httpx.Server, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	srv, ok := g.servers[name]
	return srv, ok
}

// ClaimPaths reserves paths on server, all or nothing. A path already bound on
// that server (by an earlier mount or twice within this one) rejects the whole
// claim, so a failing mount binds nothing.
func (g *Registry) ClaimPaths(server string, paths []string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	set := g.bound[server]
	if set == nil {
		set = map[string]struct{}{}
		g.bound[server] = set
	}
	staged := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		if _, dup := set[p]; dup {
			return fmt.Errorf("apimount: path %q already bound on server %q", p, server)
		}
		if _, dup := staged[p]; dup {
			return fmt.Errorf("apimount: path %q derived twice in one mount on server %q", p, server)
		}
		staged[p] = struct{}{}
	}
	for p := range staged {
		set[p] = struct{}{}
	}
	return nil
}

// Shutdown stops every launched server. Used by the fx lifecycle; the core
// itself never tears servers down.
func (g *Registry) Shutdown(ctx context.Context) error {
	g.mu.Lock()
	servers := make([]*httpx.Server, 0, len(g.servers))
	for _, s := range g.servers {
		servers = append(servers, s)
	}
	g.mu.Unlock()

	var errs []error
	for _, s := range servers {
		if err := s.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Reset stops all servers and clears launchers, instances and bound paths.
// Test isolation only.
func (g *Registry) Reset() {
	_ = g.Shutdown(context.Background())
	g.mu.Lock()
	defer g.mu.Unlock()
	g.launchers = map[string]Launcher{}
	g.servers = map[string]*httpx.Server{}
	g.bound = map[string]map[string]struct{}{}
}
