// pkg/transport/httpx/server.go
package httpx

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Server is the transport handle produced by a launcher: a Router plus the
// net/http server that exposes it. Routes may be registered after Start;
// registration takes the write lock and every request holds the read lock for
// its duration, so the mux is never mutated mid-traversal.
type Server struct {
	name string
	addr string
	log  *zap.Logger

	mu      sync.RWMutex
	router  Router
	srv     *http.Server
	ln      net.Listener
	started bool
}

// New builds an unstarted Server around a fresh chi Router.
func New(name, addr string, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		name:   name,
		addr:   addr,
		log:    log,
		router: NewChi(),
	}
}

// Name returns the logical server name this handle was launched under.
func (s *Server) Name() string { return s.name }

// Use appends middleware to the underlying router. Chi requires middleware
// before any route, so callers attach these prior to the first Handle.
func (s *Server) Use(mw ...func(http.Handler) http.Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.router.Use(mw...)
}

// Handle registers h at method+path.
func (s *Server) Handle(method, path string, h http.Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.router.Handle(method, path, h)
}

// Get registers h for GET path.
func (s *Server) Get(path string, h http.Handler) { s.Handle(http.MethodGet, path, h) }

// Post registers h for POST path.
func (s *Server) Post(path string, h http.Handler) { s.Handle(http.MethodPost, path, h) }

// ServeHTTP makes the Server itself an http.Handler, so tests can drive it
// without a listener. The read lock spans the whole request: concurrent
// requests proceed together, while Use/Handle wait for in-flight requests
// before touching the mux.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.router.Mux().ServeHTTP(w, r)
}

// Start binds the listener synchronously so bind failures surface to the
// caller, then serves in the background. Calling Start twice is an error in
// the caller; the registry never does it.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	srv := &http.Server{
		Handler:      s,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	s.ln = ln
	s.srv = srv
	s.started = true
	s.mu.Unlock()

	s.log.Info("server listening",
		zap.String("name", s.name),
		zap.String("addr", ln.Addr().String()),
	)
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.log.Error("server failed", zap.String("name", s.name), zap.Error(err))
		}
	}()
	return nil
}

// Addr reports the bound listener address ("" before Start).
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Shutdown drains and stops the server. No-op when never started.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.srv = nil
	s.started = false
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	s.log.Info("server stopping", zap.String("name", s.name))
	return srv.Shutdown(ctx)
}
