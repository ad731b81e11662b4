// pkg/apimount/factory.go
package apimount

import (
	"fmt"

	"go.uber.org/zap"
)

// Factory mounts API surfaces against lazily-launched servers. It carries the
// shared configuration every mount starts from and the registry that owns the
// server instances.
type Factory struct {
	shared Config
	reg    *Registry
	log    *zap.Logger
}

type Option func(*Factory)

// WithRegistry shares an existing registry between factories (and with tests
// that inject launchers).
func WithRegistry(reg *Registry) Option { return func(f *Factory) { f.reg = reg } }

// WithLogger sets the factory logger; default is a nop logger so the library
// stays quiet unless wired into a service.
func WithLogger(log *zap.Logger) Option { return func(f *Factory) { f.log = log } }

// NewFactory builds a mount factory around shared defaults.
func NewFactory(shared Config, opts ...Option) *Factory {
	f := &Factory{shared: shared, log: zap.NewNop()}
	for _, o := range opts {
		o(f)
	}
	if f.reg == nil {
		f.reg = NewRegistry(f.log)
	}
	return f
}

// Registry exposes the factory's registry for launcher injection and teardown.
func (f *Factory) Registry() *Registry { return f.reg }

// Mount binds every method of surface at basePath/<derived-segment> on the
// resolved server, launching it on first use. The optional override merges
// over the factory's shared config, field by field.
func (f *Factory) Mount(surface Surface, override ...Config) error {
	return f.bind(surface, f.resolve(override))
}

// MountClassBased derives a namespace segment from the surface's type
// identity and inserts it after basePath before delegating to the same
// binding path as Mount. Surfaces without a type identity (plain mappings)
// are a configuration error; nothing is bound.
func (f *Factory) MountClassBased(surface Surface, override ...Config) error {
	cfg := f.resolve(override)
	tn := surface.TypeName()
	if tn == "" {
		return fmt.Errorf("apimount: class-based mount needs a surface with type identity; use Mount for plain mappings")
	}
	cfg.BasePath = cfg.BasePath + "/" + DeriveNamespace(tn)
	return f.bind(surface, cfg)
}

func (f *Factory) resolve(override []Config) Config {
	var ov Config
	if len(override) > 0 {
		ov = override[0]
	}
	return Resolve(f.shared, ov)
}

// bind resolves nothing further: cfg is already effective. Paths are claimed
// all-or-nothing before any handler registration, so duplicate paths reject
// the mount without partial bindings.
func (f *Factory) bind(surface Surface, cfg Config) error {
	srv, err := f.reg.EnsureLaunched(cfg)
	if err != nil {
		return err
	}

	methods := surface.Methods()
	paths := make([]string, len(methods))
	for i, m := range methods {
		paths[i] = cfg.BasePath + "/" + DeriveNamespace(m.Name)
	}
	if err := f.reg.ClaimPaths(cfg.Name, paths); err != nil {
		return err
	}

	for i, m := range methods {
		srv.Post(paths[i], f.dispatch(m, surface, cfg))
		f.log.Info("route bound",
			zap.String("server", cfg.Name),
			zap.String("path", paths[i]),
			zap.String("method", m.Name),
		)
	}
	return nil
}
