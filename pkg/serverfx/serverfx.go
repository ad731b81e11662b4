// pkg/serverfx/serverfx.go
package serverfx

import (
	"context"
	"os"

	"github.com/vytenisu/api-mount-server/pkg/apimount"
	"github.com/vytenisu/api-mount-server/pkg/bundlefx"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// ---------- Options ----------

type Config struct {
	Service         string // for logs only
	ManifestEnv     string // e.g., API_MOUNT_MANIFEST
	DefaultManifest string // e.g., "manifest.toml"
}

type Option func(*Config)

func WithService(s string) Option            { return func(c *Config) { c.Service = s } }
func WithManifestEnv(k string) Option        { return func(c *Config) { c.ManifestEnv = k } }
func WithDefaultManifest(path string) Option { return func(c *Config) { c.DefaultManifest = path } }

func defaultConfig() Config {
	return Config{
		Service:         "app",
		ManifestEnv:     "API_MOUNT_MANIFEST",
		DefaultManifest: "manifest.toml",
	}
}

// Module returns a complete Fx option set; add app-specific fx.Invoke(...)
// calls alongside to mount surfaces through the provided *apimount.Factory.
func Module(opts ...Option) fx.Option {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	return fx.Options(
		// Logger + metrics providers
		bundlefx.Module,
		// Config into DI
		fx.Provide(func() Config { return cfg }),
		// Mount registry + factory
		fx.Provide(provideRegistry),
		fx.Provide(provideFactory),
		// Lifecycle
		fx.Invoke(registerHooks),
	)
}

// ---------- Providers ----------

func provideRegistry(log *zap.Logger) *apimount.Registry {
	return apimount.NewRegistry(log)
}

func provideFactory(cfg Config, reg *apimount.Registry, log *zap.Logger) *apimount.Factory {
	shared := apimount.Config{}
	path := envOr(cfg.ManifestEnv, cfg.DefaultManifest)
	if loaded, err := apimount.LoadConfig(path); err == nil {
		shared = loaded
	} else if !os.IsNotExist(err) {
		log.Fatal("manifest load failed", zap.Error(err), zap.String("path", path))
	}
	return apimount.NewFactory(shared, apimount.WithRegistry(reg), apimount.WithLogger(log))
}

// ---------- Lifecycle ----------

func registerHooks(lc fx.Lifecycle, cfg Config, reg *apimount.Registry, log *zap.Logger) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Info("stopping mounted servers", zap.String("service", cfg.Service))
			return reg.Shutdown(ctx)
		},
	})
}

// ---------- tiny helpers ----------

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
