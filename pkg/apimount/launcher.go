// pkg/apimount/launcher.go
package apimount

import (
	"fmt"

	chimd "github.com/go-chi/chi/v5/middleware"
	"github.com/vytenisu/api-mount-server/pkg/middleware/logger"
	"github.com/vytenisu/api-mount-server/pkg/middleware/metrics"
	"github.com/vytenisu/api-mount-server/pkg/transport/httpx"
	"go.uber.org/zap"
)

// defaultLauncher builds the built-in transport: chi-backed Server on
// cfg.Port with request IDs, panic recovery, access logging, dispatch metrics
// and a /metrics scrape route. The BeforeListen hook sees the handle before
// the listener binds.
func defaultLauncher(log *zap.Logger) Launcher {
	lm := logger.ProvideLoggerMiddleware()
	return func(cfg Config) (*httpx.Server, error) {
		srv := httpx.New(cfg.Name, fmt.Sprintf(":%d", cfg.Port), log)
		srv.Use(chimd.RequestID, chimd.Recoverer)
		srv.Use(lm.Middleware())
		srv.Use(metrics.Collect())

		// Hook first: chi wants all middleware attached before any route.
		if cfg.BeforeListen != nil {
			cfg.BeforeListen(srv)
		}

		srv.Get("/metrics", metrics.ProvideMetrics())

		if err := srv.Start(); err != nil {
			return nil, err
		}
		return srv, nil
	}
}
