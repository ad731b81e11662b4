// bundlefx/bundlefx.go
package bundlefx

import (
	"github.com/vytenisu/api-mount-server/pkg/middleware/logger"
	"github.com/vytenisu/api-mount-server/pkg/middleware/metrics"
	"go.uber.org/fx"
)

// Module provided to fx
var Module = fx.Options(
	logger.Module,
	metrics.Module,
)
