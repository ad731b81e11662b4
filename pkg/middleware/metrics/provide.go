// pkg/middleware/metrics/provide.go
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
)

func NewPromHttpHandler() http.Handler { return promhttp.Handler() }
func ProvideMetrics() http.Handler     { return NewPromHttpHandler() }

var Module = fx.Options(
	fx.Provide(ProvideMetrics),
)
