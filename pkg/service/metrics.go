package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/romashorodok/watch-together/pkg/config"
	"github.com/romashorodok/watch-together/pkg/metrics"
	"github.com/romashorodok/watch-together/pkg/protocol"
	"go.uber.org/fx"
)

func metricsRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return reg
}

type metricsControllers_Params struct {
	fx.In

	Config  *config.Config
	Metrics *metrics.Metrics
}

type metricsControllers_Result struct {
	fx.Out

	Controllers []protocol.HttpResolvable `group:"http.controller,flatten"`
}

// Metrics are always collected; the /metrics route exists only when enabled.
func metricsControllers(params metricsControllers_Params) metricsControllers_Result {
	if params.Config.Monitoring.DisableMetrics {
		return metricsControllers_Result{}
	}
	return metricsControllers_Result{
		Controllers: []protocol.HttpResolvable{
			metrics.NewMetricsController(metrics.NewMetricsControllerParams{Metrics: params.Metrics}),
		},
	}
}

var MetricsModule = fx.Module("metrics", fx.Provide(
	metricsRegistry,
	metrics.New,
	metricsControllers,
))
