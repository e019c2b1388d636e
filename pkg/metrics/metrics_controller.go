package metrics

import (
	echo "github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/romashorodok/watch-together/pkg/protocol"
	"go.uber.org/fx"
)

type metricsController struct {
	metrics *Metrics
}

func (ctrl *metricsController) Resolve(router protocol.HttpRouter) error {
	router.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(ctrl.metrics.Registry, promhttp.HandlerOpts{})))
	return nil
}

var _ protocol.HttpResolvable = (*metricsController)(nil)

type NewMetricsControllerParams struct {
	fx.In

	Metrics *Metrics
}

func NewMetricsController(params NewMetricsControllerParams) *metricsController {
	return &metricsController{metrics: params.Metrics}
}
