package room

import (
	"log/slog"

	"github.com/romashorodok/watch-together/pkg/config"
	"github.com/romashorodok/watch-together/pkg/metrics"
	"github.com/romashorodok/watch-together/pkg/protocol"
	"go.uber.org/fx"
)

type roomService_Params struct {
	fx.In
	Lifecycle fx.Lifecycle

	Config  *config.Config
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

func roomService(params roomService_Params) *RoomService {
	cfg := params.Config.Room

	registry := NewRegistry(WithCodeAttempts(cfg.CodeAttempts))
	params.Metrics.RoomCount(registry.Len)

	service := NewRoomService(NewRoomServiceParams{
		Registry: registry,
		Broadcaster: NewBroadcaster(NewBroadcasterParams{
			Logger:            params.Logger,
			Metrics:           params.Metrics,
			ParallelThreshold: cfg.ParallelThreshold,
		}),
		Logger:    params.Logger,
		Metrics:   params.Metrics,
		QueueSize: cfg.SendQueue,
	})

	params.Lifecycle.Append(fx.Hook{OnStop: service.Shutdown})
	return service
}

var Module = fx.Module("room", fx.Provide(
	roomService,
	protocol.AsHttpController(NewRoomController),
))
