package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/romashorodok/watch-together/internal/ingress"
	"github.com/romashorodok/watch-together/internal/room"
	"github.com/romashorodok/watch-together/pkg/protocol"
	"github.com/romashorodok/watch-together/pkg/service"
	"github.com/spf13/pflag"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
)

func main() {
	// Local .env for development, real environment wins.
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded .env")
	}

	configPath := pflag.StringP("config", "c", "", "path to a yaml, json or toml config file")
	verboseFx := pflag.Bool("fx-verbose", false, "print dependency injection events")
	pflag.Parse()

	fx.New(appOptions(*configPath, *verboseFx)...).Run()
}

func appOptions(configPath string, verboseFx bool) []fx.Option {
	options := []fx.Option{
		fx.Supply(service.ConfigPath(configPath)),

		service.ConfigModule,
		service.LoggerModule,
		service.MetricsModule,
		service.WebrtcModule,

		room.Module,
		fx.Provide(
			protocol.AsHttpController(ingress.NewDataChannelController),
		),

		service.HttpModule,
	}
	if !verboseFx {
		options = append(options, fx.WithLogger(func() fxevent.Logger { return fxevent.NopLogger }))
	}
	return options
}
