package service

import (
	"github.com/romashorodok/watch-together/pkg/config"
	"go.uber.org/fx"
)

// ConfigPath is the optional config file location given on the command line.
type ConfigPath string

func loadConfig(path ConfigPath) (*config.Config, error) {
	return config.Load(string(path))
}

var ConfigModule = fx.Module("config", fx.Provide(
	loadConfig,
))
