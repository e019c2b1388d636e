package config

import (
	"path/filepath"

	"github.com/kkyr/fig"
)

const EnvPrefix = "WATCH_TOGETHER"

type Config struct {
	Env        string     `fig:"env" default:"dev"`
	HTTP       HTTP       `fig:"http"`
	Room       Room       `fig:"room"`
	Webrtc     Webrtc     `fig:"webrtc"`
	Monitoring Monitoring `fig:"monitoring"`
	Log        Log        `fig:"log"`
}

type HTTP struct {
	Address string `fig:"address" default:":3333"`
}

type Room struct {
	CodeAttempts      int    `fig:"codeAttempts" default:"64"`
	SendQueue         int    `fig:"sendQueue" default:"64"`
	ParallelThreshold uint64 `fig:"parallelThreshold" default:"1024"`
}

// fig fills every zero value from its default tag, so switches are opt-out.
type Webrtc struct {
	Disabled bool `fig:"disabled"`
	// UDPPort multiplexes every ICE connection over one port when set.
	UDPPort  int    `fig:"udpPort"`
	PublicIP string `fig:"publicIP"`
}

type Monitoring struct {
	DisableMetrics bool `fig:"disableMetrics"`
	// ProfilingAddress serves net/http/pprof when not empty, e.g. localhost:6060.
	ProfilingAddress string `fig:"profilingAddress"`
}

type Log struct {
	Level  string `fig:"level" default:"info"`
	Format string `fig:"format" default:"text"`
}

func (c *Config) IsProduction() bool { return c.Env == "prod" }

// Load reads the config file at path, if any, and overlays environment
// variables prefixed with WATCH_TOGETHER_, e.g. WATCH_TOGETHER_HTTP_ADDRESS.
func Load(path string) (*Config, error) {
	var cfg Config
	if path == "" {
		if err := fig.Load(&cfg, fig.IgnoreFile(), fig.UseEnv(EnvPrefix)); err != nil {
			return nil, err
		}
		return &cfg, nil
	}

	err := fig.Load(&cfg,
		fig.File(filepath.Base(path)),
		fig.Dirs(filepath.Dir(path)),
		fig.UseEnv(EnvPrefix),
	)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}
