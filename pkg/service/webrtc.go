package service

import (
	"log/slog"

	ice "github.com/pion/ice/v3"
	"github.com/pion/interceptor"
	webrtc "github.com/pion/webrtc/v4"
	"github.com/romashorodok/watch-together/pkg/config"
	"go.uber.org/fx"
)

type webrtcAPI_Params struct {
	fx.In

	Config *config.Config
	Logger *slog.Logger
}

// Only data channels are negotiated, but the default codecs and interceptors
// keep offers from stock browsers acceptable.
func webrtcAPI(params webrtcAPI_Params) (*webrtc.API, error) {
	cfg := params.Config.Webrtc

	mediaEngine := &webrtc.MediaEngine{}
	if err := mediaEngine.RegisterDefaultCodecs(); err != nil {
		return nil, err
	}

	settings := webrtc.SettingEngine{}
	settings.SetNetworkTypes([]webrtc.NetworkType{
		webrtc.NetworkTypeUDP4,
	})

	if cfg.UDPPort > 0 && !cfg.Disabled {
		udpMux, err := ice.NewMultiUDPMuxFromPort(cfg.UDPPort)
		if err != nil {
			return nil, err
		}
		settings.SetICEUDPMux(udpMux)
		params.Logger.Info("webrtc udp mux", slog.Int("port", cfg.UDPPort))
	}

	if cfg.PublicIP != "" {
		settings.SetNAT1To1IPs([]string{cfg.PublicIP}, webrtc.ICECandidateTypeHost)
	}

	interceptorRegistry := &interceptor.Registry{}
	if err := webrtc.RegisterDefaultInterceptors(mediaEngine, interceptorRegistry); err != nil {
		return nil, err
	}

	return webrtc.NewAPI(
		webrtc.WithMediaEngine(mediaEngine),
		webrtc.WithSettingEngine(settings),
		webrtc.WithInterceptorRegistry(interceptorRegistry),
	), nil
}

var WebrtcModule = fx.Module("webrtc", fx.Provide(
	webrtcAPI,
))
