package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/pprof"
	"time"

	echo "github.com/labstack/echo/v4"
	"github.com/romashorodok/watch-together/pkg/config"
	"github.com/romashorodok/watch-together/pkg/protocol"
	"go.uber.org/fx"
	"golang.org/x/sync/errgroup"
)

type httpServer_Params struct {
	fx.In
	Lifecycle  fx.Lifecycle
	Shutdowner fx.Shutdowner

	Controllers []protocol.HttpResolvable `group:"http.controller"`
	Config      *config.Config
	Logger      *slog.Logger
}

func httpErrorHandler(e *echo.Echo, logger *slog.Logger) func(err error, c echo.Context) {
	return func(err error, c echo.Context) {
		logger.Error(err.Error(),
			slog.String("method", c.Request().Method),
			slog.String("path", c.Request().URL.Path),
			slog.String("remote", c.Request().RemoteAddr),
		)
		e.DefaultHTTPErrorHandler(err, c)
	}
}

func NewRouter(controllers []protocol.HttpResolvable, logger *slog.Logger) (*echo.Echo, error) {
	router := echo.New()
	router.HideBanner = true
	router.HidePort = true
	router.HTTPErrorHandler = httpErrorHandler(router, logger)

	for _, controller := range controllers {
		if err := controller.Resolve(router); err != nil {
			return nil, fmt.Errorf("resolve http controller %T: %w", controller, err)
		}
	}
	return router, nil
}

func profilingServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func ignoreClosed(err error) error {
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func httpServer(params httpServer_Params) error {
	router, err := NewRouter(params.Controllers, params.Logger)
	if err != nil {
		return err
	}

	var profiling *http.Server
	if addr := params.Config.Monitoring.ProfilingAddress; addr != "" {
		profiling = profilingServer(addr)
	}

	var g errgroup.Group
	serve := func(name, addr string, listen func() error) {
		g.Go(func() error {
			params.Logger.Info(name+" server listening", slog.String("addr", addr))
			if err := ignoreClosed(listen()); err != nil {
				params.Logger.Error(name+" server crashed", slog.String("err", err.Error()))
				_ = params.Shutdowner.Shutdown()
				return err
			}
			return nil
		})
	}

	params.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			addr := params.Config.HTTP.Address
			serve("http", addr, func() error { return router.Start(addr) })
			if profiling != nil {
				serve("profiling", profiling.Addr, profiling.ListenAndServe)
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			err := router.Shutdown(ctx)
			if profiling != nil {
				err = errors.Join(err, profiling.Shutdown(ctx))
			}
			return errors.Join(err, g.Wait())
		},
	})
	return nil
}

var HttpModule = fx.Module("http", fx.Invoke(httpServer))
