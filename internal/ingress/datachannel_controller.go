package ingress

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	echo "github.com/labstack/echo/v4"
	webrtc "github.com/pion/webrtc/v4"
	"github.com/romashorodok/watch-together/internal/room"
	"github.com/romashorodok/watch-together/pkg/config"
	"github.com/romashorodok/watch-together/pkg/peercontext"
	"github.com/romashorodok/watch-together/pkg/protocol"
	"go.uber.org/fx"
)

const (
	SDP_TYPE_OFFER  = "offer"
	SDP_TYPE_ANSWER = "answer"

	iceGatheringTimeout = 10 * time.Second
)

var ErrControllerStopped = errors.New("data channel controller stopped")

type SdpDescription struct {
	Type string `json:"type"`
	Sdp  string `json:"sdp"`
}

// dataChannelTransport frames each protocol message as one text message.
type dataChannelTransport struct {
	dc *webrtc.DataChannel
}

func (t *dataChannelTransport) Write(data []byte) error {
	return t.dc.SendText(string(data))
}

func (t *dataChannelTransport) Close() error {
	return t.dc.Close()
}

var _ room.Transport = (*dataChannelTransport)(nil)

type dataChannelController struct {
	enabled     bool
	logger      *slog.Logger
	webrtc      *webrtc.API
	roomService *room.RoomService

	ctx    context.Context
	cancel context.CancelCauseFunc
}

func (ctrl *dataChannelController) serveDataChannel(peerCtx *peercontext.PeerContext) func(*webrtc.DataChannel, *slog.Logger) {
	return func(dc *webrtc.DataChannel, logger *slog.Logger) {
		peer := ctrl.roomService.NewPeer(&dataChannelTransport{dc: dc})
		session := ctrl.roomService.NewSession(peer)

		dc.OnMessage(func(msg webrtc.DataChannelMessage) {
			if !msg.IsString {
				return
			}
			if err := session.Handle(msg.Data); err != nil {
				logger.Debug("message dropped", slog.String("err", err.Error()))
			}
		})

		dc.OnClose(func() {
			session.Close()
			peerCtx.Cancel(peercontext.ErrDataChannelClosed)
		})

		go func() {
			<-peerCtx.Done()
			session.Close()
		}()
	}
}

func (ctrl *dataChannelController) DataChannelOffer(c echo.Context) error {
	var offer SdpDescription
	if err := c.Bind(&offer); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "bad request")
	}
	if offer.Type != SDP_TYPE_OFFER || offer.Sdp == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "expected sdp offer")
	}

	select {
	case <-ctrl.ctx.Done():
		return echo.NewHTTPError(http.StatusServiceUnavailable, ErrControllerStopped.Error())
	default:
	}

	peerCtx, err := peercontext.NewPeerContext(peercontext.NewPeerContext_Params{
		API:           ctrl.webrtc,
		Logger:        ctrl.logger,
		ParentContext: ctrl.ctx,
		PeerID:        uuid.NewString(),
	})
	if err != nil {
		return err
	}

	peerCtx.OnClosed()
	peerCtx.OnDataChannel(ctrl.serveDataChannel(peerCtx))

	if err := peerCtx.SetRemoteSessionDescriptor(offer.Sdp); err != nil {
		peerCtx.Cancel(err)
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), iceGatheringTimeout)
	defer cancel()

	answer, err := peerCtx.GenerateSDPAnswer(ctx)
	if err != nil {
		peerCtx.Cancel(err)
		return err
	}

	// Tear the connection down with the server.
	go func() {
		select {
		case <-ctrl.ctx.Done():
			peerCtx.Cancel(context.Cause(ctrl.ctx))
		case <-peerCtx.Done():
		}
	}()

	return c.JSON(http.StatusOK, &SdpDescription{
		Type: SDP_TYPE_ANSWER,
		Sdp:  answer,
	})
}

func (ctrl *dataChannelController) Resolve(router protocol.HttpRouter) error {
	if !ctrl.enabled {
		ctrl.logger.Info("webrtc data channel transport disabled")
		return nil
	}
	router.POST("/webrtc/offer", ctrl.DataChannelOffer)
	return nil
}

var _ protocol.HttpResolvable = (*dataChannelController)(nil)

type newDataChannelController_Params struct {
	fx.In
	Lifecycle fx.Lifecycle

	Config      *config.Config
	API         *webrtc.API
	Logger      *slog.Logger
	RoomService *room.RoomService
}

func NewDataChannelController(params newDataChannelController_Params) *dataChannelController {
	ctx, cancel := context.WithCancelCause(context.Background())
	params.Lifecycle.Append(fx.Hook{
		OnStop: func(context.Context) error {
			cancel(ErrControllerStopped)
			return nil
		},
	})

	return &dataChannelController{
		enabled:     !params.Config.Webrtc.Disabled,
		logger:      params.Logger,
		webrtc:      params.API,
		roomService: params.RoomService,
		ctx:         ctx,
		cancel:      cancel,
	}
}
