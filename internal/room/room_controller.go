package room

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	echo "github.com/labstack/echo/v4"
	"github.com/romashorodok/watch-together/pkg/protocol"
	"github.com/romashorodok/watch-together/pkg/wsutils"
	"github.com/romashorodok/watch-together/web"
	"go.uber.org/fx"
)

type HealthResponse struct {
	Status string `json:"status"`
	Rooms  int    `json:"rooms"`
}

type roomController struct {
	roomService *RoomService
	upgrader    websocket.Upgrader
	logger      *slog.Logger
}

func (ctrl *roomController) RoomControllerIndex(ctx echo.Context) error {
	return ctx.HTMLBlob(http.StatusOK, web.Index)
}

func (ctrl *roomController) RoomControllerHealth(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, &HealthResponse{
		Status: "ok",
		Rooms:  ctrl.roomService.Registry().Len(),
	})
}

// RoomControllerSession upgrades to a websocket and runs one Session on it
// until the client goes away.
func (ctrl *roomController) RoomControllerSession(ctx echo.Context) error {
	conn, err := ctrl.upgrader.Upgrade(ctx.Response().Writer, ctx.Request(), nil)
	if err != nil {
		ctrl.logger.Error("unable upgrade request", slog.String("remote", ctx.Request().RemoteAddr), slog.String("err", err.Error()))
		return nil
	}

	w := wsutils.NewThreadSafeWriter(conn)
	w.KeepAlive()

	peer := ctrl.roomService.NewPeer(w)
	session := ctrl.roomService.NewSession(peer)
	defer session.Close()

	logger := peer.logger.With(slog.String("remote", conn.RemoteAddr().String()))
	logger.Debug("websocket connected")

	for {
		data, err := w.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) &&
				!errors.Is(err, websocket.ErrCloseSent) {
				logger.Debug("websocket read failed", slog.String("err", err.Error()))
			}
			return nil
		}

		if err := session.Handle(data); err != nil {
			logger.Debug("message dropped", slog.String("err", err.Error()))
		}
	}
}

func (ctrl *roomController) Resolve(c protocol.HttpRouter) error {
	c.GET("/", ctrl.RoomControllerIndex)
	c.GET("/index.html", ctrl.RoomControllerIndex)
	c.GET("/health", ctrl.RoomControllerHealth)
	c.GET("/ws", ctrl.RoomControllerSession)
	return nil
}

var _ protocol.HttpResolvable = (*roomController)(nil)

type newRoomController_Params struct {
	fx.In

	RoomService *RoomService
	Logger      *slog.Logger
}

func NewRoomController(params newRoomController_Params) *roomController {
	return &roomController{
		roomService: params.RoomService,
		logger:      params.Logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}
