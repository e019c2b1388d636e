package ingress

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	echo "github.com/labstack/echo/v4"
	webrtc "github.com/pion/webrtc/v4"
	"github.com/romashorodok/watch-together/internal/room"
	"github.com/romashorodok/watch-together/pkg/config"
	"github.com/romashorodok/watch-together/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
)

func newTestRouter(t *testing.T, cfg *config.Config) (*echo.Echo, *room.RoomService) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := room.NewRoomService(room.NewRoomServiceParams{
		Registry:    room.NewRegistry(),
		Broadcaster: room.NewBroadcaster(room.NewBroadcasterParams{Logger: logger}),
		Logger:      logger,
	})

	lc := fxtest.NewLifecycle(t)
	ctrl := NewDataChannelController(newDataChannelController_Params{
		Lifecycle:   lc,
		Config:      cfg,
		API:         webrtc.NewAPI(),
		Logger:      logger,
		RoomService: service,
	})
	lc.RequireStart()
	t.Cleanup(lc.RequireStop)

	router := echo.New()
	require.NoError(t, ctrl.Resolve(router))
	return router, service
}

func postOffer(router *echo.Echo, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webrtc/offer", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestDataChannelOfferDisabled(t *testing.T) {
	router, _ := newTestRouter(t, &config.Config{Webrtc: config.Webrtc{Disabled: true}})

	rec := postOffer(router, `{"type":"offer","sdp":"v=0"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDataChannelOfferRejectsBadInput(t *testing.T) {
	router, _ := newTestRouter(t, &config.Config{})

	for _, body := range []string{
		`not json`,
		`{"type":"answer","sdp":"v=0"}`,
		`{"type":"offer"}`,
		`{"type":"offer","sdp":"garbage"}`,
	} {
		rec := postOffer(router, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func newClientOffer(t *testing.T) (*webrtc.PeerConnection, *webrtc.DataChannel, string) {
	t.Helper()

	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pc.Close() })

	dc, err := pc.CreateDataChannel("watch-together", nil)
	require.NoError(t, err)

	offer, err := pc.CreateOffer(nil)
	require.NoError(t, err)
	gathered := webrtc.GatheringCompletePromise(pc)
	require.NoError(t, pc.SetLocalDescription(offer))

	select {
	case <-gathered:
	case <-time.After(10 * time.Second):
		t.Fatal("client ice gathering timed out")
	}
	return pc, dc, pc.LocalDescription().SDP
}

func TestDataChannelSession(t *testing.T) {
	router, service := newTestRouter(t, &config.Config{})
	pc, dc, sdp := newClientOffer(t)

	body, err := json.Marshal(&SdpDescription{Type: SDP_TYPE_OFFER, Sdp: sdp})
	require.NoError(t, err)

	rec := postOffer(router, string(body))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var answer SdpDescription
	require.NoError(t, json.NewDecoder(bytes.NewReader(rec.Body.Bytes())).Decode(&answer))
	assert.Equal(t, SDP_TYPE_ANSWER, answer.Type)
	assert.Contains(t, answer.Sdp, "webrtc-datachannel")

	frames := make(chan string, 8)
	opened := make(chan error, 1)
	// The first frame leaves the moment the channel opens; the server must
	// already be listening.
	dc.OnOpen(func() { opened <- dc.SendText(`{"type":"create","username":"Remote"}`) })
	dc.OnMessage(func(msg webrtc.DataChannelMessage) { frames <- string(msg.Data) })

	require.NoError(t, pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.SDPTypeAnswer,
		SDP:  answer.Sdp,
	}))

	select {
	case err := <-opened:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Skip("no ice connectivity between local peers")
	}

	select {
	case frame := <-frames:
		var created protocol.CreatedMessage
		require.NoError(t, json.Unmarshal([]byte(frame), &created))
		assert.Equal(t, protocol.TypeCreated, created.Type)
		assert.True(t, created.IsLeader)
		assert.True(t, room.ValidCode(created.RoomCode))
	case <-time.After(5 * time.Second):
		t.Fatal("no created reply over the data channel")
	}
	assert.Equal(t, 1, service.Registry().Len())

	require.NoError(t, pc.Close())
	require.Eventually(t, func() bool { return service.Registry().Len() == 0 }, 30*time.Second, 50*time.Millisecond)
}
