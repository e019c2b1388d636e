package peercontext

import (
	"context"
	"errors"
	"log/slog"

	webrtc "github.com/pion/webrtc/v4"
)

var ErrDataChannelClosed = errors.New("data channel closed")

// PeerContext owns one server side peer connection whose only purpose is to
// accept data channels opened by the remote side.
type PeerContext struct {
	api            *webrtc.API
	logger         *slog.Logger
	peerConnection *webrtc.PeerConnection
	peerID         string

	ctx    context.Context
	cancel context.CancelCauseFunc
}

func (p *PeerContext) ID() string { return p.peerID }

func (p *PeerContext) Done() <-chan struct{} { return p.ctx.Done() }

func (p *PeerContext) Err() error { return context.Cause(p.ctx) }

// OnDataChannel calls fn for every data channel the remote peer announces.
// fn runs before the channel opens, so handlers it registers see every message.
func (p *PeerContext) OnDataChannel(fn func(dc *webrtc.DataChannel, logger *slog.Logger)) {
	p.peerConnection.OnDataChannel(func(dc *webrtc.DataChannel) {
		var id int
		if dc.ID() != nil {
			id = int(*dc.ID())
		}
		logger := p.logger.With(
			slog.Group("data_channel",
				slog.Int("id", id),
				slog.String("label", dc.Label()),
			),
		)
		logger.Debug("data channel announced")

		dc.OnOpen(func() {
			logger.Debug("data channel open")
		})
		fn(dc, logger)
	})
}

// OnClosed cancels the context once ICE fails or the connection closes.
func (p *PeerContext) OnClosed() {
	p.peerConnection.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		p.logger.Debug("peer connection state", slog.String("state", state.String()))
		switch state {
		case webrtc.PeerConnectionStateFailed, webrtc.PeerConnectionStateClosed:
			p.Cancel(ErrDataChannelClosed)
		}
	})
}

// The offer must contain at least 1 ice-ufrag and an application section.
// pion error: `webrtc.ErrSessionDescriptionMissingIceUfrag`
//
// m=application 9 UDP/DTLS/SCTP webrtc-datachannel
// ...
// a=ice-ufrag:pWPIeSRyibdzXpco
func (p *PeerContext) SetRemoteSessionDescriptor(offer string) error {
	return p.peerConnection.SetRemoteDescription(
		webrtc.SessionDescription{
			Type: webrtc.SDPTypeOffer,
			SDP:  offer,
		},
	)
}

func (p *PeerContext) GenerateSDPAnswer(ctx context.Context) (string, error) {
	answerSessionDescriptor, err := p.peerConnection.CreateAnswer(&webrtc.AnswerOptions{})
	if err != nil {
		return "", err
	}

	gatherComplete := webrtc.GatheringCompletePromise(p.peerConnection)
	if err := p.peerConnection.SetLocalDescription(answerSessionDescriptor); err != nil {
		return "", err
	}

	// Without gathered candidates the answer is useless to a non-trickle client.
	select {
	case <-gatherComplete:
	case <-ctx.Done():
		return "", ctx.Err()
	}

	return p.peerConnection.LocalDescription().SDP, nil
}

func (p *PeerContext) Cancel(reason error) {
	if err := p.peerConnection.Close(); err != nil {
		p.logger.Debug("peer connection close", slog.String("err", err.Error()))
	}
	p.cancel(reason)
}

type NewPeerContext_Params struct {
	API           *webrtc.API
	Logger        *slog.Logger
	ParentContext context.Context
	PeerID        string
}

func NewPeerContext(params NewPeerContext_Params) (*PeerContext, error) {
	ctx, cancel := context.WithCancelCause(params.ParentContext)

	peerConnection, err := params.API.NewPeerConnection(webrtc.Configuration{})
	if err != nil {
		cancel(err)
		return nil, err
	}

	return &PeerContext{
		peerConnection: peerConnection,
		api:            params.API,
		logger:         params.Logger.With(slog.String("peer_connection", params.PeerID)),
		peerID:         params.PeerID,
		ctx:            ctx,
		cancel:         cancel,
	}, nil
}
