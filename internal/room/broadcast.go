package room

import (
	"errors"
	"log/slog"

	"github.com/romashorodok/watch-together/pkg/executils"
	"github.com/romashorodok/watch-together/pkg/metrics"
	"github.com/romashorodok/watch-together/pkg/protocol"
	"go.uber.org/atomic"
)

const (
	DefaultParallelThreshold = 1024
	parallelStep             = 64
)

// Broadcaster fans encoded frames out to peers. Delivery is a non-blocking
// enqueue per recipient, so a slow or dead peer never holds up the others.
type Broadcaster struct {
	logger            *slog.Logger
	metrics           *metrics.Metrics
	parallelThreshold uint64
}

type NewBroadcasterParams struct {
	Logger            *slog.Logger
	Metrics           *metrics.Metrics
	ParallelThreshold uint64
}

func NewBroadcaster(params NewBroadcasterParams) *Broadcaster {
	threshold := params.ParallelThreshold
	if threshold == 0 {
		threshold = DefaultParallelThreshold
	}
	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{
		logger:            logger,
		metrics:           params.Metrics,
		parallelThreshold: threshold,
	}
}

// Broadcast encodes msg once and queues it on every member except exclude.
// It returns the number of peers the frame was queued for.
func (b *Broadcaster) Broadcast(members []*Peer, msg any, exclude *Peer) int {
	data, err := protocol.Encode(msg)
	if err != nil {
		b.logger.Error("unable encode broadcast message", slog.String("err", err.Error()))
		return 0
	}

	var sent, dropped, closed atomic.Int64
	executils.ParallelExec(members, b.parallelThreshold, parallelStep, func(p *Peer) {
		if p == exclude {
			return
		}
		switch err := p.Send(data); {
		case err == nil:
			sent.Inc()
		case errors.Is(err, ErrPeerClosed):
			closed.Inc()
		default:
			dropped.Inc()
			b.logger.Warn("broadcast frame dropped", slog.String("peer", p.ID()), slog.String("err", err.Error()))
		}
	})

	b.metrics.Delivery(metrics.DeliverySent, int(sent.Load()))
	b.metrics.Delivery(metrics.DeliveryDropped, int(dropped.Load()))
	b.metrics.Delivery(metrics.DeliveryClosed, int(closed.Load()))
	return int(sent.Load())
}

// Reply queues msg for a single peer.
func (b *Broadcaster) Reply(p *Peer, msg any) error {
	data, err := protocol.Encode(msg)
	if err != nil {
		return err
	}
	if err := p.Send(data); err != nil {
		if errors.Is(err, ErrPeerClosed) {
			b.metrics.Delivery(metrics.DeliveryClosed, 1)
		} else {
			b.metrics.Delivery(metrics.DeliveryDropped, 1)
		}
		return err
	}
	b.metrics.Delivery(metrics.DeliverySent, 1)
	return nil
}
