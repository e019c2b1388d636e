package room

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/romashorodok/watch-together/pkg/protocol"
	"go.uber.org/atomic"
)

const DefaultSendQueueSize = 64

// Transport is the framed, ordered connection a Peer writes to. Write may
// block on network I/O, it is only ever called from the peer writer goroutine.
type Transport interface {
	Write(data []byte) error
	Close() error
}

// Peer is the server side handle of one client connection.
type Peer struct {
	id        string
	transport Transport
	logger    *slog.Logger

	// name is assigned once, before the peer becomes reachable from a room.
	name     string
	roomCode *atomic.String
	isLeader *atomic.Bool

	send      chan []byte
	stop      chan struct{}
	done      chan struct{}
	closed    *atomic.Bool
	closeOnce sync.Once
}

type NewPeerParams struct {
	Transport Transport
	Logger    *slog.Logger
	QueueSize int
}

func NewPeer(params NewPeerParams) *Peer {
	size := params.QueueSize
	if size <= 0 {
		size = DefaultSendQueueSize
	}
	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}

	id := uuid.NewString()
	p := &Peer{
		id:        id,
		transport: params.Transport,
		logger:    logger.With(slog.String("peer", id)),
		roomCode:  atomic.NewString(""),
		isLeader:  atomic.NewBool(false),
		send:      make(chan []byte, size),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
		closed:    atomic.NewBool(false),
	}
	go p.writer()
	return p
}

func (p *Peer) ID() string { return p.id }

func (p *Peer) Name() string { return p.name }

func (p *Peer) RoomCode() protocol.RoomCode { return p.roomCode.Load() }

func (p *Peer) IsLeader() bool { return p.isLeader.Load() }

// Open reports whether the transport still accepts frames.
func (p *Peer) Open() bool { return !p.closed.Load() }

// Done is closed once the writer goroutine has exited.
func (p *Peer) Done() <-chan struct{} { return p.done }

// Send queues an encoded frame without blocking. A full queue drops the frame.
func (p *Peer) Send(data []byte) error {
	if p.closed.Load() {
		return ErrPeerClosed
	}
	select {
	case p.send <- data:
		return nil
	default:
		return ErrQueueFull
	}
}

func (p *Peer) Close() error {
	var err error
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		close(p.stop)
		err = p.transport.Close()
	})
	return err
}

func (p *Peer) writer() {
	defer close(p.done)
	for {
		select {
		case <-p.stop:
			return
		case data := <-p.send:
			if err := p.transport.Write(data); err != nil {
				p.logger.Debug("peer write failed, closing transport", slog.String("err", err.Error()))
				_ = p.Close()
				return
			}
		}
	}
}
