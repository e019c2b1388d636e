package room

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/romashorodok/watch-together/pkg/metrics"
	"github.com/romashorodok/watch-together/pkg/protocol"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultHostName  = "Host"
	DefaultGuestName = "Guest"

	roomNotFoundMessage   = "Room not found"
	roomNotCreatedMessage = "Unable to create room"
)

// RoomService applies the room operations. Every mutation of a room, and the
// queueing of the frames it causes, happens under that room's mutex.
type RoomService struct {
	registry    *Registry
	broadcaster *Broadcaster
	logger      *slog.Logger
	metrics     *metrics.Metrics
	queueSize   int
	now         func() time.Time
}

type NewRoomServiceParams struct {
	Registry    *Registry
	Broadcaster *Broadcaster
	Logger      *slog.Logger
	Metrics     *metrics.Metrics
	QueueSize   int
	Now         func() time.Time
}

func NewRoomService(params NewRoomServiceParams) *RoomService {
	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &RoomService{
		registry:    params.Registry,
		broadcaster: params.Broadcaster,
		logger:      logger,
		metrics:     params.Metrics,
		queueSize:   params.QueueSize,
		now:         now,
	}
}

func (s *RoomService) Registry() *Registry { return s.registry }

// NewPeer wraps a transport in a Peer using the service queue settings.
func (s *RoomService) NewPeer(t Transport) *Peer {
	p := NewPeer(NewPeerParams{
		Transport: t,
		Logger:    s.logger,
		QueueSize: s.queueSize,
	})
	s.metrics.PeerConnected()
	return p
}

func displayName(requested, fallback string) string {
	if name := strings.TrimSpace(requested); name != "" {
		return name
	}
	return fallback
}

func (s *RoomService) Create(p *Peer, req *protocol.CreateRequest) (*Room, error) {
	p.name = displayName(req.Username, DefaultHostName)

	room, err := s.registry.CreateRoom(req.VideoRef, p, func(r *Room) {
		_ = s.broadcaster.Reply(p, &protocol.CreatedMessage{
			Type:     protocol.TypeCreated,
			RoomCode: r.code,
			IsLeader: true,
		})
	})
	if err != nil {
		s.logger.Error("room create failed", slog.String("peer", p.ID()), slog.String("err", err.Error()))
		_ = s.broadcaster.Reply(p, &protocol.ErrorMessage{
			Type:    protocol.TypeError,
			Message: roomNotCreatedMessage,
		})
		return nil, err
	}

	s.metrics.RoomEvent("created")
	s.logger.Info("room created", slog.String("room", room.code), slog.String("leader", p.name))
	return room, nil
}

func (s *RoomService) replyRoomNotFound(p *Peer) {
	_ = s.broadcaster.Reply(p, &protocol.ErrorMessage{
		Type:    protocol.TypeError,
		Message: roomNotFoundMessage,
	})
}

func (s *RoomService) Join(p *Peer, req *protocol.JoinRequest) (*Room, error) {
	room, exist := s.registry.Lookup(req.RoomCode)
	if !exist {
		s.replyRoomNotFound(p)
		return nil, ErrRoomNotExist
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	// Lost the race against the last member leaving.
	if room.closed {
		s.replyRoomNotFound(p)
		return nil, ErrRoomNotExist
	}

	p.name = displayName(req.Username, DefaultGuestName)
	room.addMember(p)

	_ = s.broadcaster.Reply(p, &protocol.JoinedMessage{
		Type:          protocol.TypeJoined,
		RoomCode:      room.code,
		IsLeader:      false,
		VideoRef:      room.videoRef,
		PlaybackState: room.playback,
		MemberNames:   room.memberNames(),
	})
	s.broadcaster.Broadcast(room.members, &protocol.NameMessage{
		Type: protocol.TypeUserJoined,
		Name: p.name,
	}, p)

	s.logger.Info("peer joined room", slog.String("room", room.code), slog.String("name", p.name))
	return room, nil
}

// boundRoom resolves the room p belongs to. The caller must lock it.
func (s *RoomService) boundRoom(p *Peer) (*Room, error) {
	code := p.RoomCode()
	if code == "" {
		return nil, ErrNotBound
	}
	room, exist := s.registry.Lookup(code)
	if !exist {
		return nil, ErrRoomNotExist
	}
	return room, nil
}

func (s *RoomService) Sync(p *Peer, req *protocol.SyncRequest) error {
	room, err := s.boundRoom(p)
	if err != nil {
		return err
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if room.closed || room.leader != p {
		return ErrNotLeader
	}

	room.playback = protocol.PlaybackState{
		Playing:     req.Playing,
		CurrentTime: req.CurrentTime,
	}
	s.broadcaster.Broadcast(room.members, &protocol.SyncMessage{
		Type:            protocol.TypeSync,
		Playing:         req.Playing,
		CurrentTime:     req.CurrentTime,
		ServerTimestamp: s.now().UnixMilli(),
	}, p)
	return nil
}

func (s *RoomService) Chat(p *Peer, req *protocol.ChatRequest) error {
	room, err := s.boundRoom(p)
	if err != nil {
		return err
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if room.closed || !room.hasMember(p) {
		return ErrNotBound
	}

	s.broadcaster.Broadcast(room.members, &protocol.ChatMessage{
		Type:    protocol.TypeChat,
		Name:    p.name,
		Message: req.Message,
	}, nil)
	return nil
}

func (s *RoomService) SetVideo(p *Peer, req *protocol.SetVideoRequest) error {
	room, err := s.boundRoom(p)
	if err != nil {
		return err
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if room.closed || room.leader != p {
		return ErrNotLeader
	}

	room.videoRef = req.VideoRef
	room.playback = protocol.PlaybackState{}
	s.broadcaster.Broadcast(room.members, &protocol.VideoChangedMessage{
		Type:     protocol.TypeVideoChanged,
		VideoRef: req.VideoRef,
	}, nil)

	s.logger.Debug("room video changed", slog.String("room", room.code), slog.String("videoRef", req.VideoRef))
	return nil
}

// Leave removes p from its room. A departing leader hands over to the
// earliest remaining member; the last one out tears the room down without
// ever leaving an empty room in the registry.
func (s *RoomService) Leave(p *Peer) {
	code := p.RoomCode()
	if code == "" {
		return
	}
	room, exist := s.registry.Lookup(code)
	if !exist {
		return
	}

	for {
		if s.leaveShared(room, p) {
			return
		}
		removed, ok := s.registry.leaveLast(room, p)
		if !ok {
			// Someone joined between the two locks.
			continue
		}
		if removed {
			s.metrics.RoomEvent("removed")
			s.logger.Info("room removed", slog.String("room", code))
		}
		return
	}
}

// leaveShared handles a departure that leaves members behind. It returns
// false, without touching the room, when p is the last member.
func (s *RoomService) leaveShared(room *Room, p *Peer) bool {
	room.mu.Lock()
	defer room.mu.Unlock()

	if !room.hasMember(p) {
		return true
	}
	if len(room.members) == 1 {
		return false
	}

	room.removeMember(p)
	wasLeader := room.leader == p
	p.isLeader.Store(false)

	if wasLeader {
		next := room.members[0]
		next.isLeader.Store(true)
		room.leader = next
		s.broadcaster.Broadcast(room.members, &protocol.NameMessage{
			Type: protocol.TypeNewLeader,
			Name: next.name,
		}, nil)
		s.logger.Info("room leader promoted", slog.String("room", room.code), slog.String("leader", next.name))
		return true
	}

	s.broadcaster.Broadcast(room.members, &protocol.NameMessage{
		Type: protocol.TypeUserLeft,
		Name: p.name,
	}, nil)
	return true
}

// Disconnect is called once per peer when its transport is gone.
func (s *RoomService) Disconnect(p *Peer) {
	s.Leave(p)
	_ = p.Close()
	s.metrics.PeerDisconnected()
}

// Shutdown closes every peer of every room concurrently. The resulting
// transport closes drive the usual disconnect path. A stalled transport
// never holds Shutdown past ctx.
func (s *RoomService) Shutdown(ctx context.Context) error {
	var g errgroup.Group
	for _, room := range s.registry.List() {
		for _, p := range room.Members() {
			p := p
			g.Go(func() error {
				_ = p.Close()
				return nil
			})
		}
	}

	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.logger.Warn("room shutdown interrupted", slog.String("err", ctx.Err().Error()))
		return ctx.Err()
	}
}
