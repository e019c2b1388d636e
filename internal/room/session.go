package room

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/romashorodok/watch-together/pkg/protocol"
)

type sessionState int

const (
	stateUnbound sessionState = iota
	stateBound
	stateClosed
)

// Session drives one connection through Unbound -> Bound. Handle and Close
// are serialized; transports call them from their read loop.
type Session struct {
	mu      sync.Mutex
	peer    *Peer
	service *RoomService
	logger  *slog.Logger
	state   sessionState
}

func (s *RoomService) NewSession(p *Peer) *Session {
	return &Session{
		peer:    p,
		service: s,
		logger:  p.logger,
		state:   stateUnbound,
	}
}

func (s *Session) Peer() *Peer { return s.peer }

func (s *Session) Bound() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == stateBound
}

// Handle decodes one inbound frame and applies it. The returned error is
// informational only; rejected frames never produce a reply except for a
// join to an unknown room.
func (s *Session) Handle(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, err := protocol.Decode(data)
	if err != nil {
		s.service.metrics.Inbound(inboundKind(msg.Type), "malformed")
		return err
	}

	err = s.dispatch(msg)
	switch {
	case err == nil:
		s.service.metrics.Inbound(msg.Type, "ok")
	default:
		s.service.metrics.Inbound(msg.Type, "rejected")
	}
	return err
}

func inboundKind(kind string) string {
	switch kind {
	case protocol.TypeCreate, protocol.TypeJoin, protocol.TypeSync, protocol.TypeChat, protocol.TypeSetVideo:
		return kind
	}
	return "unknown"
}

func (s *Session) dispatch(msg protocol.Inbound) error {
	switch s.state {
	case stateClosed:
		return ErrPeerClosed
	case stateUnbound:
		switch req := msg.Payload.(type) {
		case *protocol.CreateRequest:
			if _, err := s.service.Create(s.peer, req); err != nil {
				return err
			}
			s.state = stateBound
			return nil
		case *protocol.JoinRequest:
			if _, err := s.service.Join(s.peer, req); err != nil {
				return err
			}
			s.state = stateBound
			return nil
		}
		return fmt.Errorf("%w: %s", ErrNotBound, msg.Type)
	}

	switch req := msg.Payload.(type) {
	case *protocol.SyncRequest:
		return s.service.Sync(s.peer, req)
	case *protocol.ChatRequest:
		return s.service.Chat(s.peer, req)
	case *protocol.SetVideoRequest:
		return s.service.SetVideo(s.peer, req)
	case *protocol.CreateRequest, *protocol.JoinRequest:
		return fmt.Errorf("%w: %s", ErrAlreadyBound, msg.Type)
	}
	return errors.Join(protocol.ErrUnknownType, fmt.Errorf("type %q", msg.Type))
}

// Close runs disconnect handling once.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == stateClosed {
		return
	}
	s.state = stateClosed
	s.service.Disconnect(s.peer)
	s.logger.Debug("session closed")
}
