package room

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"github.com/romashorodok/watch-together/pkg/protocol"
)

const (
	RoomCodeLength          = 4
	DefaultRoomCodeAttempts = 64
)

type CodeGenerator func() (protocol.RoomCode, error)

// RandomCode returns 2 random bytes as 4 uppercase hex characters.
func RandomCode() (protocol.RoomCode, error) {
	buf := make([]byte, RoomCodeLength/2)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(buf)), nil
}

func NormalizeCode(code string) protocol.RoomCode {
	return strings.ToUpper(strings.TrimSpace(code))
}

func ValidCode(code protocol.RoomCode) bool {
	if len(code) != RoomCodeLength {
		return false
	}
	for _, c := range code {
		if !('0' <= c && c <= '9' || 'A' <= c && c <= 'F') {
			return false
		}
	}
	return true
}

// Registry owns every live Room, keyed by code.
type Registry struct {
	mu       sync.RWMutex
	rooms    map[protocol.RoomCode]*Room
	generate CodeGenerator
	attempts int
}

type RegistryOption func(*Registry)

func WithCodeGenerator(gen CodeGenerator) RegistryOption {
	return func(r *Registry) { r.generate = gen }
}

func WithCodeAttempts(n int) RegistryOption {
	return func(r *Registry) {
		if n > 0 {
			r.attempts = n
		}
	}
}

func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		rooms:    make(map[protocol.RoomCode]*Room),
		generate: RandomCode,
		attempts: DefaultRoomCodeAttempts,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CreateRoom seats leader in a new room under a fresh code. seated runs
// before the room becomes reachable through Lookup, so anything it queues
// for the leader precedes every event other peers can cause.
func (r *Registry) CreateRoom(videoRef string, leader *Peer, seated func(*Room)) (*Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for attempt := 0; attempt < r.attempts; attempt++ {
		code, err := r.generate()
		if err != nil {
			return nil, fmt.Errorf("generate room code: %w", err)
		}
		code = NormalizeCode(code)
		if !ValidCode(code) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidRoomCode, code)
		}
		if _, exist := r.rooms[code]; exist {
			continue
		}

		room := newRoom(code, videoRef, leader)
		if seated != nil {
			seated(room)
		}
		r.rooms[code] = room
		return room, nil
	}
	return nil, ErrCodeSpaceExhausted
}

func (r *Registry) Lookup(code string) (*Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, exist := r.rooms[NormalizeCode(code)]
	return room, exist
}

// RemoveIfEmpty deletes the room under code if it has no members.
func (r *Registry) RemoveIfEmpty(code string) bool {
	code = NormalizeCode(code)

	r.mu.Lock()
	defer r.mu.Unlock()

	room, exist := r.rooms[code]
	if !exist {
		return false
	}

	room.mu.Lock()
	empty := len(room.members) == 0
	if empty {
		room.closed = true
	}
	room.mu.Unlock()

	if empty {
		delete(r.rooms, code)
	}
	return empty
}

// leaveLast removes p when it is the sole member of room and deletes the
// room in the same critical section. ok is false when other members are
// present, the caller then handles the departure under the room lock alone.
func (r *Registry) leaveLast(room *Room, p *Peer) (removed bool, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room.mu.Lock()
	switch {
	case !room.hasMember(p):
		room.mu.Unlock()
		return false, true
	case len(room.members) > 1:
		room.mu.Unlock()
		return false, false
	}
	room.removeMember(p)
	room.leader = nil
	room.closed = true
	p.isLeader.Store(false)
	room.mu.Unlock()

	if current, exist := r.rooms[room.code]; !exist || current != room {
		return false, true
	}
	delete(r.rooms, room.code)
	return true, true
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

func (r *Registry) List() []*Room {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		result = append(result, room)
	}
	return result
}
