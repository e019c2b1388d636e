package room

import (
	"sync"
	"time"

	"github.com/romashorodok/watch-together/pkg/protocol"
)

// Room is one watch session. Every field below mu is guarded by it.
type Room struct {
	code      protocol.RoomCode
	createdAt time.Time

	mu       sync.Mutex
	leader   *Peer
	members  []*Peer
	videoRef string
	playback protocol.PlaybackState
	// closed is set when the last member leaves; a closed room never accepts joins.
	closed bool
}

type RoomInfo struct {
	Code          protocol.RoomCode
	Leader        string
	MemberNames   []string
	VideoRef      string
	PlaybackState protocol.PlaybackState
	CreatedAt     time.Time
}

func newRoom(code protocol.RoomCode, videoRef string, leader *Peer) *Room {
	leader.roomCode.Store(code)
	leader.isLeader.Store(true)
	return &Room{
		code:      code,
		createdAt: time.Now(),
		leader:    leader,
		members:   []*Peer{leader},
		videoRef:  videoRef,
	}
}

func (r *Room) Code() protocol.RoomCode { return r.code }

func (r *Room) Info() RoomInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	info := RoomInfo{
		Code:          r.code,
		MemberNames:   r.memberNames(),
		VideoRef:      r.videoRef,
		PlaybackState: r.playback,
		CreatedAt:     r.createdAt,
	}
	if r.leader != nil {
		info.Leader = r.leader.name
	}
	return info
}

// Members returns a snapshot of the member set in join order.
func (r *Room) Members() []*Peer {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot()
}

func (r *Room) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

func (r *Room) snapshot() []*Peer {
	members := make([]*Peer, len(r.members))
	copy(members, r.members)
	return members
}

func (r *Room) memberNames() []string {
	names := make([]string, 0, len(r.members))
	for _, m := range r.members {
		names = append(names, m.name)
	}
	return names
}

func (r *Room) hasMember(p *Peer) bool {
	for _, m := range r.members {
		if m == p {
			return true
		}
	}
	return false
}

func (r *Room) addMember(p *Peer) {
	p.roomCode.Store(r.code)
	r.members = append(r.members, p)
}

func (r *Room) removeMember(p *Peer) bool {
	for i, m := range r.members {
		if m == p {
			r.members = append(r.members[:i], r.members[i+1:]...)
			return true
		}
	}
	return false
}
