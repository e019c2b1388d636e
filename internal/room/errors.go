package room

import "errors"

var (
	ErrRoomNotExist       = errors.New("room not exist")
	ErrInvalidRoomCode    = errors.New("invalid room code")
	ErrCodeSpaceExhausted = errors.New("unable generate unique room code")
	ErrPeerClosed         = errors.New("peer is closed")
	ErrQueueFull          = errors.New("peer send queue is full")
	ErrAlreadyBound       = errors.New("peer already bound to a room")
	ErrNotBound           = errors.New("peer is not bound to a room")
	ErrNotLeader          = errors.New("peer is not the room leader")
)
