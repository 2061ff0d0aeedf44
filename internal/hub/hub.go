// Package hub owns live rooms: one actor goroutine per room serializes every
// roster and playback mutation, and a registry maps room ids to actors.
package hub

import "errors"

var (
	ErrRoomClosed          = errors.New("room closed")
	ErrRoomFull            = errors.New("room is full")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrRegistryClosed      = errors.New("registry closed")
)

// Conn is the outbound side of one participant's connection. Send must not
// block: a full or closed connection returns an error.
type Conn interface {
	Send(data []byte) error
	Close() error
}
