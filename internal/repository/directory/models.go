package directory

import (
	"errors"
	"time"
)

var ErrRoomNotFound = errors.New("room not found")

// Summary is the advisory, externally visible description of a live room.
type Summary struct {
	RoomID         string    `json:"roomId"`
	MediaID        string    `json:"mediaId"`
	Participants   int       `json:"participants"`
	State          string    `json:"state"`
	CreatedAt      time.Time `json:"createdAt"`
	LastActivityAt time.Time `json:"lastActivityAt"`
}
