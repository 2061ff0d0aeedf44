// Package protocol defines the JSON messages exchanged over the watch
// together WebSocket. Times on the wire are Unix milliseconds.
package protocol

import (
	"encoding/json"
	"time"

	"github.com/sharetube/together/internal/domain"
)

// client -> server
const (
	TypeJoin           = "join"
	TypeLeave          = "leave"
	TypePlaybackIntent = "playbackIntent"
	TypeHeartbeat      = "heartbeat"
	TypeSync           = "sync"
	TypeUpdateProfile  = "updateProfile"
)

// server -> client
const (
	TypeJoined         = "joined"
	TypePresence       = "presence"
	TypePlaybackUpdate = "playbackUpdate"
	TypeLeft           = "left"
	TypeError          = "error"
)

type Output struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

func Encode(messageType string, payload any) ([]byte, error) {
	return json.Marshal(&Output{Type: messageType, Payload: payload})
}

func Millis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}

	return t.UnixMilli()
}

func FromMillis(ms int64) time.Time {
	if ms <= 0 {
		return time.Time{}
	}

	return time.UnixMilli(ms)
}

type User struct {
	ID    string `json:"id,omitempty" validate:"max=128"`
	Name  string `json:"name,omitempty" validate:"max=64"`
	Image string `json:"image,omitempty" validate:"omitempty,url,max=2048"`
}

type JoinInput struct {
	RoomID          string `json:"roomId" validate:"required,roomid"`
	MediaID         string `json:"mediaId" validate:"required,max=256"`
	User            *User  `json:"user,omitempty"`
	IdentityToken   string `json:"identityToken,omitempty"`
	ClientTimestamp int64  `json:"clientTimestamp,omitempty"`
}

type PlaybackIntentInput struct {
	Type            string   `json:"type"`
	PositionSeconds *float64 `json:"positionSeconds,omitempty"`
	ClientTimestamp int64    `json:"clientTimestamp"`
}

type HeartbeatInput struct {
	ClientTimestamp int64 `json:"clientTimestamp,omitempty"`
	EchoServerNow   int64 `json:"echoServerNow,omitempty"`
}

type UpdateProfileInput struct {
	Name  *string `json:"name,omitempty"`
	Image *string `json:"image,omitempty"`
}

type EmptyInput struct{}

type Participant struct {
	ParticipantID string  `json:"participantId"`
	UserID        *string `json:"userId"`
	DisplayName   string  `json:"displayName"`
	AvatarURL     string  `json:"avatarUrl"`
	JoinedAt      int64   `json:"joinedAt"`
}

func NewRoster(participants []domain.Participant) []Participant {
	roster := make([]Participant, 0, len(participants))
	for _, p := range participants {
		roster = append(roster, Participant{
			ParticipantID: p.ParticipantID,
			UserID:        p.UserID,
			DisplayName:   p.DisplayName,
			AvatarURL:     p.AvatarURL,
			JoinedAt:      Millis(p.JoinedAt),
		})
	}

	return roster
}

type PlaybackState struct {
	PositionSeconds         float64 `json:"positionSeconds"`
	IsPlaying               bool    `json:"isPlaying"`
	UpdatedAt               int64   `json:"updatedAt"`
	LastWriterParticipantID string  `json:"lastWriterParticipantId,omitempty"`
}

func NewPlaybackState(s domain.PlaybackState) PlaybackState {
	return PlaybackState{
		PositionSeconds:         s.PositionSeconds,
		IsPlaying:               s.IsPlaying,
		UpdatedAt:               Millis(s.UpdatedAt),
		LastWriterParticipantID: s.LastWriterParticipantID,
	}
}

type JoinedOutput struct {
	ParticipantID string        `json:"participantId"`
	RoomID        string        `json:"roomId"`
	MediaID       string        `json:"mediaId"`
	Roster        []Participant `json:"roster"`
	PlaybackState PlaybackState `json:"playbackState"`
	ServerNow     int64         `json:"serverNow"`
}

type PresenceOutput struct {
	Roster []Participant `json:"roster"`
}

type PlaybackUpdateOutput struct {
	PlaybackState
	ServerNow int64 `json:"serverNow"`
}

type HeartbeatOutput struct {
	ServerNow       int64 `json:"serverNow"`
	ClientTimestamp int64 `json:"clientTimestamp,omitempty"`
}

type LeftOutput struct {
	RoomID string `json:"roomId"`
}

const (
	ErrorCodeRoomFull    = "room_full"
	ErrorCodeNotJoined   = "not_joined"
	ErrorCodeInvalidJoin = "invalid_join"
)

type ErrorOutput struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}
