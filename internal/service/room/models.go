package room

import (
	"github.com/sharetube/together/internal/domain"
	"github.com/sharetube/together/internal/hub"
	"github.com/sharetube/together/internal/protocol"
)

type CreateRoomResponse struct {
	RoomID   string
	ShareURL string
}

type JoinRoomParams struct {
	Input protocol.JoinInput
	Conn  hub.Conn
}

type JoinRoomResponse struct {
	RoomID        string
	ParticipantID string
	Result        hub.JoinResult
}

type LeaveRoomParams struct {
	RoomID        string
	ParticipantID string
}

type SubmitPlaybackIntentParams struct {
	RoomID        string
	ParticipantID string
	Input         protocol.PlaybackIntentInput
}

type HeartbeatParams struct {
	RoomID        string
	ParticipantID string
	Input         protocol.HeartbeatInput
}

type UpdateProfileParams struct {
	RoomID        string
	ParticipantID string
	Input         protocol.UpdateProfileInput
}

type Stats struct {
	Rooms        int
	Participants int
}

type profileUpdate struct {
	Name  *string `json:"name" validate:"omitempty,max=64"`
	Image *string `json:"image" validate:"omitempty,url,max=2048"`
}

func toProfileUpdate(in protocol.UpdateProfileInput) domain.ProfileUpdate {
	return domain.ProfileUpdate{
		DisplayName: in.Name,
		AvatarURL:   in.Image,
	}
}

func toIntent(in protocol.PlaybackIntentInput) domain.PlaybackIntent {
	return domain.PlaybackIntent{
		Type:            domain.IntentType(in.Type),
		PositionSeconds: in.PositionSeconds,
		ClientTimestamp: protocol.FromMillis(in.ClientTimestamp),
	}
}

func heartbeatParams(in protocol.HeartbeatInput) hub.HeartbeatParams {
	return hub.HeartbeatParams{
		ClientTimestamp: protocol.FromMillis(in.ClientTimestamp),
		EchoServerNow:   protocol.FromMillis(in.EchoServerNow),
	}
}
