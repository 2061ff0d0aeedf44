package room

import (
	"context"
	"time"

	"github.com/sharetube/together/internal/domain"
)

func (s service) Heartbeat(ctx context.Context, params *HeartbeatParams) (time.Time, error) {
	r, err := s.getRoom(params.RoomID)
	if err != nil {
		return time.Time{}, err
	}

	serverNow, err := r.Heartbeat(ctx, params.ParticipantID, heartbeatParams(params.Input))
	if err != nil {
		return time.Time{}, mapRoomErr(err)
	}

	return serverNow, nil
}

// Touch counts any inbound frame as a sign of life.
func (s service) Touch(ctx context.Context, roomID, participantID string) error {
	r, err := s.getRoom(roomID)
	if err != nil {
		return err
	}

	return mapRoomErr(r.Touch(ctx, participantID))
}

func (s service) UpdateProfile(ctx context.Context, params *UpdateProfileParams) (domain.Participant, error) {
	if validationErrors, ok := s.validate.Validate(profileUpdate(params.Input)); !ok {
		return domain.Participant{}, &ValidationError{Errors: validationErrors}
	}

	r, err := s.getRoom(params.RoomID)
	if err != nil {
		return domain.Participant{}, err
	}

	p, err := r.UpdateProfile(ctx, params.ParticipantID, toProfileUpdate(params.Input))
	if err != nil {
		return domain.Participant{}, mapRoomErr(err)
	}

	return p, nil
}
