package room

import (
	"context"

	"github.com/sharetube/together/internal/domain"
)

// SubmitPlaybackIntent hands an intent to the room's reconciler. Stale
// intents return domain.ErrStaleIntent; the room has already resynced the
// sender.
func (s service) SubmitPlaybackIntent(ctx context.Context, params *SubmitPlaybackIntentParams) (domain.PlaybackState, error) {
	r, err := s.getRoom(params.RoomID)
	if err != nil {
		return domain.PlaybackState{}, err
	}

	state, err := r.SubmitIntent(ctx, params.ParticipantID, toIntent(params.Input))
	if err != nil {
		return state, mapRoomErr(err)
	}

	return state, nil
}

func (s service) SyncPlayback(ctx context.Context, roomID, participantID string) (domain.PlaybackState, error) {
	r, err := s.getRoom(roomID)
	if err != nil {
		return domain.PlaybackState{}, err
	}

	state, err := r.Sync(ctx, participantID)
	if err != nil {
		return domain.PlaybackState{}, mapRoomErr(err)
	}

	return state, nil
}
