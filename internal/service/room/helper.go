package room

import (
	"context"
	"errors"

	"github.com/sharetube/together/internal/domain"
	"github.com/sharetube/together/internal/hub"
	"github.com/sharetube/together/internal/protocol"
)

func (s service) getRoom(roomID string) (*hub.Room, error) {
	r, ok := s.registry.Lookup(roomID)
	if !ok {
		return nil, ErrNotJoined
	}

	return r, nil
}

// mapRoomErr folds the ways a binding can have gone away into ErrNotJoined.
func mapRoomErr(err error) error {
	if errors.Is(err, hub.ErrParticipantNotFound) || errors.Is(err, hub.ErrRoomClosed) {
		return ErrNotJoined
	}

	return err
}

// resolveUser picks the identity of a joiner. A verified identity token
// wins over the user object; a bad token yields an anonymous participant.
func (s service) resolveUser(ctx context.Context, input protocol.JoinInput) *domain.User {
	if s.secret != nil && input.IdentityToken != "" {
		user, err := s.parseIdentityToken(input.IdentityToken)
		if err != nil {
			s.logger.InfoContext(ctx, "invalid identity token", "error", err)
			return nil
		}

		return user
	}

	if input.User == nil {
		return nil
	}

	return &domain.User{
		ID:    input.User.ID,
		Name:  input.User.Name,
		Image: input.User.Image,
	}
}
