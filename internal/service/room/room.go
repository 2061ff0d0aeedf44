package room

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sharetube/together/internal/hub"
	"github.com/sharetube/together/internal/protocol"
	"github.com/sharetube/together/internal/repository/directory"
	"github.com/sharetube/together/pkg/ctxlogger"
	"github.com/sharetube/together/pkg/sessionlink"
)

const (
	maxJoinAttempts = 3
	cleanupTimeout  = 5 * time.Second
)

func (s service) CreateRoom(ctx context.Context) (CreateRoomResponse, error) {
	roomID := s.links.Mint()

	shareURL, err := s.links.ToShareableURL(roomID)
	if err != nil {
		return CreateRoomResponse{}, fmt.Errorf("failed to build share url: %w", err)
	}

	s.logger.InfoContext(ctx, "room minted", "room_id", roomID)

	return CreateRoomResponse{
		RoomID:   roomID,
		ShareURL: shareURL,
	}, nil
}

// GetRoom reports a live room, from this process first and then from the
// directory shared with other instances.
func (s service) GetRoom(ctx context.Context, roomID string) (directory.Summary, error) {
	if !sessionlink.IsValidRoomID(roomID) {
		return directory.Summary{}, ErrRoomNotFound
	}

	if r, ok := s.registry.Lookup(roomID); ok {
		snap, err := r.Snapshot(ctx)
		if err == nil {
			return directory.Summary{
				RoomID:         snap.RoomID,
				MediaID:        snap.MediaID,
				Participants:   len(snap.Roster),
				State:          snap.State.String(),
				CreatedAt:      snap.CreatedAt,
				LastActivityAt: snap.LastActivityAt,
			}, nil
		}
		if !errors.Is(err, hub.ErrRoomClosed) {
			return directory.Summary{}, err
		}
	}

	summary, err := s.directory.Get(ctx, roomID)
	if err != nil {
		if errors.Is(err, directory.ErrRoomNotFound) {
			return directory.Summary{}, ErrRoomNotFound
		}
		return directory.Summary{}, fmt.Errorf("failed to get room summary: %w", err)
	}

	return summary, nil
}

// JoinRoom binds a connection to a room, creating the room when the id is
// unknown. Each call gets a fresh participant id.
func (s service) JoinRoom(ctx context.Context, params *JoinRoomParams) (JoinRoomResponse, error) {
	if validationErrors, ok := s.validate.Validate(params.Input); !ok {
		return JoinRoomResponse{}, &ValidationError{Errors: validationErrors}
	}

	roomID := params.Input.RoomID
	participantID := uuid.NewString()
	ctx = ctxlogger.AppendCtx(ctx, slog.String("room_id", roomID))
	ctx = ctxlogger.AppendCtx(ctx, slog.String("participant_id", participantID))

	joinParams := hub.JoinParams{
		ParticipantID:   participantID,
		MediaID:         params.Input.MediaID,
		User:            s.resolveUser(ctx, params.Input),
		Conn:            params.Conn,
		ClientTimestamp: protocol.FromMillis(params.Input.ClientTimestamp),
	}

	var lastErr error
	for attempt := 0; attempt < maxJoinAttempts; attempt++ {
		r, err := s.registry.GetOrCreate(roomID)
		if err != nil {
			return JoinRoomResponse{}, fmt.Errorf("failed to get room: %w", err)
		}

		res, err := r.Join(ctx, joinParams)
		if errors.Is(err, hub.ErrRoomClosed) {
			s.logger.DebugContext(ctx, "room closed during join, retrying", "attempt", attempt)
			lastErr = err
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				s.abandonJoin(r, participantID)
			}
			return JoinRoomResponse{}, err
		}

		s.logger.InfoContext(ctx, "joined room", "participants", len(res.Roster))

		return JoinRoomResponse{
			RoomID:        roomID,
			ParticipantID: participantID,
			Result:        res,
		}, nil
	}

	return JoinRoomResponse{}, fmt.Errorf("failed to join room after %d attempts: %w", maxJoinAttempts, lastErr)
}

// abandonJoin undoes a join whose caller gave up after it was queued.
func (s service) abandonJoin(r *hub.Room, participantID string) {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()

	if err := r.Leave(ctx, participantID); err != nil && !errors.Is(err, hub.ErrParticipantNotFound) {
		s.logger.Debug("abandoned join cleanup", "participant_id", participantID, "error", err)
	}
}

func (s service) LeaveRoom(ctx context.Context, params *LeaveRoomParams) error {
	r, err := s.getRoom(params.RoomID)
	if err != nil {
		return err
	}

	if err := r.Leave(ctx, params.ParticipantID); err != nil {
		return mapRoomErr(err)
	}

	s.logger.InfoContext(ctx, "left room", "room_id", params.RoomID, "participant_id", params.ParticipantID)

	return nil
}

func (s service) Stats() Stats {
	rooms, participants := s.registry.Stats()

	return Stats{
		Rooms:        rooms,
		Participants: participants,
	}
}
