package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sharetube/together/internal/repository/directory"
)

type repo struct {
	rc     *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewRepo(rc *redis.Client, ttl time.Duration, logger *slog.Logger) *repo {
	return &repo{
		rc:     rc,
		ttl:    ttl,
		logger: logger,
	}
}

type summary struct {
	MediaID        string `redis:"media_id"`
	Participants   int    `redis:"participants"`
	State          string `redis:"state"`
	CreatedAt      int64  `redis:"created_at"`
	LastActivityAt int64  `redis:"last_activity_at"`
}

func (r repo) getRoomKey(roomID string) string {
	return "room:" + roomID + ":summary"
}

func (r repo) Put(ctx context.Context, s directory.Summary) error {
	r.logger.DebugContext(ctx, "called", "room_id", s.RoomID, "state", s.State)
	key := r.getRoomKey(s.RoomID)

	pipe := r.rc.TxPipeline()
	pipe.HSet(ctx, key, summary{
		MediaID:        s.MediaID,
		Participants:   s.Participants,
		State:          s.State,
		CreatedAt:      s.CreatedAt.UnixMilli(),
		LastActivityAt: s.LastActivityAt.UnixMilli(),
	})
	pipe.Expire(ctx, key, r.ttl)

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to put room summary: %w", err)
	}

	return nil
}

func (r repo) Delete(ctx context.Context, roomID string) error {
	r.logger.DebugContext(ctx, "called", "room_id", roomID)
	res, err := r.rc.Del(ctx, r.getRoomKey(roomID)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete room summary: %w", err)
	}

	if res == 0 {
		return directory.ErrRoomNotFound
	}

	return nil
}

func (r repo) Get(ctx context.Context, roomID string) (directory.Summary, error) {
	cmd := r.rc.HGetAll(ctx, r.getRoomKey(roomID))
	if err := cmd.Err(); err != nil {
		return directory.Summary{}, fmt.Errorf("failed to get room summary: %w", err)
	}

	if len(cmd.Val()) == 0 {
		return directory.Summary{}, directory.ErrRoomNotFound
	}

	var s summary
	if err := cmd.Scan(&s); err != nil {
		return directory.Summary{}, fmt.Errorf("failed to scan room summary: %w", err)
	}

	return directory.Summary{
		RoomID:         roomID,
		MediaID:        s.MediaID,
		Participants:   s.Participants,
		State:          s.State,
		CreatedAt:      time.UnixMilli(s.CreatedAt),
		LastActivityAt: time.UnixMilli(s.LastActivityAt),
	}, nil
}

func (r repo) executePipe(ctx context.Context, pipe redis.Pipeliner) error {
	cmds, err := pipe.Exec(ctx)
	if err != nil {
		for _, cmd := range cmds {
			if err := cmd.Err(); err != nil && !errors.Is(err, redis.Nil) {
				return err
			}
		}

		return err
	}

	return nil
}
