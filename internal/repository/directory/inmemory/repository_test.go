package inmemory

import (
	"context"
	"testing"
	"time"

	"github.com/sharetube/together/internal/repository/directory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepo(t *testing.T) {
	r := NewRepo(time.Minute)
	ctx := context.Background()

	_, err := r.Get(ctx, "room1")
	require.ErrorIs(t, err, directory.ErrRoomNotFound)

	require.NoError(t, r.Put(ctx, directory.Summary{RoomID: "room1", MediaID: "m1", Participants: 1}))
	got, err := r.Get(ctx, "room1")
	require.NoError(t, err)
	assert.Equal(t, "m1", got.MediaID)

	require.NoError(t, r.Delete(ctx, "room1"))
	assert.ErrorIs(t, r.Delete(ctx, "room1"), directory.ErrRoomNotFound)
}

func TestRepoExpires(t *testing.T) {
	r := NewRepo(time.Minute)
	now := time.Now()
	r.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, r.Put(ctx, directory.Summary{RoomID: "room1"}))

	now = now.Add(2 * time.Minute)
	_, err := r.Get(ctx, "room1")
	assert.ErrorIs(t, err, directory.ErrRoomNotFound)
}
