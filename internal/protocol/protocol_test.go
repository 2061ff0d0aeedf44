package protocol

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/sharetube/together/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodePlaybackUpdate(t *testing.T) {
	updatedAt := time.UnixMilli(1_700_000_000_000)
	data, err := Encode(TypePlaybackUpdate, &PlaybackUpdateOutput{
		PlaybackState: NewPlaybackState(domain.PlaybackState{
			PositionSeconds:         42,
			UpdatedAt:               updatedAt,
			LastWriterParticipantID: "a",
		}),
		ServerNow: 1_700_000_000_500,
	})
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"type": "playbackUpdate",
		"payload": {
			"positionSeconds": 42,
			"isPlaying": false,
			"updatedAt": 1700000000000,
			"lastWriterParticipantId": "a",
			"serverNow": 1700000000500
		}
	}`, string(data))
}

func TestRosterKeepsNullUserID(t *testing.T) {
	roster := NewRoster([]domain.Participant{domain.NewParticipant("p1", nil, time.UnixMilli(5))})

	data, err := json.Marshal(roster)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"participantId":"p1","userId":null,"displayName":"Guest p1","avatarUrl":"","joinedAt":5}]`, string(data))
}

func TestMillis(t *testing.T) {
	assert.Equal(t, int64(0), Millis(time.Time{}))
	assert.True(t, FromMillis(0).IsZero())
	assert.Equal(t, int64(1234), Millis(FromMillis(1234)))
}
