package domain

import (
	"errors"
	"time"
)

var (
	ErrStaleIntent   = errors.New("stale playback intent")
	ErrInvalidIntent = errors.New("invalid playback intent")
)

type IntentType string

const (
	IntentPlay  IntentType = "play"
	IntentPause IntentType = "pause"
	IntentSeek  IntentType = "seek"
)

func (t IntentType) Valid() bool {
	switch t {
	case IntentPlay, IntentPause, IntentSeek:
		return true
	}

	return false
}

// PlaybackState is the single authoritative playback value of a room.
type PlaybackState struct {
	PositionSeconds         float64
	IsPlaying               bool
	UpdatedAt               time.Time
	LastWriterParticipantID string

	// window holds the applied intents that a later arrival may still sort
	// before, in issue order; windowBase is the state they were applied to.
	window     []appliedIntent
	windowBase *PlaybackState
}

type appliedIntent struct {
	intent   PlaybackIntent
	issuedAt time.Time
}

func NewPlaybackState(now time.Time) PlaybackState {
	return PlaybackState{UpdatedAt: now}
}

// PositionAt extrapolates the position to now. A paused state, or a now that
// precedes UpdatedAt, returns the stored position.
func (s PlaybackState) PositionAt(now time.Time) float64 {
	if !s.IsPlaying || !now.After(s.UpdatedAt) {
		return s.PositionSeconds
	}

	return s.PositionSeconds + now.Sub(s.UpdatedAt).Seconds()
}

// PlaybackIntent is a participant's proposed change to the playback state.
// A nil PositionSeconds on play or pause means "where playback is now".
type PlaybackIntent struct {
	Type            IntentType
	PositionSeconds *float64
	ClientTimestamp time.Time
	ParticipantID   string
}
