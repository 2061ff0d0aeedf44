package domain

import (
	"fmt"
	"math"
	"sort"
	"time"
)

const DefaultStalenessTolerance = 250 * time.Millisecond

// Reconciler decides whether an intent replaces the current playback state.
// Authority is recency: an intent issued more than Tolerance before the
// newest applied one is stale. Intents inside that window are replayed in
// issue order, so the result does not depend on arrival order.
type Reconciler struct {
	Tolerance time.Duration
}

func NewReconciler(tolerance time.Duration) Reconciler {
	if tolerance <= 0 {
		tolerance = DefaultStalenessTolerance
	}

	return Reconciler{Tolerance: tolerance}
}

// Apply returns the state produced by intent, which is estimated to have
// been issued at issuedAt on the server clock.
func (rc Reconciler) Apply(current PlaybackState, intent PlaybackIntent, issuedAt time.Time) (PlaybackState, error) {
	if !intent.Type.Valid() {
		return current, fmt.Errorf("%w: unknown type %q", ErrInvalidIntent, intent.Type)
	}

	if intent.PositionSeconds != nil {
		p := *intent.PositionSeconds
		if p < 0 || math.IsNaN(p) || math.IsInf(p, 0) {
			return current, fmt.Errorf("%w: position %v", ErrInvalidIntent, p)
		}
	} else if intent.Type == IntentSeek {
		return current, fmt.Errorf("%w: seek without position", ErrInvalidIntent)
	}

	// UpdatedAt of a reconciled state is the newest issue time applied so far
	if current.UpdatedAt.Sub(issuedAt) > rc.Tolerance {
		return current, ErrStaleIntent
	}

	base := current.withoutWindow()
	if current.windowBase != nil {
		base = *current.windowBase
	}

	// ties keep arrival order, the later arrival wins
	i := sort.Search(len(current.window), func(i int) bool {
		return current.window[i].issuedAt.After(issuedAt)
	})
	window := make([]appliedIntent, 0, len(current.window)+1)
	window = append(window, current.window[:i]...)
	window = append(window, appliedIntent{intent: intent, issuedAt: issuedAt})
	window = append(window, current.window[i:]...)

	next := base
	for _, e := range window {
		next = step(next, e.intent, e.issuedAt)
	}

	// nothing accepted from now on can sort before these, fold them in
	cutoff := next.UpdatedAt.Add(-rc.Tolerance)
	n := 0
	for n < len(window)-1 && window[n].issuedAt.Before(cutoff) {
		base = step(base, window[n].intent, window[n].issuedAt)
		n++
	}

	next.window = window[n:]
	next.windowBase = &base

	return next, nil
}

func step(current PlaybackState, intent PlaybackIntent, issuedAt time.Time) PlaybackState {
	next := PlaybackState{
		PositionSeconds:         current.PositionAt(issuedAt),
		IsPlaying:               current.IsPlaying,
		UpdatedAt:               issuedAt,
		LastWriterParticipantID: intent.ParticipantID,
	}

	if intent.PositionSeconds != nil {
		next.PositionSeconds = *intent.PositionSeconds
	}

	switch intent.Type {
	case IntentPlay:
		next.IsPlaying = true
	case IntentPause:
		next.IsPlaying = false
	}

	return next
}

func (s PlaybackState) withoutWindow() PlaybackState {
	s.window = nil
	s.windowBase = nil
	return s
}
