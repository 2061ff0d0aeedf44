package hub

import (
	"strings"

	"github.com/sharetube/together/internal/domain"
	"github.com/sharetube/together/internal/protocol"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// roster returns every member ordered by join time, then participant id.
func (r *Room) roster() []domain.Participant {
	members := maps.Values(r.members)

	roster := make([]domain.Participant, 0, len(members))
	for _, m := range members {
		roster = append(roster, m.participant)
	}

	slices.SortFunc(roster, func(a, b domain.Participant) int {
		if c := a.JoinedAt.Compare(b.JoinedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ParticipantID, b.ParticipantID)
	})

	return roster
}

func (r *Room) encode(messageType string, payload any) []byte {
	data, err := protocol.Encode(messageType, payload)
	if err != nil {
		r.logger.Error("failed to encode message", "message_type", messageType, "error", err)
		return nil
	}

	return data
}

// broadcast sends data to every member except the one with id except and
// returns the ids whose connection refused it.
func (r *Room) broadcast(data []byte, except string) []string {
	if data == nil {
		return nil
	}

	var failed []string
	for id, m := range r.members {
		if id == except {
			continue
		}

		if err := m.conn.Send(data); err != nil {
			failed = append(failed, id)
		}
	}

	return failed
}

// announceJoin acknowledges the joiner and tells everyone else, in the same
// actor step.
func (r *Room) announceJoin(joiner *member, res JoinResult) []string {
	roster := protocol.NewRoster(res.Roster)

	joined := r.encode(protocol.TypeJoined, protocol.JoinedOutput{
		ParticipantID: joiner.participant.ParticipantID,
		RoomID:        r.id,
		MediaID:       res.MediaID,
		Roster:        roster,
		PlaybackState: protocol.NewPlaybackState(res.Playback),
		ServerNow:     protocol.Millis(res.ServerNow),
	})

	var failed []string
	if joined == nil || joiner.conn.Send(joined) != nil {
		failed = append(failed, joiner.participant.ParticipantID)
	}

	presence := r.encode(protocol.TypePresence, protocol.PresenceOutput{Roster: roster})

	return append(failed, r.broadcast(presence, joiner.participant.ParticipantID)...)
}

func (r *Room) announceRoster() []string {
	if len(r.members) == 0 {
		return nil
	}

	return r.broadcast(r.encode(protocol.TypePresence, protocol.PresenceOutput{
		Roster: protocol.NewRoster(r.roster()),
	}), "")
}

func (r *Room) playbackUpdate() []byte {
	return r.encode(protocol.TypePlaybackUpdate, protocol.PlaybackUpdateOutput{
		PlaybackState: protocol.NewPlaybackState(r.playback),
		ServerNow:     protocol.Millis(r.cfg.Now()),
	})
}

// announcePlayback sends the current state to everyone but writer; an empty
// writer reaches everyone.
func (r *Room) announcePlayback(writer string) []string {
	return r.broadcast(r.playbackUpdate(), writer)
}

func (r *Room) sendPlayback(m *member) bool {
	data := r.playbackUpdate()
	if data == nil {
		return true
	}

	return m.conn.Send(data) == nil
}
