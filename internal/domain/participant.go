package domain

import (
	"strings"
	"time"
)

// User is the identity supplied by the client or an identity token. Every
// field is optional.
type User struct {
	ID    string
	Name  string
	Image string
}

type Participant struct {
	ParticipantID string
	UserID        *string
	DisplayName   string
	AvatarURL     string
	JoinedAt      time.Time
}

const anonymousPrefix = "Guest "

// NewParticipant builds the roster entry for one connection. A nil user or
// a user without a name yields the anonymous placeholder.
func NewParticipant(participantID string, user *User, joinedAt time.Time) Participant {
	p := Participant{
		ParticipantID: participantID,
		JoinedAt:      joinedAt,
	}

	if user != nil {
		if id := strings.TrimSpace(user.ID); id != "" {
			p.UserID = &id
		}
		p.DisplayName = strings.TrimSpace(user.Name)
		p.AvatarURL = strings.TrimSpace(user.Image)
	}

	if p.DisplayName == "" {
		p.DisplayName = AnonymousName(participantID)
	}

	return p
}

func AnonymousName(participantID string) string {
	suffix := participantID
	if len(suffix) > 4 {
		suffix = suffix[:4]
	}

	return anonymousPrefix + suffix
}

// ProfileUpdate carries the fields a participant may refresh in place.
type ProfileUpdate struct {
	DisplayName *string
	AvatarURL   *string
}

func (p *Participant) ApplyProfile(update ProfileUpdate) bool {
	changed := false

	if update.DisplayName != nil {
		name := strings.TrimSpace(*update.DisplayName)
		if name == "" {
			name = AnonymousName(p.ParticipantID)
		}
		if name != p.DisplayName {
			p.DisplayName = name
			changed = true
		}
	}

	if update.AvatarURL != nil && strings.TrimSpace(*update.AvatarURL) != p.AvatarURL {
		p.AvatarURL = strings.TrimSpace(*update.AvatarURL)
		changed = true
	}

	return changed
}
