package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewParticipant(t *testing.T) {
	p := NewParticipant("9f1c2d", &User{ID: "u1", Name: " Ann ", Image: "https://img/a.png"}, t0)
	require.NotNil(t, p.UserID)
	assert.Equal(t, "u1", *p.UserID)
	assert.Equal(t, "Ann", p.DisplayName)
	assert.Equal(t, "https://img/a.png", p.AvatarURL)
	assert.True(t, p.JoinedAt.Equal(t0))
}

func TestNewParticipantAnonymous(t *testing.T) {
	p := NewParticipant("9f1c2d", nil, t0)
	assert.Nil(t, p.UserID)
	assert.Equal(t, "Guest 9f1c", p.DisplayName)
	assert.Empty(t, p.AvatarURL)

	p = NewParticipant("ab", &User{}, t0)
	assert.Equal(t, "Guest ab", p.DisplayName)
}

func TestApplyProfile(t *testing.T) {
	p := NewParticipant("9f1c2d", &User{Name: "Ann"}, t0)

	name, avatar := "Annie", "https://img/b.png"
	assert.True(t, p.ApplyProfile(ProfileUpdate{DisplayName: &name, AvatarURL: &avatar}))
	assert.Equal(t, "Annie", p.DisplayName)
	assert.Equal(t, "https://img/b.png", p.AvatarURL)

	assert.False(t, p.ApplyProfile(ProfileUpdate{DisplayName: &name}))

	empty := ""
	assert.True(t, p.ApplyProfile(ProfileUpdate{DisplayName: &empty}))
	assert.Equal(t, "Guest 9f1c", p.DisplayName)
}
