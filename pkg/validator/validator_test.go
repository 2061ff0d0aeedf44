package validator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type joinInput struct {
	RoomID  string `json:"roomId" validate:"required,shortid"`
	MediaID string `json:"mediaId" validate:"required,max=8"`
	Image   string `json:"image" validate:"omitempty,url"`
}

func newTestValidator(t *testing.T) *Validator {
	v := NewValidator()
	require.NoError(t, v.RegisterRule("shortid", func(s string) bool {
		return len(s) <= 6 && !strings.Contains(s, " ")
	}))
	return v
}

func TestValidateOK(t *testing.T) {
	errs, ok := newTestValidator(t).Validate(joinInput{RoomID: "r1", MediaID: "m1"})
	assert.True(t, ok)
	assert.Empty(t, errs)
}

func TestValidateReportsJSONFieldNames(t *testing.T) {
	errs, ok := newTestValidator(t).Validate(joinInput{RoomID: "bad id", MediaID: "far-too-long", Image: "nope"})
	require.False(t, ok)
	require.Len(t, errs, 3)

	byField := make(map[string]ValidationError, len(errs))
	for _, e := range errs {
		byField[e.Field] = e
	}

	assert.Equal(t, "SHORTID", byField["roomId"].Code)
	assert.Equal(t, "MAX", byField["mediaId"].Code)
	assert.Equal(t, "mediaId must not exceed 8 characters", byField["mediaId"].Message)
	assert.Equal(t, "URL", byField["image"].Code)
}

func TestValidateRequired(t *testing.T) {
	errs, ok := newTestValidator(t).Validate(joinInput{})
	require.False(t, ok)
	assert.Equal(t, "roomId is required", errs[0].Message)
}
