// Package sessionlink maps watch-together room ids to shareable links and back.
package sessionlink

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"

	"github.com/sharetube/together/pkg/randstr"
)

const (
	// QueryParam is the link parameter carrying the room id.
	QueryParam = "together"

	roomIDLength = 12
)

var (
	ErrInvalidRoomID  = errors.New("invalid room id")
	ErrInvalidBaseURL = errors.New("invalid base url")

	roomIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{4,64}$`)
)

type iGenerator interface {
	GenerateRandomString(length int) string
}

type Codec struct {
	base      *url.URL
	generator iGenerator
}

func New(baseURL string) (*Codec, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBaseURL, err)
	}

	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%w: %q must be absolute", ErrInvalidBaseURL, baseURL)
	}

	letterBytes := []byte("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789")

	return &Codec{
		base:      base,
		generator: randstr.New(letterBytes),
	}, nil
}

// Mint returns a fresh random room id.
func (c *Codec) Mint() string {
	return c.generator.GenerateRandomString(roomIDLength)
}

func (c *Codec) ToShareableURL(roomID string) (string, error) {
	if !IsValidRoomID(roomID) {
		return "", ErrInvalidRoomID
	}

	u := *c.base
	q := u.Query()
	q.Set(QueryParam, roomID)
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// FromURL extracts the room id from a shared link. The id is read from the
// query first and from a "#together=<id>" fragment second.
func FromURL(raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}

	if roomID := u.Query().Get(QueryParam); roomID != "" {
		return validRoomID(roomID)
	}

	if u.Fragment == "" {
		return "", false
	}

	fragment, err := url.ParseQuery(u.Fragment)
	if err != nil {
		return "", false
	}

	return validRoomID(fragment.Get(QueryParam))
}

func validRoomID(roomID string) (string, bool) {
	if !IsValidRoomID(roomID) {
		return "", false
	}

	return roomID, true
}

func (c *Codec) FromURL(raw string) (string, bool) {
	return FromURL(raw)
}

func IsValidRoomID(roomID string) bool {
	return roomIDPattern.MatchString(roomID)
}
