package room

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sharetube/together/internal/hub"
	"github.com/sharetube/together/internal/repository/directory"
	"github.com/sharetube/together/pkg/sessionlink"
	"github.com/sharetube/together/pkg/validator"
)

var (
	ErrNotJoined    = errors.New("not joined to room")
	ErrRoomNotFound = errors.New("room not found")
	ErrValidation   = errors.New("validation failed")
)

// ValidationError carries the field errors of a rejected payload.
type ValidationError struct {
	Errors []validator.ValidationError
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return ErrValidation.Error()
	}

	return fmt.Sprintf("%s: %s", ErrValidation, e.Errors[0].Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

type iRegistry interface {
	GetOrCreate(string) (*hub.Room, error)
	Lookup(string) (*hub.Room, bool)
	Stats() (int, int)
}

type iDirectory interface {
	Get(context.Context, string) (directory.Summary, error)
}

type iLinkCodec interface {
	Mint() string
	ToShareableURL(string) (string, error)
}

type service struct {
	registry  iRegistry
	directory iDirectory
	links     iLinkCodec
	validate  *validator.Validator
	secret    []byte
	logger    *slog.Logger
}

// NewService builds the room service. An empty secret disables identity
// tokens and the unverified user object from join is used as is.
func NewService(registry iRegistry, dir iDirectory, links iLinkCodec, secret string, logger *slog.Logger) (*service, error) {
	v := validator.NewValidator()
	if err := v.RegisterRule("roomid", sessionlink.IsValidRoomID); err != nil {
		return nil, fmt.Errorf("failed to register roomid rule: %w", err)
	}

	s := service{
		registry:  registry,
		directory: dir,
		links:     links,
		validate:  v,
		logger:    logger,
	}
	if secret != "" {
		s.secret = []byte(secret)
	}

	return &s, nil
}
