package hub

import (
	"time"

	"github.com/sharetube/together/internal/domain"
)

const (
	DefaultHeartbeatTimeout = 30 * time.Second
	DefaultGracePeriod      = 60 * time.Second
	DefaultMaxParticipants  = 32
	DefaultMailboxSize      = 64
)

type Config struct {
	// HeartbeatTimeout is how long a participant may stay silent before it
	// is treated as gone.
	HeartbeatTimeout time.Duration
	// GracePeriod is how long an empty room survives before destruction.
	GracePeriod        time.Duration
	StalenessTolerance time.Duration
	// MaxParticipants of 0 means no limit.
	MaxParticipants int
	MailboxSize     int
	// SweepInterval defaults to a third of HeartbeatTimeout.
	SweepInterval time.Duration
	Now           func() time.Time
}

func (c Config) withDefaults() Config {
	if c.HeartbeatTimeout <= 0 {
		c.HeartbeatTimeout = DefaultHeartbeatTimeout
	}
	if c.GracePeriod <= 0 {
		c.GracePeriod = DefaultGracePeriod
	}
	if c.StalenessTolerance <= 0 {
		c.StalenessTolerance = domain.DefaultStalenessTolerance
	}
	if c.MaxParticipants < 0 {
		c.MaxParticipants = 0
	}
	if c.MailboxSize <= 0 {
		c.MailboxSize = DefaultMailboxSize
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = c.HeartbeatTimeout / 3
	}
	if c.Now == nil {
		c.Now = time.Now
	}

	return c
}
