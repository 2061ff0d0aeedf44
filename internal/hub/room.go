package hub

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sharetube/together/internal/domain"
	"github.com/sharetube/together/internal/repository/directory"
)

var ErrParticipantExists = errors.New("participant already joined")

type State int

const (
	StateEmpty State = iota
	StateActive
	StateDraining
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateActive:
		return "active"
	case StateDraining:
		return "draining"
	}

	return "unknown"
}

type member struct {
	participant domain.Participant
	conn        Conn
	clock       domain.ClockEstimator
	lastSeen    time.Time
}

// Room is the handle of one room actor. Every exported method hands a
// closure to the actor goroutine and waits for it to run, so the fields
// below the mailbox are only ever touched from that goroutine.
type Room struct {
	id         string
	cfg        Config
	reconciler domain.Reconciler
	registry   *Registry
	publisher  *Publisher
	logger     *slog.Logger

	mailbox  chan func()
	stop     chan struct{}
	stopOnce sync.Once
	closed   chan struct{}

	participants atomic.Int32

	state          State
	mediaID        string
	members        map[string]*member
	playback       domain.PlaybackState
	createdAt      time.Time
	lastActivityAt time.Time
	grace          *time.Timer
}

func newRoom(id string, cfg Config, registry *Registry, publisher *Publisher, logger *slog.Logger) *Room {
	now := cfg.Now()

	return &Room{
		id:             id,
		cfg:            cfg,
		reconciler:     domain.NewReconciler(cfg.StalenessTolerance),
		registry:       registry,
		publisher:      publisher,
		logger:         logger.With("room_id", id),
		mailbox:        make(chan func(), cfg.MailboxSize),
		stop:           make(chan struct{}),
		closed:         make(chan struct{}),
		state:          StateEmpty,
		members:        make(map[string]*member),
		playback:       domain.NewPlaybackState(now),
		createdAt:      now,
		lastActivityAt: now,
	}
}

func (r *Room) ID() string { return r.id }

// Done is closed once the room has been destroyed.
func (r *Room) Done() <-chan struct{} { return r.closed }

func (r *Room) Participants() int { return int(r.participants.Load()) }

func (r *Room) isClosed() bool {
	select {
	case <-r.closed:
		return true
	default:
		return false
	}
}

func (r *Room) shutdown() {
	r.stopOnce.Do(func() { close(r.stop) })
}

func (r *Room) run() {
	sweep := time.NewTicker(r.cfg.SweepInterval)
	defer sweep.Stop()

	// a room nobody joins is reclaimed like a drained one
	r.armGrace()

	for {
		select {
		case fn := <-r.mailbox:
			fn()
		case <-sweep.C:
			r.sweep()
		case <-r.graceC():
			r.grace = nil
			if r.state != StateActive && len(r.members) == 0 {
				r.logger.Info("grace period elapsed, destroying room", "state", r.state.String())
				r.destroy()
				return
			}
		case <-r.stop:
			r.logger.Info("room shutting down")
			r.destroy()
			return
		}
	}
}

// do runs fn on the actor and waits for it. If ctx ends after fn was
// queued, fn may still run later.
func (r *Room) do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	task := func() {
		defer close(done)
		fn()
	}

	select {
	case r.mailbox <- task:
	case <-r.closed:
		return ErrRoomClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-done:
		return nil
	case <-r.closed:
		select {
		case <-done:
			return nil
		default:
			return ErrRoomClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Room) armGrace() {
	r.disarmGrace()
	r.grace = time.NewTimer(r.cfg.GracePeriod)
}

func (r *Room) disarmGrace() {
	if r.grace != nil {
		r.grace.Stop()
		r.grace = nil
	}
}

func (r *Room) graceC() <-chan time.Time {
	if r.grace == nil {
		return nil
	}

	return r.grace.C
}

func (r *Room) destroy() {
	r.disarmGrace()

	for id, m := range r.members {
		m.conn.Close()
		delete(r.members, id)
	}
	r.participants.Store(0)
	r.state = StateEmpty

	close(r.closed)

	if r.registry != nil {
		r.registry.remove(r)
	}
	r.publisher.Delete(r.id)
}

func (r *Room) summary() directory.Summary {
	return directory.Summary{
		RoomID:         r.id,
		MediaID:        r.mediaID,
		Participants:   len(r.members),
		State:          r.state.String(),
		CreatedAt:      r.createdAt,
		LastActivityAt: r.lastActivityAt,
	}
}

func (r *Room) publish() {
	r.publisher.Put(r.summary())
}

// rosterChanged settles the state machine after members were added or
// removed and mirrors the result to the directory.
func (r *Room) rosterChanged() {
	r.participants.Store(int32(len(r.members)))

	if len(r.members) == 0 && r.state == StateActive {
		r.state = StateDraining
		r.armGrace()
		r.logger.Info("room is empty, draining", "grace_period", r.cfg.GracePeriod.String())
	}

	r.publish()
}

// evict removes members whose connection is gone, closes their connection
// and tells everyone left. Members that fail to receive that news are
// evicted in turn.
func (r *Room) evict(ids []string, reason string) {
	for len(ids) > 0 {
		for _, id := range ids {
			m, ok := r.members[id]
			if !ok {
				continue
			}

			delete(r.members, id)
			m.conn.Close()
			r.logger.Info("participant evicted", "participant_id", id, "reason", reason)
		}

		ids = r.announceRoster()
	}
}

func (r *Room) sweep() {
	now := r.cfg.Now()

	var expired []string
	for id, m := range r.members {
		if now.Sub(m.lastSeen) > r.cfg.HeartbeatTimeout {
			expired = append(expired, id)
		}
	}

	if len(expired) == 0 {
		if r.state == StateActive {
			r.publish()
		}
		return
	}

	r.evict(expired, "heartbeat timeout")
	r.rosterChanged()
}

type JoinParams struct {
	ParticipantID   string
	MediaID         string
	User            *domain.User
	Conn            Conn
	ClientTimestamp time.Time
}

type JoinResult struct {
	Participant domain.Participant
	MediaID     string
	Roster      []domain.Participant
	Playback    domain.PlaybackState
	ServerNow   time.Time
}

// Join admits a participant. The first join fixes the room's media id;
// later joins keep it whatever they ask for.
func (r *Room) Join(ctx context.Context, params JoinParams) (JoinResult, error) {
	var (
		res     JoinResult
		joinErr error
	)

	if err := r.do(ctx, func() {
		if err := ctx.Err(); err != nil {
			joinErr = err
			return
		}
		res, joinErr = r.join(params)
	}); err != nil {
		return JoinResult{}, err
	}

	return res, joinErr
}

func (r *Room) join(params JoinParams) (JoinResult, error) {
	if _, ok := r.members[params.ParticipantID]; ok {
		return JoinResult{}, ErrParticipantExists
	}

	if r.cfg.MaxParticipants > 0 && len(r.members) >= r.cfg.MaxParticipants {
		return JoinResult{}, ErrRoomFull
	}

	now := r.cfg.Now()

	switch r.state {
	case StateEmpty:
		r.mediaID = params.MediaID
	case StateDraining:
		r.logger.Info("room reactivated")
	}
	if params.MediaID != r.mediaID {
		r.logger.Debug("join media id ignored", "requested", params.MediaID, "media_id", r.mediaID)
	}

	m := &member{
		participant: domain.NewParticipant(params.ParticipantID, params.User, now),
		conn:        params.Conn,
		lastSeen:    now,
	}
	m.clock.Observe(params.ClientTimestamp, now)

	r.members[params.ParticipantID] = m
	r.state = StateActive
	r.disarmGrace()
	r.lastActivityAt = now

	res := JoinResult{
		Participant: m.participant,
		MediaID:     r.mediaID,
		Roster:      r.roster(),
		Playback:    r.playback,
		ServerNow:   now,
	}

	r.logger.Info("participant joined", "participant_id", params.ParticipantID, "participants", len(r.members))

	r.evict(r.announceJoin(m, res), "send failed")
	r.rosterChanged()

	return res, nil
}

func (r *Room) Leave(ctx context.Context, participantID string) error {
	var leaveErr error

	if err := r.do(ctx, func() {
		leaveErr = r.leave(participantID)
	}); err != nil {
		return err
	}

	return leaveErr
}

func (r *Room) leave(participantID string) error {
	if _, ok := r.members[participantID]; !ok {
		return ErrParticipantNotFound
	}

	delete(r.members, participantID)
	r.lastActivityAt = r.cfg.Now()
	r.logger.Info("participant left", "participant_id", participantID, "participants", len(r.members))

	r.evict(r.announceRoster(), "send failed")
	r.rosterChanged()

	return nil
}

// SubmitIntent reconciles a playback intent against the room state. A
// stale intent returns domain.ErrStaleIntent and the sender alone is sent
// the authoritative state.
func (r *Room) SubmitIntent(ctx context.Context, participantID string, intent domain.PlaybackIntent) (domain.PlaybackState, error) {
	receivedAt := r.cfg.Now()

	var (
		state     domain.PlaybackState
		intentErr error
	)

	if err := r.do(ctx, func() {
		state, intentErr = r.submitIntent(participantID, intent, receivedAt)
	}); err != nil {
		return domain.PlaybackState{}, err
	}

	return state, intentErr
}

func (r *Room) submitIntent(participantID string, intent domain.PlaybackIntent, receivedAt time.Time) (domain.PlaybackState, error) {
	m, ok := r.members[participantID]
	if !ok {
		return domain.PlaybackState{}, ErrParticipantNotFound
	}
	m.lastSeen = receivedAt

	intent.ParticipantID = participantID
	issuedAt := m.clock.IssuedAt(intent.ClientTimestamp, receivedAt)

	next, err := r.reconciler.Apply(r.playback, intent, issuedAt)
	if errors.Is(err, domain.ErrStaleIntent) {
		r.logger.Debug("stale intent dropped",
			"participant_id", participantID,
			"intent", string(intent.Type),
			"lag_ms", r.playback.UpdatedAt.Sub(issuedAt).Milliseconds(),
		)
		if !r.sendPlayback(m) {
			r.evict([]string{participantID}, "send failed")
			r.rosterChanged()
		}
		return r.playback, err
	}
	if err != nil {
		return r.playback, err
	}

	r.playback = next
	r.lastActivityAt = receivedAt

	// a newer intent replayed over this one: the sender's player is behind too
	writer := participantID
	if !next.UpdatedAt.Equal(issuedAt) {
		writer = ""
	}

	if failed := r.announcePlayback(writer); len(failed) > 0 {
		r.evict(failed, "send failed")
		r.rosterChanged()
	} else {
		r.publish()
	}

	return next, nil
}

type HeartbeatParams struct {
	ClientTimestamp time.Time
	// EchoServerNow is a serverNow this participant received earlier.
	EchoServerNow time.Time
}

// Heartbeat refreshes the participant's deadline and its clock estimate.
// It returns the server time to put in the reply.
func (r *Room) Heartbeat(ctx context.Context, participantID string, params HeartbeatParams) (time.Time, error) {
	receivedAt := r.cfg.Now()

	var hbErr error
	if err := r.do(ctx, func() {
		m, ok := r.members[participantID]
		if !ok {
			hbErr = ErrParticipantNotFound
			return
		}

		m.lastSeen = receivedAt
		m.clock.ObserveRoundTrip(params.EchoServerNow, receivedAt)
		m.clock.Observe(params.ClientTimestamp, receivedAt)
		r.logger.Debug("heartbeat",
			"participant_id", participantID,
			"clock_offset_ms", m.clock.Offset().Milliseconds(),
			"rtt_ms", m.clock.RoundTrip().Milliseconds(),
		)
	}); err != nil {
		return time.Time{}, err
	}

	return receivedAt, hbErr
}

// Touch refreshes the participant's deadline only.
func (r *Room) Touch(ctx context.Context, participantID string) error {
	now := r.cfg.Now()

	var touchErr error
	if err := r.do(ctx, func() {
		m, ok := r.members[participantID]
		if !ok {
			touchErr = ErrParticipantNotFound
			return
		}
		m.lastSeen = now
	}); err != nil {
		return err
	}

	return touchErr
}

func (r *Room) UpdateProfile(ctx context.Context, participantID string, update domain.ProfileUpdate) (domain.Participant, error) {
	now := r.cfg.Now()

	var (
		p         domain.Participant
		updateErr error
	)

	if err := r.do(ctx, func() {
		m, ok := r.members[participantID]
		if !ok {
			updateErr = ErrParticipantNotFound
			return
		}
		m.lastSeen = now

		if m.participant.ApplyProfile(update) {
			r.lastActivityAt = now
			r.evict(r.announceRoster(), "send failed")
			r.rosterChanged()
		}
		p = m.participant
	}); err != nil {
		return domain.Participant{}, err
	}

	return p, updateErr
}

// Sync sends the current playback state to one participant.
func (r *Room) Sync(ctx context.Context, participantID string) (domain.PlaybackState, error) {
	now := r.cfg.Now()

	var (
		state   domain.PlaybackState
		syncErr error
	)

	if err := r.do(ctx, func() {
		m, ok := r.members[participantID]
		if !ok {
			syncErr = ErrParticipantNotFound
			return
		}
		m.lastSeen = now

		state = r.playback
		if !r.sendPlayback(m) {
			r.evict([]string{participantID}, "send failed")
			r.rosterChanged()
		}
	}); err != nil {
		return domain.PlaybackState{}, err
	}

	return state, syncErr
}

type Snapshot struct {
	RoomID         string
	MediaID        string
	State          State
	Roster         []domain.Participant
	Playback       domain.PlaybackState
	CreatedAt      time.Time
	LastActivityAt time.Time
}

func (r *Room) Snapshot(ctx context.Context) (Snapshot, error) {
	var s Snapshot

	if err := r.do(ctx, func() {
		s = Snapshot{
			RoomID:         r.id,
			MediaID:        r.mediaID,
			State:          r.state,
			Roster:         r.roster(),
			Playback:       r.playback,
			CreatedAt:      r.createdAt,
			LastActivityAt: r.lastActivityAt,
		}
	}); err != nil {
		return Snapshot{}, err
	}

	return s, nil
}
