package hub

import (
	"log/slog"
	"sync"
)

// Registry maps room ids to live room actors. A single mutex guards the map,
// so concurrent GetOrCreate calls for one id always share one actor.
type Registry struct {
	cfg       Config
	publisher *Publisher
	logger    *slog.Logger
	rooms     map[string]*Room
	closed    bool
	mu        sync.Mutex
}

func NewRegistry(cfg Config, publisher *Publisher, logger *slog.Logger) *Registry {
	return &Registry{
		cfg:       cfg.withDefaults(),
		publisher: publisher,
		logger:    logger,
		rooms:     make(map[string]*Room),
	}
}

// GetOrCreate returns the live room for roomID, starting a new Empty room
// when none exists or the previous one already shut down.
func (g *Registry) GetOrCreate(roomID string) (*Room, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return nil, ErrRegistryClosed
	}

	if r, ok := g.rooms[roomID]; ok && !r.isClosed() {
		return r, nil
	}

	r := newRoom(roomID, g.cfg, g, g.publisher, g.logger)
	g.rooms[roomID] = r
	go r.run()

	g.logger.Debug("room created", "room_id", roomID)

	return r, nil
}

func (g *Registry) Lookup(roomID string) (*Room, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	r, ok := g.rooms[roomID]
	if !ok || r.isClosed() {
		return nil, false
	}

	return r, true
}

// remove is called by a room about itself once it has shut down.
func (g *Registry) remove(r *Room) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.rooms[r.id] == r {
		delete(g.rooms, r.id)
		g.logger.Debug("room removed", "room_id", r.id)
	}
}

func (g *Registry) Stats() (rooms, participants int) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, r := range g.rooms {
		if r.isClosed() {
			continue
		}
		rooms++
		participants += r.Participants()
	}

	return rooms, participants
}

// Close stops every room and waits for them to finish. Rooms close their
// participants' connections on the way out.
func (g *Registry) Close() {
	g.mu.Lock()
	g.closed = true
	rooms := make([]*Room, 0, len(g.rooms))
	for _, r := range g.rooms {
		rooms = append(rooms, r)
	}
	g.mu.Unlock()

	for _, r := range rooms {
		r.shutdown()
	}
	for _, r := range rooms {
		<-r.closed
	}

	g.logger.Info("registry closed", "rooms", len(rooms))
}
