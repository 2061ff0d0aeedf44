package inmemory

import (
	"context"
	"sync"
	"time"

	"github.com/sharetube/together/internal/repository/directory"
)

type entry struct {
	summary   directory.Summary
	expiresAt time.Time
}

type repo struct {
	rooms map[string]entry
	ttl   time.Duration
	now   func() time.Time
	mu    sync.RWMutex
}

func NewRepo(ttl time.Duration) *repo {
	return &repo{
		rooms: make(map[string]entry),
		ttl:   ttl,
		now:   time.Now,
	}
}

func (r *repo) Put(_ context.Context, s directory.Summary) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.rooms[s.RoomID] = entry{
		summary:   s,
		expiresAt: r.now().Add(r.ttl),
	}

	return nil
}

func (r *repo) Delete(_ context.Context, roomID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rooms[roomID]; !ok {
		return directory.ErrRoomNotFound
	}

	delete(r.rooms, roomID)

	return nil
}

func (r *repo) Get(_ context.Context, roomID string) (directory.Summary, error) {
	r.mu.RLock()
	e, ok := r.rooms[roomID]
	r.mu.RUnlock()

	if !ok {
		return directory.Summary{}, directory.ErrRoomNotFound
	}

	if r.now().After(e.expiresAt) {
		r.mu.Lock()
		if cur, ok := r.rooms[roomID]; ok && cur.expiresAt.Equal(e.expiresAt) {
			delete(r.rooms, roomID)
		}
		r.mu.Unlock()

		return directory.Summary{}, directory.ErrRoomNotFound
	}

	return e.summary, nil
}
