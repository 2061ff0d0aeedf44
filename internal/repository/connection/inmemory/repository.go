package inmemory

import (
	"io"
	"log/slog"
	"sync"

	"github.com/sharetube/together/internal/repository/connection"
)

// repo tracks every open connection, bound to a room or not, so they can be
// counted and closed on shutdown.
type repo struct {
	conns  map[string]io.Closer
	logger *slog.Logger
	mu     sync.RWMutex
}

func NewRepo(logger *slog.Logger) *repo {
	return &repo{
		conns:  make(map[string]io.Closer),
		logger: logger,
	}
}

func (r *repo) Add(connID string, conn io.Closer) error {
	funcName := "connection.inmemory.Add"
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[connID]; ok {
		r.logger.Info(funcName, "conn_id", connID, "error", connection.ErrAlreadyExists)
		return connection.ErrAlreadyExists
	}

	r.conns[connID] = conn
	r.logger.Debug(funcName, "conn_id", connID, "connections", len(r.conns))

	return nil
}

func (r *repo) Remove(connID string) error {
	funcName := "connection.inmemory.Remove"
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[connID]; !ok {
		r.logger.Info(funcName, "conn_id", connID, "error", connection.ErrNotFound)
		return connection.ErrNotFound
	}

	delete(r.conns, connID)
	r.logger.Debug(funcName, "conn_id", connID, "connections", len(r.conns))

	return nil
}

func (r *repo) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.conns)
}

// CloseAll closes and forgets every tracked connection.
func (r *repo) CloseAll() int {
	r.mu.Lock()
	conns := r.conns
	r.conns = make(map[string]io.Closer)
	r.mu.Unlock()

	for _, conn := range conns {
		conn.Close()
	}

	return len(conns)
}
