package hub

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/sharetube/together/internal/protocol"
	"github.com/stretchr/testify/require"
)

type mockConn struct {
	received [][]byte
	closed   bool
	sendErr  error
	mu       sync.Mutex
}

func (m *mockConn) Send(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.received = append(m.received, data)
	return nil
}

func (m *mockConn) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockConn) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *mockConn) failSends() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendErr = errors.New("send buffer full")
}

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func (m *mockConn) messages(t *testing.T) []envelope {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]envelope, 0, len(m.received))
	for _, data := range m.received {
		var e envelope
		require.NoError(t, json.Unmarshal(data, &e))
		out = append(out, e)
	}
	return out
}

func (m *mockConn) count(t *testing.T, messageType string) int {
	t.Helper()
	n := 0
	for _, e := range m.messages(t) {
		if e.Type == messageType {
			n++
		}
	}
	return n
}

// last decodes the payload of the most recent message of messageType.
func (m *mockConn) last(t *testing.T, messageType string, dst any) {
	t.Helper()
	msgs := m.messages(t)
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Type == messageType {
			require.NoError(t, json.Unmarshal(msgs[i].Payload, dst))
			return
		}
	}
	t.Fatalf("no %q message received", messageType)
}

func (m *mockConn) lastRoster(t *testing.T) []string {
	t.Helper()
	var out protocol.PresenceOutput
	m.last(t, protocol.TypePresence, &out)
	return rosterIDs(out.Roster)
}

func rosterIDs(roster []protocol.Participant) []string {
	ids := make([]string, 0, len(roster))
	for _, p := range roster {
		ids = append(ids, p.ParticipantID)
	}
	return ids
}

type fakeClock struct {
	now time.Time
	mu  sync.Mutex
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRegistry(t *testing.T, cfg Config) *Registry {
	t.Helper()
	g := NewRegistry(cfg, nil, discardLogger())
	t.Cleanup(g.Close)
	return g
}

func join(t *testing.T, r *Room, id, mediaID string) (*mockConn, JoinResult) {
	t.Helper()
	conn := &mockConn{}
	res, err := r.Join(context.Background(), JoinParams{
		ParticipantID: id,
		MediaID:       mediaID,
		Conn:          conn,
	})
	require.NoError(t, err)
	return conn, res
}

func ptr[T any](v T) *T { return &v }
