package controller

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sharetube/together/internal/hub"
	"github.com/sharetube/together/internal/protocol"
	"github.com/sharetube/together/internal/repository/connection/inmemory"
	dirInmemory "github.com/sharetube/together/internal/repository/directory/inmemory"
	"github.com/sharetube/together/internal/service/room"
	"github.com/sharetube/together/pkg/sessionlink"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	registry := hub.NewRegistry(hub.Config{}, nil, logger)
	links, err := sessionlink.New("http://localhost:3000/watch")
	require.NoError(t, err)

	roomService, err := room.NewService(registry, dirInmemory.NewRepo(time.Minute), links, "", logger)
	require.NoError(t, err)

	connRepo := inmemory.NewRepo(logger)
	srv := httptest.NewServer(NewController(roomService, connRepo, logger).GetMux())
	t.Cleanup(func() {
		registry.Close()
		connRepo.CloseAll()
		srv.Close()
	})

	return srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, messageType string, payload any) {
	t.Helper()
	data, err := protocol.Encode(messageType, payload)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))
}

// readUntil reads frames until one of messageType arrives and decodes it.
func readUntil(t *testing.T, conn *websocket.Conn, messageType string, dst any) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err, "waiting for %s", messageType)

		var e envelope
		require.NoError(t, json.Unmarshal(data, &e))
		if e.Type == messageType {
			if dst != nil {
				require.NoError(t, json.Unmarshal(e.Payload, dst))
			}
			return
		}
	}
}

func joinRoom(t *testing.T, conn *websocket.Conn, roomID string) protocol.JoinedOutput {
	t.Helper()
	send(t, conn, protocol.TypeJoin, protocol.JoinInput{RoomID: roomID, MediaID: "m1"})
	var joined protocol.JoinedOutput
	readUntil(t, conn, protocol.TypeJoined, &joined)
	return joined
}

func rosterIDs(roster []protocol.Participant) []string {
	ids := make([]string, 0, len(roster))
	for _, p := range roster {
		ids = append(ids, p.ParticipantID)
	}
	return ids
}

func TestREST(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/api/v1/rooms", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created struct {
		Data createRoomResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.Len(t, created.Data.RoomID, 12)
	roomID, ok := sessionlink.FromURL(created.Data.ShareURL)
	require.True(t, ok)
	assert.Equal(t, created.Data.RoomID, roomID)

	resp, err = http.Get(srv.URL + "/api/v1/rooms/" + roomID)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	conn := dial(t, srv)
	joinRoom(t, conn, roomID)

	resp, err = http.Get(srv.URL + "/api/v1/rooms/" + roomID)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var summary struct {
		Data struct {
			RoomID       string `json:"roomId"`
			MediaID      string `json:"mediaId"`
			Participants int    `json:"participants"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&summary))
	assert.Equal(t, roomID, summary.Data.RoomID)
	assert.Equal(t, "m1", summary.Data.MediaID)
	assert.Equal(t, 1, summary.Data.Participants)

	resp, err = http.Get(srv.URL + "/api/v1/stats")
	require.NoError(t, err)
	defer resp.Body.Close()

	var stats struct {
		Data statsResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.Equal(t, statsResponse{Rooms: 1, Participants: 1, Connections: 1}, stats.Data)
}

func TestWS_WatchTogether(t *testing.T) {
	srv := newTestServer(t)

	a := dial(t, srv)
	b := dial(t, srv)

	joinedA := joinRoom(t, a, "r1")
	assert.Equal(t, "m1", joinedA.MediaID)

	joinedB := joinRoom(t, b, "r1")
	assert.Equal(t, []string{joinedA.ParticipantID, joinedB.ParticipantID}, rosterIDs(joinedB.Roster))

	var presence protocol.PresenceOutput
	readUntil(t, a, protocol.TypePresence, &presence)
	assert.Equal(t, []string{joinedA.ParticipantID, joinedB.ParticipantID}, rosterIDs(presence.Roster))

	pos := 42.0
	send(t, a, protocol.TypePlaybackIntent, protocol.PlaybackIntentInput{
		Type:            "pause",
		PositionSeconds: &pos,
		ClientTimestamp: time.Now().UnixMilli(),
	})

	var update protocol.PlaybackUpdateOutput
	readUntil(t, b, protocol.TypePlaybackUpdate, &update)
	assert.Equal(t, 42.0, update.PositionSeconds)
	assert.False(t, update.IsPlaying)
	assert.Equal(t, joinedA.ParticipantID, update.LastWriterParticipantID)

	// malformed frames are dropped without closing the connection
	require.NoError(t, a.WriteMessage(websocket.TextMessage, []byte("{not json")))
	send(t, a, "rewind", nil)
	send(t, a, protocol.TypeHeartbeat, protocol.HeartbeatInput{ClientTimestamp: 1234, EchoServerNow: joinedA.ServerNow})

	var hb protocol.HeartbeatOutput
	readUntil(t, a, protocol.TypeHeartbeat, &hb)
	assert.Equal(t, int64(1234), hb.ClientTimestamp)
	assert.NotZero(t, hb.ServerNow)

	c := dial(t, srv)
	joinedC := joinRoom(t, c, "r1")
	assert.Equal(t, 42.0, joinedC.PlaybackState.PositionSeconds)
	assert.False(t, joinedC.PlaybackState.IsPlaying)

	send(t, a, protocol.TypeLeave, protocol.EmptyInput{})
	var left protocol.LeftOutput
	readUntil(t, a, protocol.TypeLeft, &left)
	assert.Equal(t, "r1", left.RoomID)

	readUntil(t, b, protocol.TypePresence, &presence)
	for len(presence.Roster) != 2 {
		readUntil(t, b, protocol.TypePresence, &presence)
	}
	assert.Equal(t, []string{joinedB.ParticipantID, joinedC.ParticipantID}, rosterIDs(presence.Roster))

	// closing the socket leaves the room
	require.NoError(t, c.Close())
	for len(presence.Roster) != 1 {
		readUntil(t, b, protocol.TypePresence, &presence)
	}
	assert.Equal(t, []string{joinedB.ParticipantID}, rosterIDs(presence.Roster))
}

func TestWS_NotJoined(t *testing.T) {
	srv := newTestServer(t)
	conn := dial(t, srv)

	send(t, conn, protocol.TypePlaybackIntent, protocol.PlaybackIntentInput{Type: "play"})

	var out protocol.ErrorOutput
	readUntil(t, conn, protocol.TypeError, &out)
	assert.Equal(t, protocol.ErrorCodeNotJoined, out.Code)

	send(t, conn, protocol.TypeHeartbeat, protocol.HeartbeatInput{})
	readUntil(t, conn, protocol.TypeHeartbeat, nil)
}

func TestWS_InvalidJoin(t *testing.T) {
	srv := newTestServer(t)
	conn := dial(t, srv)

	send(t, conn, protocol.TypeJoin, protocol.JoinInput{RoomID: "bad room id", MediaID: "m1"})

	var out protocol.ErrorOutput
	readUntil(t, conn, protocol.TypeError, &out)
	assert.Equal(t, protocol.ErrorCodeInvalidJoin, out.Code)
	assert.NotNil(t, out.Details)
}

func TestWS_JoinWhileBoundLeavesPreviousRoom(t *testing.T) {
	srv := newTestServer(t)

	a := dial(t, srv)
	b := dial(t, srv)

	joinedA := joinRoom(t, a, "room1")
	joinedB := joinRoom(t, b, "room1")

	var presence protocol.PresenceOutput
	readUntil(t, a, protocol.TypePresence, &presence)
	require.Len(t, presence.Roster, 2)

	joinedA2 := joinRoom(t, a, "room2")
	assert.NotEqual(t, joinedA.ParticipantID, joinedA2.ParticipantID)
	assert.Equal(t, []string{joinedA2.ParticipantID}, rosterIDs(joinedA2.Roster))

	readUntil(t, b, protocol.TypePresence, &presence)
	assert.Equal(t, []string{joinedB.ParticipantID}, rosterIDs(presence.Roster))
}
