package controller

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sharetube/together/internal/domain"
	"github.com/sharetube/together/internal/repository/directory"
	"github.com/sharetube/together/internal/service/room"
	"github.com/sharetube/together/pkg/wsrouter"
)

type iRoomService interface {
	CreateRoom(context.Context) (room.CreateRoomResponse, error)
	GetRoom(context.Context, string) (directory.Summary, error)
	JoinRoom(context.Context, *room.JoinRoomParams) (room.JoinRoomResponse, error)
	LeaveRoom(context.Context, *room.LeaveRoomParams) error
	SubmitPlaybackIntent(context.Context, *room.SubmitPlaybackIntentParams) (domain.PlaybackState, error)
	SyncPlayback(ctx context.Context, roomID, participantID string) (domain.PlaybackState, error)
	Heartbeat(context.Context, *room.HeartbeatParams) (time.Time, error)
	Touch(ctx context.Context, roomID, participantID string) error
	UpdateProfile(context.Context, *room.UpdateProfileParams) (domain.Participant, error)
	Stats() room.Stats
}

type iConnRepo interface {
	Add(string, io.Closer) error
	Remove(string) error
	Count() int
}

type controller struct {
	roomService iRoomService
	connRepo    iConnRepo
	upgrader    websocket.Upgrader
	wsRouter    *wsrouter.WSRouter
	logger      *slog.Logger
}

func NewController(roomService iRoomService, connRepo iConnRepo, logger *slog.Logger) *controller {
	c := &controller{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		roomService: roomService,
		connRepo:    connRepo,
		logger:      logger,
	}
	c.wsRouter = c.getWSRouter()

	return c
}
