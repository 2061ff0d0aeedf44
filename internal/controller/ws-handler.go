package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sharetube/together/internal/domain"
	"github.com/sharetube/together/internal/hub"
	"github.com/sharetube/together/internal/protocol"
	"github.com/sharetube/together/internal/service/room"
	"github.com/sharetube/together/pkg/ctxlogger"
	"github.com/sharetube/together/pkg/wsrouter"
)

const leaveTimeout = 5 * time.Second

func (c controller) serveWS(w http.ResponseWriter, r *http.Request) {
	ws, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.WarnContext(r.Context(), "failed to upgrade to websocket", "error", err)
		return
	}

	cl := newClient(c.generateTimeBasedId(), ws)
	ctx := ctxlogger.AppendCtx(r.Context(), slog.String("conn_id", cl.id))
	ctx = context.WithValue(ctx, clientCtxKey, cl)

	if err := c.connRepo.Add(cl.id, cl); err != nil {
		c.logger.ErrorContext(ctx, "failed to register connection", "error", err)
		ws.Close()
		return
	}
	defer c.disconnect(ctx, cl)

	c.logger.InfoContext(ctx, "websocket connected")

	go cl.writePump()
	c.readPump(ctx, cl)
}

func (c controller) readPump(ctx context.Context, cl *client) {
	cl.ws.SetReadLimit(maxMessageSize)
	cl.ws.SetReadDeadline(time.Now().Add(pongWait))
	cl.ws.SetPongHandler(func(string) error {
		return cl.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := cl.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.WarnContext(ctx, "websocket read error", "error", err)
			}
			return
		}
		cl.ws.SetReadDeadline(time.Now().Add(pongWait))

		c.handleMessage(ctx, cl, data)
	}
}

// handleMessage never ends the connection: errors are logged and the frame
// is dropped.
func (c controller) handleMessage(ctx context.Context, cl *client, data []byte) {
	err := c.wsRouter.Dispatch(ctx, data)
	if err == nil {
		return
	}

	if errors.Is(err, wsrouter.ErrMalformedMessage) || errors.Is(err, wsrouter.ErrUnknownMessageType) {
		c.logger.InfoContext(ctx, "dropped malformed message", "error", err)
		if cl.bound() {
			if err := c.roomService.Touch(ctx, cl.roomID, cl.participantID); errors.Is(err, room.ErrNotJoined) {
				cl.unbind()
			}
		}
		return
	}

	c.logger.WarnContext(ctx, "failed to handle message", "error", err)
}

func (c controller) disconnect(ctx context.Context, cl *client) {
	if cl.bound() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), leaveTimeout)
		c.leaveRoom(ctx, cl)
		cancel()
	}

	if err := c.connRepo.Remove(cl.id); err != nil {
		c.logger.DebugContext(ctx, "connection already removed", "error", err)
	}
	cl.Close()

	c.logger.InfoContext(ctx, "websocket disconnected")
}

func (c controller) leaveRoom(ctx context.Context, cl *client) {
	params := &room.LeaveRoomParams{
		RoomID:        cl.roomID,
		ParticipantID: cl.participantID,
	}
	cl.unbind()

	if err := c.roomService.LeaveRoom(ctx, params); err != nil && !errors.Is(err, room.ErrNotJoined) {
		c.logger.WarnContext(ctx, "failed to leave room", "room_id", params.RoomID, "error", err)
	}
}

func (c controller) sendMessage(cl *client, messageType string, payload any) error {
	data, err := protocol.Encode(messageType, payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", messageType, err)
	}

	return cl.Send(data)
}

func (c controller) sendError(cl *client, code, message string, details any) error {
	return c.sendMessage(cl, protocol.TypeError, protocol.ErrorOutput{
		Code:    code,
		Message: message,
		Details: details,
	})
}

func (c controller) sendNotJoined(cl *client) error {
	return c.sendError(cl, protocol.ErrorCodeNotJoined, "join a room first", nil)
}

func (c controller) handleJoin(ctx context.Context, input protocol.JoinInput) error {
	cl := c.getClientFromCtx(ctx)

	if cl.bound() {
		c.logger.InfoContext(ctx, "join while bound, leaving previous room", "room_id", cl.roomID)
		c.leaveRoom(ctx, cl)
	}

	resp, err := c.roomService.JoinRoom(ctx, &room.JoinRoomParams{
		Input: input,
		Conn:  cl,
	})
	if err != nil {
		var validationErr *room.ValidationError
		switch {
		case errors.As(err, &validationErr):
			return c.sendError(cl, protocol.ErrorCodeInvalidJoin, validationErr.Error(), validationErr.Errors)
		case errors.Is(err, hub.ErrRoomFull):
			return c.sendError(cl, protocol.ErrorCodeRoomFull, "room is full", nil)
		}
		return fmt.Errorf("failed to join room: %w", err)
	}

	cl.bind(resp.RoomID, resp.ParticipantID)

	return nil
}

func (c controller) handleLeave(ctx context.Context, _ protocol.EmptyInput) error {
	cl := c.getClientFromCtx(ctx)
	if !cl.bound() {
		return c.sendNotJoined(cl)
	}

	roomID := cl.roomID
	c.leaveRoom(ctx, cl)

	return c.sendMessage(cl, protocol.TypeLeft, protocol.LeftOutput{RoomID: roomID})
}

func (c controller) handlePlaybackIntent(ctx context.Context, input protocol.PlaybackIntentInput) error {
	cl := c.getClientFromCtx(ctx)
	if !cl.bound() {
		return c.sendNotJoined(cl)
	}

	_, err := c.roomService.SubmitPlaybackIntent(ctx, &room.SubmitPlaybackIntentParams{
		RoomID:        cl.roomID,
		ParticipantID: cl.participantID,
		Input:         input,
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrStaleIntent):
		c.logger.DebugContext(ctx, "stale playback intent dropped")
		return nil
	case errors.Is(err, room.ErrNotJoined):
		cl.unbind()
		return c.sendNotJoined(cl)
	}

	return fmt.Errorf("failed to submit playback intent: %w", err)
}

func (c controller) handleHeartbeat(ctx context.Context, input protocol.HeartbeatInput) error {
	cl := c.getClientFromCtx(ctx)

	serverNow := time.Now()
	if cl.bound() {
		t, err := c.roomService.Heartbeat(ctx, &room.HeartbeatParams{
			RoomID:        cl.roomID,
			ParticipantID: cl.participantID,
			Input:         input,
		})
		switch {
		case err == nil:
			serverNow = t
		case errors.Is(err, room.ErrNotJoined):
			cl.unbind()
		default:
			return fmt.Errorf("failed to record heartbeat: %w", err)
		}
	}

	return c.sendMessage(cl, protocol.TypeHeartbeat, protocol.HeartbeatOutput{
		ServerNow:       protocol.Millis(serverNow),
		ClientTimestamp: input.ClientTimestamp,
	})
}

func (c controller) handleSync(ctx context.Context, _ protocol.EmptyInput) error {
	cl := c.getClientFromCtx(ctx)
	if !cl.bound() {
		return c.sendNotJoined(cl)
	}

	if _, err := c.roomService.SyncPlayback(ctx, cl.roomID, cl.participantID); err != nil {
		if errors.Is(err, room.ErrNotJoined) {
			cl.unbind()
			return c.sendNotJoined(cl)
		}
		return fmt.Errorf("failed to sync playback: %w", err)
	}

	return nil
}

func (c controller) handleUpdateProfile(ctx context.Context, input protocol.UpdateProfileInput) error {
	cl := c.getClientFromCtx(ctx)
	if !cl.bound() {
		return c.sendNotJoined(cl)
	}

	if _, err := c.roomService.UpdateProfile(ctx, &room.UpdateProfileParams{
		RoomID:        cl.roomID,
		ParticipantID: cl.participantID,
		Input:         input,
	}); err != nil {
		if errors.Is(err, room.ErrNotJoined) {
			cl.unbind()
			return c.sendNotJoined(cl)
		}
		return fmt.Errorf("failed to update profile: %w", err)
	}

	return nil
}
