package controller

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sharetube/together/internal/service/room"
	"github.com/sharetube/together/pkg/rest"
)

type statsResponse struct {
	Rooms        int `json:"rooms"`
	Participants int `json:"participants"`
	Connections  int `json:"connections"`
}

func (c controller) getStats(w http.ResponseWriter, r *http.Request) {
	stats := c.roomService.Stats()

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": statsResponse{
		Rooms:        stats.Rooms,
		Participants: stats.Participants,
		Connections:  c.connRepo.Count(),
	}})
}

type createRoomResponse struct {
	RoomID   string `json:"roomId"`
	ShareURL string `json:"shareUrl"`
}

func (c controller) createRoom(w http.ResponseWriter, r *http.Request) {
	resp, err := c.roomService.CreateRoom(r.Context())
	if err != nil {
		c.logger.ErrorContext(r.Context(), "failed to create room", "error", err)
		rest.WriteJSON(w, http.StatusInternalServerError, rest.Envelope{"error": "internal error"})
		return
	}

	rest.WriteJSON(w, http.StatusCreated, rest.Envelope{"data": createRoomResponse{
		RoomID:   resp.RoomID,
		ShareURL: resp.ShareURL,
	}})
}

func (c controller) getRoom(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "room-id")

	summary, err := c.roomService.GetRoom(r.Context(), roomID)
	if err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			rest.WriteJSON(w, http.StatusNotFound, rest.Envelope{"error": "room not found"})
			return
		}

		c.logger.ErrorContext(r.Context(), "failed to get room", "room_id", roomID, "error", err)
		rest.WriteJSON(w, http.StatusInternalServerError, rest.Envelope{"error": "internal error"})
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": summary})
}
