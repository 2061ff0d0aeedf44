package controller

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192
	sendBufferSize = 256
)

var (
	errConnClosed     = errors.New("connection closed")
	errSendBufferFull = errors.New("send buffer full")
)

// client is one WebSocket connection. Frames are read on the goroutine
// serving the HTTP request and written by writePump; the room binding is
// only touched by the reading goroutine.
type client struct {
	id   string
	ws   *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once

	roomID        string
	participantID string
}

func newClient(id string, ws *websocket.Conn) *client {
	return &client{
		id:   id,
		ws:   ws,
		send: make(chan []byte, sendBufferSize),
		done: make(chan struct{}),
	}
}

// Send queues data for writing. It never blocks: a slow reader gets an
// error once its buffer is full.
func (cl *client) Send(data []byte) error {
	select {
	case <-cl.done:
		return errConnClosed
	default:
	}

	select {
	case cl.send <- data:
		return nil
	default:
		return errSendBufferFull
	}
}

func (cl *client) Close() error {
	var err error
	cl.once.Do(func() {
		close(cl.done)
		err = cl.ws.Close()
	})

	return err
}

func (cl *client) bind(roomID, participantID string) {
	cl.roomID = roomID
	cl.participantID = participantID
}

func (cl *client) unbind() {
	cl.roomID = ""
	cl.participantID = ""
}

func (cl *client) bound() bool {
	return cl.participantID != ""
}

func (cl *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		cl.Close()
	}()

	for {
		select {
		case message := <-cl.send:
			cl.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			cl.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-cl.done:
			return
		}
	}
}
