package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/runnerr0/geoword/internal/playback"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// streamMessage is pushed to clients. Type is "snapshot", "session" or
// "error".
type streamMessage struct {
	Type     string             `json:"type"`
	Snapshot *playback.Snapshot `json:"snapshot,omitempty"`
	Session  *sessionResponse   `json:"session,omitempty"`
	Error    string             `json:"error,omitempty"`
}

// stream pushes a snapshot on every controller change and the session state
// on every search transition. Clients send Actions back. Only this
// goroutine writes to conn.
func (s *Server) stream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	log := s.logger.With("request_id", RequestIDFromContext(r.Context()))
	log.Debug("stream opened")

	snaps, cancelSnaps := s.controller.Subscribe()
	defer cancelSnaps()
	states, cancelStates := s.session.Subscribe()
	defer cancelStates()

	errs := make(chan error, 8)
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.readActions(conn, errs)
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		var msg streamMessage
		select {
		case <-done:
			log.Debug("stream closed")
			return
		case <-s.baseCtx.Done():
			goingAway(conn)
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
			continue
		case snap, ok := <-snaps:
			if !ok {
				goingAway(conn)
				return
			}
			msg = streamMessage{Type: "snapshot", Snapshot: &snap}
		case st, ok := <-states:
			if !ok {
				goingAway(conn)
				return
			}
			view := s.sessionView(st)
			msg = streamMessage{Type: "session", Session: &view}
		case err := <-errs:
			msg = streamMessage{Type: "error", Error: err.Error()}
		}

		conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck
		if err := conn.WriteJSON(msg); err != nil {
			log.Debug("stream write failed", "error", err)
			return
		}
	}
}

func goingAway(conn *websocket.Conn) {
	conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")) //nolint:errcheck
}

func (s *Server) readActions(conn *websocket.Conn, errs chan<- error) {
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var a Action
		if err = json.Unmarshal(data, &a); err != nil {
			err = fmt.Errorf("%w: invalid action message", ErrBadValue)
		} else {
			err = s.apply(s.baseCtx, a)
		}
		if err != nil {
			select {
			case errs <- err:
			default:
			}
		}
	}
}
