package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/pawsense/vetagent/internal/agent"
	"github.com/pawsense/vetagent/internal/observability"
)

// wsError is the error frame sent to WebSocket clients.
type wsError struct {
	Error string `json:"error"`
}

// sessionIdleTimeout bounds how long a WebSocket conversation may sit
// between messages.
const sessionIdleTimeout = 10 * time.Minute

// handleWebSocket runs one chat conversation over a WebSocket connection.
// Each client frame is a chatRequest; each reply is the engine's TurnResult.
// The session ID from the first turn is reused for the rest of the
// connection, so clients may leave session_id empty throughout.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Printf("server: websocket accept failed: %v", err)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "connection closed")

	sessionID := r.URL.Query().Get("session_id")
	for {
		ctx, cancel := context.WithTimeout(r.Context(), sessionIdleTimeout)
		var req chatRequest
		err := wsjson.Read(ctx, conn, &req)
		cancel()
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				conn.Close(websocket.StatusNormalClosure, "")
			} else {
				log.Printf("server: websocket read ended: %v", err)
			}
			return
		}

		if req.SessionID != "" {
			sessionID = req.SessionID
		}

		result, err := s.engine.HandleMessage(r.Context(), sessionID, req.Message)
		if err != nil {
			msg := "internal error"
			if errors.Is(err, agent.ErrEmptyMessage) {
				msg = "message must not be empty"
			} else {
				log.Printf("server: websocket turn failed: %v", err)
			}
			if err := wsjson.Write(r.Context(), conn, wsError{Error: msg}); err != nil {
				return
			}
			continue
		}
		sessionID = result.SessionID
		observability.Turns.WithLabelValues(string(result.Status)).Inc()

		if err := wsjson.Write(r.Context(), conn, result); err != nil {
			log.Printf("server: websocket write failed: %v", err)
			return
		}
	}
}
