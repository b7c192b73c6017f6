// internal/handlers/ws.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"chessmatch/internal/auth"
	"chessmatch/internal/conn"
	"chessmatch/internal/presence"
)

const visitorCookie = "visitor_token"

// WSHandler upgrades the HTTP connection and runs it until the transport
// closes. Each connection gets its own goroutine pair (read loop here, write
// pump alongside); everything the connection owned is unwound when the read
// loop exits, no matter how it exits.
func WSHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Cookie headers must go out with the upgrade response, so the
		// visitor session is settled before Accept.
		visitorID, err := ensureVisitor(w, r)
		if err != nil {
			s.Logger.Warnf("visitor session setup failed: %v", err)
			http.Error(w, "session setup failed", http.StatusInternalServerError)
			return
		}

		ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"chess"},
			OriginPatterns: []string{"*"}, // Adjust in production.
		})
		if err != nil {
			s.Logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer ws.Close(websocket.StatusInternalError, "handler finished")

		if ws.Subprotocol() != "chess" {
			ws.Close(BadSubprotocolError, "client must speak the chess subprotocol")
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		c := conn.New(visitorID, cancel)
		s.Registry.Add(c.ID)
		s.Presence.RecordConnect(ctx, presence.Fingerprint(visitorID))
		s.Logger.Infof("connection %s established (%s)", c.ID, r.RemoteAddr)

		go writePump(ctx, ws, c, s.Logger)

		readLoop(ctx, ws, s, c)

		// Cleanup runs on every exit path, including after an explicit
		// leaveRoom or cancelMatchmaking moments earlier; every step is a
		// no-op when there is nothing left to undo.
		s.HandleDisconnect(context.Background(), c)
		s.Logger.Infof("connection %s closed", c.ID)
	}
}

// ensureVisitor reads the visitor token cookie, or mints a fresh anonymous
// visitor id and sets the cookie if the token is missing or invalid.
func ensureVisitor(w http.ResponseWriter, r *http.Request) (string, error) {
	if cookie, err := r.Cookie(visitorCookie); err == nil {
		if visitorID, err := auth.VerifyVisitorToken(cookie.Value); err == nil {
			return visitorID, nil
		}
	}

	visitorID := uuid.NewString()
	token, err := auth.CreateVisitorToken(visitorID)
	if err != nil {
		return "", err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     visitorCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
	})
	return visitorID, nil
}

// readLoop reads frames until the connection dies, parsing each text frame
// as a JSON packet and dispatching it. A malformed frame is logged and
// skipped; nothing a client sends can take the loop down.
func readLoop(ctx context.Context, ws *websocket.Conn, s *Server, c *conn.Conn) {
	for {
		typ, data, err := ws.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				s.Logger.Infof("connection %s: websocket closed normally", c.ID)
			} else if strings.Contains(err.Error(), "context canceled") {
				s.Logger.Infof("connection %s: context canceled", c.ID)
			} else {
				s.Logger.Warnf("connection %s: read error: %v (status %d)", c.ID, err, status)
			}
			return
		}

		if typ != websocket.MessageText {
			s.Logger.Warnf("connection %s: ignoring non-text message type %d", c.ID, typ)
			continue
		}

		var packet map[string]interface{}
		if err := json.Unmarshal(data, &packet); err != nil {
			s.Logger.Warnf("connection %s: invalid json: %v", c.ID, err)
			c.WriteError("badRequest", "invalid JSON format")
			continue
		}

		handleClientMessage(s, c, packet)

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

// writePump drains the connection's out channel onto the wire and keeps the
// transport alive with periodic pings. One writer per connection means
// messages reach the client in the order they were enqueued.
func writePump(ctx context.Context, ws *websocket.Conn, c *conn.Conn, logger *logrus.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-c.Out:
			if !ok {
				return
			}
			data, err := json.Marshal(msg)
			if err != nil {
				logger.Warnf("connection %s: failed to marshal outgoing msg: %v", c.ID, err)
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = ws.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				logger.Warnf("connection %s: write failed: %v", c.ID, err)
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
			err := ws.Ping(pingCtx)
			cancel()
			if err != nil {
				logger.Warnf("connection %s: ping failed, assuming disconnect: %v", c.ID, err)
				return
			}
		}
	}
}
