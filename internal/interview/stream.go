package interview

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"interview-backend/internal/shared/server/middleware"
	"interview-backend/internal/shared/telemetry"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = (streamPongWait * 9) / 10
)

func newUpgrader(policy middleware.OriginPolicy) *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		// Non-browser clients send no Origin and are let through.
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || policy.Allows(origin)
		},
	}
}

func (h *Handler) stream(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		telemetry.Warn("interview.stream_upgrade_failed", map[string]any{
			"err":        telemetry.ErrString(err),
			"origin":     c.GetHeader("Origin"),
			"request_id": middleware.RequestIDFromContext(c),
		})
		return
	}

	events, unsubscribe := h.Svc.Events.Subscribe()
	telemetry.Info("interview.stream_connected", map[string]any{"request_id": middleware.RequestIDFromContext(c)})

	closed := make(chan struct{})
	go readPump(conn, closed)
	writePump(conn, events, h.Svc.View(), closed)

	unsubscribe()
	_ = conn.Close()
	telemetry.Info("interview.stream_disconnected", map[string]any{"request_id": middleware.RequestIDFromContext(c)})
}

// readPump drains client frames so control messages are processed, and
// closes done when the peer goes away.
func readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func writePump(conn *websocket.Conn, events <-chan Event, initial View, done <-chan struct{}) {
	ticker := time.NewTicker(streamPingPeriod)
	defer ticker.Stop()

	_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
	if err := conn.WriteJSON(gin.H{"type": EventState, "view": initial}); err != nil {
		return
	}
	for {
		select {
		case <-done:
			return
		case ev, ok := <-events:
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
