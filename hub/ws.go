package hub

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/mmdatafocus/manufacture_backend/config"
)

const (
	pingPeriod = 15 * time.Second
	pongWait   = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Cross-origin policy is enforced by the CORS layer; kitchen displays
	// connect from LAN hosts that are not known ahead of time.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsSubscriber wraps a websocket connection behind the Subscriber
// interface. Writes are serialized: broadcasts, echoes and pings come from
// different goroutines and gorilla permits one concurrent writer.
type wsSubscriber struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *wsSubscriber) Send(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, []byte(text))
}

// ServeWS upgrades the request and keeps the subscriber registered for the
// lifetime of its read loop. Inbound text frames are acknowledged with an
// echo; the display protocol itself is push-only.
func ServeWS(h *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			config.LogError(h.logger, "hub/ws.go", "ServeWS", "upgrade", c.Request.RemoteAddr, err)
			return
		}

		sub := &wsSubscriber{conn: conn}
		h.Register(sub)

		done := make(chan struct{})
		defer func() {
			close(done)
			h.Unregister(sub)
			conn.Close()
		}()

		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})

		go func() {
			ticker := time.NewTicker(pingPeriod)
			defer ticker.Stop()
			for {
				select {
				case <-done:
					return
				case <-ticker.C:
					sub.mu.Lock()
					err := conn.WriteMessage(websocket.PingMessage, nil)
					sub.mu.Unlock()
					if err != nil {
						return
					}
				}
			}
		}()

		for {
			messageType, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if messageType == websocket.TextMessage {
				_ = sub.Send("Server received: " + string(data))
			}
		}
	}
}
