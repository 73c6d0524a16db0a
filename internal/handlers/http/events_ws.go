package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/shift-devs/twitch-gamepad/internal/core/ports"
	"github.com/shift-devs/twitch-gamepad/internal/infrastructure/middleware"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Should be configured properly for production
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// EventsHub streams router events to websocket subscribers (overlays,
// dashboards). The feed is one-way; inbound frames are discarded.
type EventsHub struct {
	source ports.EventSource

	pingInterval time.Duration
	readTimeout  time.Duration
	writeTimeout time.Duration

	logger *zap.SugaredLogger
}

func NewEventsHub(source ports.EventSource, logger *zap.SugaredLogger) *EventsHub {
	return &EventsHub{
		source:       source,
		pingInterval: 30 * time.Second,
		readTimeout:  60 * time.Second,
		writeTimeout: 10 * time.Second,
		logger:       logger,
	}
}

func (h *EventsHub) Handle(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Errorw("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	subject := c.GetString(middleware.ContextSubject)
	h.logger.Infow("event subscriber connected", "subject", subject, "remote", conn.RemoteAddr())

	events, cancel := h.source.Subscribe()
	defer cancel()

	conn.SetReadDeadline(time.Now().Add(h.readTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(h.readTimeout))
		return nil
	})

	pingTicker := time.NewTicker(h.pingInterval)
	defer pingTicker.Stop()

	// Reader goroutine: the client sends nothing we act on, but reading
	// keeps pong frames flowing and surfaces disconnects.
	errorChan := make(chan error, 1)
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				errorChan <- err
				return
			}
			conn.SetReadDeadline(time.Now().Add(h.readTimeout))
		}
	}()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
				return
			}
			conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			if err := conn.WriteJSON(event); err != nil {
				h.logger.Infow("event subscriber write failed", "subject", subject, "error", err)
				return
			}

		case <-pingTicker.C:
			conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.logger.Infow("event subscriber ping failed", "subject", subject, "error", err)
				return
			}

		case err := <-errorChan:
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Infow("event subscriber read failed", "subject", subject, "error", err)
			}
			return

		case <-c.Request.Context().Done():
			return
		}
	}
}
