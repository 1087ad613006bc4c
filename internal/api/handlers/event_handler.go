package handlers

import (
	"time"

	"kyokki-backend/pkg/events"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

const eventWriteTimeout = 10 * time.Second

type (
	EventHandler interface {
		RequireUpgrade(c *fiber.Ctx) error
		Stream() fiber.Handler
	}

	eventHandler struct {
		hub *events.Hub
	}

	// wsSubscriber adapts a websocket connection to events.Subscriber. The hub
	// calls Send from a single goroutine per subscriber.
	wsSubscriber struct {
		conn *websocket.Conn
	}
)

func NewEventHandler(hub *events.Hub) EventHandler {
	return &eventHandler{hub: hub}
}

func (s *wsSubscriber) Send(payload []byte) error {
	if err := s.conn.SetWriteDeadline(time.Now().Add(eventWriteTimeout)); err != nil {
		return err
	}
	return s.conn.WriteMessage(websocket.TextMessage, payload)
}

func (h *eventHandler) RequireUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Stream registers each connection with the hub and keeps it open until the
// client goes away. Messages from the client are read and ignored.
func (h *eventHandler) Stream() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		id := h.hub.Subscribe(&wsSubscriber{conn: conn})
		defer h.hub.Unsubscribe(id)

		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Warnw("websocket closed unexpectedly", "subscriber_id", id.String(), "error", err)
				}
				return
			}
			log.Debugw("websocket message ignored", "subscriber_id", id.String(), "size", len(msg))
		}
	})
}
