package ws

import (
	"encoding/json"
	"time"

	"github.com/focusritual/collab/internal/infrastructure/auth"
	"github.com/focusritual/collab/internal/infrastructure/logging"
	"github.com/focusritual/collab/internal/infrastructure/metrics"
	"github.com/focusritual/collab/wire"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message
	pongWait = 60 * time.Second

	// Send pings with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Max inbound frame size; whiteboard snapshots are the largest frames
	maxMessageSize = 512 * 1024
)

// Client is one websocket connection bound to a room and an identity. One
// participant may hold several clients (tabs); presence tracks the
// participant, not the connection.
type Client struct {
	conn *websocket.Conn
	send chan *wire.Envelope

	ID       string
	RoomID   string
	Identity auth.Identity
}

func NewClient(conn *websocket.Conn, roomID string, identity auth.Identity) *Client {
	return &Client{
		conn:     conn,
		send:     make(chan *wire.Envelope, 64),
		ID:       uuid.NewString(),
		RoomID:   roomID,
		Identity: identity,
	}
}

func (c *Client) Participant() wire.Participant {
	return wire.Participant{
		ID:        c.Identity.UserID,
		Name:      c.Identity.Name,
		AvatarURL: c.Identity.AvatarURL,
	}
}

// trySend queues an event without blocking; a full buffer means the client
// is too slow and the event is dropped (the next room.state resync heals
// it).
func (c *Client) trySend(env *wire.Envelope) {
	select {
	case c.send <- env:
	default:
		metrics.DroppedMessages.Inc()
	}
}

// ReadPump pumps intents from the websocket into the core. It owns the read
// side of the connection and unregisters the client when the connection
// dies.
func (c *Client) ReadPump(core *Core) {
	defer func() {
		core.Unregister() <- c
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				core.logger.Warn(logging.Realtime, logging.Intent, "unexpected close", map[logging.ExtraKey]any{
					logging.RoomID:       c.RoomID,
					logging.UserID:       c.Identity.UserID,
					logging.ErrorMessage: err.Error(),
				})
			}
			break
		}

		var env wire.Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			c.reject("", "malformed envelope")
			continue
		}
		env.RoomID = c.RoomID // clients cannot speak for other rooms

		core.handleIntent(c, &env)
	}
}

// WritePump is the sole writer on the connection: queued events plus
// keepalive pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case env, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(env); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// reject tells this client (and only this client) that an intent was
// declined, so a drop is never silent.
func (c *Client) reject(intent, reason string) {
	metrics.IntentsRejected.WithLabelValues(intent).Inc()
	c.trySend(wire.MustEnvelope(wire.EventActionRejected, c.RoomID, wire.ActionRejectedPayload{
		Intent: intent,
		Reason: reason,
	}))
}
