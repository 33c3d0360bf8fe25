package ws

import (
	"errors"
	"net/http"
	"sync"

	"github.com/focusritual/collab/internal/infrastructure/metrics"
	"github.com/focusritual/collab/wire"
	"github.com/gorilla/websocket"
)

var ErrRoomNotLive = errors.New("room has no live state")

type liveRoom struct {
	state   *roomState
	clients map[string]*Client // connection id -> client
}

// RoomManager owns the live rooms: their authoritative state and the
// clients attached to them. Rooms come alive with their first client and
// are torn down (timer included) when the last one leaves.
type RoomManager struct {
	mu     sync.RWMutex
	rooms  map[string]*liveRoom
	timers TimerDurations

	upgrader websocket.Upgrader

	// broadcast is wired to the core's broadcast channel so timers can emit
	// without holding manager locks.
	broadcast chan<- *wire.Envelope
}

func NewRoomManager(timers TimerDurations, allowedOrigins []string) *RoomManager {
	return &RoomManager{
		rooms:  make(map[string]*liveRoom),
		timers: timers,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(*http.Request) bool {
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
	}
	allowedSet := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		allowedSet[o] = true
	}
	return func(r *http.Request) bool {
		return allowedSet[r.Header.Get("Origin")]
	}
}

func (rm *RoomManager) Upgrade(w http.ResponseWriter, r *http.Request) (*websocket.Conn, error) {
	return rm.upgrader.Upgrade(w, r, nil)
}

func (rm *RoomManager) setBroadcast(ch chan<- *wire.Envelope) {
	rm.broadcast = ch
}

// AddClient attaches a client to its room, creating the live room on first
// join, and returns the room's authoritative state.
func (rm *RoomManager) AddClient(cl *Client) *roomState {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	room, ok := rm.rooms[cl.RoomID]
	if !ok {
		roomID := cl.RoomID
		timer := newRoomTimer(rm.timers, func(state wire.TimerState) {
			rm.broadcast <- wire.MustEnvelope(wire.EventTimerChanged, roomID, state)
		})
		room = &liveRoom{
			state:   newRoomState(timer),
			clients: make(map[string]*Client),
		}
		rm.rooms[cl.RoomID] = room
		metrics.ActiveRooms.Inc()
	}

	if _, exists := room.clients[cl.ID]; !exists {
		room.clients[cl.ID] = cl
		metrics.ConnectedClients.Inc()
	}

	return room.state
}

// RemoveClient detaches a client. It reports whether the participant has no
// remaining connections (so a participant.left should be broadcast) and
// tears the room down when empty.
func (rm *RoomManager) RemoveClient(cl *Client) (gone bool) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	room, ok := rm.rooms[cl.RoomID]
	if !ok {
		return false
	}
	if _, ok := room.clients[cl.ID]; !ok {
		return false
	}

	delete(room.clients, cl.ID)
	close(cl.send)
	metrics.ConnectedClients.Dec()

	gone = true
	for _, other := range room.clients {
		if other.Identity.UserID == cl.Identity.UserID {
			gone = false
			break
		}
	}
	if gone {
		room.state.Leave(cl.Identity.UserID)
	}

	if len(room.clients) == 0 {
		room.state.timer.Stop()
		delete(rm.rooms, cl.RoomID)
		metrics.ActiveRooms.Dec()
	}

	return gone
}

func (rm *RoomManager) State(roomID string) (*roomState, bool) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	room, ok := rm.rooms[roomID]
	if !ok {
		return nil, false
	}
	return room.state, true
}

// Broadcast fans an event out to every client in its room. Slow clients are
// skipped rather than allowed to stall the room.
func (rm *RoomManager) Broadcast(env *wire.Envelope) error {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	room, ok := rm.rooms[env.RoomID]
	if !ok {
		return ErrRoomNotLive
	}

	metrics.EventsBroadcast.WithLabelValues(env.Type).Inc()

	for _, cl := range room.clients {
		cl.trySend(env)
	}
	return nil
}
