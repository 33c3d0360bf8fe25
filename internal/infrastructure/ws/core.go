package ws

import (
	"context"
	"strings"
	"time"

	"github.com/focusritual/collab/internal/domain"
	"github.com/focusritual/collab/internal/infrastructure/logging"
	"github.com/focusritual/collab/wire"
	"github.com/google/uuid"
)

const maxMessageBody = 4096

// Core runs the room event loop: client registration, teardown, and
// broadcast fan-out all serialize through it, the same way intents
// serialize through each room's state lock.
type Core struct {
	roomMgr    *RoomManager
	register   chan *Client
	unregister chan *Client
	broadcast  chan *wire.Envelope
	fileRepo   domain.FileRepository
	logger     logging.Logger
}

func NewCore(roomMgr *RoomManager, fileRepo domain.FileRepository, logger logging.Logger) *Core {
	c := &Core{
		roomMgr:    roomMgr,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *wire.Envelope, 256),
		fileRepo:   fileRepo,
		logger:     logger,
	}
	roomMgr.setBroadcast(c.broadcast)
	return c
}

func (c *Core) Run() {
	for {
		select {
		case cl := <-c.register:
			state := c.roomMgr.AddClient(cl)
			joined := state.Join(cl.Participant())

			// The joiner gets the full snapshot; everyone learns about the
			// participant. Fan out directly rather than through c.broadcast:
			// this loop is that channel's only consumer, so queueing here
			// would block the loop on itself whenever the buffer is full.
			cl.trySend(wire.MustEnvelope(wire.EventRoomState, cl.RoomID, state.Snapshot()))
			_ = c.roomMgr.Broadcast(wire.MustEnvelope(wire.EventParticipantJoined, cl.RoomID, joined))

			c.logger.Info(logging.Realtime, logging.RoomJoin, "client joined", map[logging.ExtraKey]any{
				logging.RoomID: cl.RoomID,
				logging.UserID: cl.Identity.UserID,
			})

		case cl := <-c.unregister:
			if gone := c.roomMgr.RemoveClient(cl); gone {
				// Ignore ErrRoomNotLive: the room may have died with this client.
				_ = c.roomMgr.Broadcast(wire.MustEnvelope(wire.EventParticipantLeft, cl.RoomID, wire.ParticipantLeftPayload{
					ParticipantID: cl.Identity.UserID,
				}))
			}

			c.logger.Info(logging.Realtime, logging.RoomLeave, "client left", map[logging.ExtraKey]any{
				logging.RoomID: cl.RoomID,
				logging.UserID: cl.Identity.UserID,
			})

		case env := <-c.broadcast:
			if err := c.roomMgr.Broadcast(env); err != nil {
				c.logger.Debugf("broadcast to dead room %s dropped (%s)", env.RoomID, env.Type)
			}
		}
	}
}

func (c *Core) Register() chan<- *Client   { return c.register }
func (c *Core) Unregister() chan<- *Client { return c.unregister }
func (c *Core) Broadcast() chan<- *wire.Envelope { return c.broadcast }

// handleIntent validates one client intent, applies it to the authoritative
// room state, and rebroadcasts the canonical result. Runs on the client's
// read goroutine; room state serializes concurrent intents.
func (c *Core) handleIntent(cl *Client, env *wire.Envelope) {
	state, ok := c.roomMgr.State(cl.RoomID)
	if !ok {
		cl.reject(env.Type, "room is not live")
		return
	}

	payload, err := env.Decode()
	if err != nil {
		cl.reject(env.Type, err.Error())
		return
	}

	switch env.Type {
	case wire.IntentMessageSend:
		p := payload.(*wire.SendMessagePayload)
		body := strings.TrimSpace(p.Body)
		if body == "" || len(body) > maxMessageBody {
			cl.reject(env.Type, "message body must be 1-4096 characters")
			return
		}
		msg := wire.ChatMessage{
			ID:        uuid.NewString(),
			ClientID:  p.ClientID,
			AuthorID:  cl.Identity.UserID,
			Body:      body,
			ReplyTo:   p.ReplyTo,
			CreatedAt: time.Now().UTC(),
		}
		state.AddMessage(msg)
		c.broadcast <- wire.MustEnvelope(wire.EventMessageCreated, cl.RoomID, msg)

	case wire.IntentReactionAdd:
		p := payload.(*wire.AddReactionPayload)
		if p.Emoji == "" {
			cl.reject(env.Type, "emoji is required")
			return
		}
		msg, err := state.AddReaction(p.MessageID, p.Emoji, cl.Identity.UserID)
		if err != nil {
			cl.reject(env.Type, "message not found")
			return
		}
		c.broadcast <- wire.MustEnvelope(wire.EventMessageCreated, cl.RoomID, msg)

	case wire.IntentTypingSet:
		p := payload.(*wire.SetTypingPayload)
		if err := state.SetTyping(cl.Identity.UserID, p.Typing); err != nil {
			return // participant raced its own leave; nothing to signal
		}
		c.broadcast <- wire.MustEnvelope(wire.EventTypingChanged, cl.RoomID, wire.TypingChangedPayload{
			ParticipantID: cl.Identity.UserID,
			Typing:        p.Typing,
		})

	case wire.IntentHandToggle:
		raised, err := state.ToggleHand(cl.Identity.UserID)
		if err != nil {
			return
		}
		c.broadcast <- wire.MustEnvelope(wire.EventHandRaised, cl.RoomID, wire.HandRaisedPayload{
			ParticipantID: cl.Identity.UserID,
			Raised:        raised,
		})

	case wire.IntentTaskUpsert:
		task := *payload.(*wire.Task)
		if task.ID == "" {
			task.ID = uuid.NewString()
			task.CreatedAt = time.Now().UTC()
		}
		if task.Status == "" {
			task.Status = wire.TaskTodo
		}
		if task.Priority == "" {
			task.Priority = wire.PriorityMedium
		}
		if err := task.Validate(); err != nil {
			cl.reject(env.Type, err.Error())
			return
		}
		state.UpsertTask(task)
		c.broadcast <- wire.MustEnvelope(wire.EventTaskUpserted, cl.RoomID, task)

	case wire.IntentTaskDelete:
		p := payload.(*wire.TaskDeletedPayload)
		if p.TaskID == "" {
			cl.reject(env.Type, "taskId is required")
			return
		}
		state.DeleteTask(p.TaskID)
		c.broadcast <- wire.MustEnvelope(wire.EventTaskDeleted, cl.RoomID, wire.TaskDeletedPayload{TaskID: p.TaskID})

	case wire.IntentWhiteboardReplace:
		p := payload.(*wire.WhiteboardPayload)
		for _, el := range p.Elements {
			if err := el.Validate(); err != nil {
				cl.reject(env.Type, err.Error())
				return
			}
		}
		state.ReplaceWhiteboard(p.Elements)
		c.broadcast <- wire.MustEnvelope(wire.EventWhiteboardReplaced, cl.RoomID, wire.WhiteboardPayload{Elements: p.Elements})

	case wire.IntentFileAnnounce:
		p := payload.(*wire.FileAnnouncePayload)
		file, err := c.fileRepo.GetByID(context.Background(), cl.RoomID, p.FileID)
		if err != nil {
			cl.reject(env.Type, "unknown file")
			return
		}
		state.AddFile(*file)
		c.broadcast <- wire.MustEnvelope(wire.EventFileAdded, cl.RoomID, *file)

	case wire.IntentTimerStart:
		state.timer.Start()
	case wire.IntentTimerPause:
		state.timer.Pause()
	case wire.IntentTimerReset:
		state.timer.Reset()

	default:
		cl.reject(env.Type, "not a client intent")
	}
}
