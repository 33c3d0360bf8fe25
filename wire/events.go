package wire

import (
	"encoding/json"
	"fmt"
)

// Server -> client events.
const (
	EventRoomState          = "room.state"
	EventMessageCreated     = "message.created"
	EventTaskUpserted       = "task.upserted"
	EventTaskDeleted        = "task.deleted"
	EventParticipantJoined  = "participant.joined"
	EventParticipantLeft    = "participant.left"
	EventTypingChanged      = "typing.changed"
	EventHandRaised         = "hand.raised"
	EventWhiteboardReplaced = "whiteboard.replaced"
	EventFileAdded          = "file.added"
	EventTimerChanged       = "timer.changed"

	EventError          = "error"
	EventActionRejected = "action.rejected"
)

// Client -> server intents.
const (
	IntentMessageSend       = "message.send"
	IntentReactionAdd       = "reaction.add"
	IntentTypingSet         = "typing.set"
	IntentHandToggle        = "hand.toggle"
	IntentTaskUpsert        = "task.upsert"
	IntentTaskDelete        = "task.delete"
	IntentWhiteboardReplace = "whiteboard.replace"
	IntentFileAnnounce      = "file.announce"
	IntentTimerStart        = "timer.start"
	IntentTimerPause        = "timer.pause"
	IntentTimerReset        = "timer.reset"
)

// ErrUnknownEvent is returned when an envelope carries a type neither side
// of the protocol defines. Unknown shapes are rejected, never silently
// ignored.
type ErrUnknownEvent struct {
	Type string
}

func (e *ErrUnknownEvent) Error() string {
	return fmt.Sprintf("unknown event type %q", e.Type)
}

// Envelope is the single frame format on the realtime channel.
type Envelope struct {
	Type   string          `json:"type"`
	RoomID string          `json:"roomId"`
	Data   json.RawMessage `json:"data,omitempty"`
}

func NewEnvelope(eventType, roomID string, payload any) (*Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return &Envelope{Type: eventType, RoomID: roomID, Data: data}, nil
}

// MustEnvelope is NewEnvelope for payloads built from in-process structs,
// which cannot fail to marshal.
func MustEnvelope(eventType, roomID string, payload any) *Envelope {
	env, err := NewEnvelope(eventType, roomID, payload)
	if err != nil {
		panic(err)
	}
	return env
}

// RoomStatePayload is the full snapshot sent to a joining client and the
// wholesale replacement applied by the mirror.
type RoomStatePayload struct {
	Participants []Participant       `json:"participants"`
	Messages     []ChatMessage       `json:"messages"`
	Tasks        []Task              `json:"tasks"`
	Files        []RoomFile          `json:"files"`
	Whiteboard   []WhiteboardElement `json:"whiteboard"`
	Timer        TimerState          `json:"timer"`
}

type TaskDeletedPayload struct {
	TaskID string `json:"taskId"`
}

type ParticipantLeftPayload struct {
	ParticipantID string `json:"participantId"`
}

type TypingChangedPayload struct {
	ParticipantID string `json:"participantId"`
	Typing        bool   `json:"typing"`
}

type HandRaisedPayload struct {
	ParticipantID string `json:"participantId"`
	Raised        bool   `json:"raised"`
}

type WhiteboardPayload struct {
	Elements []WhiteboardElement `json:"elements"`
}

type ErrorPayload struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	Retry   bool   `json:"retry,omitempty"`
}

// ActionRejectedPayload is sent to the emitting client only, so a declined
// intent is distinguishable from a silent drop.
type ActionRejectedPayload struct {
	Intent string `json:"intent"`
	Reason string `json:"reason"`
}

type SendMessagePayload struct {
	ClientID string `json:"clientId"`
	Body     string `json:"body"`
	ReplyTo  string `json:"replyTo,omitempty"`
}

type AddReactionPayload struct {
	MessageID string `json:"messageId"`
	Emoji     string `json:"emoji"`
}

type SetTypingPayload struct {
	Typing bool `json:"typing"`
}

type FileAnnouncePayload struct {
	FileID string `json:"fileId"`
}

// Decode unmarshals the envelope's data into the payload type its event
// type dictates. The switch is exhaustive over the protocol; an unrecognized
// type yields *ErrUnknownEvent.
func (e *Envelope) Decode() (any, error) {
	var payload any

	switch e.Type {
	case EventRoomState:
		payload = &RoomStatePayload{}
	case EventMessageCreated:
		payload = &ChatMessage{}
	case EventTaskUpserted, IntentTaskUpsert:
		payload = &Task{}
	case EventTaskDeleted, IntentTaskDelete:
		payload = &TaskDeletedPayload{}
	case EventParticipantJoined:
		payload = &Participant{}
	case EventParticipantLeft:
		payload = &ParticipantLeftPayload{}
	case EventTypingChanged:
		payload = &TypingChangedPayload{}
	case EventHandRaised:
		payload = &HandRaisedPayload{}
	case EventWhiteboardReplaced, IntentWhiteboardReplace:
		payload = &WhiteboardPayload{}
	case EventFileAdded:
		payload = &RoomFile{}
	case EventTimerChanged:
		payload = &TimerState{}
	case EventError:
		payload = &ErrorPayload{}
	case EventActionRejected:
		payload = &ActionRejectedPayload{}
	case IntentMessageSend:
		payload = &SendMessagePayload{}
	case IntentReactionAdd:
		payload = &AddReactionPayload{}
	case IntentTypingSet:
		payload = &SetTypingPayload{}
	case IntentFileAnnounce:
		payload = &FileAnnouncePayload{}
	case IntentHandToggle, IntentTimerStart, IntentTimerPause, IntentTimerReset:
		return nil, nil // no payload
	default:
		return nil, &ErrUnknownEvent{Type: e.Type}
	}

	if err := json.Unmarshal(e.Data, payload); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return payload, nil
}
