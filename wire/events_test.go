package wire

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeMessageCreated(t *testing.T) {
	msg := ChatMessage{
		ID:        "m1",
		ClientID:  "c1",
		AuthorID:  "u1",
		Body:      "hello",
		CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	env := MustEnvelope(EventMessageCreated, "room-1", msg)

	payload, err := env.Decode()
	require.NoError(t, err)

	decoded, ok := payload.(*ChatMessage)
	require.True(t, ok)
	assert.Equal(t, msg, *decoded)
}

func TestDecodeRoomState(t *testing.T) {
	snap := RoomStatePayload{
		Participants: []Participant{{ID: "u1", Name: "Ada", Connected: true}},
		Tasks:        []Task{{ID: "t1", Title: "write tests", Status: TaskTodo, Priority: PriorityMedium}},
		Timer:        DefaultTimerState(),
	}
	env := MustEnvelope(EventRoomState, "room-1", snap)

	payload, err := env.Decode()
	require.NoError(t, err)

	decoded := payload.(*RoomStatePayload)
	assert.Len(t, decoded.Participants, 1)
	assert.Equal(t, "Ada", decoded.Participants[0].Name)
	assert.Equal(t, TimerWork, decoded.Timer.Mode)
	assert.Equal(t, DefaultWorkSeconds, decoded.Timer.Remaining)
}

func TestDecodeUnknownEventRejected(t *testing.T) {
	env := &Envelope{Type: "room.exploded", RoomID: "room-1", Data: json.RawMessage(`{}`)}

	_, err := env.Decode()
	require.Error(t, err)

	var unknown *ErrUnknownEvent
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "room.exploded", unknown.Type)
}

func TestDecodePayloadlessIntents(t *testing.T) {
	for _, intent := range []string{IntentHandToggle, IntentTimerStart, IntentTimerPause, IntentTimerReset} {
		env := &Envelope{Type: intent, RoomID: "room-1"}
		payload, err := env.Decode()
		require.NoError(t, err, intent)
		assert.Nil(t, payload, intent)
	}
}

func TestDecodeMalformedPayload(t *testing.T) {
	env := &Envelope{Type: EventTypingChanged, RoomID: "room-1", Data: json.RawMessage(`"nope"`)}
	_, err := env.Decode()
	assert.Error(t, err)
}

func TestEnvelopeWireFormat(t *testing.T) {
	env := MustEnvelope(IntentTypingSet, "room-1", SetTypingPayload{Typing: true})

	raw, err := json.Marshal(env)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"typing.set","roomId":"room-1","data":{"typing":true}}`, string(raw))
}

func TestTaskValidate(t *testing.T) {
	valid := Task{ID: "t1", Title: "x", Status: TaskInProgress, Priority: PriorityHigh}
	assert.NoError(t, valid.Validate())

	assert.Error(t, Task{Title: "", Status: TaskTodo, Priority: PriorityLow}.Validate())
	assert.Error(t, Task{Title: "x", Status: "paused", Priority: PriorityLow}.Validate())
	assert.Error(t, Task{Title: "x", Status: TaskTodo, Priority: "urgent"}.Validate())
}

func TestWhiteboardElementValidate(t *testing.T) {
	assert.NoError(t, WhiteboardElement{ID: "e1", Kind: ElementStroke, Points: []Point{{X: 1, Y: 2}}}.Validate())
	assert.NoError(t, WhiteboardElement{ID: "e2", Kind: ElementRect, X: 10, Y: 10, Width: 5, Height: 5}.Validate())
	assert.NoError(t, WhiteboardElement{ID: "e3", Kind: ElementText, Text: "note"}.Validate())

	assert.Error(t, WhiteboardElement{ID: "e4", Kind: ElementStroke}.Validate())
	assert.Error(t, WhiteboardElement{ID: "e5", Kind: ElementText}.Validate())
	assert.Error(t, WhiteboardElement{ID: "e6", Kind: "triangle"}.Validate())
}
