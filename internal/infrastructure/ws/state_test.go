package ws

import (
	"testing"

	"github.com/focusritual/collab/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestState() *roomState {
	return newRoomState(newRoomTimer(DefaultTimerDurations(), nil))
}

func TestJoinIsIdempotent(t *testing.T) {
	state := newTestState()

	first := state.Join(wire.Participant{ID: "u1", Name: "Ada"})
	assert.True(t, first.Connected)

	state.Join(wire.Participant{ID: "u2", Name: "Grace"})
	state.Join(wire.Participant{ID: "u1", Name: "Ada"})

	snap := state.Snapshot()
	require.Len(t, snap.Participants, 2)
	assert.Equal(t, "u1", snap.Participants[0].ID)
	assert.Equal(t, "u2", snap.Participants[1].ID)
}

func TestLeaveClearsPresence(t *testing.T) {
	state := newTestState()
	state.Join(wire.Participant{ID: "u1"})

	assert.True(t, state.Leave("u1"))
	assert.False(t, state.Leave("u1"))
	assert.Empty(t, state.Snapshot().Participants)
}

func TestReactionToggles(t *testing.T) {
	state := newTestState()
	state.AddMessage(wire.ChatMessage{ID: "m1", AuthorID: "u1", Body: "hi"})

	msg, err := state.AddReaction("m1", "👍", "u2")
	require.NoError(t, err)
	assert.Equal(t, []string{"u2"}, msg.Reactions["👍"])

	// Same participant reacting again withdraws the reaction.
	msg, err = state.AddReaction("m1", "👍", "u2")
	require.NoError(t, err)
	assert.NotContains(t, msg.Reactions, "👍")

	_, err = state.AddReaction("missing", "👍", "u2")
	assert.ErrorIs(t, err, ErrMessageNotFound)
}

func TestMessageHistoryIsBounded(t *testing.T) {
	state := newTestState()
	for i := 0; i < maxHistory+25; i++ {
		state.AddMessage(wire.ChatMessage{ID: string(rune('a' + i%26))})
	}
	assert.Len(t, state.Snapshot().Messages, maxHistory)
}

func TestTaskUpsertAndDelete(t *testing.T) {
	state := newTestState()

	state.UpsertTask(wire.Task{ID: "t1", Title: "first", Status: wire.TaskTodo, Priority: wire.PriorityLow})
	state.UpsertTask(wire.Task{ID: "t2", Title: "second", Status: wire.TaskTodo, Priority: wire.PriorityLow})
	state.UpsertTask(wire.Task{ID: "t1", Title: "first, revised", Status: wire.TaskCompleted, Priority: wire.PriorityLow})

	snap := state.Snapshot()
	require.Len(t, snap.Tasks, 2)
	assert.Equal(t, "first, revised", snap.Tasks[0].Title)
	assert.Equal(t, wire.TaskCompleted, snap.Tasks[0].Status)

	state.DeleteTask("t1")
	state.DeleteTask("t1") // second delete is a no-op

	snap = state.Snapshot()
	require.Len(t, snap.Tasks, 1)
	assert.Equal(t, "t2", snap.Tasks[0].ID)
}

func TestTypingAndHandRequireParticipant(t *testing.T) {
	state := newTestState()

	assert.ErrorIs(t, state.SetTyping("ghost", true), ErrParticipantNotFound)
	_, err := state.ToggleHand("ghost")
	assert.ErrorIs(t, err, ErrParticipantNotFound)

	state.Join(wire.Participant{ID: "u1"})

	require.NoError(t, state.SetTyping("u1", true))
	assert.True(t, state.Snapshot().Participants[0].Typing)

	raised, err := state.ToggleHand("u1")
	require.NoError(t, err)
	assert.True(t, raised)

	raised, err = state.ToggleHand("u1")
	require.NoError(t, err)
	assert.False(t, raised)
}

func TestWhiteboardReplacedWholesale(t *testing.T) {
	state := newTestState()

	state.ReplaceWhiteboard([]wire.WhiteboardElement{
		{ID: "e1", Kind: wire.ElementRect},
		{ID: "e2", Kind: wire.ElementText, Text: "note"},
	})
	state.ReplaceWhiteboard([]wire.WhiteboardElement{
		{ID: "e3", Kind: wire.ElementEllipse},
	})

	snap := state.Snapshot()
	require.Len(t, snap.Whiteboard, 1)
	assert.Equal(t, "e3", snap.Whiteboard[0].ID)
}

func TestSnapshotIsACopy(t *testing.T) {
	state := newTestState()
	state.Join(wire.Participant{ID: "u1"})
	state.AddMessage(wire.ChatMessage{ID: "m1"})

	snap := state.Snapshot()
	snap.Participants[0].Name = "mutated"
	snap.Messages[0].Body = "mutated"

	fresh := state.Snapshot()
	assert.Empty(t, fresh.Participants[0].Name)
	assert.Empty(t, fresh.Messages[0].Body)
}
