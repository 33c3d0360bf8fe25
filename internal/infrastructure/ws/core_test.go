package ws

import (
	"context"
	"testing"
	"time"

	"github.com/focusritual/collab/internal/domain"
	"github.com/focusritual/collab/internal/infrastructure/auth"
	"github.com/focusritual/collab/internal/infrastructure/logging"
	"github.com/focusritual/collab/internal/infrastructure/repository"
	"github.com/focusritual/collab/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() logging.Logger {
	return logging.NewLogger(&logging.Config{Logger: "zap", Level: "error", Encoding: "console"})
}

func newTestCore(t *testing.T, fileRepo domain.FileRepository) *Core {
	t.Helper()
	if fileRepo == nil {
		fileRepo = repository.NewFileRepository()
	}
	mgr := NewRoomManager(TimerDurations{Work: time.Hour, Break: time.Minute}, []string{"*"})
	core := NewCore(mgr, fileRepo, testLogger())
	go core.Run()
	return core
}

func testClient(room, userID, name string) *Client {
	return NewClient(nil, room, auth.Identity{UserID: userID, Name: name})
}

// recv pulls the next queued envelope of the given type, skipping others,
// the way a mirror would.
func recv(t *testing.T, cl *Client, eventType string) *wire.Envelope {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case env, ok := <-cl.send:
			require.True(t, ok, "send channel closed while waiting for %s", eventType)
			if env.Type == eventType {
				return env
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", eventType)
			return nil
		}
	}
}

func register(t *testing.T, core *Core, cl *Client) {
	t.Helper()
	core.Register() <- cl
	env := recv(t, cl, wire.EventRoomState)
	require.Equal(t, cl.RoomID, env.RoomID)
}

func TestRegisterDeliversSnapshotThenJoin(t *testing.T) {
	core := newTestCore(t, nil)

	cl1 := testClient("room-1", "u1", "Ada")
	register(t, core, cl1)

	cl2 := testClient("room-1", "u2", "Grace")
	core.Register() <- cl2

	// Existing clients learn about the newcomer.
	joined := recv(t, cl1, wire.EventParticipantJoined)
	payload, err := joined.Decode()
	require.NoError(t, err)
	assert.Equal(t, "u2", payload.(*wire.Participant).ID)

	// The newcomer's snapshot already contains both participants.
	snap := recv(t, cl2, wire.EventRoomState)
	state, err := snap.Decode()
	require.NoError(t, err)
	assert.Len(t, state.(*wire.RoomStatePayload).Participants, 2)
}

func TestRegisterProceedsUnderBroadcastPressure(t *testing.T) {
	core := newTestCore(t, nil)

	cl1 := testClient("room-1", "u1", "Ada")
	register(t, core, cl1)

	// Saturate the broadcast queue and keep it full: every slot the run
	// loop drains is refilled immediately, the way a busy room's timers
	// and intents would.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		env := wire.MustEnvelope(wire.EventTimerChanged, "room-1", wire.DefaultTimerState())
		for {
			select {
			case core.Broadcast() <- env:
			case <-stop:
				return
			}
		}
	}()

	// Registrations must keep being accepted; the run loop must never
	// need space in the queue it is draining.
	for i := 0; i < 5; i++ {
		cl := testClient("room-1", "u"+string(rune('2'+i)), "Grace")
		select {
		case core.Register() <- cl:
		case <-time.After(2 * time.Second):
			t.Fatal("run loop stopped accepting registrations")
		}
		recv(t, cl, wire.EventRoomState)
	}
}

func TestMessageIntentIsBroadcastCanonically(t *testing.T) {
	core := newTestCore(t, nil)

	cl1 := testClient("room-1", "u1", "Ada")
	cl2 := testClient("room-1", "u2", "Grace")
	register(t, core, cl1)
	register(t, core, cl2)

	core.handleIntent(cl1, wire.MustEnvelope(wire.IntentMessageSend, "room-1", wire.SendMessagePayload{
		ClientID: "corr-7",
		Body:     "  hello  ",
	}))

	for _, cl := range []*Client{cl1, cl2} {
		env := recv(t, cl, wire.EventMessageCreated)
		payload, err := env.Decode()
		require.NoError(t, err)
		msg := payload.(*wire.ChatMessage)
		assert.NotEmpty(t, msg.ID, "server must mint the id")
		assert.Equal(t, "corr-7", msg.ClientID, "correlation id must be echoed")
		assert.Equal(t, "hello", msg.Body, "body must be trimmed")
		assert.Equal(t, "u1", msg.AuthorID)
		assert.False(t, msg.CreatedAt.IsZero())
	}
}

func TestEmptyMessageRejectedOnlyToSender(t *testing.T) {
	core := newTestCore(t, nil)

	cl1 := testClient("room-1", "u1", "Ada")
	cl2 := testClient("room-1", "u2", "Grace")
	register(t, core, cl1)
	register(t, core, cl2)
	recv(t, cl1, wire.EventParticipantJoined)
	recv(t, cl2, wire.EventParticipantJoined) // its own join echo

	core.handleIntent(cl1, wire.MustEnvelope(wire.IntentMessageSend, "room-1", wire.SendMessagePayload{Body: "   "}))

	env := recv(t, cl1, wire.EventActionRejected)
	payload, err := env.Decode()
	require.NoError(t, err)
	assert.Equal(t, wire.IntentMessageSend, payload.(*wire.ActionRejectedPayload).Intent)

	assert.Empty(t, cl2.send, "rejections are private to the sender")
}

func TestServerEventsAsIntentsAreRejected(t *testing.T) {
	core := newTestCore(t, nil)

	cl := testClient("room-1", "u1", "Ada")
	register(t, core, cl)

	core.handleIntent(cl, wire.MustEnvelope(wire.EventMessageCreated, "room-1", wire.ChatMessage{ID: "forged"}))

	env := recv(t, cl, wire.EventActionRejected)
	payload, err := env.Decode()
	require.NoError(t, err)
	assert.Equal(t, "not a client intent", payload.(*wire.ActionRejectedPayload).Reason)
}

func TestUnregisterBroadcastsLeftOnceGone(t *testing.T) {
	core := newTestCore(t, nil)

	cl1 := testClient("room-1", "u1", "Ada")
	register(t, core, cl1)

	// Two connections for the same participant, as with two browser tabs.
	tabA := testClient("room-1", "u2", "Grace")
	tabB := testClient("room-1", "u2", "Grace")
	register(t, core, tabA)
	register(t, core, tabB)

	core.Unregister() <- tabA

	// Still one connection left; no participant.left yet.
	core.handleIntent(cl1, wire.MustEnvelope(wire.IntentTimerStart, "room-1", nil))
	env := recv(t, cl1, wire.EventTimerChanged)
	require.NotNil(t, env)

	core.Unregister() <- tabB

	left := recv(t, cl1, wire.EventParticipantLeft)
	payload, err := left.Decode()
	require.NoError(t, err)
	assert.Equal(t, "u2", payload.(*wire.ParticipantLeftPayload).ParticipantID)
}

func TestFileAnnounceRequiresKnownFile(t *testing.T) {
	fileRepo := repository.NewFileRepository()
	core := newTestCore(t, fileRepo)

	cl := testClient("room-1", "u1", "Ada")
	register(t, core, cl)

	core.handleIntent(cl, wire.MustEnvelope(wire.IntentFileAnnounce, "room-1", wire.FileAnnouncePayload{FileID: "ghost"}))
	recv(t, cl, wire.EventActionRejected)

	file := &wire.RoomFile{ID: "f1", Name: "notes.txt", UploaderID: "u1", UploadedAt: time.Now().UTC()}
	require.NoError(t, fileRepo.Save(context.Background(), "room-1", file))

	core.handleIntent(cl, wire.MustEnvelope(wire.IntentFileAnnounce, "room-1", wire.FileAnnouncePayload{FileID: "f1"}))

	env := recv(t, cl, wire.EventFileAdded)
	payload, err := env.Decode()
	require.NoError(t, err)
	assert.Equal(t, "notes.txt", payload.(*wire.RoomFile).Name)
}

func TestTaskIntentMintsIDAndDefaults(t *testing.T) {
	core := newTestCore(t, nil)

	cl := testClient("room-1", "u1", "Ada")
	register(t, core, cl)

	core.handleIntent(cl, wire.MustEnvelope(wire.IntentTaskUpsert, "room-1", wire.Task{Title: "plan sprint"}))

	env := recv(t, cl, wire.EventTaskUpserted)
	payload, err := env.Decode()
	require.NoError(t, err)
	task := payload.(*wire.Task)
	assert.NotEmpty(t, task.ID)
	assert.Equal(t, wire.TaskTodo, task.Status)
	assert.Equal(t, wire.PriorityMedium, task.Priority)
}
