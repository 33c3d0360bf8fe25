package rooms

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/focusritual/collab/internal/domain"
	"github.com/focusritual/collab/internal/infrastructure/auth"
	"github.com/focusritual/collab/internal/infrastructure/logging"
	"github.com/focusritual/collab/internal/infrastructure/repository"
	"github.com/focusritual/collab/internal/infrastructure/ws"
	"github.com/focusritual/collab/wire"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	srv      *httptest.Server
	roomRepo domain.RoomRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := logging.NewLogger(&logging.Config{Logger: "zap", Level: "error", Encoding: "console"})
	roomRepo := repository.NewRoomRepository(10, time.Hour)
	fileRepo := repository.NewFileRepository()

	mgr := ws.NewRoomManager(ws.DefaultTimerDurations(), []string{"*"})
	core := ws.NewCore(mgr, fileRepo, logger)
	go core.Run()

	verifier := auth.NewVerifier("test-secret", true)
	handler := NewHandler(roomRepo, mgr, core, verifier, logger)

	r := chi.NewRouter()
	r.Post("/api/rooms", handler.CreateRoomHandler)
	r.Get("/api/rooms", handler.ListRoomsHandler)
	r.Get("/api/rooms/{roomId}/join", handler.JoinRoomHandler)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return &testEnv{srv: srv, roomRepo: roomRepo}
}

func TestCreateAndListRooms(t *testing.T) {
	env := newTestEnv(t)

	body := bytes.NewBufferString(`{"name":"Deep Work","visibility":"public"}`)
	resp, err := http.Post(env.srv.URL+"/api/rooms", "application/json", body)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created roomResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Deep Work", created.Name)
	assert.NotEmpty(t, created.OwnerID, "guest creators still own their rooms")

	listResp, err := http.Get(env.srv.URL + "/api/rooms")
	require.NoError(t, err)
	defer listResp.Body.Close()
	require.Equal(t, http.StatusOK, listResp.StatusCode)

	var list listRoomsResponse
	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&list))
	require.Len(t, list.Rooms, 1)
	assert.Equal(t, created.ID, list.Rooms[0].ID)
}

func TestCreateRoomRejectsBadInput(t *testing.T) {
	env := newTestEnv(t)

	cases := []string{
		`{"visibility":"public"}`,         // missing name
		`{"name":"x","visibility":"odd"}`, // bad visibility
		`{"name":`,                        // malformed json
	}
	for _, body := range cases {
		resp, err := http.Post(env.srv.URL+"/api/rooms", "application/json", strings.NewReader(body))
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
	}
}

func TestJoinUnknownRoom(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Get(env.srv.URL + "/api/rooms/missing/join?name=Ada")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestJoinPrivateRoomRequiresMembership(t *testing.T) {
	env := newTestEnv(t)

	room, err := domain.NewRoom("invite only", "", domain.VisibilityPrivate, "owner-1", nil)
	require.NoError(t, err)
	require.NoError(t, env.roomRepo.Create(context.Background(), room))

	resp, err := http.Get(env.srv.URL + "/api/rooms/" + room.ID + "/join?name=Stranger")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestJoinWebSocketRoundTrip(t *testing.T) {
	env := newTestEnv(t)

	room, err := domain.NewRoom("open space", "", domain.VisibilityPublic, "owner-1", nil)
	require.NoError(t, err)
	require.NoError(t, env.roomRepo.Create(context.Background(), room))

	wsURL := "ws" + strings.TrimPrefix(env.srv.URL, "http") + "/api/rooms/" + room.ID + "/join?name=Ada"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// First frame is always the snapshot.
	var snap wire.Envelope
	require.NoError(t, conn.ReadJSON(&snap))
	require.Equal(t, wire.EventRoomState, snap.Type)

	payload, err := snap.Decode()
	require.NoError(t, err)
	state := payload.(*wire.RoomStatePayload)
	require.Len(t, state.Participants, 1)
	assert.Equal(t, "Ada", state.Participants[0].Name)

	require.NoError(t, conn.WriteJSON(wire.MustEnvelope(wire.IntentMessageSend, room.ID, wire.SendMessagePayload{
		ClientID: "corr-1",
		Body:     "first!",
	})))

	deadline := time.Now().Add(2 * time.Second)
	for {
		require.NoError(t, conn.SetReadDeadline(deadline))
		var env wire.Envelope
		require.NoError(t, conn.ReadJSON(&env))
		if env.Type != wire.EventMessageCreated {
			continue
		}
		payload, err := env.Decode()
		require.NoError(t, err)
		msg := payload.(*wire.ChatMessage)
		assert.Equal(t, "corr-1", msg.ClientID)
		assert.Equal(t, "first!", msg.Body)
		assert.NotEmpty(t, msg.ID)
		return
	}
}
