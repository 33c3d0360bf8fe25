package rooms

import (
	"errors"
	"net/http"

	"github.com/focusritual/collab/internal/domain"
	"github.com/focusritual/collab/internal/infrastructure/auth"
	"github.com/focusritual/collab/internal/infrastructure/json"
	"github.com/focusritual/collab/internal/infrastructure/logging"
	"github.com/focusritual/collab/internal/infrastructure/ws"
	"github.com/go-chi/chi/v5"
)

type Handler struct {
	roomRepository domain.RoomRepository
	roomManager    *ws.RoomManager
	core           *ws.Core
	verifier       *auth.Verifier
	logger         logging.Logger
}

func NewHandler(
	roomRepository domain.RoomRepository,
	roomManager *ws.RoomManager,
	core *ws.Core,
	verifier *auth.Verifier,
	logger logging.Logger,
) *Handler {
	return &Handler{
		roomRepository: roomRepository,
		roomManager:    roomManager,
		core:           core,
		verifier:       verifier,
		logger:         logger,
	}
}

func (h *Handler) CreateRoomHandler(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if err := json.Read(r, &req); err != nil {
		json.WriteValidationError(w, err)
		return
	}

	identity, err := h.verifier.Verify(auth.ExtractToken(r), r.URL.Query().Get("name"))
	if err != nil {
		json.WriteError(w, http.StatusUnauthorized, err, "Missing or invalid authentication")
		return
	}

	room, err := domain.NewRoom(req.Name, req.Description, domain.Visibility(req.Visibility), identity.UserID, req.Members)
	if err != nil {
		json.WriteValidationError(w, err)
		return
	}

	if err := h.roomRepository.Create(r.Context(), room); err != nil {
		switch {
		case errors.Is(err, domain.ErrRoomAlreadyExists):
			json.WriteError(w, http.StatusConflict, err, "Room already exists")
		default:
			json.WriteInternalError(w, err)
		}
		return
	}

	h.logger.Info(logging.General, logging.Startup, "room created", map[logging.ExtraKey]any{
		logging.RoomID: room.ID,
		logging.UserID: identity.UserID,
	})

	json.Write(w, http.StatusCreated, toRoomResponse(room))
}

func (h *Handler) ListRoomsHandler(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.roomRepository.List(r.Context())
	if err != nil {
		json.WriteInternalError(w, err)
		return
	}

	resp := listRoomsResponse{Rooms: make([]roomResponse, 0, len(rooms))}
	for _, room := range rooms {
		resp.Rooms = append(resp.Rooms, toRoomResponse(room))
	}

	json.Write(w, http.StatusOK, resp)
}

// JoinRoomHandler upgrades to a websocket and attaches the caller to the
// room. Identity problems are rejected before the upgrade so the client
// sees a proper HTTP status instead of a dropped socket.
func (h *Handler) JoinRoomHandler(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomId")
	if roomID == "" {
		json.WriteValidationError(w, errors.New("room ID is missing"))
		return
	}

	identity, err := h.verifier.Verify(auth.ExtractToken(r), r.URL.Query().Get("name"))
	if err != nil {
		json.WriteError(w, http.StatusUnauthorized, err, "Missing or invalid authentication")
		return
	}

	room, err := h.roomRepository.GetByID(r.Context(), roomID)
	if err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			json.WriteError(w, http.StatusNotFound, err, "Room not found")
		} else {
			json.WriteInternalError(w, err)
		}
		return
	}

	if !room.HasMember(identity.UserID) {
		json.WriteError(w, http.StatusForbidden, errors.New("not a member"), "You are not a member of this room")
		return
	}

	conn, err := h.roomManager.Upgrade(w, r)
	if err != nil {
		h.logger.Warn(logging.Realtime, logging.RoomJoin, "websocket upgrade failed", map[logging.ExtraKey]any{
			logging.RoomID:       roomID,
			logging.ErrorMessage: err.Error(),
		})
		return
	}

	client := ws.NewClient(conn, roomID, *identity)
	h.core.Register() <- client

	go client.WritePump()
	go client.ReadPump(h.core)
}

func toRoomResponse(room *domain.Room) roomResponse {
	return roomResponse{
		ID:          room.ID,
		Name:        room.Name,
		Description: room.Description,
		Visibility:  string(room.Visibility),
		OwnerID:     room.OwnerID,
		Members:     room.Members,
		CreatedAt:   room.CreatedAt,
	}
}
