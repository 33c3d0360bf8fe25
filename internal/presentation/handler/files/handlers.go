package files

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"time"

	"github.com/focusritual/collab/internal/domain"
	"github.com/focusritual/collab/internal/infrastructure/auth"
	"github.com/focusritual/collab/internal/infrastructure/json"
	"github.com/focusritual/collab/internal/infrastructure/logging"
	"github.com/focusritual/collab/internal/infrastructure/metrics"
	"github.com/focusritual/collab/internal/infrastructure/storage"
	"github.com/focusritual/collab/wire"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type Handler struct {
	roomRepository domain.RoomRepository
	fileRepository domain.FileRepository
	store          *storage.Local
	verifier       *auth.Verifier
	maxBytes       int64
	allowedTypes   []string
	logger         logging.Logger
}

func NewHandler(
	roomRepository domain.RoomRepository,
	fileRepository domain.FileRepository,
	store *storage.Local,
	verifier *auth.Verifier,
	maxBytes int64,
	allowedTypes []string,
	logger logging.Logger,
) *Handler {
	return &Handler{
		roomRepository: roomRepository,
		fileRepository: fileRepository,
		store:          store,
		verifier:       verifier,
		maxBytes:       maxBytes,
		allowedTypes:   allowedTypes,
		logger:         logger,
	}
}

// UploadFileHandler stores a multipart upload and returns its descriptor.
// It deliberately does not notify the room: the uploader announces the
// file over its own websocket once it has the descriptor in hand, so a
// dead upload never leaves a phantom entry in anyone's file list.
func (h *Handler) UploadFileHandler(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomId")

	identity, err := h.verifier.Verify(auth.ExtractToken(r), r.URL.Query().Get("name"))
	if err != nil {
		metrics.Uploads.WithLabelValues("unauthorized").Inc()
		json.WriteError(w, http.StatusUnauthorized, err, "Missing or invalid authentication")
		return
	}

	room, err := h.roomRepository.GetByID(r.Context(), roomID)
	if err != nil {
		metrics.Uploads.WithLabelValues("room_not_found").Inc()
		if errors.Is(err, domain.ErrRoomNotFound) {
			json.WriteError(w, http.StatusNotFound, err, "Room not found")
		} else {
			json.WriteInternalError(w, err)
		}
		return
	}

	if !room.HasMember(identity.UserID) {
		metrics.Uploads.WithLabelValues("forbidden").Inc()
		json.WriteError(w, http.StatusForbidden, errors.New("not a member"), "You are not a member of this room")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		metrics.Uploads.WithLabelValues("too_large").Inc()
		json.WriteError(w, http.StatusRequestEntityTooLarge, err, fmt.Sprintf("Upload exceeds the %d byte limit", h.maxBytes))
		return
	}

	part, header, err := r.FormFile("file")
	if err != nil {
		metrics.Uploads.WithLabelValues("bad_request").Inc()
		json.WriteValidationError(w, errors.New("multipart field 'file' is required"))
		return
	}
	defer part.Close()

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = sniffType(part)
	}
	if !slices.Contains(h.allowedTypes, mimeType) {
		metrics.Uploads.WithLabelValues("unsupported_type").Inc()
		json.WriteError(w, http.StatusUnsupportedMediaType, fmt.Errorf("type %s not allowed", mimeType), "File type is not allowed")
		return
	}

	fileID := uuid.NewString()
	size, err := h.store.Save(fileID, header.Filename, part)
	if err != nil {
		metrics.Uploads.WithLabelValues("storage_error").Inc()
		json.WriteInternalError(w, err)
		return
	}

	file := &wire.RoomFile{
		ID:         fileID,
		Name:       header.Filename,
		Size:       size,
		MimeType:   mimeType,
		URL:        fmt.Sprintf("/api/rooms/%s/files/%s", roomID, fileID),
		UploaderID: identity.UserID,
		UploadedAt: time.Now().UTC(),
	}
	if err := h.fileRepository.Save(r.Context(), roomID, file); err != nil {
		metrics.Uploads.WithLabelValues("storage_error").Inc()
		json.WriteInternalError(w, err)
		return
	}

	metrics.Uploads.WithLabelValues("ok").Inc()
	h.logger.Info(logging.IO, logging.Upload, "file uploaded", map[logging.ExtraKey]any{
		logging.RoomID:   roomID,
		logging.UserID:   identity.UserID,
		logging.FileName: file.Name,
		logging.FileSize: file.Size,
	})

	json.Write(w, http.StatusCreated, toFileResponse(file))
}

// requireMember authenticates the caller and confirms room membership,
// writing the failure response itself. Every file route is gated on it:
// knowing a private room's id must not grant access to its files.
func (h *Handler) requireMember(w http.ResponseWriter, r *http.Request, roomID string) (*auth.Identity, bool) {
	identity, err := h.verifier.Verify(auth.ExtractToken(r), r.URL.Query().Get("name"))
	if err != nil {
		json.WriteError(w, http.StatusUnauthorized, err, "Missing or invalid authentication")
		return nil, false
	}

	room, err := h.roomRepository.GetByID(r.Context(), roomID)
	if err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			json.WriteError(w, http.StatusNotFound, err, "Room not found")
		} else {
			json.WriteInternalError(w, err)
		}
		return nil, false
	}

	if !room.HasMember(identity.UserID) {
		json.WriteError(w, http.StatusForbidden, errors.New("not a member"), "You are not a member of this room")
		return nil, false
	}

	return identity, true
}

func (h *Handler) ListFilesHandler(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomId")

	if _, ok := h.requireMember(w, r, roomID); !ok {
		return
	}

	files, err := h.fileRepository.ListByRoom(r.Context(), roomID)
	if err != nil {
		json.WriteInternalError(w, err)
		return
	}

	resp := listFilesResponse{Files: make([]fileResponse, 0, len(files))}
	for _, f := range files {
		resp.Files = append(resp.Files, toFileResponse(f))
	}

	json.Write(w, http.StatusOK, resp)
}

// DownloadFileHandler streams a stored file back to the caller.
func (h *Handler) DownloadFileHandler(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomId")
	fileID := chi.URLParam(r, "fileId")

	if _, ok := h.requireMember(w, r, roomID); !ok {
		return
	}

	file, err := h.fileRepository.GetByID(r.Context(), roomID, fileID)
	if err != nil {
		json.WriteError(w, http.StatusNotFound, err, "File not found")
		return
	}

	rc, err := h.store.Open(file.ID, file.Name)
	if err != nil {
		json.WriteInternalError(w, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", file.MimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Name))
	_, _ = io.Copy(w, rc)
}

// sniffType reads the first 512 bytes to detect the content type, then
// rewinds so the full file still gets stored.
func sniffType(part io.ReadSeeker) string {
	buf := make([]byte, 512)
	n, _ := part.Read(buf)
	_, _ = part.Seek(0, io.SeekStart)
	return http.DetectContentType(buf[:n])
}

func toFileResponse(file *wire.RoomFile) fileResponse {
	return fileResponse{
		ID:         file.ID,
		Name:       file.Name,
		Size:       file.Size,
		MimeType:   file.MimeType,
		URL:        file.URL,
		UploaderID: file.UploaderID,
		UploadedAt: file.UploadedAt,
	}
}
