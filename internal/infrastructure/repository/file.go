package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/focusritual/collab/internal/domain"
	"github.com/focusritual/collab/wire"
)

type fileRepository struct {
	byRoom map[string]map[string]*wire.RoomFile // roomID -> fileID -> descriptor
	mu     sync.RWMutex
}

func NewFileRepository() domain.FileRepository {
	return &fileRepository{
		byRoom: make(map[string]map[string]*wire.RoomFile),
	}
}

func (r *fileRepository) Save(ctx context.Context, roomID string, file *wire.RoomFile) error {
	if roomID == "" || file == nil || file.ID == "" {
		return domain.ErrInvalidInput
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	files, ok := r.byRoom[roomID]
	if !ok {
		files = make(map[string]*wire.RoomFile)
		r.byRoom[roomID] = files
	}
	files[file.ID] = file

	return nil
}

func (r *fileRepository) GetByID(ctx context.Context, roomID, fileID string) (*wire.RoomFile, error) {
	if roomID == "" || fileID == "" {
		return nil, domain.ErrInvalidInput
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, ok := r.byRoom[roomID][fileID]
	if !ok {
		return nil, domain.ErrFileNotFound
	}

	return file, nil
}

func (r *fileRepository) ListByRoom(ctx context.Context, roomID string) ([]*wire.RoomFile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	files := make([]*wire.RoomFile, 0, len(r.byRoom[roomID]))
	for _, f := range r.byRoom[roomID] {
		files = append(files, f)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].UploadedAt.Before(files[j].UploadedAt) })

	return files, nil
}
