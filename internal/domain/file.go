package domain

import (
	"context"

	"github.com/focusritual/collab/wire"
)

// FileRepository stores the descriptors of uploaded room files. The file
// bytes themselves live in blob storage; this only tracks metadata so a
// file.announce intent can be resolved to a descriptor.
type FileRepository interface {
	Save(ctx context.Context, roomID string, file *wire.RoomFile) error
	GetByID(ctx context.Context, roomID, fileID string) (*wire.RoomFile, error)
	ListByRoom(ctx context.Context, roomID string) ([]*wire.RoomFile, error)
}
