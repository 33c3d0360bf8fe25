package domain

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

const maxRoomNameLength = 80

// Room is the durable room record: identity and membership. The live room
// state (participants, messages, tasks, whiteboard, timer) belongs to the
// realtime layer and exists only while the room has connections.
type Room struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Visibility  Visibility `json:"visibility"`
	OwnerID     string     `json:"ownerId"`
	Members     []string   `json:"members"`
	CreatedAt   time.Time  `json:"createdAt"`
}

func NewRoom(name, description string, visibility Visibility, ownerID string, members []string) (*Room, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > maxRoomNameLength {
		return nil, ErrInvalidInput
	}

	switch visibility {
	case VisibilityPublic, VisibilityPrivate:
	case "":
		visibility = VisibilityPublic
	default:
		return nil, ErrInvalidInput
	}

	if ownerID == "" {
		return nil, ErrInvalidInput
	}

	seen := map[string]bool{ownerID: true}
	all := []string{ownerID}
	for _, m := range members {
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		all = append(all, m)
	}

	return &Room{
		ID:          uuid.NewString(),
		Name:        name,
		Description: strings.TrimSpace(description),
		Visibility:  visibility,
		OwnerID:     ownerID,
		Members:     all,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// HasMember reports whether the user may join a private room. Public rooms
// admit anyone.
func (r *Room) HasMember(userID string) bool {
	if r.Visibility == VisibilityPublic {
		return true
	}
	for _, m := range r.Members {
		if m == userID {
			return true
		}
	}
	return false
}

type RoomRepository interface {
	Create(ctx context.Context, room *Room) error
	GetByID(ctx context.Context, id string) (*Room, error)
	List(ctx context.Context) ([]*Room, error)
	Delete(ctx context.Context, id string) error
}
