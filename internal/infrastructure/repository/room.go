package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/focusritual/collab/internal/domain"
)

type roomRepository struct {
	rooms          map[string]*domain.Room
	lastAccess     map[string]time.Time
	capacity       uint
	idleRoomExpiry time.Duration
	mu             sync.RWMutex
}

// NewRoomRepository keeps rooms in memory with an access-ordered capacity
// bound and idle expiry, so an unattended server does not accumulate rooms
// forever.
func NewRoomRepository(capacity uint, idleRoomExpiry time.Duration) domain.RoomRepository {
	if capacity == 0 {
		capacity = 100
	}
	if idleRoomExpiry == 0 {
		idleRoomExpiry = 30 * time.Minute
	}

	return &roomRepository{
		rooms:          make(map[string]*domain.Room),
		lastAccess:     make(map[string]time.Time),
		capacity:       capacity,
		idleRoomExpiry: idleRoomExpiry,
	}
}

func (r *roomRepository) touch(roomID string) {
	r.lastAccess[roomID] = time.Now()
}

func (r *roomRepository) evictIdle() {
	cutoff := time.Now().Add(-r.idleRoomExpiry)
	for id, last := range r.lastAccess {
		if last.Before(cutoff) {
			delete(r.rooms, id)
			delete(r.lastAccess, id)
		}
	}
}

// enforceCapacity drops oldest-accessed rooms until the bound holds.
func (r *roomRepository) enforceCapacity() {
	if uint(len(r.rooms)) < r.capacity {
		return
	}

	type entry struct {
		id   string
		time time.Time
	}
	entries := make([]entry, 0, len(r.lastAccess))
	for id, t := range r.lastAccess {
		entries = append(entries, entry{id, t})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].time.Before(entries[j].time) })

	excess := len(r.rooms) - int(r.capacity) + 1
	for i := 0; i < excess && i < len(entries); i++ {
		delete(r.rooms, entries[i].id)
		delete(r.lastAccess, entries[i].id)
	}
}

func (r *roomRepository) Create(ctx context.Context, room *domain.Room) error {
	if room == nil || room.ID == "" {
		return domain.ErrInvalidInput
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.evictIdle()

	if _, exists := r.rooms[room.ID]; exists {
		return domain.ErrRoomAlreadyExists
	}

	r.enforceCapacity()

	r.rooms[room.ID] = room
	r.touch(room.ID)

	return nil
}

func (r *roomRepository) GetByID(ctx context.Context, id string) (*domain.Room, error) {
	if id == "" {
		return nil, domain.ErrInvalidInput
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	room, exists := r.rooms[id]
	if !exists {
		return nil, domain.ErrRoomNotFound
	}
	r.touch(id)

	return room, nil
}

func (r *roomRepository) List(ctx context.Context) ([]*domain.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rooms := make([]*domain.Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		rooms = append(rooms, room)
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].CreatedAt.Before(rooms[j].CreatedAt) })

	return rooms, nil
}

func (r *roomRepository) Delete(ctx context.Context, id string) error {
	if id == "" {
		return domain.ErrInvalidInput
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.rooms[id]; !exists {
		return domain.ErrRoomNotFound
	}

	delete(r.rooms, id)
	delete(r.lastAccess, id)

	return nil
}
