package ws

import (
	"errors"
	"slices"
	"sync"

	"github.com/focusritual/collab/wire"
)

var (
	ErrMessageNotFound     = errors.New("message not found")
	ErrParticipantNotFound = errors.New("participant not found")
)

// maxHistory bounds the per-room chat history; the oldest messages fall off
// once a room gets chatty enough.
const maxHistory = 500

// roomState is the authoritative live state of one room. Every client
// mirror is eventually consistent with this, and only this: all intents are
// serialized through its lock, last write wins.
type roomState struct {
	mu sync.RWMutex

	participantOrder []string
	participants     map[string]*wire.Participant

	messages []wire.ChatMessage

	taskOrder []string
	tasks     map[string]wire.Task

	fileOrder []string
	files     map[string]wire.RoomFile

	whiteboard []wire.WhiteboardElement

	timer *roomTimer
}

func newRoomState(timer *roomTimer) *roomState {
	return &roomState{
		participants: make(map[string]*wire.Participant),
		tasks:        make(map[string]wire.Task),
		files:        make(map[string]wire.RoomFile),
		timer:        timer,
	}
}

// Snapshot copies the full room state for a room.state event. One snapshot
// is always enough to rebuild a mirror from scratch.
func (s *roomState) Snapshot() wire.RoomStatePayload {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := wire.RoomStatePayload{
		Participants: make([]wire.Participant, 0, len(s.participantOrder)),
		Messages:     slices.Clone(s.messages),
		Tasks:        make([]wire.Task, 0, len(s.taskOrder)),
		Files:        make([]wire.RoomFile, 0, len(s.fileOrder)),
		Whiteboard:   slices.Clone(s.whiteboard),
		Timer:        s.timer.State(),
	}
	for _, id := range s.participantOrder {
		snap.Participants = append(snap.Participants, *s.participants[id])
	}
	for _, id := range s.taskOrder {
		snap.Tasks = append(snap.Tasks, s.tasks[id])
	}
	for _, id := range s.fileOrder {
		snap.Files = append(snap.Files, s.files[id])
	}
	return snap
}

// Join adds (or reconnects) a participant and returns the canonical record.
func (s *roomState) Join(p wire.Participant) wire.Participant {
	s.mu.Lock()
	defer s.mu.Unlock()

	p.Connected = true
	if _, exists := s.participants[p.ID]; !exists {
		s.participantOrder = append(s.participantOrder, p.ID)
	}
	s.participants[p.ID] = &p
	return p
}

// Leave removes a participant along with their ephemeral presence.
func (s *roomState) Leave(participantID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.participants[participantID]; !exists {
		return false
	}
	delete(s.participants, participantID)
	s.participantOrder = slices.DeleteFunc(s.participantOrder, func(id string) bool {
		return id == participantID
	})
	return true
}

func (s *roomState) AddMessage(msg wire.ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = append(s.messages, msg)
	if len(s.messages) > maxHistory {
		s.messages = s.messages[len(s.messages)-maxHistory:]
	}
}

// AddReaction toggles a participant's reaction on a message and returns the
// updated message, which is rebroadcast wholesale (replace-by-id on the
// mirror side).
func (s *roomState) AddReaction(messageID, emoji, participantID string) (wire.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.messages {
		if s.messages[i].ID != messageID {
			continue
		}
		msg := &s.messages[i]
		if msg.Reactions == nil {
			msg.Reactions = make(map[string][]string)
		}
		if slices.Contains(msg.Reactions[emoji], participantID) {
			msg.Reactions[emoji] = slices.DeleteFunc(msg.Reactions[emoji], func(id string) bool {
				return id == participantID
			})
			if len(msg.Reactions[emoji]) == 0 {
				delete(msg.Reactions, emoji)
			}
		} else {
			msg.Reactions[emoji] = append(msg.Reactions[emoji], participantID)
		}
		return *msg, nil
	}
	return wire.ChatMessage{}, ErrMessageNotFound
}

func (s *roomState) UpsertTask(task wire.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[task.ID]; !exists {
		s.taskOrder = append(s.taskOrder, task.ID)
	}
	s.tasks[task.ID] = task
}

func (s *roomState) DeleteTask(taskID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.tasks, taskID)
	s.taskOrder = slices.DeleteFunc(s.taskOrder, func(id string) bool { return id == taskID })
}

func (s *roomState) AddFile(file wire.RoomFile) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.files[file.ID]; !exists {
		s.fileOrder = append(s.fileOrder, file.ID)
	}
	s.files[file.ID] = file
}

func (s *roomState) SetTyping(participantID string, typing bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.participants[participantID]
	if !ok {
		return ErrParticipantNotFound
	}
	p.Typing = typing
	return nil
}

// ToggleHand flips the hand-raised flag and returns the new value.
func (s *roomState) ToggleHand(participantID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.participants[participantID]
	if !ok {
		return false, ErrParticipantNotFound
	}
	p.HandRaised = !p.HandRaised
	return p.HandRaised, nil
}

func (s *roomState) ReplaceWhiteboard(elements []wire.WhiteboardElement) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.whiteboard = slices.Clone(elements)
}
