package sdk

import (
	"maps"
	"slices"
	"sync"

	"github.com/focusritual/collab/wire"
)

// Mirror is the client-side copy of a room's state. It is rebuilt wholesale
// from every room.state snapshot and patched incrementally by the events in
// between. Every application is idempotent, so replays after a reconnect
// converge instead of corrupting.
type Mirror struct {
	mu sync.RWMutex

	participants map[string]wire.Participant
	order        []string // participant ids in join order

	messages []wire.ChatMessage

	tasks     map[string]wire.Task
	taskOrder []string

	files     map[string]wire.RoomFile
	fileOrder []string

	whiteboard []wire.WhiteboardElement
	timer      wire.TimerState
}

// RoomState is a point-in-time copy of the mirror, safe to hand to a
// renderer while the mirror keeps moving underneath.
type RoomState struct {
	Participants []wire.Participant
	Messages     []wire.ChatMessage
	Tasks        []wire.Task
	Files        []wire.RoomFile
	Whiteboard   []wire.WhiteboardElement
	Timer        wire.TimerState
}

func NewMirror() *Mirror {
	m := &Mirror{}
	m.reset()
	return m
}

// Reset returns the mirror to its pristine state: no participants, no
// messages, a stopped default timer. Used when leaving a room and before a
// reconnect's fresh snapshot.
func (m *Mirror) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reset()
}

func (m *Mirror) reset() {
	m.participants = make(map[string]wire.Participant)
	m.order = nil
	m.messages = nil
	m.tasks = make(map[string]wire.Task)
	m.taskOrder = nil
	m.files = make(map[string]wire.RoomFile)
	m.fileOrder = nil
	m.whiteboard = nil
	m.timer = wire.DefaultTimerState()
}

// Apply folds one server event into the mirror. Unknown event types are an
// error; the protocol is closed and a new event name means a version skew
// the caller should surface, not swallow.
func (m *Mirror) Apply(env *wire.Envelope) error {
	payload, err := env.Decode()
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	switch p := payload.(type) {
	case *wire.RoomStatePayload:
		m.applySnapshot(p)

	case *wire.ChatMessage:
		m.applyMessage(*p)

	case *wire.Task:
		if _, ok := m.tasks[p.ID]; !ok {
			m.taskOrder = append(m.taskOrder, p.ID)
		}
		m.tasks[p.ID] = *p

	case *wire.TaskDeletedPayload:
		if _, ok := m.tasks[p.TaskID]; ok {
			delete(m.tasks, p.TaskID)
			m.taskOrder = slices.DeleteFunc(m.taskOrder, func(id string) bool { return id == p.TaskID })
		}

	case *wire.Participant:
		if _, ok := m.participants[p.ID]; !ok {
			m.order = append(m.order, p.ID)
		}
		m.participants[p.ID] = *p

	case *wire.ParticipantLeftPayload:
		if _, ok := m.participants[p.ParticipantID]; ok {
			delete(m.participants, p.ParticipantID)
			m.order = slices.DeleteFunc(m.order, func(id string) bool { return id == p.ParticipantID })
		}

	case *wire.TypingChangedPayload:
		if participant, ok := m.participants[p.ParticipantID]; ok {
			participant.Typing = p.Typing
			m.participants[p.ParticipantID] = participant
		}

	case *wire.HandRaisedPayload:
		if participant, ok := m.participants[p.ParticipantID]; ok {
			participant.HandRaised = p.Raised
			m.participants[p.ParticipantID] = participant
		}

	case *wire.WhiteboardPayload:
		m.whiteboard = slices.Clone(p.Elements)

	case *wire.RoomFile:
		if _, ok := m.files[p.ID]; !ok {
			m.fileOrder = append(m.fileOrder, p.ID)
		}
		m.files[p.ID] = *p

	case *wire.TimerState:
		m.timer = *p

	case *wire.ErrorPayload, *wire.ActionRejectedPayload:
		// Surfaced through the session's handlers, not state.

	default:
		return &wire.ErrUnknownEvent{Type: env.Type}
	}

	return nil
}

func (m *Mirror) applySnapshot(p *wire.RoomStatePayload) {
	m.reset()
	for _, participant := range p.Participants {
		m.order = append(m.order, participant.ID)
		m.participants[participant.ID] = participant
	}
	m.messages = slices.Clone(p.Messages)
	for _, task := range p.Tasks {
		m.taskOrder = append(m.taskOrder, task.ID)
		m.tasks[task.ID] = task
	}
	for _, file := range p.Files {
		m.fileOrder = append(m.fileOrder, file.ID)
		m.files[file.ID] = file
	}
	m.whiteboard = slices.Clone(p.Whiteboard)
	m.timer = p.Timer
}

// applyMessage reconciles a canonical message against what the mirror
// already holds: same server id means an update (reactions ride this path),
// a matching correlation id replaces the local provisional copy, anything
// else appends.
func (m *Mirror) applyMessage(msg wire.ChatMessage) {
	for i, existing := range m.messages {
		if existing.ID == msg.ID {
			m.messages[i] = msg
			return
		}
	}
	if msg.ClientID != "" {
		for i, existing := range m.messages {
			if existing.ClientID == msg.ClientID {
				m.messages[i] = msg
				return
			}
		}
	}
	m.messages = append(m.messages, msg)
}

// addProvisional records a locally sent message before the server confirms
// it, keyed by its correlation id.
func (m *Mirror) addProvisional(msg wire.ChatMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
}

// Snapshot copies the mirror. Reaction maps are copied too, so the caller
// can hold the result across later applies.
func (m *Mirror) Snapshot() RoomState {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state := RoomState{
		Participants: make([]wire.Participant, 0, len(m.order)),
		Messages:     make([]wire.ChatMessage, 0, len(m.messages)),
		Tasks:        make([]wire.Task, 0, len(m.taskOrder)),
		Files:        make([]wire.RoomFile, 0, len(m.fileOrder)),
		Whiteboard:   slices.Clone(m.whiteboard),
		Timer:        m.timer,
	}
	for _, id := range m.order {
		state.Participants = append(state.Participants, m.participants[id])
	}
	for _, msg := range m.messages {
		if msg.Reactions != nil {
			copied := make(map[string][]string, len(msg.Reactions))
			for emoji, ids := range msg.Reactions {
				copied[emoji] = slices.Clone(ids)
			}
			msg.Reactions = copied
		}
		state.Messages = append(state.Messages, msg)
	}
	for _, id := range m.taskOrder {
		state.Tasks = append(state.Tasks, m.tasks[id])
	}
	for _, id := range m.fileOrder {
		state.Files = append(state.Files, m.files[id])
	}
	return state
}

// Participants returns the current participants keyed by id.
func (m *Mirror) Participants() map[string]wire.Participant {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return maps.Clone(m.participants)
}

// Timer returns the latest timer state.
func (m *Mirror) Timer() wire.TimerState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.timer
}
