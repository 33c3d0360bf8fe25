// Package wire defines the JSON contracts exchanged between the
// collaboration server and its clients. Both sides marshal exactly these
// shapes; anything else on the channel is a protocol violation.
package wire

import (
	"errors"
	"time"
)

var (
	ErrInvalidElement = errors.New("invalid whiteboard element")
	ErrInvalidTask    = errors.New("invalid task")
)

// Participant is one connected member of a room, including the ephemeral
// presence flags. Presence is never persisted; it lives only as long as the
// participant's connection.
type Participant struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	AvatarURL  string `json:"avatarUrl,omitempty"`
	Typing     bool   `json:"typing"`
	HandRaised bool   `json:"handRaised"`
	Speaking   bool   `json:"speaking"`
	Connected  bool   `json:"connected"`
}

// ChatMessage is immutable once delivered, except for its reaction map.
// ClientID is the client-supplied correlation id; the server echoes it back
// on message.created so a provisional message can be reconciled
// deterministically instead of by content heuristics.
type ChatMessage struct {
	ID        string              `json:"id"`
	ClientID  string              `json:"clientId,omitempty"`
	AuthorID  string              `json:"authorId"`
	Body      string              `json:"body"`
	ReplyTo   string              `json:"replyTo,omitempty"`
	Reactions map[string][]string `json:"reactions,omitempty"` // emoji -> participant ids
	CreatedAt time.Time           `json:"createdAt"`
}

type TaskStatus string

const (
	TaskTodo       TaskStatus = "todo"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskTodo, TaskInProgress, TaskCompleted:
		return true
	}
	return false
}

type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
)

func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Task status transitions are never computed client-side; a client only
// requests a desired status and waits for the server's task.upserted echo.
type Task struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	AssigneeID  string       `json:"assigneeId,omitempty"`
	Status      TaskStatus   `json:"status"`
	Priority    TaskPriority `json:"priority"`
	DueDate     *time.Time   `json:"dueDate,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
}

func (t Task) Validate() error {
	if t.Title == "" {
		return ErrInvalidTask
	}
	if !t.Status.Valid() || !t.Priority.Valid() {
		return ErrInvalidTask
	}
	return nil
}

// RoomFile is the stored-file descriptor minted by the server after a
// successful upload. Clients never construct one themselves.
type RoomFile struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	MimeType   string    `json:"mimeType"`
	UploaderID string    `json:"uploaderId"`
	UploadedAt time.Time `json:"uploadedAt"`
	URL        string    `json:"url"`
}

type ElementKind string

const (
	ElementStroke  ElementKind = "stroke"
	ElementRect    ElementKind = "rect"
	ElementEllipse ElementKind = "ellipse"
	ElementText    ElementKind = "text"
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// WhiteboardElement is a tagged union over the drawable shapes. The whole
// element collection is exchanged wholesale on every change; one
// whiteboard.replaced message is always enough to rebuild the board on a
// newly joined client.
type WhiteboardElement struct {
	ID          string      `json:"id"`
	Kind        ElementKind `json:"kind"`
	Points      []Point     `json:"points,omitempty"` // stroke only
	X           float64     `json:"x,omitempty"`
	Y           float64     `json:"y,omitempty"`
	Width       float64     `json:"width,omitempty"`
	Height      float64     `json:"height,omitempty"`
	Text        string      `json:"text,omitempty"` // text only
	Color       string      `json:"color"`
	StrokeWidth float64     `json:"strokeWidth"`
}

func (e WhiteboardElement) Validate() error {
	switch e.Kind {
	case ElementStroke:
		if len(e.Points) == 0 {
			return ErrInvalidElement
		}
	case ElementRect, ElementEllipse:
	case ElementText:
		if e.Text == "" {
			return ErrInvalidElement
		}
	default:
		return ErrInvalidElement
	}
	return nil
}

type TimerMode string

const (
	TimerWork  TimerMode = "work"
	TimerBreak TimerMode = "break"
)

// TimerState is entirely server-authoritative; clients only issue
// start/pause/reset intents and render whatever comes back.
type TimerState struct {
	Mode      TimerMode `json:"mode"`
	Remaining int       `json:"remaining"` // seconds
	Running   bool      `json:"running"`
}

const DefaultWorkSeconds = 1500

func DefaultTimerState() TimerState {
	return TimerState{Mode: TimerWork, Remaining: DefaultWorkSeconds, Running: false}
}
