package sdk

import (
	"fmt"
	"strings"
	"time"

	"github.com/focusritual/collab/wire"
	"github.com/google/uuid"
)

// SendMessage places a provisional copy in the mirror and emits the intent.
// The returned correlation id matches the clientId the server echoes back
// on message.created, which is when the provisional copy is replaced by the
// canonical one. The provisional copy is kept even when the emit fails, so
// the caller can re-send after reconnecting.
func (s *Session) SendMessage(body, replyTo string) (string, error) {
	clientID := uuid.NewString()

	s.mirror.addProvisional(wire.ChatMessage{
		ClientID:  clientID,
		Body:      strings.TrimSpace(body),
		ReplyTo:   replyTo,
		CreatedAt: time.Now().UTC(),
	})

	s.typing.stop()

	err := s.emit(wire.IntentMessageSend, wire.SendMessagePayload{
		ClientID: clientID,
		Body:     body,
		ReplyTo:  replyTo,
	})
	return clientID, err
}

func (s *Session) AddReaction(messageID, emoji string) error {
	return s.emit(wire.IntentReactionAdd, wire.AddReactionPayload{
		MessageID: messageID,
		Emoji:     emoji,
	})
}

// Typing signals one keystroke. The debouncer turns a burst of keystrokes
// into a single typing-started signal and a typing-stopped signal once the
// burst goes quiet.
func (s *Session) Typing() {
	s.typing.keystroke()
}

func (s *Session) ToggleHandRaised() error {
	return s.emit(wire.IntentHandToggle, nil)
}

// AddTask creates a task; the server mints the id and the canonical task
// arrives on task.upserted. No optimistic local mutation.
func (s *Session) AddTask(task wire.Task) error {
	task.ID = ""
	return s.emit(wire.IntentTaskUpsert, task)
}

// UpdateTask sends the full desired task state for an existing id.
func (s *Session) UpdateTask(task wire.Task) error {
	if task.ID == "" {
		return fmt.Errorf("update task: id is required")
	}
	return s.emit(wire.IntentTaskUpsert, task)
}

func (s *Session) DeleteTask(taskID string) error {
	return s.emit(wire.IntentTaskDelete, wire.TaskDeletedPayload{TaskID: taskID})
}

// ReplaceWhiteboard sends the whole element collection. The board is
// exchanged wholesale; there is no per-element patch on the channel.
func (s *Session) ReplaceWhiteboard(elements []wire.WhiteboardElement) error {
	return s.emit(wire.IntentWhiteboardReplace, wire.WhiteboardPayload{Elements: elements})
}

// AnnounceFile tells the room about an already-uploaded file. ShareFile
// wraps the upload and the announce into one call.
func (s *Session) AnnounceFile(fileID string) error {
	return s.emit(wire.IntentFileAnnounce, wire.FileAnnouncePayload{FileID: fileID})
}

func (s *Session) StartTimer() error {
	return s.emit(wire.IntentTimerStart, nil)
}

func (s *Session) PauseTimer() error {
	return s.emit(wire.IntentTimerPause, nil)
}

func (s *Session) ResetTimer() error {
	return s.emit(wire.IntentTimerReset, nil)
}
