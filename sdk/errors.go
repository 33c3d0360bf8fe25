package sdk

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConnected is returned by every emitter when the session has no
	// live connection. Callers keep their optimistic UI state and retry
	// after the session reports Connected again.
	ErrNotConnected = errors.New("session is not connected")

	// ErrAlreadyJoined is returned when Join is called on a session that
	// already holds a room. Leave first, then join again.
	ErrAlreadyJoined = errors.New("session has already joined a room")

	// ErrAuth means the server rejected the credentials on dial.
	ErrAuth = errors.New("authentication rejected")

	ErrMissingRoomID  = errors.New("room id is required")
	ErrMissingBaseURL = errors.New("base URL is required")
)

// UploadError describes a failed file upload. StatusCode is zero when the
// failure happened before a response arrived.
type UploadError struct {
	StatusCode int
	Reason     string
	Err        error
}

func (e *UploadError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("upload failed with status %d: %s", e.StatusCode, e.Reason)
	}
	return fmt.Sprintf("upload failed: %s", e.Reason)
}

func (e *UploadError) Unwrap() error { return e.Err }

// ActionRejectedError surfaces a server-side rejection of an emitted
// intent, delivered over the action.rejected event.
type ActionRejectedError struct {
	Intent string
	Reason string
}

func (e *ActionRejectedError) Error() string {
	return fmt.Sprintf("server rejected %s: %s", e.Intent, e.Reason)
}
