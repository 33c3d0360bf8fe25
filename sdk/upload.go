package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"

	"github.com/focusritual/collab/wire"
)

const (
	uploadAttemptTimeout = 30 * time.Second

	// One retry, and only for failures where the server may never have
	// seen the request. A definitive 4xx is never retried.
	uploadAttempts = 2
)

// UploadFile stores a file in the room over REST and returns the server's
// descriptor. Uploading alone does not announce the file to the room;
// callers that hold a live session should use ShareFile instead.
func (c *Client) UploadFile(ctx context.Context, roomID, filename, mimeType string, r io.Reader) (*wire.RoomFile, error) {
	if roomID == "" {
		return nil, ErrMissingRoomID
	}

	// Buffered up front so a retry can resend identical bytes.
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, &UploadError{Reason: "reading file content", Err: err}
	}

	var lastErr *UploadError
	for attempt := 1; attempt <= uploadAttempts; attempt++ {
		file, uploadErr := c.uploadOnce(ctx, roomID, filename, mimeType, content)
		if uploadErr == nil {
			return file, nil
		}
		lastErr = uploadErr

		if !uploadErr.retryable() || ctx.Err() != nil {
			break
		}
		c.logger.Warn().Err(uploadErr).Int("attempt", attempt).Msg("upload attempt failed")
	}
	return nil, lastErr
}

func (c *Client) uploadOnce(ctx context.Context, roomID, filename, mimeType string, content []byte) (*wire.RoomFile, *UploadError) {
	attemptCtx, cancel := context.WithTimeout(ctx, uploadAttemptTimeout)
	defer cancel()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	header.Set("Content-Type", mimeType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, &UploadError{Reason: "building multipart body", Err: err}
	}
	if _, err := part.Write(content); err != nil {
		return nil, &UploadError{Reason: "building multipart body", Err: err}
	}
	if err := writer.Close(); err != nil {
		return nil, &UploadError{Reason: "building multipart body", Err: err}
	}

	url := fmt.Sprintf("%s/api/rooms/%s/files", c.baseURL, roomID)
	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, url, body)
	if err != nil {
		return nil, &UploadError{Reason: "building request", Err: err}
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &UploadError{Reason: "sending request", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return nil, &UploadError{
			StatusCode: resp.StatusCode,
			Reason:     apiErrorMessage(resp),
		}
	}

	var file wire.RoomFile
	if err := json.NewDecoder(resp.Body).Decode(&file); err != nil {
		return nil, &UploadError{StatusCode: resp.StatusCode, Reason: "decoding response", Err: err}
	}
	return &file, nil
}

// retryable reports whether a second attempt could plausibly succeed:
// transport errors and server-side failures, never a definitive client
// error.
func (e *UploadError) retryable() bool {
	return e.StatusCode == 0 && e.Err != nil || e.StatusCode >= 500
}

// ShareFile uploads a file and, only once the upload has definitively
// succeeded, announces it to the room over the live connection. A failed
// upload never produces an announcement, so no participant ever sees a
// file that does not exist.
func (s *Session) ShareFile(ctx context.Context, filename, mimeType string, r io.Reader) (*wire.RoomFile, error) {
	file, err := s.client.UploadFile(ctx, s.roomID, filename, mimeType, r)
	if err != nil {
		return nil, err
	}

	if err := s.AnnounceFile(file.ID); err != nil {
		// The upload itself stands; the caller can re-announce after the
		// session reconnects.
		return file, err
	}
	return file, nil
}

func apiErrorMessage(resp *http.Response) string {
	var apiErr struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil {
		return http.StatusText(resp.StatusCode)
	}
	if apiErr.Message != "" {
		return apiErr.Message
	}
	if apiErr.Error != "" {
		return apiErr.Error
	}
	return http.StatusText(resp.StatusCode)
}
