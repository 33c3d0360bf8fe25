package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/focusritual/collab/wire"
	"github.com/rs/zerolog"
)

// Client talks to the room service's REST surface. It is safe for
// concurrent use and is shared by every Session it spawns.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     zerolog.Logger
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimSuffix(u, "/") }
}

// WithToken sets the bearer token sent on every request and on the
// websocket dial. Without it the server treats the caller as a guest.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func NewClient(opts ...Option) (*Client, error) {
	c := &Client{
		baseURL:    "http://localhost:8080",
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.baseURL == "" {
		return nil, ErrMissingBaseURL
	}
	return c, nil
}

// Room is a room descriptor as returned by the REST API.
type Room struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Visibility  string    `json:"visibility"`
	OwnerID     string    `json:"ownerId"`
	Members     []string  `json:"members"`
	CreatedAt   time.Time `json:"createdAt"`
}

type CreateRoomParams struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Visibility  string   `json:"visibility"`
	Members     []string `json:"members,omitempty"`
}

func (c *Client) CreateRoom(ctx context.Context, params CreateRoomParams) (*Room, error) {
	var room Room
	if err := c.doJSON(ctx, http.MethodPost, "/api/rooms", params, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

func (c *Client) ListRooms(ctx context.Context) ([]Room, error) {
	var resp struct {
		Rooms []Room `json:"rooms"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/rooms", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Rooms, nil
}

func (c *Client) ListFiles(ctx context.Context, roomID string) ([]wire.RoomFile, error) {
	if roomID == "" {
		return nil, ErrMissingRoomID
	}
	var resp struct {
		Files []wire.RoomFile `json:"files"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/rooms/"+roomID+"/files", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Files, nil
}

// NewSession prepares a realtime session for one room. Nothing is dialed
// until Join is called.
func (c *Client) NewSession(roomID, displayName string) (*Session, error) {
	if roomID == "" {
		return nil, ErrMissingRoomID
	}
	return newSession(c, roomID, displayName), nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeAPIError(resp)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// wsBaseURL converts the configured http(s) base URL to its ws(s)
// counterpart for the realtime dial.
func (c *Client) wsBaseURL() string {
	if after, ok := strings.CutPrefix(c.baseURL, "https://"); ok {
		return "wss://" + after
	}
	if after, ok := strings.CutPrefix(c.baseURL, "http://"); ok {
		return "ws://" + after
	}
	return c.baseURL
}

func decodeAPIError(resp *http.Response) error {
	var apiErr struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil || apiErr.Error == "" {
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}
	if apiErr.Message != "" {
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, apiErr.Message)
	}
	return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, apiErr.Error)
}
