package sdk

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/focusritual/collab/wire"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Status is the session's connection lifecycle state.
type Status int

const (
	StatusDisconnected Status = iota
	StatusConnecting
	StatusConnected
	// StatusDegraded means the session is still retrying but has failed
	// enough times that the UI should tell the user something is wrong.
	StatusDegraded
)

func (s Status) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusDegraded:
		return "degraded"
	}
	return "unknown"
}

const (
	handshakeTimeout = 10 * time.Second
	sessionWriteWait = 10 * time.Second

	// After this many consecutive failed reconnect attempts the session
	// reports StatusDegraded. It keeps retrying regardless.
	degradedAfter = 3
)

// Session is one participant's live attachment to a room: the websocket,
// the mirror it feeds, and the reconnect loop that keeps both alive.
// Emitters are safe to call from any goroutine; they fail fast with
// ErrNotConnected while the link is down.
type Session struct {
	client      *Client
	roomID      string
	displayName string
	mirror      *Mirror
	logger      zerolog.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	status Status
	joined bool
	cancel context.CancelFunc
	done   chan struct{}

	writeMu sync.Mutex

	onEvent    func(*wire.Envelope)
	onStatus   func(Status)
	onRejected func(*ActionRejectedError)

	typing *typingDebouncer
}

func newSession(client *Client, roomID, displayName string) *Session {
	s := &Session{
		client:      client,
		roomID:      roomID,
		displayName: displayName,
		mirror:      NewMirror(),
		logger:      client.logger.With().Str("room", roomID).Logger(),
		status:      StatusDisconnected,
	}
	s.typing = newTypingDebouncer(func(typing bool) {
		if err := s.emit(wire.IntentTypingSet, wire.SetTypingPayload{Typing: typing}); err != nil {
			s.logger.Debug().Err(err).Msg("typing signal dropped")
		}
	})
	return s
}

// Mirror exposes the session's room state mirror.
func (s *Session) Mirror() *Mirror { return s.mirror }

// RoomID returns the room this session is bound to.
func (s *Session) RoomID() string { return s.roomID }

// OnEvent registers a callback invoked after each server event has been
// applied to the mirror. Set handlers before calling Join.
func (s *Session) OnEvent(fn func(*wire.Envelope)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onEvent = fn
}

// OnStatusChange registers a callback for connection lifecycle changes.
func (s *Session) OnStatusChange(fn func(Status)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onStatus = fn
}

// OnActionRejected registers a callback for server-side intent rejections.
func (s *Session) OnActionRejected(fn func(*ActionRejectedError)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onRejected = fn
}

// Join dials the room. The first dial is synchronous so the caller gets an
// immediate error for a bad room or bad credentials; after that the session
// owns the connection and reconnects on its own.
func (s *Session) Join(ctx context.Context) error {
	s.mu.Lock()
	if s.joined {
		s.mu.Unlock()
		return ErrAlreadyJoined
	}
	s.joined = true
	notify := s.setStatusLocked(StatusConnecting)
	s.mu.Unlock()
	notify()

	conn, err := s.dial(ctx)
	if err != nil {
		s.mu.Lock()
		s.joined = false
		notify = s.setStatusLocked(StatusDisconnected)
		s.mu.Unlock()
		notify()
		return fmt.Errorf("join room %s: %w", s.roomID, err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	s.mu.Lock()
	s.conn = conn
	s.cancel = cancel
	s.done = done
	notify = s.setStatusLocked(StatusConnected)
	s.mu.Unlock()
	notify()

	go s.run(runCtx, conn, done)
	return nil
}

// Leave tears the session down and resets the mirror to pristine.
func (s *Session) Leave() error {
	s.mu.Lock()
	if !s.joined {
		s.mu.Unlock()
		return nil
	}
	s.joined = false
	cancel := s.cancel
	conn := s.conn
	done := s.done
	s.conn = nil
	notify := s.setStatusLocked(StatusDisconnected)
	s.mu.Unlock()
	notify()

	s.typing.stop()
	cancel()
	if conn != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		_ = conn.Close()
	}
	if done != nil {
		<-done
	}

	s.mirror.Reset()
	return nil
}

// run reads events until the connection dies, then reconnects with capped
// exponential backoff until the session is left or the context is done.
func (s *Session) run(ctx context.Context, conn *websocket.Conn, done chan struct{}) {
	defer close(done)

	for {
		s.readLoop(conn)

		if ctx.Err() != nil {
			return
		}

		s.logger.Warn().Msg("connection lost, reconnecting")
		s.setStatus(StatusConnecting)

		next, err := s.reconnect(ctx)
		if err != nil {
			s.setStatus(StatusDisconnected)
			return
		}

		// Fresh snapshot incoming; stale mirror state must not survive
		// the gap.
		s.mirror.Reset()

		s.mu.Lock()
		if !s.joined {
			// Leave won the race while the dial was in flight.
			s.mu.Unlock()
			_ = next.Close()
			return
		}
		s.conn = next
		notify := s.setStatusLocked(StatusConnected)
		s.mu.Unlock()
		notify()

		conn = next
	}
}

func (s *Session) reconnect(ctx context.Context) (*websocket.Conn, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 30 * time.Second

	attempts := 0
	return backoff.Retry(ctx, func() (*websocket.Conn, error) {
		return s.dial(ctx)
	},
		backoff.WithBackOff(b),
		backoff.WithNotify(func(err error, next time.Duration) {
			attempts++
			s.logger.Debug().Err(err).Dur("next", next).Int("attempt", attempts).Msg("reconnect failed")
			if attempts == degradedAfter {
				s.setStatus(StatusDegraded)
			}
		}),
	)
}

func (s *Session) dial(ctx context.Context) (*websocket.Conn, error) {
	q := url.Values{}
	if s.client.token != "" {
		q.Set("token", s.client.token)
	}
	if s.displayName != "" {
		q.Set("name", s.displayName)
	}

	dialURL := fmt.Sprintf("%s/api/rooms/%s/join", s.client.wsBaseURL(), s.roomID)
	if encoded := q.Encode(); encoded != "" {
		dialURL += "?" + encoded
	}

	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, resp, err := dialer.DialContext(ctx, dialURL, nil)
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, fmt.Errorf("dial %s: %w", dialURL, ErrAuth)
		}
		return nil, fmt.Errorf("dial %s: %w", dialURL, err)
	}
	return conn, nil
}

func (s *Session) readLoop(conn *websocket.Conn) {
	for {
		var env wire.Envelope
		if err := conn.ReadJSON(&env); err != nil {
			_ = conn.Close()
			return
		}

		if err := s.mirror.Apply(&env); err != nil {
			s.logger.Warn().Err(err).Str("type", env.Type).Msg("event not applied")
			continue
		}

		if env.Type == wire.EventActionRejected {
			s.dispatchRejection(&env)
		}

		s.mu.Lock()
		handler := s.onEvent
		s.mu.Unlock()
		if handler != nil {
			handler(&env)
		}
	}
}

func (s *Session) dispatchRejection(env *wire.Envelope) {
	payload, err := env.Decode()
	if err != nil {
		return
	}
	rejected := payload.(*wire.ActionRejectedPayload)

	s.mu.Lock()
	handler := s.onRejected
	s.mu.Unlock()
	if handler != nil {
		handler(&ActionRejectedError{Intent: rejected.Intent, Reason: rejected.Reason})
	}
}

// emit sends one intent envelope. The write mutex keeps concurrent
// emitters from interleaving frames on the shared connection.
func (s *Session) emit(intent string, payload any) error {
	s.mu.Lock()
	conn := s.conn
	connected := s.status == StatusConnected
	s.mu.Unlock()

	if conn == nil || !connected {
		return ErrNotConnected
	}

	env, err := wire.NewEnvelope(intent, s.roomID, payload)
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(sessionWriteWait))
	return conn.WriteJSON(env)
}

func (s *Session) setStatus(status Status) {
	s.mu.Lock()
	notify := s.setStatusLocked(status)
	s.mu.Unlock()
	notify()
}

// setStatusLocked must be called with s.mu held. It returns the callback
// invocation to run once the lock is released, so handlers observe status
// changes in order without being able to deadlock the session.
func (s *Session) setStatusLocked(status Status) func() {
	if s.status == status || s.onStatus == nil {
		s.status = status
		return func() {}
	}
	s.status = status
	handler := s.onStatus
	return func() { handler(status) }
}

// Status returns the current connection state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}
