// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package sse

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/morganforge/docchat-tui/internal/model"
)

// =============================================================================
// SESSION STATE
// =============================================================================

// State is the lifecycle phase of a streaming session.
type State int

const (
	// StateConnecting means a connection attempt is in flight.
	StateConnecting State = iota

	// StateOpen means the stream is attached and delivering events.
	StateOpen

	// StateRetrying means the connection dropped and a reconnect is pending.
	StateRetrying

	// StateClosed means the stream ended normally: the server sent done,
	// or Close was called.
	StateClosed

	// StateFailed means the session gave up: the retry budget ran out or
	// the server rejected the stream outright.
	StateFailed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateRetrying:
		return "retrying"
	case StateClosed:
		return "closed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the session will make no further progress.
func (s State) Terminal() bool {
	return s == StateClosed || s == StateFailed
}

// ErrStreamRejected is reported when the server refuses the stream with a
// client-error status. Rejections are not retried.
var ErrStreamRejected = errors.New("stream rejected by server")

// errStreamEnded signals a clean end of stream inside the run loop.
var errStreamEnded = errors.New("stream ended")

// =============================================================================
// SESSION CONFIGURATION
// =============================================================================

// Config holds the options for a streaming session.
type Config struct {
	// URL is the stream endpoint for one conversation.
	URL string

	// HTTPClient used for the stream. Must not carry a request timeout;
	// the stream stays open for the whole turn. Defaults to a fresh client.
	HTTPClient *http.Client

	// ReconnectDelay is the gap between a drop and the next attempt
	// (default: 1s).
	ReconnectDelay time.Duration

	// MaxAttempts caps consecutive failed connection attempts. Zero means
	// retry until closed. The counter resets whenever a stream opens.
	MaxAttempts int

	// OnEvent receives every decoded event, in arrival order. Called from
	// the session goroutine, never after Close has returned.
	OnEvent func(model.Event)

	// OnStateChange observes lifecycle transitions. The error is non-nil
	// for StateRetrying and StateFailed.
	OnStateChange func(State, error)
}

// =============================================================================
// SESSION
// =============================================================================

// Session is a live attachment to one conversation's event stream.
type Session struct {
	cfg     Config
	limiter *rate.Limiter

	// dispatchMu serializes handler invocations with Close: once Close
	// holds it, any in-flight handler has returned and the closed flag
	// keeps new ones from starting.
	dispatchMu sync.Mutex

	mu     sync.Mutex
	state  State
	closed bool
	cancel context.CancelFunc
	done   chan struct{}
}

// Open starts a streaming session and returns immediately; events arrive on
// the configured handler from a background goroutine.
func Open(cfg Config) (*Session, error) {
	if cfg.URL == "" {
		return nil, errors.New("stream URL is required")
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Every(cfg.ReconnectDelay), 1),
		state:   StateConnecting,
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	go s.run(ctx)
	return s, nil
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Close detaches the session. Safe to call any number of times, from any
// goroutine except the session's own handlers. After Close returns no
// further events or state changes are delivered, regardless of what is in
// flight on the wire; a handler already running finishes first.
func (s *Session) Close() {
	s.dispatchMu.Lock()
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.dispatchMu.Unlock()
		return
	}
	s.closed = true
	if !s.state.Terminal() {
		s.state = StateClosed
	}
	s.mu.Unlock()
	s.dispatchMu.Unlock()

	s.cancel()
}

// Done returns a channel closed when the session goroutine has exited.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// =============================================================================
// RUN LOOP
// =============================================================================

// run drives the connect / stream / reconnect cycle until the stream ends
// or the session is closed.
func (s *Session) run(ctx context.Context) {
	defer close(s.done)

	attempts := 0
	for {
		err := s.stream(ctx, func() {
			// Connection established; the failure streak is over.
			attempts = 0
		})

		if err == errStreamEnded {
			s.transition(StateClosed, nil)
			return
		}
		if ctx.Err() != nil {
			// Closed; the state was already settled by Close.
			return
		}
		if errors.Is(err, ErrStreamRejected) {
			s.transition(StateFailed, err)
			return
		}

		attempts++
		if s.cfg.MaxAttempts > 0 && attempts >= s.cfg.MaxAttempts {
			s.transition(StateFailed, err)
			return
		}

		s.transition(StateRetrying, err)
		if !s.pause(ctx) {
			return
		}
		s.transition(StateConnecting, nil)
	}
}

// pause waits out the reconnect gap. Draining the bucket first makes the
// gap hold even after a long-lived connection refilled it. Returns false
// when the session was closed while waiting.
func (s *Session) pause(ctx context.Context) bool {
	s.limiter.AllowN(time.Now(), 1)
	return s.limiter.Wait(ctx) == nil
}

// stream runs a single connection: attach, decode frames, dispatch events.
// Returns errStreamEnded on a done event, ErrStreamRejected on a client
// error status, and the transport or decode error otherwise.
func (s *Session) stream(ctx context.Context, onOpen func()) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.URL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := s.cfg.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return ErrStreamRejected
		}
		return errors.New("stream returned " + resp.Status)
	}

	onOpen()
	s.transition(StateOpen, nil)

	decoder := NewDecoder(resp.Body)
	for {
		frame, err := decoder.Next()
		if err != nil {
			if err == io.EOF {
				// The server hung up without done; reconnect.
				return io.ErrUnexpectedEOF
			}
			return err
		}

		ev, ok := s.decode(frame)
		if !ok {
			// Unknown or malformed frames are dropped without killing
			// the stream.
			continue
		}

		s.emit(ev)
		if ev.Type == model.EventDone {
			return errStreamEnded
		}
	}
}

// decode parses a wire frame into an event. Frames without an event name
// fall back to the untyped envelope shape.
func (s *Session) decode(frame *Frame) (model.Event, bool) {
	if frame.Event != "" {
		return model.ParseEvent(frame.Event, frame.Data)
	}
	return model.ParseEnvelope(frame.Data)
}

// =============================================================================
// DISPATCH
// =============================================================================

// emit delivers one event unless the session is closed. The dispatch lock
// is held across the handler call, so a concurrent Close cannot return
// while the delivery is still in progress.
func (s *Session) emit(ev model.Event) {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed || s.cfg.OnEvent == nil {
		return
	}
	s.cfg.OnEvent(ev)
}

// transition moves to a new state and notifies the observer. A closed
// session swallows the transition; Close already settled the final state.
func (s *Session) transition(next State, err error) {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.state = next
	s.mu.Unlock()

	if s.cfg.OnStateChange != nil {
		s.cfg.OnStateChange(next, err)
	}
}
