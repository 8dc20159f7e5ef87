// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package controller

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/morganforge/docchat-tui/internal/api"
	"github.com/morganforge/docchat-tui/internal/model"
	"github.com/morganforge/docchat-tui/internal/sse"
	"github.com/morganforge/docchat-tui/internal/store"
)

// =============================================================================
// OPTIONS
// =============================================================================

// HistoryCache mirrors conversations locally so the client degrades to
// read-only when the backend is away. All methods are best-effort.
type HistoryCache interface {
	SaveConversations(convs []model.Conversation) error
	LoadConversations() ([]model.Conversation, error)
	SaveHistory(conversationID string, msgs []model.Message) error
	LoadHistory(conversationID string) ([]model.Message, error)
}

// Options configures a Controller. Client and Store are required.
type Options struct {
	Client *api.Client
	Store  *store.Store

	// ReconnectDelay between stream drops and reattach (default: 1s).
	ReconnectDelay time.Duration

	// MaxReconnectAttempts caps a failure streak; zero retries until the
	// conversation is left.
	MaxReconnectAttempts int

	// RequestTimeout bounds the history and list fetches the controller
	// makes on its own (default: 30s).
	RequestTimeout time.Duration

	// Cache, when set, mirrors fetched state locally and serves it back
	// when the backend is unreachable.
	Cache HistoryCache

	// OnNotice receives transient per-conversation notices (stream info
	// events, cache fallbacks). Optional.
	OnNotice func(conversationID, message string)
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller drives the chat workflow against one backend.
type Controller struct {
	client *api.Client
	store  *store.Store
	opts   Options

	// streamClient carries no timeout; streams outlive any fixed deadline.
	streamClient *http.Client

	mu          sync.Mutex
	session     *sse.Session
	sessionConv string
	generation  uint64
}

// New creates a controller. The store starts empty; call Refresh to pull
// the conversation list.
func New(opts Options) (*Controller, error) {
	if opts.Client == nil {
		return nil, errors.New("controller requires a backend client")
	}
	if opts.Store == nil {
		return nil, errors.New("controller requires a store")
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = time.Second
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}

	return &Controller{
		client:       opts.Client,
		store:        opts.Store,
		opts:         opts,
		streamClient: &http.Client{},
	}, nil
}

// Close shuts the controller down, detaching any live stream.
func (c *Controller) Close() {
	c.closeSession()
}

// LiveConversation returns the conversation id of the live stream, empty
// when no stream is attached.
func (c *Controller) LiveConversation() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil || c.session.State().Terminal() {
		return ""
	}
	return c.sessionConv
}

// =============================================================================
// CONVERSATION LIST
// =============================================================================

// Refresh reloads the conversation list. When the backend is unreachable
// and a cache is configured, the cached list is served with a notice.
func (c *Controller) Refresh(ctx context.Context) error {
	// Paint the cached list first so the sidebar is never empty while the
	// network round trip is in flight.
	if c.opts.Cache != nil && len(c.store.Conversations()) == 0 {
		if cached, err := c.opts.Cache.LoadConversations(); err == nil && len(cached) > 0 {
			c.store.SetConversations(cached)
		}
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.opts.RequestTimeout)
	defer cancel()

	convs, err := c.client.ListConversations(reqCtx)
	if err != nil {
		if c.opts.Cache != nil && api.IsUnreachable(err) {
			if cached, cacheErr := c.opts.Cache.LoadConversations(); cacheErr == nil {
				c.store.SetConversations(cached)
				c.notice("", "backend unreachable, showing cached conversations")
				return nil
			}
		}
		return err
	}

	c.store.SetConversations(convs)
	if c.opts.Cache != nil {
		c.opts.Cache.SaveConversations(convs)
	}
	return nil
}

// =============================================================================
// SELECTION
// =============================================================================

// Select makes a conversation current. The previous stream, if any, is
// closed before anything else happens, then the conversation's history is
// loaded and a fresh stream attaches to the new conversation. The stream
// stays attached for as long as the selection holds, so a turn already
// running server-side renders as it streams. An empty id clears the
// selection. Selecting the already-current conversation is a no-op.
func (c *Controller) Select(ctx context.Context, conversationID string) error {
	if c.store.Selected() == conversationID {
		return nil
	}

	c.closeSession()
	gen := c.bumpGeneration()

	c.store.Select(conversationID)
	if conversationID == "" {
		return nil
	}
	c.store.ClearError(conversationID)

	err := c.loadHistory(ctx, conversationID, gen)

	// Attach even when the history fetch failed: the reconnect loop covers
	// an absent backend, and an in-progress turn must not go invisible.
	if c.currentGeneration() == gen {
		if openErr := c.openSession(conversationID); openErr != nil && err == nil {
			err = openErr
		}
	}
	return err
}

// loadHistory fetches and applies a conversation's history. The result is
// discarded when the selection moved on while the fetch was in flight.
func (c *Controller) loadHistory(ctx context.Context, conversationID string, gen uint64) error {
	// Cached history paints immediately; the fetch below replaces it.
	if c.opts.Cache != nil && len(c.store.Messages(conversationID)) == 0 {
		if cached, err := c.opts.Cache.LoadHistory(conversationID); err == nil && len(cached) > 0 {
			if c.currentGeneration() == gen {
				c.store.SetMessages(conversationID, cached)
			}
		}
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.opts.RequestTimeout)
	defer cancel()

	msgs, err := c.client.GetHistory(reqCtx, conversationID)
	if err != nil {
		if c.opts.Cache != nil && api.IsUnreachable(err) {
			if cached, cacheErr := c.opts.Cache.LoadHistory(conversationID); cacheErr == nil && cached != nil {
				if c.currentGeneration() == gen {
					c.store.SetMessages(conversationID, cached)
					c.notice(conversationID, "backend unreachable, showing cached history")
				}
				return nil
			}
		}
		if c.currentGeneration() == gen {
			c.store.SetError(conversationID, err.Error())
		}
		return err
	}

	if c.currentGeneration() != gen {
		// The user left this conversation; a stale history must not land.
		return nil
	}

	c.store.SetMessages(conversationID, msgs)
	if c.opts.Cache != nil {
		c.opts.Cache.SaveHistory(conversationID, msgs)
	}
	return nil
}

func (c *Controller) bumpGeneration() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	return c.generation
}

func (c *Controller) currentGeneration() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// =============================================================================
// SENDING
// =============================================================================

// Send posts a user turn into the selected conversation. The reply arrives
// on the stream attached at selection time; Send only reattaches it when
// it has gone terminal. With nothing selected, the backend creates a
// conversation and the new id becomes the selection. Returns the
// conversation id the turn landed in.
func (c *Controller) Send(ctx context.Context, text string) (string, error) {
	if text == "" {
		return "", errors.New("message must not be empty")
	}

	selected := c.store.Selected()

	// The turn shows up immediately; the done-triggered history reload
	// replaces it with the persisted copy.
	var localID string
	if selected != "" {
		local := model.NewLocalUserMessage(selected, text)
		localID = local.ID
		c.store.AppendMessage(selected, local)
		c.store.ClearError(selected)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.opts.RequestTimeout)
	defer cancel()

	receipt, err := c.client.SendTurn(reqCtx, selected, text)
	if err != nil {
		if localID != "" {
			// The backend never saw the turn; the placeholder must go.
			c.store.RemoveMessage(selected, localID)
		}
		if selected != "" {
			c.store.SetError(selected, err.Error())
		}
		return "", err
	}

	conversationID := receipt.ConversationID
	if selected == "" {
		c.bumpGeneration()
		c.store.Select(conversationID)
		c.store.SetMessages(conversationID, []model.Message{
			model.NewLocalUserMessage(conversationID, text),
		})
	}

	c.store.BeginStreaming(conversationID)
	if err := c.ensureSession(conversationID); err != nil {
		c.store.EndStreaming(conversationID)
		c.store.SetError(conversationID, err.Error())
		return conversationID, err
	}

	if selected == "" {
		// The stream is already attached; the slower list refresh follows.
		c.registerNewConversation(ctx, conversationID, text)
	}
	return conversationID, nil
}

// registerNewConversation gets a backend-created conversation into the
// list: from the server when possible, otherwise as a local entry titled
// after the first question.
func (c *Controller) registerNewConversation(ctx context.Context, conversationID, firstQuestion string) {
	reqCtx, cancel := context.WithTimeout(ctx, c.opts.RequestTimeout)
	defer cancel()
	if convs, err := c.client.ListConversations(reqCtx); err == nil {
		c.store.SetConversations(convs)
		if c.opts.Cache != nil {
			c.opts.Cache.SaveConversations(convs)
		}
		if _, ok := c.store.Conversation(conversationID); ok {
			return
		}
	}
	c.store.PrependConversation(model.NewLocalConversation(conversationID, firstQuestion))
}

// =============================================================================
// STREAM LIFECYCLE
// =============================================================================

// ensureSession attaches the stream for a conversation unless it is
// already live for that conversation.
func (c *Controller) ensureSession(conversationID string) error {
	c.mu.Lock()
	live := c.session != nil && c.sessionConv == conversationID && !c.session.State().Terminal()
	c.mu.Unlock()
	if live {
		return nil
	}
	return c.openSession(conversationID)
}

// openSession attaches the live stream for a conversation, closing any
// previous stream first. At most one stream is ever live.
func (c *Controller) openSession(conversationID string) error {
	c.closeSession()

	// prev is only touched from the session goroutine.
	prev := sse.StateConnecting
	session, err := sse.Open(sse.Config{
		URL:            c.client.StreamURL(conversationID),
		HTTPClient:     c.streamClient,
		ReconnectDelay: c.opts.ReconnectDelay,
		MaxAttempts:    c.opts.MaxReconnectAttempts,
		OnEvent: func(ev model.Event) {
			c.handleEvent(conversationID, ev)
		},
		OnStateChange: func(st sse.State, err error) {
			c.handleStreamState(conversationID, prev, st, err)
			prev = st
		},
	})
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.session = session
	c.sessionConv = conversationID
	c.mu.Unlock()

	go c.reattachOnEnd(session, conversationID)
	return nil
}

// reattachOnEnd reopens the stream after the server ends it. The server
// closes the stream when a turn completes, but listening continues for as
// long as the conversation stays selected; later turns, including ones
// started from another client, still have somewhere to land. Sessions the
// controller replaced, closed on purpose, or that failed terminally are
// left alone.
func (c *Controller) reattachOnEnd(session *sse.Session, conversationID string) {
	<-session.Done()

	if session.State() != sse.StateClosed || !c.isCurrentSession(session) {
		return
	}

	// The usual reconnect gap applies before the fresh attach.
	time.Sleep(c.opts.ReconnectDelay)
	if !c.isCurrentSession(session) || c.store.Selected() != conversationID {
		return
	}
	c.openSession(conversationID)
}

func (c *Controller) isCurrentSession(session *sse.Session) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session == session
}

// closeSession detaches the live stream, if any. Idempotent.
func (c *Controller) closeSession() {
	c.mu.Lock()
	session := c.session
	c.session = nil
	c.sessionConv = ""
	c.mu.Unlock()

	if session != nil {
		session.Close()
	}
}

// handleStreamState surfaces stream lifecycle problems on the conversation.
// Only the drop of an open stream earns a notice; the retry loop against a
// backend that stays down is quiet after the first one.
func (c *Controller) handleStreamState(conversationID string, prev, st sse.State, err error) {
	switch st {
	case sse.StateRetrying:
		if prev == sse.StateOpen {
			c.notice(conversationID, "connection lost, retrying")
		}
	case sse.StateFailed:
		c.store.EndStreaming(conversationID)
		if err != nil {
			c.store.SetError(conversationID, err.Error())
		} else {
			c.store.SetError(conversationID, "stream connection failed")
		}
	}
}

// =============================================================================
// EVENT HANDLING
// =============================================================================

// handleEvent applies one stream event to the store. Runs on the session
// goroutine, so events land in arrival order.
func (c *Controller) handleEvent(conversationID string, ev model.Event) {
	switch ev.Type {
	case model.EventTyping:
		if ev.Status == model.TypingStopped {
			c.store.EndStreaming(conversationID)
		} else {
			c.store.BeginStreaming(conversationID)
		}

	case model.EventToolCallStarted:
		c.store.SetToolStatus(conversationID, &model.ToolStatus{
			Tool:   ev.Tool,
			Status: "started",
		})

	case model.EventToolCallFinished:
		c.store.SetToolStatus(conversationID, nil)

	case model.EventTextDelta:
		c.store.AppendDelta(conversationID, ev.Delta)

	case model.EventCitationMap:
		c.store.SetCitationMap(conversationID, ev.Map)

	case model.EventCitation:
		c.store.AddCitation(conversationID, ev.Citation)

	case model.EventInfo:
		c.notice(conversationID, ev.Message)

	case model.EventError:
		c.store.EndStreaming(conversationID)
		c.store.SetError(conversationID, ev.Message)

	case model.EventDone:
		c.store.EndStreaming(conversationID)
		c.reconcile(conversationID)
	}
}

// reconcile replaces the streamed turn with the persisted history. One
// retry covers a transient fetch failure; after that the streamed buffer
// stays on screen and the conversation gets a notice instead of losing the
// answer it already has.
func (c *Controller) reconcile(conversationID string) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			time.Sleep(500 * time.Millisecond)
		}

		reqCtx, cancel := context.WithTimeout(context.Background(), c.opts.RequestTimeout)
		msgs, err := c.client.GetHistory(reqCtx, conversationID)
		cancel()
		if err != nil {
			lastErr = err
			continue
		}

		c.store.SetMessages(conversationID, msgs)
		c.store.ClearStreaming(conversationID)
		if c.opts.Cache != nil {
			c.opts.Cache.SaveHistory(conversationID, msgs)
		}
		c.refreshListQuiet()
		return
	}

	c.notice(conversationID, "could not refresh history: "+lastErr.Error())
}

// refreshListQuiet reloads the conversation list after a completed turn,
// picking up server-side title updates. Failures are ignored; the list is
// only stale, not wrong.
func (c *Controller) refreshListQuiet() {
	reqCtx, cancel := context.WithTimeout(context.Background(), c.opts.RequestTimeout)
	defer cancel()
	if convs, err := c.client.ListConversations(reqCtx); err == nil {
		c.store.SetConversations(convs)
	}
}

// notice forwards a transient message to the configured observer.
func (c *Controller) notice(conversationID, message string) {
	if c.opts.OnNotice != nil && message != "" {
		c.opts.OnNotice(conversationID, message)
	}
}
