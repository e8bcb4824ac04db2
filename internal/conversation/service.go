// ABOUTME: Controller runs one send-message exchange against the conversation store
// ABOUTME: Record first, then act: the user turn and placeholder exist before the backend is called

package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/2389/coven-console/internal/backend"
	"github.com/2389/coven-console/internal/session"
)

// DefaultUserID is sent when the preferences carry no user id.
const DefaultUserID = "default_user"

// incompleteError settles a placeholder whose exchange ended without a result.
const incompleteError = "The request did not complete"

// Controller errors
var (
	ErrEmptyMessage     = errors.New("message is empty")
	ErrExchangeInFlight = errors.New("an exchange is already in flight")
)

// MessageSender is what the controller needs from the backend client
type MessageSender interface {
	SendMessage(ctx context.Context, req backend.ChatRequest) (*backend.ChatResponse, error)
}

// ConversationStore is the subset of session.Store the controller drives
type ConversationStore interface {
	AddMessage(partial session.Message) (session.Message, error)
	UpdateMessage(id string, patch session.MessagePatch) bool
	Message(id string) (session.Message, bool)
	SetStreamingMessageID(id string) error
	SetLoading(loading bool)
	IsLoading() bool
	StreamingInProgress() bool
	SessionID() string
	SetSessionID(id string)
	Preferences() session.Preferences
}

// Controller orchestrates exchanges. One exchange runs at a time; a send that
// arrives while one is in flight is rejected, never queued.
type Controller struct {
	store    ConversationStore
	sender   MessageSender
	inFlight atomic.Bool
	logger   *slog.Logger
}

// New creates a Controller.
func New(store ConversationStore, sender MessageSender, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		store:  store,
		sender: sender,
		logger: logger.With("component", "conversation"),
	}
}

// Busy reports whether an exchange is in flight.
func (c *Controller) Busy() bool {
	return c.inFlight.Load() || c.store.IsLoading()
}

// SendMessage records the user message and an agent placeholder, calls the
// backend once, and settles the placeholder with the outcome.
//
// Exchange failures are recorded on the returned agent message, not returned
// as errors. The error result covers only input that never started an
// exchange: empty text, a send while busy, or a store rejection.
func (c *Controller) SendMessage(ctx context.Context, text string) (*session.Message, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessage
	}
	if c.store.IsLoading() || !c.inFlight.CompareAndSwap(false, true) {
		return nil, ErrExchangeInFlight
	}
	defer c.inFlight.Store(false)

	// A streaming message left behind would reject the placeholder after the
	// user turn was already recorded.
	if c.store.StreamingInProgress() {
		return nil, session.ErrStreamingInProgress
	}

	// 1. Record the user turn and the streaming placeholder
	if _, err := c.store.AddMessage(session.Message{Role: session.RoleUser, Content: text}); err != nil {
		return nil, fmt.Errorf("recording user message: %w", err)
	}
	placeholder, err := c.store.AddMessage(session.Message{Role: session.RoleAgent, IsStreaming: true})
	if err != nil {
		return nil, fmt.Errorf("recording agent placeholder: %w", err)
	}
	if err := c.store.SetStreamingMessageID(placeholder.ID); err != nil {
		return nil, fmt.Errorf("marking placeholder streaming: %w", err)
	}
	c.store.SetLoading(true)
	defer func() {
		// Reached on every path, including a panicking sender. A no-op once
		// the placeholder is settled.
		c.store.UpdateMessage(placeholder.ID, session.MessagePatch{
			IsStreaming: session.Ptr(false),
			Error:       session.Ptr(incompleteError),
		})
		if err := c.store.SetStreamingMessageID(""); err != nil {
			c.logger.Warn("failed to clear streaming id", "error", err)
		}
		c.store.SetLoading(false)
	}()

	// 2. Exactly one backend call
	prefs := c.store.Preferences()
	sentSessionID := c.store.SessionID()
	req := backend.ChatRequest{
		Message:         text,
		SessionID:       sentSessionID,
		UserID:          prefs.UserID,
		EnableProfiling: prefs.EnableProfiling,
	}
	if req.UserID == "" {
		req.UserID = DefaultUserID
	}

	start := time.Now()
	resp, err := c.sender.SendMessage(ctx, req)

	// 3. Settle the placeholder
	if err != nil {
		c.logger.Warn("exchange failed",
			"message_id", placeholder.ID,
			"session_id", sentSessionID,
			"error", err)
		c.store.UpdateMessage(placeholder.ID, session.MessagePatch{
			IsStreaming: session.Ptr(false),
			Error:       session.Ptr(describeError(err)),
		})
		return c.settled(placeholder.ID), nil
	}

	applied := c.store.UpdateMessage(placeholder.ID, session.MessagePatch{
		Content:          session.Ptr(resp.Response),
		IsStreaming:      session.Ptr(false),
		ToolsUsed:        resp.ToolsUsed,
		ProcessingTime:   resp.ProcessingTime,
		PerformanceStats: resp.PerformanceStats,
	})
	switch {
	case !applied || c.store.SessionID() != sentSessionID:
		// Reset or cleared mid-exchange; the reply belongs to the old session
		c.logger.Debug("dropping reply for superseded exchange",
			"message_id", placeholder.ID,
			"session_id", sentSessionID)
	case resp.SessionID != "" && resp.SessionID != sentSessionID:
		c.logger.Info("backend assigned session id",
			"previous_session_id", sentSessionID,
			"session_id", resp.SessionID)
		c.store.SetSessionID(resp.SessionID)
	}

	c.logger.Debug("exchange completed",
		"message_id", placeholder.ID,
		"tools_used", len(resp.ToolsUsed),
		"duration", time.Since(start))

	return c.settled(placeholder.ID), nil
}

// settled returns the placeholder as it now stands in the store.
func (c *Controller) settled(id string) *session.Message {
	m, ok := c.store.Message(id)
	if !ok {
		// Cleared or reset while the exchange was in flight
		return nil
	}
	return &m
}

// describeError turns an exchange failure into text for the failed message.
func describeError(err error) string {
	var apiErr *backend.APIError
	switch {
	case errors.As(err, &apiErr):
		return fmt.Sprintf("The server returned an error (status %d): %s", apiErr.StatusCode, apiErr.Message)
	case errors.Is(err, context.DeadlineExceeded):
		return "The request timed out"
	case errors.Is(err, context.Canceled):
		return "The request was cancelled"
	default:
		return fmt.Sprintf("Could not reach the server: %v", err)
	}
}
