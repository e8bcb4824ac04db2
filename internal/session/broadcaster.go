// ABOUTME: In-memory fan-out of store change notifications to presentation subscribers
// ABOUTME: Non-blocking publish; slow subscribers drop notifications rather than stall the store

package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// subscriberBufferSize is the channel buffer for each subscriber.
const subscriberBufferSize = 64

// ChangeKind names which part of the state an operation touched
type ChangeKind string

// ChangeKind constants
const (
	ChangeMessageAdded    ChangeKind = "message_added"
	ChangeMessageUpdated  ChangeKind = "message_updated"
	ChangeMessagesCleared ChangeKind = "messages_cleared"
	ChangeStreaming       ChangeKind = "streaming"
	ChangeLoading         ChangeKind = "loading"
	ChangeSessionID       ChangeKind = "session_id"
	ChangePreferences     ChangeKind = "preferences"
	ChangeSessionReset    ChangeKind = "session_reset"
)

// Change is delivered to subscribers after a mutation completes.
// MessageID is set for message-scoped changes. For message_added and
// message_updated, Message is a copy of the message as of that change.
type Change struct {
	Kind      ChangeKind
	MessageID string
	Message   *Message
}

// broadcaster provides pub/sub for store changes.
type broadcaster struct {
	mu          sync.RWMutex
	subscribers map[string]chan Change // subID -> ch
	closed      bool
	logger      *slog.Logger
}

func newBroadcaster(logger *slog.Logger) *broadcaster {
	return &broadcaster{
		subscribers: make(map[string]chan Change),
		logger:      logger,
	}
}

// subscribe registers a subscriber. The subscription is removed when ctx is
// cancelled.
func (b *broadcaster) subscribe(ctx context.Context) (<-chan Change, string) {
	subID := uuid.New().String()
	ch := make(chan Change, subscriberBufferSize)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, subID
	}
	b.subscribers[subID] = ch
	b.mu.Unlock()

	b.logger.Debug("subscriber added", "sub_id", subID)

	go func() {
		<-ctx.Done()
		b.unsubscribe(subID)
	}()

	return ch, subID
}

// publish sends a change to every subscriber without blocking.
func (b *broadcaster) publish(c Change) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, ch := range b.subscribers {
		select {
		case ch <- c:
		default:
			b.logger.Debug("dropped change for slow subscriber",
				"sub_id", id,
				"kind", c.Kind)
		}
	}
}

// unsubscribe removes a subscription and closes its channel.
func (b *broadcaster) unsubscribe(subID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch, ok := b.subscribers[subID]
	if !ok {
		return
	}
	delete(b.subscribers, subID)
	close(ch)

	b.logger.Debug("subscriber removed", "sub_id", subID)
}

// close closes every subscriber channel. Later subscriptions get a closed channel.
func (b *broadcaster) close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, id)
	}
	b.closed = true
}
