// ABOUTME: Store is the injectable conversation state container with atomic operations
// ABOUTME: Every durable mutation is followed by an explicit save of the snapshot

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store errors
var (
	ErrDuplicateMessageID  = errors.New("message id already exists")
	ErrStreamingInProgress = errors.New("another message is already streaming")
	ErrInvalidRole         = errors.New("invalid message role")
	ErrInvalidTheme        = errors.New("invalid theme")
	ErrNotStreaming        = errors.New("message is not streaming")
)

// interruptedError is recorded on messages restored in the streaming state.
// No exchange survives a restart, so they can never complete.
const interruptedError = "The response was interrupted before it completed"

const defaultSaveTimeout = 5 * time.Second

// Store holds the conversation: ordered messages, the session id, user
// preferences and the transient loading/streaming flags.
//
// All methods are safe for concurrent use and each one completes, including its
// save, before returning.
type Store struct {
	mu       sync.Mutex
	messages []Message
	index    map[string]int // message id -> position in messages

	sessionID          string
	prefs              Preferences
	isLoading          bool
	streamingMessageID string

	storage     Storage
	saveTimeout time.Duration
	now         func() time.Time
	newID       func() string
	lastTS      time.Time

	events *broadcaster
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. Nil keeps slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides time.Now for message timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides the generator for message and session ids.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

// WithDefaultPreferences sets the preferences used when none are restored.
func WithDefaultPreferences(p Preferences) Option {
	return func(s *Store) {
		if !p.Theme.Valid() {
			p.Theme = ThemeSystem
		}
		s.prefs = p
	}
}

// WithSaveTimeout bounds each Storage.Save call.
func WithSaveTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.saveTimeout = d
		}
	}
}

// New creates a Store and restores the last snapshot from storage.
// A nil storage keeps everything in memory. Restore failures are logged and the
// store starts from defaults.
func New(ctx context.Context, storage Storage, opts ...Option) *Store {
	s := &Store{
		index:       make(map[string]int),
		prefs:       DefaultPreferences(),
		storage:     storage,
		saveTimeout: defaultSaveTimeout,
		now:         time.Now,
		newID:       uuid.NewString,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "session")
	s.events = newBroadcaster(s.logger)

	s.restore(ctx)
	if s.sessionID == "" {
		s.sessionID = s.newID()
	}
	return s
}

// restore seeds messages, session id and preferences from storage.
func (s *Store) restore(ctx context.Context) {
	if s.storage == nil {
		return
	}

	snap, err := s.storage.Load(ctx)
	if errors.Is(err, ErrNoSnapshot) {
		s.logger.Debug("no saved conversation, starting fresh")
		return
	}
	if err != nil {
		s.logger.Warn("failed to restore conversation, starting fresh", "error", err)
		return
	}

	for _, m := range snap.Messages {
		if _, dup := s.index[m.ID]; dup {
			s.logger.Warn("dropping restored message with duplicate id", "message_id", m.ID)
			continue
		}
		if m.IsStreaming {
			m.IsStreaming = false
			m.Error = interruptedError
		}
		s.index[m.ID] = len(s.messages)
		s.messages = append(s.messages, m.clone())
		if m.Timestamp.After(s.lastTS) {
			s.lastTS = m.Timestamp
		}
	}

	s.sessionID = snap.SessionID

	prefs := snap.UserPreferences
	if !prefs.Theme.Valid() {
		prefs.Theme = s.prefs.Theme
	}
	s.prefs = prefs

	s.logger.Debug("conversation restored",
		"session_id", s.sessionID,
		"message_count", len(s.messages))
}

// AddMessage appends a new message built from partial. partial.ID is used when
// set, otherwise a fresh id is generated. The timestamp is always assigned by
// the store and never goes backwards.
func (s *Store) AddMessage(partial Message) (Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !partial.Role.Valid() {
		return Message{}, fmt.Errorf("%w: %q", ErrInvalidRole, partial.Role)
	}

	m := partial.clone()
	if m.ID == "" {
		m.ID = s.newID()
	}
	if _, exists := s.index[m.ID]; exists {
		return Message{}, fmt.Errorf("%w: %s", ErrDuplicateMessageID, m.ID)
	}
	if m.Error != "" {
		m.IsStreaming = false
	}
	if m.IsStreaming && s.streamingLocked() != "" {
		return Message{}, ErrStreamingInProgress
	}

	m.Timestamp = s.timestampLocked()

	s.index[m.ID] = len(s.messages)
	s.messages = append(s.messages, m)

	s.saveLocked()
	s.publishMessageLocked(ChangeMessageAdded, m)

	return m.clone(), nil
}

// UpdateMessage merges patch into the message with the given id. It reports
// whether anything was applied: unknown ids and messages already completed or
// failed are left untouched.
//
// Setting Error settles the message as failed and ignores the success fields
// (Content included) in the same patch.
func (s *Store) UpdateMessage(id string, patch MessagePatch) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos, ok := s.index[id]
	if !ok {
		s.logger.Debug("update for unknown message ignored", "message_id", id)
		return false
	}
	m := &s.messages[pos]
	if !m.IsStreaming {
		s.logger.Debug("update for settled message ignored",
			"message_id", id,
			"status", m.Status())
		return false
	}

	if patch.IsStreaming != nil {
		m.IsStreaming = *patch.IsStreaming
	}

	if patch.Error != nil && *patch.Error != "" {
		m.Error = *patch.Error
		m.IsStreaming = false
	} else {
		if patch.Content != nil {
			m.Content = *patch.Content
		}
		if len(patch.ToolsUsed) > 0 {
			m.ToolsUsed = append([]string(nil), patch.ToolsUsed...)
		}
		if patch.ProcessingTime != nil {
			pt := *patch.ProcessingTime
			m.ProcessingTime = &pt
		}
		if len(patch.PerformanceStats) > 0 {
			m.PerformanceStats = maps.Clone(patch.PerformanceStats)
		}
	}

	// The streaming id only ever points at a streaming message.
	if !m.IsStreaming && s.streamingMessageID == id {
		s.streamingMessageID = ""
	}

	s.saveLocked()
	s.publishMessageLocked(ChangeMessageUpdated, *m)
	return true
}

// SetStreamingMessageID records which message awaits completion. An empty id
// clears it. A non-empty id must name a streaming message.
func (s *Store) SetStreamingMessageID(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id != "" {
		pos, ok := s.index[id]
		if !ok || !s.messages[pos].IsStreaming {
			return fmt.Errorf("%w: %s", ErrNotStreaming, id)
		}
	}
	if s.streamingMessageID == id {
		return nil
	}
	s.streamingMessageID = id
	s.events.publish(Change{Kind: ChangeStreaming, MessageID: id})
	return nil
}

// SetLoading sets the in-flight flag. Not persisted.
func (s *Store) SetLoading(loading bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isLoading == loading {
		return
	}
	s.isLoading = loading
	s.events.publish(Change{Kind: ChangeLoading})
}

// SetSessionID replaces the session id and saves it right away.
func (s *Store) SetSessionID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sessionID == id {
		return
	}
	s.logger.Debug("session id changed", "from", s.sessionID, "to", id)
	s.sessionID = id

	s.saveLocked()
	s.events.publish(Change{Kind: ChangeSessionID})
}

// UpdateUserPreferences shallow-merges patch into the preferences.
func (s *Store) UpdateUserPreferences(patch PreferencesPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if patch.Theme != nil && !patch.Theme.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidTheme, *patch.Theme)
	}

	if patch.Theme != nil {
		s.prefs.Theme = *patch.Theme
	}
	if patch.EnableProfiling != nil {
		s.prefs.EnableProfiling = *patch.EnableProfiling
	}
	if patch.UserID != nil {
		s.prefs.UserID = *patch.UserID
	}

	s.saveLocked()
	s.events.publish(Change{Kind: ChangePreferences})
	return nil
}

// ResetSession starts a new conversation: no messages, a new session id and
// idle transient flags. Preferences are kept.
func (s *Store) ResetSession() {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.sessionID
	next := s.newID()
	if next == prev {
		next = uuid.NewString()
	}

	s.messages = nil
	s.index = make(map[string]int)
	s.sessionID = next
	s.isLoading = false
	s.streamingMessageID = ""

	s.logger.Info("session reset", "previous_session_id", prev, "session_id", next)

	s.saveLocked()
	s.events.publish(Change{Kind: ChangeSessionReset})
}

// ClearMessages removes every message but keeps the session id. A streaming id
// pointing at a removed message is cleared with it.
func (s *Store) ClearMessages() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = nil
	s.index = make(map[string]int)
	s.streamingMessageID = ""

	s.saveLocked()
	s.events.publish(Change{Kind: ChangeMessagesCleared})
}

// State returns a deep copy of the whole state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return State{
		SessionID:          s.sessionID,
		Messages:           s.messagesLocked(),
		Preferences:        s.prefs,
		IsLoading:          s.isLoading,
		StreamingMessageID: s.streamingMessageID,
	}
}

// Messages returns a copy of the messages in display order.
func (s *Store) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.messagesLocked()
}

// Message returns a copy of the message with the given id.
func (s *Store) Message(id string) (Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos, ok := s.index[id]
	if !ok {
		return Message{}, false
	}
	return s.messages[pos].clone(), true
}

// SessionID returns the current session id.
func (s *Store) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

// Preferences returns the current preferences.
func (s *Store) Preferences() Preferences {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prefs
}

// IsLoading reports whether an exchange is in flight.
func (s *Store) IsLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isLoading
}

// StreamingMessageID returns the id of the message awaiting completion, or "".
func (s *Store) StreamingMessageID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streamingMessageID
}

// Snapshot returns the durable subset of the state. A snapshot taken while a
// message is streaming does not restore to an equal state: New settles that
// message as failed, since no exchange survives a restart.
func (s *Store) Snapshot() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe returns a channel of change notifications and its subscription id.
// The channel is closed when ctx is cancelled, on Unsubscribe, or on Close.
func (s *Store) Subscribe(ctx context.Context) (<-chan Change, string) {
	return s.events.subscribe(ctx)
}

// Unsubscribe removes a subscription.
func (s *Store) Unsubscribe(subID string) {
	s.events.unsubscribe(subID)
}

// Close closes every subscription channel. The store stays usable.
func (s *Store) Close() {
	s.events.close()
}

func (s *Store) publishMessageLocked(kind ChangeKind, m Message) {
	cp := m.clone()
	s.events.publish(Change{Kind: kind, MessageID: m.ID, Message: &cp})
}

func (s *Store) messagesLocked() []Message {
	out := make([]Message, len(s.messages))
	for i, m := range s.messages {
		out[i] = m.clone()
	}
	return out
}

func (s *Store) snapshotLocked() *Snapshot {
	return &Snapshot{
		Messages:        s.messagesLocked(),
		SessionID:       s.sessionID,
		UserPreferences: s.prefs,
	}
}

// streamingLocked returns the id of a streaming message, or "".
func (s *Store) streamingLocked() string {
	if s.streamingMessageID != "" {
		return s.streamingMessageID
	}
	for _, m := range s.messages {
		if m.IsStreaming {
			return m.ID
		}
	}
	return ""
}

// StreamingInProgress reports whether any message is still streaming, tracked
// or not.
func (s *Store) StreamingInProgress() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streamingLocked() != ""
}

// timestampLocked returns the clock truncated to milliseconds, clamped so it is
// never earlier than the previous message.
func (s *Store) timestampLocked() time.Time {
	ts := s.now().UTC().Truncate(time.Millisecond)
	if ts.Before(s.lastTS) {
		ts = s.lastTS
	}
	s.lastTS = ts
	return ts
}

// saveLocked writes the snapshot. Failures are logged and swallowed; the
// in-memory state stays authoritative.
func (s *Store) saveLocked() {
	if s.storage == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.saveTimeout)
	defer cancel()

	if err := s.storage.Save(ctx, s.snapshotLocked()); err != nil {
		s.logger.Warn("failed to save conversation",
			"error", err,
			"session_id", s.sessionID)
	}
}
