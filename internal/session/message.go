// ABOUTME: Message, preference and state types held by the conversation store
// ABOUTME: Messages serialize with epoch-millisecond timestamps for the persisted snapshot

package session

import (
	"encoding/json"
	"fmt"
	"maps"
	"time"
)

// Role identifies who authored a message
type Role string

// Role constants
const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAgent
}

// Message is one entry in the conversation.
//
// A message is in exactly one of three states: streaming (IsStreaming, no Error),
// completed (not streaming, no Error) or failed (not streaming, Error set).
// Completed and failed are terminal.
type Message struct {
	ID          string
	Role        Role
	Content     string
	Timestamp   time.Time
	IsStreaming bool

	// Set only on successful completion
	ToolsUsed        []string
	ProcessingTime   *float64
	PerformanceStats map[string]any

	// Set only on failure
	Error string
}

// Status names the lifecycle state of a message
type Status string

// Status constants
const (
	StatusStreaming Status = "streaming"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Status derives the message's lifecycle state from its fields.
func (m Message) Status() Status {
	switch {
	case m.IsStreaming:
		return StatusStreaming
	case m.Error != "":
		return StatusFailed
	default:
		return StatusCompleted
	}
}

// clone returns a copy that shares no mutable memory with m.
// PerformanceStats is copied one level deep.
func (m Message) clone() Message {
	out := m
	if m.ToolsUsed != nil {
		out.ToolsUsed = append([]string(nil), m.ToolsUsed...)
	}
	if m.ProcessingTime != nil {
		pt := *m.ProcessingTime
		out.ProcessingTime = &pt
	}
	if m.PerformanceStats != nil {
		out.PerformanceStats = maps.Clone(m.PerformanceStats)
	}
	return out
}

// messageJSON is the persisted shape of a Message.
type messageJSON struct {
	ID               string         `json:"id"`
	Role             Role           `json:"role"`
	Content          string         `json:"content"`
	Timestamp        int64          `json:"timestamp"`
	IsStreaming      bool           `json:"isStreaming,omitempty"`
	ToolsUsed        []string       `json:"toolsUsed,omitempty"`
	ProcessingTime   *float64       `json:"processingTime,omitempty"`
	PerformanceStats map[string]any `json:"performanceStats,omitempty"`
	Error            string         `json:"error,omitempty"`
}

// MarshalJSON encodes the message with an epoch-millisecond timestamp.
func (m Message) MarshalJSON() ([]byte, error) {
	return json.Marshal(messageJSON{
		ID:               m.ID,
		Role:             m.Role,
		Content:          m.Content,
		Timestamp:        m.Timestamp.UnixMilli(),
		IsStreaming:      m.IsStreaming,
		ToolsUsed:        m.ToolsUsed,
		ProcessingTime:   m.ProcessingTime,
		PerformanceStats: m.PerformanceStats,
		Error:            m.Error,
	})
}

// UnmarshalJSON decodes a persisted message.
func (m *Message) UnmarshalJSON(data []byte) error {
	var raw messageJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.ID == "" {
		return fmt.Errorf("message missing id")
	}
	if !raw.Role.Valid() {
		return fmt.Errorf("message %s: invalid role %q", raw.ID, raw.Role)
	}
	*m = Message{
		ID:               raw.ID,
		Role:             raw.Role,
		Content:          raw.Content,
		Timestamp:        time.UnixMilli(raw.Timestamp).UTC(),
		IsStreaming:      raw.IsStreaming,
		ToolsUsed:        raw.ToolsUsed,
		ProcessingTime:   raw.ProcessingTime,
		PerformanceStats: raw.PerformanceStats,
		Error:            raw.Error,
	}
	return nil
}

// MessagePatch lists the fields UpdateMessage may change. Nil fields are left
// untouched.
type MessagePatch struct {
	Content          *string
	IsStreaming      *bool
	ToolsUsed        []string
	ProcessingTime   *float64
	PerformanceStats map[string]any
	Error            *string
}

// Ptr returns a pointer to v. Handy for building patches.
func Ptr[T any](v T) *T {
	return &v
}

// Theme is the UI color preference
type Theme string

// Theme constants
const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

// Valid reports whether t is a known theme.
func (t Theme) Valid() bool {
	switch t {
	case ThemeLight, ThemeDark, ThemeSystem:
		return true
	}
	return false
}

// Preferences are the user's persisted settings.
type Preferences struct {
	Theme           Theme  `json:"theme"`
	EnableProfiling bool   `json:"enableProfiling"`
	UserID          string `json:"userId"`
}

// DefaultPreferences returns the preferences used when nothing was restored.
func DefaultPreferences() Preferences {
	return Preferences{Theme: ThemeSystem}
}

// PreferencesPatch is a shallow update to Preferences. Nil fields are kept.
type PreferencesPatch struct {
	Theme           *Theme
	EnableProfiling *bool
	UserID          *string
}

// State is a point-in-time copy of everything the store holds.
type State struct {
	SessionID          string
	Messages           []Message
	Preferences        Preferences
	IsLoading          bool
	StreamingMessageID string
}
