// ABOUTME: Tests for terminal rendering and HTML transcript export
// ABOUTME: Terminal tests run without color so output is plain text

package render

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/coven-console/internal/dashboard"
	"github.com/2389/coven-console/internal/session"
)

var ts = time.Date(2026, 4, 2, 10, 30, 0, 0, time.UTC)

func TestTerminal_Message(t *testing.T) {
	tests := []struct {
		name    string
		msg     session.Message
		want    []string
		notWant []string
	}{
		{
			name: "user",
			msg:  session.Message{ID: "1", Role: session.RoleUser, Content: "Hi\nthere", Timestamp: ts},
			want: []string{"You ", "  Hi\n  there"},
		},
		{
			name:    "streaming placeholder",
			msg:     session.Message{ID: "2", Role: session.RoleAgent, IsStreaming: true, Timestamp: ts},
			want:    []string{"Agent ", "thinking..."},
			notWant: []string{"x "},
		},
		{
			name: "failed",
			msg:  session.Message{ID: "3", Role: session.RoleAgent, Error: "The request timed out", Timestamp: ts},
			want: []string{"Agent ", "x The request timed out"},
		},
		{
			name: "completed with footer",
			msg: session.Message{
				ID: "4", Role: session.RoleAgent, Content: "42", Timestamp: ts,
				ToolsUsed: []string{"calculator", "search"}, ProcessingTime: session.Ptr(1.5),
			},
			want:    []string{"  42", "tools: calculator, search | 1.50s"},
			notWant: []string{"thinking"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			NewTerminal(&buf, session.ThemeSystem, true).Message(tt.msg)

			out := buf.String()
			assert.NotContains(t, out, "\x1b[", "noColor output must be plain")
			for _, w := range tt.want {
				assert.Contains(t, out, w)
			}
			for _, nw := range tt.notWant {
				assert.NotContains(t, out, nw)
			}
		})
	}
}

func TestTerminal_TranscriptEmpty(t *testing.T) {
	var buf bytes.Buffer
	term := NewTerminal(&buf, session.ThemeDark, true)
	term.Transcript(nil)
	assert.Contains(t, buf.String(), "(no messages yet)")

	buf.Reset()
	term.SetTheme(session.ThemeLight)
	term.Transcript([]session.Message{{ID: "1", Role: session.RoleUser, Content: "one", Timestamp: ts}})
	assert.Contains(t, buf.String(), "one")
	assert.Equal(t, 2, strings.Count(buf.String(), strings.Repeat("-", 60)))
}

func TestTerminal_Panel(t *testing.T) {
	var buf bytes.Buffer
	term := NewTerminal(&buf, session.ThemeSystem, true)

	term.Panel(dashboard.View{Name: "health"})
	assert.Contains(t, buf.String(), "[health] no data yet")

	buf.Reset()
	term.Panel(dashboard.View{Name: "health", Err: errors.New("refused")})
	assert.Contains(t, buf.String(), "unavailable: refused")

	buf.Reset()
	term.Panel(dashboard.View{
		Name:      "metrics",
		Payload:   json.RawMessage(`{"p95":80}`),
		UpdatedAt: ts,
		Err:       errors.New("timeout"),
	})
	out := buf.String()
	assert.Contains(t, out, "[metrics] updated")
	assert.Contains(t, out, "showing previous data: timeout")
	assert.Contains(t, out, `"p95": 80`)
}

func TestExportHTML(t *testing.T) {
	state := session.State{
		SessionID:   "s-1",
		Preferences: session.Preferences{Theme: session.ThemeDark},
		Messages: []session.Message{
			{ID: "u1", Role: session.RoleUser, Content: "<script>alert(1)</script> **not bold**", Timestamp: ts},
			{ID: "a1", Role: session.RoleAgent, Content: "Here is **bold** and `code`", Timestamp: ts,
				ToolsUsed: []string{"search"}},
			{ID: "a2", Role: session.RoleAgent, Error: "Could not reach the server: refused", Timestamp: ts},
			{ID: "a3", Role: session.RoleAgent, Content: "<b>raw</b>", Timestamp: ts},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, exportHTML(&buf, state, ts))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "<!DOCTYPE html>"))
	assert.Contains(t, out, `data-theme="dark"`)
	assert.Contains(t, out, "Session s-1")

	// user text is escaped, never interpreted
	assert.Contains(t, out, "&lt;script&gt;alert(1)&lt;/script&gt; **not bold**")
	assert.NotContains(t, out, "<script>")

	// agent markdown becomes HTML
	assert.Contains(t, out, "<strong>bold</strong>")
	assert.Contains(t, out, "<code>code</code>")
	assert.Contains(t, out, "tools: search")

	// raw HTML from the agent is dropped
	assert.NotContains(t, out, "<b>raw</b>")

	// failed message carries a badge
	assert.Contains(t, out, `<span class="error-badge">error</span> Could not reach the server: refused`)
	assert.Contains(t, out, `id="msg-a2"`)
}

func TestExportHTML_StreamingMessage(t *testing.T) {
	state := session.State{
		SessionID: "s-2",
		Messages:  []session.Message{{ID: "p", Role: session.RoleAgent, IsStreaming: true, Timestamp: ts}},
	}

	var buf bytes.Buffer
	require.NoError(t, exportHTML(&buf, state, ts))
	assert.Contains(t, buf.String(), "Response did not complete.")
}
