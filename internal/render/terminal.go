// ABOUTME: Terminal renderer for messages, transcripts and dashboard panels using fatih/color
// ABOUTME: Streaming placeholders show a thinking line and failed messages an inline error

package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"

	"github.com/2389/coven-console/internal/dashboard"
	"github.com/2389/coven-console/internal/session"
)

// palette is the set of colors for one theme.
type palette struct {
	user   *color.Color
	agent  *color.Color
	dim    *color.Color
	errorC *color.Color
	accent *color.Color
}

func newPalette(theme session.Theme, noColor bool) palette {
	var p palette
	switch theme {
	case session.ThemeDark:
		p = palette{
			user:   color.New(color.FgHiCyan, color.Bold),
			agent:  color.New(color.FgHiGreen, color.Bold),
			dim:    color.New(color.FgHiBlack),
			errorC: color.New(color.FgHiRed, color.Bold),
			accent: color.New(color.FgHiYellow),
		}
	case session.ThemeLight:
		p = palette{
			user:   color.New(color.FgBlue, color.Bold),
			agent:  color.New(color.FgGreen, color.Bold),
			dim:    color.New(color.FgBlack, color.Faint),
			errorC: color.New(color.FgRed, color.Bold),
			accent: color.New(color.FgMagenta),
		}
	default:
		p = palette{
			user:   color.New(color.FgCyan, color.Bold),
			agent:  color.New(color.FgGreen, color.Bold),
			dim:    color.New(color.Faint),
			errorC: color.New(color.FgRed, color.Bold),
			accent: color.New(color.FgYellow),
		}
	}
	if noColor {
		for _, c := range []*color.Color{p.user, p.agent, p.dim, p.errorC, p.accent} {
			c.DisableColor()
		}
	}
	return p
}

// Terminal renders to a text stream. Safe for concurrent use.
type Terminal struct {
	mu      sync.Mutex
	out     io.Writer
	noColor bool
	pal     palette
}

// NewTerminal creates a Terminal writing to out. noColor strips all escapes.
func NewTerminal(out io.Writer, theme session.Theme, noColor bool) *Terminal {
	return &Terminal{
		out:     out,
		noColor: noColor,
		pal:     newPalette(theme, noColor),
	}
}

// SetTheme switches the palette.
func (t *Terminal) SetTheme(theme session.Theme) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pal = newPalette(theme, t.noColor)
}

// Message writes one message.
func (t *Terminal) Message(m session.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.writeMessage(m)
}

// Transcript writes every message with a separator before and after.
func (t *Terminal) Transcript(msgs []session.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rule := t.pal.dim.Sprint(strings.Repeat("-", 60))
	fmt.Fprintln(t.out, rule)
	if len(msgs) == 0 {
		fmt.Fprintln(t.out, t.pal.dim.Sprint("(no messages yet)"))
	}
	for _, m := range msgs {
		t.writeMessage(m)
	}
	fmt.Fprintln(t.out, rule)
}

// Panel writes a dashboard view with its payload pretty-printed.
func (t *Terminal) Panel(v dashboard.View) {
	t.mu.Lock()
	defer t.mu.Unlock()

	header := t.pal.accent.Sprintf("[%s]", v.Name)
	switch {
	case v.UpdatedAt.IsZero() && v.Err == nil:
		fmt.Fprintf(t.out, "%s %s\n", header, t.pal.dim.Sprint("no data yet"))
		return
	case v.UpdatedAt.IsZero():
		fmt.Fprintf(t.out, "%s %s\n", header, t.pal.errorC.Sprintf("unavailable: %v", v.Err))
		return
	}

	fmt.Fprintf(t.out, "%s %s\n", header, t.pal.dim.Sprintf("updated %s", v.UpdatedAt.Local().Format(time.TimeOnly)))
	if v.Err != nil {
		fmt.Fprintf(t.out, "  %s\n", t.pal.errorC.Sprintf("refresh failed, showing previous data: %v", v.Err))
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, v.Payload, "  ", "  "); err != nil {
		pretty.Reset()
		pretty.Write(v.Payload)
	}
	fmt.Fprintf(t.out, "  %s\n", pretty.String())
}

// Info writes a dim status line.
func (t *Terminal) Info(format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(t.out, t.pal.dim.Sprintf(format, args...))
}

// Error writes a highlighted error line.
func (t *Terminal) Error(format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(t.out, t.pal.errorC.Sprintf(format, args...))
}

func (t *Terminal) writeMessage(m session.Message) {
	label := t.pal.user.Sprint("You")
	if m.Role == session.RoleAgent {
		label = t.pal.agent.Sprint("Agent")
	}
	stamp := t.pal.dim.Sprint(m.Timestamp.Local().Format(time.TimeOnly))
	fmt.Fprintf(t.out, "%s %s\n", label, stamp)

	switch m.Status() {
	case session.StatusStreaming:
		fmt.Fprintf(t.out, "  %s\n", t.pal.dim.Sprint("thinking..."))
	case session.StatusFailed:
		if m.Content != "" {
			fmt.Fprintf(t.out, "%s\n", indent(m.Content))
		}
		fmt.Fprintf(t.out, "  %s\n", t.pal.errorC.Sprint("x "+m.Error))
	default:
		fmt.Fprintf(t.out, "%s\n", indent(m.Content))
		if footer := footer(m); footer != "" {
			fmt.Fprintf(t.out, "  %s\n", t.pal.dim.Sprint(footer))
		}
	}
}

// footer summarizes tools and timing for a completed agent message.
func footer(m session.Message) string {
	var parts []string
	if len(m.ToolsUsed) > 0 {
		parts = append(parts, "tools: "+strings.Join(m.ToolsUsed, ", "))
	}
	if m.ProcessingTime != nil {
		parts = append(parts, fmt.Sprintf("%.2fs", *m.ProcessingTime))
	}
	return strings.Join(parts, " | ")
}

func indent(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = "  " + l
	}
	return strings.Join(lines, "\n")
}
