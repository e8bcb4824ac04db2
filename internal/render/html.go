// ABOUTME: Standalone HTML export of a conversation transcript
// ABOUTME: Agent replies are converted from markdown with goldmark; user text is escaped verbatim

package render

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/2389/coven-console/internal/session"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

var transcriptTemplate = template.Must(template.New("transcript").Parse(`<!DOCTYPE html>
<html lang="en" data-theme="{{.Theme}}">
<head>
<meta charset="utf-8">
<title>Conversation {{.SessionID}}</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 48rem; margin: 2rem auto; padding: 0 1rem; }
[data-theme="dark"] body { background: #111; color: #eee; }
.message { margin: 1rem 0; padding: 0.75rem 1rem; border-radius: 0.5rem; }
.user { background: rgba(59, 130, 246, 0.12); }
.agent { background: rgba(34, 197, 94, 0.10); }
.meta { font-size: 0.8rem; opacity: 0.7; }
.user-text { white-space: pre-wrap; }
.error-badge { display: inline-block; color: #fff; background: #dc2626; border-radius: 0.25rem; padding: 0.1rem 0.4rem; font-size: 0.8rem; }
</style>
</head>
<body>
<header>
<h1>Conversation</h1>
<p class="meta">Session {{.SessionID}} &middot; exported {{.Exported}}</p>
</header>
<main>
{{- range .Messages}}
<section class="message {{.Role}}" id="msg-{{.ID}}">
<div class="meta">{{if eq .Role "user"}}You{{else}}Agent{{end}} &middot; <time datetime="{{.ISOTime}}">{{.Time}}</time></div>
{{- if .Streaming}}
<p class="meta">Response did not complete.</p>
{{- else if eq .Role "user"}}
<div class="user-text">{{.Text}}</div>
{{- else}}
<div class="content">{{.HTML}}</div>
{{- end}}
{{- if .Error}}
<p><span class="error-badge">error</span> {{.Error}}</p>
{{- end}}
{{- if .Footer}}
<p class="meta">{{.Footer}}</p>
{{- end}}
</section>
{{- end}}
</main>
</body>
</html>
`))

type transcriptMessage struct {
	ID        string
	Role      session.Role
	Time      string
	ISOTime   string
	Text      string
	HTML      template.HTML
	Streaming bool
	Error     string
	Footer    string
}

type transcriptPage struct {
	SessionID string
	Theme     session.Theme
	Exported  string
	Messages  []transcriptMessage
}

// ExportHTML writes state as a standalone HTML page.
func ExportHTML(w io.Writer, state session.State) error {
	return exportHTML(w, state, time.Now())
}

func exportHTML(w io.Writer, state session.State, now time.Time) error {
	page := transcriptPage{
		SessionID: state.SessionID,
		Theme:     state.Preferences.Theme,
		Exported:  now.UTC().Format(time.RFC1123),
	}

	for _, m := range state.Messages {
		tm := transcriptMessage{
			ID:        m.ID,
			Role:      m.Role,
			Time:      m.Timestamp.UTC().Format(time.DateTime),
			ISOTime:   m.Timestamp.UTC().Format(time.RFC3339),
			Streaming: m.IsStreaming,
			Error:     m.Error,
		}
		if m.Status() == session.StatusCompleted {
			tm.Footer = footer(m)
		}

		if m.Role == session.RoleUser {
			tm.Text = m.Content
		} else if m.Content != "" {
			var buf bytes.Buffer
			if err := markdown.Convert([]byte(m.Content), &buf); err != nil {
				return fmt.Errorf("converting message %s: %w", m.ID, err)
			}
			// goldmark omits raw HTML unless WithUnsafe is set
			tm.HTML = template.HTML(buf.String())
		}
		page.Messages = append(page.Messages, tm)
	}

	if err := transcriptTemplate.Execute(w, page); err != nil {
		return fmt.Errorf("rendering transcript: %w", err)
	}
	return nil
}
