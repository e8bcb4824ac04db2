// ABOUTME: Interactive console loop: reads lines, dispatches slash commands, sends chat messages
// ABOUTME: Agent messages are rendered from store change notifications

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/2389/coven-console/internal/auth"
	"github.com/2389/coven-console/internal/conversation"
	"github.com/2389/coven-console/internal/dashboard"
	"github.com/2389/coven-console/internal/render"
	"github.com/2389/coven-console/internal/session"
)

// renderWait bounds how long the loop waits for a settled message to be drawn.
const renderWait = 2 * time.Second

// dashboardView pairs a panel with the poller that refreshes it, if any.
type dashboardView struct {
	panel  *dashboard.Panel
	poller *dashboard.Poller
}

func (d dashboardView) refresh(ctx context.Context) error {
	if d.poller != nil {
		return d.poller.Refresh(ctx)
	}
	return d.panel.Fetch(ctx)
}

// chatStore is the part of session.Store the console reads and drives.
type chatStore interface {
	Subscribe(ctx context.Context) (<-chan session.Change, string)
	Unsubscribe(subID string)
	State() session.State
	Messages() []session.Message
	SessionID() string
	Preferences() session.Preferences
	UpdateUserPreferences(patch session.PreferencesPatch) error
	ResetSession()
	ClearMessages()
}

// console wires the REPL to the store, controller and dashboards.
type console struct {
	in     io.Reader
	prompt io.Writer
	term   *render.Terminal

	store   chatStore
	ctrl    *conversation.Controller
	health  dashboardView
	metrics dashboardView

	authn  *auth.MockAuthenticator // nil when no users are configured
	tokens *auth.TokenHolder

	rendered chan string // ids of settled agent messages drawn by the renderer
	logger   *slog.Logger
}

// run reads input until EOF, /quit or ctx is done.
func (c *console) run(ctx context.Context) error {
	changes, subID := c.store.Subscribe(ctx)
	defer c.store.Unsubscribe(subID)
	go c.renderChanges(changes)

	scanner := bufio.NewScanner(c.in)
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err() // sent before lines is closed
	}()

	for {
		fmt.Fprint(c.prompt, "> ")

		var line string
		select {
		case <-ctx.Done():
			return nil
		case l, ok := <-lines:
			if !ok {
				select {
				case err := <-readErr:
					if err != nil {
						return fmt.Errorf("reading input: %w", err)
					}
				default:
				}
				return nil
			}
			line = l
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if quit := c.handle(ctx, line); quit {
			return nil
		}
	}
}

// handle runs one line of input and reports whether the console should exit.
func (c *console) handle(ctx context.Context, line string) bool {
	if !strings.HasPrefix(line, "/") {
		c.send(ctx, line)
		return false
	}

	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/quit", "/exit", "/q":
		return true
	case "/help":
		c.printHelp()
	case "/reset":
		c.store.ResetSession()
		c.term.Info("Started a new session %s", c.store.SessionID())
	case "/clear":
		c.store.ClearMessages()
		c.term.Info("Cleared messages")
	case "/history":
		c.term.Transcript(c.store.Messages())
	case "/session":
		p := c.store.Preferences()
		c.term.Info("session=%s user=%s theme=%s profiling=%v", c.store.SessionID(), userLabel(p.UserID), p.Theme, p.EnableProfiling)
	case "/theme":
		theme := session.Theme(arg)
		if err := c.store.UpdateUserPreferences(session.PreferencesPatch{Theme: &theme}); err != nil {
			c.term.Error("Theme must be light, dark or system")
			break
		}
		c.term.SetTheme(theme)
		c.term.Info("Theme set to %s", theme)
	case "/profiling":
		on, ok := map[string]bool{"on": true, "off": false}[arg]
		if !ok {
			c.term.Error("Usage: /profiling on|off")
			break
		}
		if err := c.store.UpdateUserPreferences(session.PreferencesPatch{EnableProfiling: &on}); err != nil {
			c.term.Error("Could not update profiling: %v", err)
			break
		}
		c.term.Info("Profiling %s", arg)
	case "/user":
		if err := c.store.UpdateUserPreferences(session.PreferencesPatch{UserID: &arg}); err != nil {
			c.term.Error("Could not update user id: %v", err)
			break
		}
		c.term.Info("User id set to %s", userLabel(arg))
	case "/health":
		c.showDashboard(ctx, c.health)
	case "/metrics":
		c.showDashboard(ctx, c.metrics)
	case "/login":
		c.login(arg)
	case "/logout":
		c.tokens.Clear()
		c.term.Info("Logged out")
	case "/export":
		c.export(arg)
	default:
		c.term.Error("Unknown command %s (try /help)", cmd)
	}
	return false
}

func (c *console) send(ctx context.Context, text string) {
	msg, err := c.ctrl.SendMessage(ctx, text)
	switch {
	case errors.Is(err, conversation.ErrExchangeInFlight):
		c.term.Error("Still waiting for the previous reply")
		return
	case err != nil:
		c.term.Error("Could not send: %v", err)
		return
	case msg == nil:
		return
	}

	// Wait until the renderer has drawn the settled reply so the next prompt
	// lands after it.
	timeout := time.NewTimer(renderWait)
	defer timeout.Stop()
	for {
		select {
		case id := <-c.rendered:
			if id == msg.ID {
				return
			}
		case <-timeout.C:
			c.logger.Debug("reply not rendered in time, drawing directly", "message_id", msg.ID)
			c.term.Message(*msg)
			return
		}
	}
}

// renderChanges draws agent messages as the store reports them.
func (c *console) renderChanges(changes <-chan session.Change) {
	for ch := range changes {
		if ch.Message == nil || ch.Message.Role != session.RoleAgent {
			continue
		}
		m := *ch.Message
		c.term.Message(m)
		if !m.IsStreaming {
			select {
			case c.rendered <- m.ID:
			default:
			}
		}
	}
}

func (c *console) showDashboard(ctx context.Context, d dashboardView) {
	if d.panel == nil {
		c.term.Error("Dashboard not available")
		return
	}
	if err := d.refresh(ctx); err != nil && !errors.Is(err, dashboard.ErrFetchInFlight) {
		c.logger.Debug("dashboard refresh failed", "panel", d.panel.Name(), "error", err)
	}
	c.term.Panel(d.panel.View())
}

func (c *console) login(arg string) {
	if c.authn == nil {
		c.term.Error("Login is not configured (add auth.users to the config)")
		return
	}
	username, password, ok := strings.Cut(arg, " ")
	if !ok || username == "" || password == "" {
		c.term.Error("Usage: /login <user> <password>")
		return
	}

	token, err := c.authn.Login(username, password)
	if err != nil {
		c.term.Error("Login failed: %v", err)
		return
	}
	c.tokens.Set(username, token)
	c.term.Info("Logged in as %s", username)
}

func (c *console) export(path string) {
	if path == "" {
		c.term.Error("Usage: /export <file.html>")
		return
	}

	f, err := os.Create(path)
	if err != nil {
		c.term.Error("Export failed: %v", err)
		return
	}
	if err := render.ExportHTML(f, c.store.State()); err != nil {
		f.Close()
		c.term.Error("Export failed: %v", err)
		return
	}
	if err := f.Close(); err != nil {
		c.term.Error("Export failed: %v", err)
		return
	}
	c.term.Info("Wrote %s", path)
}

func (c *console) printHelp() {
	c.term.Info(`Commands:
  /reset                 Start a new session
  /clear                 Remove all messages, keep the session
  /history               Show the conversation
  /session               Show session id and preferences
  /theme <light|dark|system>
  /profiling <on|off>    Ask the backend for performance stats
  /user <id>             Set the user id sent with messages
  /health                Show backend health
  /metrics               Show backend performance metrics
  /login <user> <pass>   Sign in
  /logout                Sign out
  /export <file.html>    Save the conversation as HTML
  /help                  Show this help
  /quit                  Exit`)
}

func userLabel(id string) string {
	if id == "" {
		return conversation.DefaultUserID
	}
	return id
}
