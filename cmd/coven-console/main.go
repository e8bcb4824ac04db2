// ABOUTME: Entry point for coven-console, a terminal chat client for the agent backend
// ABOUTME: Loads config, restores the conversation and runs the interactive loop

package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"

	"github.com/2389/coven-console/internal/auth"
	"github.com/2389/coven-console/internal/backend"
	"github.com/2389/coven-console/internal/config"
	"github.com/2389/coven-console/internal/conversation"
	"github.com/2389/coven-console/internal/dashboard"
	"github.com/2389/coven-console/internal/render"
	"github.com/2389/coven-console/internal/session"
	"github.com/2389/coven-console/internal/store"
)

// Version is set at build time.
var version = "dev"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("coven-console", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "Path to config file (YAML or TOML)")
	backendURL := fs.String("backend", "", "Backend base URL (overrides config)")
	noColor := fs.Bool("no-color", false, "Disable colored output")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: coven-console [flags] [command]")
		fmt.Fprintln(stderr)
		fmt.Fprintln(stderr, "Commands:")
		fmt.Fprintln(stderr, "  chat            Interactive conversation (default)")
		fmt.Fprintln(stderr, "  health          Print backend health once")
		fmt.Fprintln(stderr, "  hash-password   Read a password from stdin and print its bcrypt hash")
		fmt.Fprintln(stderr, "  version         Print the version")
		fmt.Fprintln(stderr)
		fmt.Fprintln(stderr, "Flags:")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	command := "chat"
	if fs.NArg() > 0 {
		command = fs.Arg(0)
	}

	switch command {
	case "version":
		fmt.Fprintf(stdout, "coven-console %s\n", version)
		return nil
	case "hash-password":
		return runHashPassword(stdin, stdout)
	case "chat", "health":
	default:
		fs.Usage()
		return fmt.Errorf("unknown command: %s", command)
	}

	cfg, path, err := config.LoadResolved(*configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if *backendURL != "" {
		cfg.Backend.URL = *backendURL
	}

	logger := setupLogger(cfg.Logging, stderr)
	slog.SetDefault(logger)
	logger.Debug("config loaded", "path", path, "backend", cfg.Backend.URL)

	tokens := &auth.TokenHolder{}
	client, err := backend.New(cfg.Backend.URL,
		backend.WithTimeout(cfg.Backend.RequestTimeout),
		backend.WithTokenSource(tokens),
		backend.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("creating backend client: %w", err)
	}

	if command == "health" {
		return runHealth(ctx, client, stdout, *noColor)
	}
	return runChat(ctx, cfg, client, tokens, logger, stdin, stdout, *noColor)
}

func runChat(ctx context.Context, cfg *config.Config, client *backend.Client, tokens *auth.TokenHolder,
	logger *slog.Logger, stdin io.Reader, stdout io.Writer, noColor bool) error {
	kv, err := store.Open(cfg.Storage.Driver, cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer kv.Close()

	st := session.New(ctx, session.NewKVStorage(kv, cfg.Storage.Key),
		session.WithLogger(logger),
		session.WithDefaultPreferences(session.Preferences{
			Theme:           session.Theme(cfg.Preferences.Theme),
			UserID:          cfg.Preferences.UserID,
			EnableProfiling: cfg.Preferences.EnableProfiling,
		}),
	)
	defer st.Close()

	term := render.NewTerminal(stdout, st.Preferences().Theme, noColor || color.NoColor)

	c := &console{
		in:       stdin,
		prompt:   stdout,
		term:     term,
		store:    st,
		ctrl:     conversation.New(st, client, logger),
		health:   dashboardView{panel: dashboard.NewHealthPanel(client)},
		metrics:  dashboardView{panel: dashboard.NewMetricsPanel(client)},
		tokens:   tokens,
		rendered: make(chan string, 16),
		logger:   logger.With("component", "console"),
	}
	if len(cfg.Auth.Users) > 0 {
		authn := auth.NewMockAuthenticator(cfg.Auth.Users, auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret)), logger)
		authn.SetTokenTTL(cfg.Auth.TokenTTL)
		c.authn = authn
	}

	pollCtx, stopPolling := context.WithCancel(ctx)
	defer stopPolling()
	if cfg.Dashboards.Enabled {
		c.health.poller = dashboard.NewPoller("health", cfg.Dashboards.HealthInterval, c.health.panel.Fetch, logger)
		c.metrics.poller = dashboard.NewPoller("metrics", cfg.Dashboards.MetricsInterval, c.metrics.panel.Fetch, logger)
		for _, p := range []*dashboard.Poller{c.health.poller, c.metrics.poller} {
			go func() {
				if err := p.Run(pollCtx); err != nil {
					logger.Warn("poller exited", "error", err)
				}
			}()
		}
	}

	fmt.Fprintf(stdout, "coven-console connected to %s\n", client.BaseURL())
	if n := len(st.Messages()); n > 0 {
		term.Info("Restored %d messages from session %s (/history to show)", n, st.SessionID())
	}
	fmt.Fprintln(stdout, "Type a message and press Enter. /help for commands. Ctrl+C to quit.")
	fmt.Fprintln(stdout)

	if err := c.run(ctx); err != nil {
		return err
	}
	fmt.Fprintln(stdout, "\nGoodbye!")
	return nil
}

func runHealth(ctx context.Context, client *backend.Client, stdout io.Writer, noColor bool) error {
	panel := dashboard.NewHealthPanel(client)
	if err := panel.Fetch(ctx); err != nil {
		return fmt.Errorf("checking health: %w", err)
	}
	render.NewTerminal(stdout, session.ThemeSystem, noColor || color.NoColor).Panel(panel.View())
	return nil
}

func runHashPassword(stdin io.Reader, stdout io.Writer) error {
	line, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("reading password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return fmt.Errorf("password is empty")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, hash)
	return nil
}
