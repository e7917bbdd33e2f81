// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// chatsync is a terminal chat client. It lists the user's group and
// private conversations, opens one at a time over the realtime
// channel, and pages older history from the HTTP API as the user
// scrolls up.
//
// Two modes of operation:
//
// Interactive (default): a full-screen terminal UI. Warnings and
// errors appear in the status bar; --log-output captures every record
// to a JSON file for post-mortem debugging.
//
// Headless (--headless): no UI. Live messages from every conversation
// are printed to stdout as they arrive, one per line. Useful for
// scripting and for checking a server deployment.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/chatsync/lib/chatsync"
	"github.com/bureau-foundation/chatsync/lib/chatui"
	"github.com/bureau-foundation/chatsync/lib/config"
	"github.com/bureau-foundation/chatsync/lib/ref"
	"github.com/bureau-foundation/chatsync/lib/secret"
	"github.com/bureau-foundation/chatsync/lib/version"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// options holds the parsed command line.
type options struct {
	configPath   string
	tokenFile    string
	logOutput    string
	conversation string
	headless     bool
	noColor      bool
}

func run(args []string) error {
	var flags options

	flagSet := pflag.NewFlagSet("chatsync", pflag.ContinueOnError)
	flagSet.StringVar(&flags.configPath, "config", "", "path to chatsync.yaml (default: $"+config.EnvironmentVariable+")")
	flagSet.StringVar(&flags.tokenFile, "token-file", "", "read the API token from this file instead of the environment")
	flagSet.StringVar(&flags.logOutput, "log-output", "", "write JSON log records to this file (overrides log.output)")
	flagSet.StringVar(&flags.conversation, "conversation", "", "conversation id to open on startup")
	flagSet.BoolVar(&flags.headless, "headless", false, "print live messages to stdout instead of running the UI")
	flagSet.BoolVar(&flags.noColor, "no-color", false, "disable colors")
	flagSet.BoolP("help", "h", false, "show help")

	if len(args) > 0 && args[0] == "--version" {
		version.Print("chatsync")
		return nil
	}

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return fmt.Errorf("unexpected argument: %s", rest[0])
	}

	cfg, err := loadConfig(flags.configPath)
	if err != nil {
		return err
	}
	if flags.logOutput != "" {
		cfg.Log.Output = flags.logOutput
	}
	level, err := cfg.LogLevel()
	if err != nil {
		return err
	}

	var openID ref.ConversationID
	if flags.conversation != "" {
		openID, err = ref.ParseConversationID(flags.conversation)
		if err != nil {
			return fmt.Errorf("--conversation: %w", err)
		}
	}

	token, err := loadToken(cfg, flags.tokenFile)
	if err != nil {
		return err
	}
	defer token.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if flags.headless {
		return runHeadless(ctx, cfg, token, level, openID)
	}
	if flags.noColor {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
	return runInteractive(ctx, cfg, token, level, openID)
}

// loadConfig reads the config file named by path, or by
// $CHATSYNC_CONFIG when path is empty, and validates it.
func loadConfig(path string) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// loadToken reads the API token from tokenFile when set, otherwise
// from the environment variable named by server.api_token_env.
func loadToken(cfg *config.Config, tokenFile string) (*secret.Token, error) {
	if tokenFile != "" {
		token, err := secret.ReadToken(tokenFile)
		if err != nil {
			return nil, fmt.Errorf("reading token: %w", err)
		}
		return token, nil
	}
	value := cfg.APIToken()
	if value == "" {
		return nil, fmt.Errorf("no API token: set $%s or use --token-file", cfg.Server.APITokenEnv)
	}
	token, err := secret.NewTokenFromString(value)
	if err != nil {
		return nil, fmt.Errorf("protecting token: %w", err)
	}
	return token, nil
}

// runInteractive runs the terminal UI until the user quits or ctx is
// cancelled.
//
// Logging goes to the status bar rather than stderr, which would
// corrupt the alt screen. The status bar only shows warnings and
// errors; the optional file gets everything at the configured level.
func runInteractive(ctx context.Context, cfg *config.Config, token *secret.Token, level slog.Level, openID ref.ConversationID) error {
	statusHandler := chatui.NewLogHandler(max(level, slog.LevelWarn))
	var handler slog.Handler = statusHandler
	if cfg.Log.Output != "" {
		fileHandler, closeFile, err := openFileLogHandler(cfg.Log.Output, level)
		if err != nil {
			return fmt.Errorf("cannot open log file %s: %w", cfg.Log.Output, err)
		}
		defer closeFile()
		handler = chatui.FanoutHandler{statusHandler, fileHandler}
	}
	logger := slog.New(handler)

	scheduler := chatui.NewScheduler(logger)
	defer scheduler.Close()

	engine, err := chatsync.NewFromConfig(cfg, chatsync.Options{
		Token:     token,
		Scheduler: scheduler,
		Logger:    logger,
	})
	if err != nil {
		return err
	}
	if err := engine.Mount(ctx); err != nil {
		return err
	}
	defer engine.Unmount()

	location, err := cfg.Location()
	if err != nil {
		return err
	}
	model := chatui.NewModel(engine, scheduler, chatui.Options{
		Location: location,
		Open:     openID,
	})
	program := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)
	statusHandler.SetProgram(program)

	_, err = program.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `chatsync: terminal client for group and private chat.

Reads its configuration from --config or $%s. The API token comes
from --token-file or from the environment variable named by
server.api_token_env (default CHATSYNC_TOKEN).

Usage:
  chatsync [flags]

Examples:
  # Open the UI
  chatsync --config ~/.config/chatsync.yaml

  # Jump straight into a conversation
  chatsync --conversation grp_festival

  # Follow every conversation from a script
  chatsync --headless --log-output /tmp/chatsync.jsonl

Keys:
  1/2 switch tabs, / filter, enter open, tab move focus,
  e edit, d delete, p message the sender, q quit.

Flags:
`, config.EnvironmentVariable)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
