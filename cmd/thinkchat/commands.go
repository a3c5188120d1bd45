package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"ThinkChat/internal/avatar"
	"ThinkChat/internal/chatbot"
	"ThinkChat/internal/config"
	"ThinkChat/internal/session"
	"ThinkChat/internal/telemetry"
	"ThinkChat/internal/transcript"
	"ThinkChat/internal/web"
)

func newRootCommand() *cli.Command {
	return &cli.Command{
		Name:  "thinkchat",
		Usage: "Scripted chat demo for behavioural studies",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the experiment file",
				Value:   config.DefaultPath,
			},
			&cli.BoolFlag{
				Name:  "dev",
				Usage: "Enable the operator controls",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
			&cli.StringFlag{
				Name:  "log-dir",
				Usage: "Directory for logs, traces and metrics",
			},
			&cli.StringFlag{
				Name:  "transcript-db",
				Usage: "SQLite archive of completed sessions (empty disables it)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "chat",
				Usage: "Run the chat in this terminal",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "session-id",
						Usage: "Session identifier recorded in the archive",
					},
				},
				Action: runChat,
			},
			{
				Name:  "serve",
				Usage: "Serve the chat page over HTTP",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "listen",
						Usage: "Address to listen on",
					},
				},
				Action: runServe,
			},
			{
				Name:   "export",
				Usage:  "Write archived sessions to stdout as JSON lines",
				Action: runExport,
			},
		},
	}
}

// loadConfig reads the experiment file and applies CLI overrides
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, err
	}
	if cmd.IsSet("dev") {
		cfg.DevMode = cmd.Bool("dev")
	}
	if cmd.IsSet("debug") {
		cfg.Debug = cmd.Bool("debug")
	}
	if cmd.IsSet("log-dir") {
		cfg.LogDir = cmd.String("log-dir")
	}
	if cmd.IsSet("transcript-db") {
		cfg.TranscriptDB = cmd.String("transcript-db")
	}
	if cmd.IsSet("listen") {
		cfg.Listen = cmd.String("listen")
	}
	return cfg, nil
}

// app is everything a front end needs, with one cleanup for all of it
type app struct {
	cfg     *config.Config
	bot     *chatbot.ChatBot
	logger  *slog.Logger
	closers []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func newApp(ctx context.Context, cmd *cli.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, closeLog, err := telemetry.InitLogger(cfg.LogDir, cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	a := &app{cfg: cfg, logger: logger, closers: []func(){closeLog}}

	tracer, meter, cleanup, err := telemetry.InitTelemetry(ctx, cfg.LogDir)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	opts := chatbot.Options{Logger: logger, Tracer: tracer, Meter: meter}
	if cfg.TranscriptDB != "" {
		store, err := transcript.Open(cfg.TranscriptDB)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to open transcript archive: %w", err)
		}
		a.closers = append(a.closers, func() {
			if err := store.Close(); err != nil {
				logger.Error("failed to close transcript archive", "error", err)
			}
		})
		opts.Archive = store
	}

	bot, err := chatbot.New(cfg, opts)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize chatbot: %w", err)
	}
	a.bot = bot

	logger.Info("thinkchat started",
		"dev", cfg.DevMode,
		"thinking_enabled", cfg.ThinkingEnabled,
		"thinking_time", cfg.ThinkingTime,
		"answer_pool", cfg.AnswerPool,
	)
	return a, nil
}

func runChat(ctx context.Context, cmd *cli.Command) error {
	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	id := cmd.String("session-id")
	if id == "" {
		id = session.NewID()
	}
	return a.bot.Run(ctx, os.Stdin, os.Stdout, id)
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := web.NewServer(a.bot, avatar.NewLoader(a.logger), a.logger)
	fmt.Printf("Serving on http://%s\n", a.cfg.Listen)
	return srv.ListenAndServe(ctx, a.cfg.Listen)
}

func runExport(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.TranscriptDB == "" {
		return fmt.Errorf("no transcript archive configured")
	}

	store, err := transcript.Open(cfg.TranscriptDB)
	if err != nil {
		return fmt.Errorf("failed to open transcript archive: %w", err)
	}
	defer store.Close()

	n, err := store.Export(ctx, os.Stdout)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "exported %d sessions\n", n)
	return nil
}
