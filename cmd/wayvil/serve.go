package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/wayvil/wayvil/internal/actionlog"
	"github.com/wayvil/wayvil/internal/bridge"
	"github.com/wayvil/wayvil/internal/compositor"
	"github.com/wayvil/wayvil/internal/config"
	"github.com/wayvil/wayvil/internal/display"
	"github.com/wayvil/wayvil/internal/mcp"
)

func runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file (default: ~/.config/wayvil/config.yaml)")
	socketPath := fs.String("socket", "", "Display socket path (overrides config)")
	startupCmd := fs.String("command", "", "Command to launch once the compositor is up")
	fs.StringVar(startupCmd, "c", "", "Shorthand for --command")
	logLevel := fs.String("log-level", "info", "Log level: debug, info, warn, error")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: wayvil serve [options]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Start the compositor. The display socket accepts client connections;")
		fmt.Fprintln(os.Stderr, "the MCP bridge runs on stdio. Designed to be invoked by MCP clients:")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "  claude mcp add wayvil -- wayvil serve")
		fmt.Fprintln(os.Stderr, "")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}

	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadFromPath(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *socketPath != "" {
		cfg.Socket = *socketPath
	}

	// stdout carries the MCP transport; everything human-readable goes to
	// stderr.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseSlogLevel(*logLevel),
	}))

	var actions *actionlog.Logger
	if cfg.Logging.Enabled {
		actions, err = actionlog.New(actionlog.Config{
			Enabled:   true,
			Level:     actionlog.ParseLevel(cfg.Logging.Level),
			FilePath:  cfg.Logging.File,
			MaxSizeMB: cfg.Logging.MaxSizeMB,
			MaxFiles:  cfg.Logging.MaxFiles,
		})
		if err != nil {
			log.Printf("Warning: failed to initialize action logger: %v", err)
			actions = nil
		}
	}

	server := display.NewServer(cfg.Socket, logger)
	if err := server.Start(); err != nil {
		log.Fatalf("Failed to start display server: %v", err)
	}
	defer server.Close()

	queue := bridge.NewQueue(cfg.QueueCapacity)
	launcher := compositor.NewLauncher(cfg.Socket, logger)
	comp := compositor.New(server, launcher, queue, logger, actions, compositor.Options{
		Tick:           cfg.Tick(),
		LaunchTimeout:  cfg.LaunchTimeout(),
		CaptureTimeout: cfg.CaptureTimeout(),
		FocusPolicy:    compositor.PolicyByName(cfg.FocusPolicy),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutting down")
		cancel()
	}()

	compDone := make(chan struct{})
	go func() {
		defer close(compDone)
		if err := comp.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("compositor loop failed", "err", err)
		}
	}()

	if *startupCmd != "" {
		launchStartupCommand(ctx, queue, logger, *startupCmd)
	}

	bridgeServer := mcp.NewServer(queue, actions)
	defer bridgeServer.Close()

	if err := bridgeServer.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("mcp server failed", "err", err)
		cancel()
		<-compDone
		return 1
	}

	cancel()
	<-compDone
	return 0
}

// launchStartupCommand enqueues the -c command and reports its outcome in the
// background; serving does not wait for the window.
func launchStartupCommand(ctx context.Context, queue *bridge.Queue, logger *slog.Logger, command string) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		logger.Warn("startup command is empty")
		return
	}

	cmd := bridge.NewLaunchApp(fields[0], fields[1:])
	if err := queue.Enqueue(cmd); err != nil {
		logger.Error("failed to enqueue startup command", "err", err)
		return
	}

	go func() {
		res, err := cmd.Await(ctx)
		if err != nil {
			return
		}
		if res.Err != nil {
			logger.Error("startup command failed", "command", command, "err", res.Err)
			return
		}
		logger.Info("startup command mapped a window",
			"command", command,
			"surface", res.Spawned.SurfaceID,
			"pid", res.Spawned.PID)
	}()
}

func parseSlogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
