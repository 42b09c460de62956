// ABOUTME: Entry point for the HSP bridge
// ABOUTME: Parses CLI flags, sets up logging and runs the bridge with an optional TUI
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/hspbridge/hspbridge/internal/app"
	"github.com/hspbridge/hspbridge/internal/config"
	"github.com/hspbridge/hspbridge/internal/logging"
	"github.com/hspbridge/hspbridge/internal/ui"
	"github.com/hspbridge/hspbridge/internal/version"
)

var (
	configPath  = flag.String("config", defaultConfigPath(), "Config file path (created with defaults if missing)")
	logFile     = flag.String("log-file", "", "Log file path (overrides log.file)")
	noTUI       = flag.Bool("no-tui", false, "Disable TUI, use streaming logs instead")
	debug       = flag.Bool("debug", false, "Force debug logging")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "hspbridge: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	file, err := config.LoadOrInit(*configPath)
	if err != nil {
		if errors.Is(err, config.ErrMissingKey) {
			return fmt.Errorf("%w\nedit %s and start again", err, *configPath)
		}
		return err
	}

	useTUI := !*noTUI

	level := new(slog.LevelVar)
	if parsed, err := config.ParseLevel(file.Log.Level); err == nil {
		level.Set(parsed)
	}
	if *debug {
		level.Set(slog.LevelDebug)
	}

	logger, closer := logging.Setup(logOptions(file.Log.File, *logFile, *configPath, useTUI, level))
	defer closer.Close()
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg := app.Config{
		File:       file,
		ConfigPath: *configPath,
		Level:      level,
		Logger:     logger,
	}

	var tuiDone chan struct{}
	if useTUI {
		prog := ui.Run()
		relay := ui.NewRelay()
		cfg.Status = func(msg ui.StatusMsg) { prog.Send(msg) }
		cfg.Observer = relay.Observe

		tuiDone = make(chan struct{})
		go func() {
			defer close(tuiDone)
			if _, err := prog.Run(); err != nil {
				logger.Error("TUI failed", "error", err)
			}
			// Quitting the TUI stops the bridge
			cancel()
		}()
		go relay.Run(ctx, prog.Send)
		defer func() {
			prog.Quit()
			<-tuiDone
		}()
	}

	bridge, err := app.New(cfg)
	if err != nil {
		return err
	}

	logger.Info("Starting", "version", version.Version, "config", *configPath, "tui", useTUI)
	if err := bridge.Run(ctx); err != nil {
		logger.Error("Bridge failed", "error", err)
		return err
	}

	logger.Info("Shutdown complete")
	return nil
}

// logOptions picks the log targets. TUI mode logs only to a file, falling
// back to one next to the config. Streaming logs mode writes to both.
func logOptions(configured, override, configPath string, useTUI bool, level *slog.LevelVar) logging.Options {
	path := configured
	if override != "" {
		path = override
	}
	if path == "" && useTUI {
		path = filepath.Join(filepath.Dir(configPath), "hspbridge.log")
	}
	return logging.Options{
		File:    path,
		Console: !useTUI,
		Level:   level,
	}
}

// defaultConfigPath places the config next to the executable
func defaultConfigPath() string {
	exe, err := os.Executable()
	if err != nil {
		return "hspbridge.yaml"
	}
	return filepath.Join(filepath.Dir(exe), "hspbridge.yaml")
}
