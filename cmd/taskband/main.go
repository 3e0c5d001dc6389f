// Package main provides the entry point for the taskband TUI.
//
// Taskband is a terminal day view over a markdown note vault: tasks
// live as notes, the day is split into fixed time bands, and routine
// rules decide which tasks appear on a given date.
//
// Usage:
//
//	taskband [--vault DIR] [--date YYYY-MM-DD]
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"

	"github.com/riordanpawley/taskband/internal/app"
	"github.com/riordanpawley/taskband/internal/cli"
	"github.com/riordanpawley/taskband/internal/config"
	"github.com/riordanpawley/taskband/internal/services/alias"
	"github.com/riordanpawley/taskband/internal/services/dayview"
	"github.com/riordanpawley/taskband/internal/services/routine"
	"github.com/riordanpawley/taskband/internal/services/tracker"
	"github.com/riordanpawley/taskband/internal/services/vault"
)

const version = "0.1.0"

func main() {
	var (
		vaultDir    = pflag.String("vault", "", "vault directory (default from config)")
		date        = pflag.String("date", "", "open the view on a specific day (YYYY-MM-DD)")
		logLevel    = pflag.String("log-level", "", "log level: debug, info, warn, error")
		list        = pflag.Bool("list", false, "print the day's tasks and exit")
		status      = pflag.Bool("status", false, "print the running task and exit")
		showVersion = pflag.BoolP("version", "v", false, "print version and exit")
	)
	pflag.Parse()

	if *showVersion {
		fmt.Println("taskband " + version)
		return
	}

	if *date != "" {
		if _, ok := routine.ParseDate(*date); !ok {
			fmt.Fprintf(os.Stderr, "invalid --date %q: expected YYYY-MM-DD\n", *date)
			os.Exit(1)
		}
	}

	dir := *vaultDir
	if dir == "" {
		dir = config.DefaultConfig().Vault.Dir
	}

	cfg, err := config.LoadConfig(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *vaultDir != "" {
		cfg.Vault.Dir = *vaultDir
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}

	logger, closeLog, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening log file: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	vaultStore := vault.NewStore(cfg.Vault.Dir, cfg.Data.Dir, logger)
	aliases := alias.NewResolver(
		alias.NewFileStore(filepath.Join(cfg.Data.Dir, "aliases.json")), logger)
	tr := tracker.New(time.Now, vaultStore.Snapshot(), logger)
	day := dayview.NewBuilder(vaultStore, routine.NewEngine(logger), aliases, tr, logger)

	if *list || *status {
		deps := &cli.Dependencies{Day: day, Logger: logger}
		target := *date
		if target == "" {
			target = time.Now().Format(routine.DateLayout)
		}
		var err error
		if *list {
			err = cli.ListCommand(deps, target)
		} else {
			err = cli.StatusCommand(deps, target, time.Now())
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	var events <-chan struct{}
	debounce := time.Duration(cfg.View.WatchDebounceMs) * time.Millisecond
	watcher, err := vault.NewWatcher(cfg.Vault.Dir, debounce, logger)
	if err != nil {
		logger.Warn("vault watching disabled", "error", err)
	} else {
		defer watcher.Close()
		events = watcher.Events
	}

	model := app.New(cfg, app.Deps{
		Day:         day,
		Tracker:     tr,
		Notes:       vaultStore,
		Aliases:     aliases,
		VaultEvents: events,
		Logger:      logger,
		Date:        *date,
	})

	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newLogger opens the configured log file. Logging goes to a file
// because writing to stderr would corrupt the TUI.
func newLogger(cfg *config.Config) (*slog.Logger, func(), error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		level = slog.LevelInfo
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Log.File), 0o755); err != nil {
		return nil, nil, err
	}
	f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, err
	}

	handler := slog.NewTextHandler(f, &slog.HandlerOptions{Level: level})
	return slog.New(handler), func() { f.Close() }, nil
}
