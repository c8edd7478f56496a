package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"codefacts/internal/config"
	"codefacts/internal/project"
	"codefacts/internal/slogutil"
)

// app is the engine assembled for one command invocation.
type app struct {
	cfg     *config.Config
	root    string
	logger  *slog.Logger
	scanner *project.Scanner
	closers []io.Closer
}

// newApp loads configuration from the resolved root and builds the scanner.
// target is the directory a command runs against, or "" for the working directory.
func newApp(cmd *cobra.Command, target string) (*app, error) {
	root, err := resolveRoot(target)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(config.LoadOptions{ProjectRoot: root})
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, root: root}
	a.logger, err = a.newLogger(cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	a.scanner, err = project.NewFromConfig(cfg, root, a.logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// newLogger writes warnings to the console unless -v or -q say otherwise.
// The configured level governs the optional log file.
func (a *app) newLogger(console io.Writer) (*slog.Logger, error) {
	format := slogutil.Format(a.cfg.Logging.Format)
	handler := slogutil.NewHandler(console, slogutil.LevelFromVerbosity(verboseFlag, quietFlag), format)

	path := logFileFlag
	if path == "" {
		path = a.cfg.Logging.File
	}
	if path == "" {
		return slog.New(handler), nil
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(a.root, path)
	}
	file, closer, err := slogutil.NewFileHandler(slogutil.FileOptions{
		Path:       path,
		MaxSizeMB:  a.cfg.Logging.MaxSizeMB,
		MaxBackups: a.cfg.Logging.MaxBackups,
	}, slogutil.LevelFromString(a.cfg.Logging.Level), format)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, closer)
	return slog.New(slogutil.NewTeeHandler(handler, file)), nil
}

// Close flushes the persistent cache tier and releases log files.
func (a *app) Close() {
	if a.scanner != nil {
		if err := a.scanner.Cache().Close(); err != nil {
			a.logger.Warn("failed to close cache", "error", err)
		}
	}
	for _, c := range a.closers {
		_ = c.Close()
	}
}

// resolveRoot picks the configuration root: --root, then target, then the working directory.
func resolveRoot(target string) (string, error) {
	switch {
	case rootFlag != "":
		return filepath.Abs(rootFlag)
	case target != "":
		return filepath.Abs(target)
	default:
		return os.Getwd()
	}
}

// targetArg returns the optional positional directory argument.
func targetArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "."
}

// newContext is cancelled by SIGINT and SIGTERM.
func newContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
