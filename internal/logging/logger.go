package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/jamesbarge/postboxd-sub001/internal/config"
)

// Options describes logger construction parameters.
type Options struct {
	Level string
	// Format is "console", "json", or "auto" (console on a terminal, JSON otherwise).
	Format string
	// Stdout receives console or JSON records. Nil means os.Stdout.
	Stdout io.Writer
	// FilePath, when set, receives JSON records through a rotating writer.
	FilePath    string
	Rotation    Rotation
	Development bool
}

// Rotation bounds the on-disk log file.
type Rotation struct {
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// New constructs a slog logger using the provided options.
func New(opts Options) (*slog.Logger, error) {
	level := parseLevel(opts.Level)
	levelVar := new(slog.LevelVar)
	levelVar.Set(level)
	addSource := opts.Development || level <= slog.LevelDebug

	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	var primary slog.Handler
	switch resolveFormat(opts.Format, stdout) {
	case "json":
		primary = newJSONHandler(stdout, levelVar, addSource)
	case "console":
		primary = newPrettyHandler(stdout, levelVar, addSource)
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}

	path := strings.TrimSpace(opts.FilePath)
	if path == "" {
		return slog.New(primary), nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure log directory: %w", err)
	}
	file := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    opts.Rotation.MaxSizeMB,
		MaxBackups: opts.Rotation.MaxBackups,
		MaxAge:     opts.Rotation.MaxAgeDays,
		Compress:   opts.Rotation.Compress,
	}
	return slog.New(newFanoutHandler(primary, newJSONHandler(file, levelVar, addSource))), nil
}

// NewFromConfig creates a logger using application config. Records go to
// stdout (os.Stdout when nil) and to the rotating file in the log directory.
func NewFromConfig(cfg *config.Config, stdout io.Writer) (*slog.Logger, error) {
	if cfg == nil {
		return New(Options{Level: "info", Format: "auto", Stdout: stdout})
	}
	opts := Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Stdout: stdout,
		Rotation: Rotation{
			MaxSizeMB:  cfg.Logging.MaxSizeMB,
			MaxBackups: cfg.Logging.MaxBackups,
			MaxAgeDays: cfg.Logging.MaxAgeDays,
			Compress:   cfg.Logging.Compress,
		},
	}
	if cfg.Paths.LogDir != "" {
		opts.FilePath = filepath.Join(cfg.Paths.LogDir, "postboxd.log")
	}
	return New(opts)
}

func resolveFormat(format string, w io.Writer) string {
	format = strings.ToLower(strings.TrimSpace(format))
	if format != "" && format != "auto" {
		return format
	}
	if f, ok := w.(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		return "console"
	}
	return "json"
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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
