// Package logging builds the slog logger used by the CLI from the log
// section of the configuration.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/roach88/zobject/internal/config"
)

// ParseLevel maps a configured level name to a slog level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", name)
}

// New returns a logger for cfg.
//
// Records go to cfg.File through a size-rotated writer when a file is set,
// and to stderr otherwise. verbose forces the debug level. The returned
// closer releases the log file and is never nil.
func New(cfg config.Log, stderr io.Writer, verbose bool) (*slog.Logger, io.Closer, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}
	if verbose {
		level = slog.LevelDebug
	}

	var w io.Writer = stderr
	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		rw, err := newRotatingWriter(cfg)
		if err != nil {
			return nil, nil, err
		}
		w, closer = rw, rw
	}

	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	switch cfg.Format {
	case "", "text":
		h = slog.NewTextHandler(w, opts)
	case "json":
		h = slog.NewJSONHandler(w, opts)
	default:
		closer.Close()
		return nil, nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
	return slog.New(h), closer, nil
}

func newRotatingWriter(cfg config.Log) (*lumberjack.Logger, error) {
	maxSize := cfg.MaxSizeMB
	if maxSize <= 0 {
		maxSize = 10
	}
	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o700); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	return &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    maxSize,
		MaxBackups: cfg.MaxBackups,
	}, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
