// Package logging builds the slog logger shared by the CLI and the
// dashboard from the log section of the config.
package logging

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

var levels = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
	"err":     slog.LevelError,
}

// ParseLevel normalizes a log level string into slog.Level.
// Unknown values return slog.LevelInfo with an error.
func ParseLevel(s string) (slog.Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return slog.LevelInfo, nil
	}
	if l, ok := levels[s]; ok {
		return l, nil
	}
	return slog.LevelInfo, fmt.Errorf("invalid log level %q", s)
}

// OpenFile opens path for appending, creating it and its directory when
// missing.
func OpenFile(path string) (*os.File, error) {
	if path == "" {
		return nil, errors.New("log file path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	return os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
}

// Options controls logger formatting and destination.
// File wins over Writer; with neither, logs go to stderr.
type Options struct {
	Level       string
	AddSource   bool
	JSON        bool
	File        string
	Writer      io.Writer
	DefaultSlog bool
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New constructs a configured slog.Logger. The returned Closer releases
// the log file, if one was opened, and must be called on exit.
func New(opt Options) (*slog.Logger, io.Closer, error) {
	level, err := ParseLevel(opt.Level)
	if err != nil {
		return nil, nil, err
	}

	var (
		w      io.Writer = os.Stderr
		closer io.Closer = nopCloser{}
	)
	switch {
	case opt.File != "":
		f, err := OpenFile(opt.File)
		if err != nil {
			return nil, nil, err
		}
		w, closer = f, f
	case opt.Writer != nil:
		w = opt.Writer
	}

	ho := &slog.HandlerOptions{
		Level:     level,
		AddSource: opt.AddSource || level == slog.LevelDebug,
	}
	var h slog.Handler
	if opt.JSON {
		h = slog.NewJSONHandler(w, ho)
	} else {
		h = slog.NewTextHandler(w, ho)
	}
	lg := slog.New(h)
	if opt.DefaultSlog {
		slog.SetDefault(lg)
	}
	return lg, closer, nil
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
