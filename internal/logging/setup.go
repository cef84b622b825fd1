package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options selects where and how log records are written.
type Options struct {
	Level  string // debug, info, warn, error
	Format string // text or json
	File   string // empty means stderr

	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// New builds a SlogLogger from opts. When opts.File is set the output is a
// size-rotated file; the returned closer must be closed on shutdown.
func New(opts Options) (*SlogLogger, io.Closer, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}

	var (
		w      io.Writer = os.Stderr
		closer io.Closer = nopCloser{}
	)
	if opts.File != "" {
		lj := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    valueOr(opts.MaxSizeMB, 10),
			MaxBackups: valueOr(opts.MaxBackups, 3),
			MaxAge:     valueOr(opts.MaxAgeDays, 28),
			Compress:   true,
		}
		w, closer = lj, lj
	}

	return NewSlogLogger(slog.New(newHandler(w, opts.Format, level))), closer, nil
}

func newHandler(w io.Writer, format string, level slog.Level) slog.Handler {
	ho := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(format, "json") {
		return slog.NewJSONHandler(w, ho)
	}
	return slog.NewTextHandler(w, ho)
}

func valueOr(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
