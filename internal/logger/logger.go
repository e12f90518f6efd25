package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dusted-go/logging/prettylog"
)

// Options selects level, handler format and an optional log file.
type Options struct {
	Level  string
	Format string // text, json or pretty
	File   string
}

// Logger wraps a slog.Logger together with the file it may write to.
type Logger struct {
	*slog.Logger
	file *os.File
}

// NewLogger creates a new logger instance writing to w, and additionally to
// opts.File when set.
func NewLogger(w io.Writer, opts Options) (*Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	handlerOpts := &slog.HandlerOptions{Level: level}

	l := &Logger{}
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		file, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to create log file: %w", err)
		}
		l.file = file
	}

	var handler slog.Handler
	switch strings.ToLower(opts.Format) {
	case "", "text":
		handler = slog.NewTextHandler(l.writer(w), handlerOpts)
	case "json":
		handler = slog.NewJSONHandler(l.writer(w), handlerOpts)
	case "pretty":
		// prettylog always writes to the console; the file copy stays structured.
		handler = prettylog.NewHandler(handlerOpts)
		if l.file != nil {
			handler = fanout{handler, slog.NewJSONHandler(l.file, handlerOpts)}
		}
	default:
		l.Close()
		return nil, fmt.Errorf("unsupported log format %q", opts.Format)
	}

	l.Logger = slog.New(handler)
	return l, nil
}

func (l *Logger) writer(w io.Writer) io.Writer {
	if l.file == nil {
		return w
	}
	return io.MultiWriter(w, l.file)
}

// Close closes the log file
func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// ParseLevel maps debug/info/warn/error (any case) to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
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
