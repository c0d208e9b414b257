package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Manager manages slog-based logging with console, file, and optional
// Graylog output.
type Manager struct {
	logger *slog.Logger
}

// NewManager creates a new slog-based logging manager.
func NewManager() *Manager {
	return &Manager{}
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Setup initializes the logging system with console, optional file, and
// optional Graylog output. A nil file disables the file handler; an empty
// graylogAddr disables GELF forwarding.
func (m *Manager) Setup(file io.Writer, level string, graylogAddr string) {
	lvl := parseLevel(level)

	// Common handler options with RFC3339 time formatting
	handlerOpts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
				}
			}
			return a
		},
	}

	// Build list of handlers
	var handlers []slog.Handler

	// Console handler
	handlers = append(handlers, slog.NewTextHandler(os.Stdout, handlerOpts))

	// File handler
	if file != nil {
		handlers = append(handlers, slog.NewTextHandler(file, handlerOpts))
	}

	// Graylog handler; a dial failure falls through to the other outputs
	if graylogAddr != "" {
		if gh, err := NewGELFHandler(graylogAddr, lvl); err == nil {
			handlers = append(handlers, gh)
		}
	}

	m.logger = slog.New(NewMultiHandler(handlers...))
	slog.SetDefault(m.logger)
}

// Logger returns the managed logger, or the default logger before Setup.
func (m *Manager) Logger() *slog.Logger {
	if m.logger == nil {
		return slog.Default()
	}
	return m.logger
}
