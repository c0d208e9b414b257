package logging

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
)

// syslog severities used by GELF.
const (
	gelfLevelError = 3
	gelfLevelWarn  = 4
	gelfLevelInfo  = 6
	gelfLevelDebug = 7
)

// GELFHandler forwards slog records to a Graylog server over UDP.
type GELFHandler struct {
	writer   *gelf.Writer
	level    slog.Level
	hostname string
	attrs    []slog.Attr
}

// NewGELFHandler dials the Graylog address and returns a handler emitting
// records at or above the given level.
func NewGELFHandler(address string, level slog.Level) (*GELFHandler, error) {
	w, err := gelf.NewWriter(address)
	if err != nil {
		return nil, err
	}
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "parkfind"
	}
	return &GELFHandler{
		writer:   w,
		level:    level,
		hostname: hostname,
	}, nil
}

// Enabled reports whether records at this level are forwarded.
func (h *GELFHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

// Handle converts the record into a GELF message and sends it.
func (h *GELFHandler) Handle(_ context.Context, r slog.Record) error {
	extra := make(map[string]interface{}, r.NumAttrs()+len(h.attrs))
	for _, a := range h.attrs {
		extra["_"+a.Key] = a.Value.String()
	}
	r.Attrs(func(a slog.Attr) bool {
		extra["_"+a.Key] = a.Value.String()
		return true
	})

	msg := &gelf.Message{
		Version:  "1.1",
		Host:     h.hostname,
		Short:    r.Message,
		TimeUnix: float64(r.Time.UnixNano()) / float64(time.Second),
		Level:    gelfSeverity(r.Level),
		Facility: "parkfind",
		Extra:    extra,
	}
	return h.writer.WriteMessage(msg)
}

// WithAttrs returns a handler that attaches the attributes to every message.
func (h *GELFHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &clone
}

// WithGroup is accepted but groups are flattened into attribute keys.
func (h *GELFHandler) WithGroup(name string) slog.Handler {
	return h
}

func gelfSeverity(level slog.Level) int32 {
	switch {
	case level >= slog.LevelError:
		return gelfLevelError
	case level >= slog.LevelWarn:
		return gelfLevelWarn
	case level >= slog.LevelInfo:
		return gelfLevelInfo
	default:
		return gelfLevelDebug
	}
}
