package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// catalogHandler is a slog.Handler that formats log records as:
//
//	<timestamp>\t<level>\t<opID>\t<message>\t<key=value ...>
//
// Records below level are dropped.
type catalogHandler struct {
	w     io.Writer
	opID  string
	level slog.Level
	attrs []slog.Attr
}

func (h *catalogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *catalogHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\t%s\t%s\t%s", r.Time.UTC().Format("2006-01-02T15:04:05Z"), r.Level, h.opID, r.Message)

	for _, a := range h.attrs {
		fmt.Fprintf(&b, "\t%s=%v", a.Key, a.Value)
	}
	r.Attrs(func(a slog.Attr) bool {
		fmt.Fprintf(&b, "\t%s=%v", a.Key, a.Value)
		return true
	})
	b.WriteByte('\n')

	// One write per record so lines from concurrent goroutines don't interleave.
	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *catalogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &catalogHandler{
		w:     h.w,
		opID:  h.opID,
		level: h.level,
		attrs: append(append([]slog.Attr{}, h.attrs...), attrs...),
	}
}

func (h *catalogHandler) WithGroup(string) slog.Handler { return h }

// parseLevel maps the log_level config value to a slog level.
// Unknown or empty values mean info.
func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return level
}

// newLogger creates a structured logger that writes to both logDir/catalog.log
// and stderr. It returns the slog.Logger, the open log file (for cleanup), and any error.
func newLogger(logDir, opID string, level slog.Level, stderr io.Writer) (*slog.Logger, *os.File, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("creating log directory: %w", err)
	}

	logPath := filepath.Join(logDir, "catalog.log")
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	if stderr == nil {
		stderr = os.Stderr
	}
	handler := &catalogHandler{w: io.MultiWriter(f, stderr), opID: opID, level: level}
	return slog.New(handler), f, nil
}

// slogAdapter wraps *slog.Logger to satisfy the catalog.Logger interface.
type slogAdapter struct {
	l *slog.Logger
}

func (a *slogAdapter) Debug(msg string, args ...any) { a.l.Debug(msg, args...) }
func (a *slogAdapter) Info(msg string, args ...any)  { a.l.Info(msg, args...) }
func (a *slogAdapter) Warn(msg string, args ...any)  { a.l.Warn(msg, args...) }
func (a *slogAdapter) Error(msg string, args ...any) { a.l.Error(msg, args...) }
