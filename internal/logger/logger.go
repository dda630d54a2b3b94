// Package logger provides leveled logging for lexrag.
// Messages go through log/slog with a compact "[LEVEL] message" handler.
// Debug, Info and Warn are printed only in verbose mode; Error is always printed.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
	level             = new(slog.LevelVar)
	base              = slog.New(&lineHandler{})
)

func init() {
	level.Set(slog.LevelError)
}

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
	if v {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelError)
	}
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the output writer for logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// Slog returns the shared slog.Logger, for libraries that accept one.
func Slog() *slog.Logger {
	return base
}

// Debug prints a message if verbose mode is enabled.
func Debug(format string, args ...any) {
	logf(slog.LevelDebug, format, args...)
}

// Info prints an informational message if verbose mode is enabled.
func Info(format string, args ...any) {
	logf(slog.LevelInfo, format, args...)
}

// Warn prints a warning message if verbose mode is enabled.
func Warn(format string, args ...any) {
	logf(slog.LevelWarn, format, args...)
}

// Error prints an error message regardless of verbose mode.
func Error(format string, args ...any) {
	logf(slog.LevelError, format, args...)
}

// Section prints a section header if verbose mode is enabled.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, "\n=== %s ===\n", name)
	}
}

func logf(l slog.Level, format string, args ...any) {
	ctx := context.Background()
	if !base.Enabled(ctx, l) {
		return
	}
	base.Log(ctx, l, fmt.Sprintf(format, args...))
}

// lineHandler writes "[LEVEL] message key=value ..." lines to the package output.
type lineHandler struct {
	attrs []slog.Attr
}

func (h *lineHandler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= level.Level()
}

func (h *lineHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	b.WriteString("[")
	b.WriteString(r.Level.String())
	b.WriteString("] ")
	b.WriteString(r.Message)

	write := func(a slog.Attr) bool {
		if a.Equal(slog.Attr{}) {
			return true
		}
		fmt.Fprintf(&b, " %s=%v", a.Key, a.Value.Any())
		return true
	}
	for _, a := range h.attrs {
		write(a)
	}
	r.Attrs(write)
	b.WriteString("\n")

	mu.RLock()
	defer mu.RUnlock()
	_, err := io.WriteString(output, b.String())
	return err
}

func (h *lineHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &lineHandler{attrs: merged}
}

// Groups are flattened; lexrag never nests attributes.
func (h *lineHandler) WithGroup(string) slog.Handler {
	return h
}
