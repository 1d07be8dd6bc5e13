package combiner

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// nopHandler is a slog.Handler that silently discards all log records.
// The Enabled method returns false so the caller skips message formatting
// entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// newNopLogger creates a logger that silently discards all output.
func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with logging from any goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

// liveRenderers holds the open renderers, so SetLogger reaches their devices.
var (
	liveMu        sync.Mutex
	liveRenderers = make(map[*Renderer]struct{})
)

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for combiner and the devices of every
// open Renderer. By default, combiner produces no log output.
//
// SetLogger is safe for concurrent use: it stores the new logger atomically.
// Pass nil to disable logging (restore default silent behavior).
//
// Log levels used by combiner:
//   - [slog.LevelDebug]: state changes, cache hits, pipeline variants
//   - [slog.LevelInfo]: lifecycle events (device init, program built)
//   - [slog.LevelWarn]: caller contract violations (draw without a program)
//   - [slog.LevelError]: program builds that failed
//
// Example:
//
//	combiner.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)

	liveMu.Lock()
	defer liveMu.Unlock()
	for r := range liveRenderers {
		propagateLogger(r.dev, l)
	}
}

// Logger returns the current logger used by combiner.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// loggerSetter is implemented by devices that accept a logger.
type loggerSetter interface {
	SetLogger(*slog.Logger)
}

// propagateLogger passes the logger to a device if it implements the
// loggerSetter interface.
func propagateLogger(d any, l *slog.Logger) {
	if ls, ok := d.(loggerSetter); ok {
		ls.SetLogger(l)
	}
}

func trackRenderer(r *Renderer) {
	liveMu.Lock()
	liveRenderers[r] = struct{}{}
	liveMu.Unlock()
	propagateLogger(r.dev, Logger())
}

func untrackRenderer(r *Renderer) {
	liveMu.Lock()
	delete(liveRenderers, r)
	liveMu.Unlock()
}
