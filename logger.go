package ggui

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler is a slog.Handler that discards every record. Enabled returns
// false so callers skip formatting altogether.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger so SetLogger may race with logging from
// loader goroutines.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for ggui and all its sub-packages.
// By default nothing is logged. Pass nil to restore the silent default.
//
// Log levels used by ggui:
//   - [slog.LevelDebug]: diagnostics (stale touches, elided descriptor
//     writes, atlas layer creation)
//   - [slog.LevelInfo]: lifecycle (backend ready, full atlas rebuilds)
//   - [slog.LevelWarn]: non-fatal problems (view dropped because the atlas
//     is full, failed asset loads, unknown uniforms in release builds)
//
// Example:
//
//	ggui.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
}

// Logger returns the logger shared by ggui and its sub-packages.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
