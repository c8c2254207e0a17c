// Package logging provides a package-level structured logger shared by the
// storage and buffer subsystems, built on log/slog.
package logging

import (
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/dustin/go-humanize"
)

var (
	mu      sync.RWMutex
	logger  *slog.Logger
	initted bool
)

// Config controls where and how the package logger writes.
type Config struct {
	Level  slog.Level
	Output io.Writer // defaults to os.Stderr when nil
	JSON   bool
}

// Init installs the package logger. Safe to call once at startup; a
// second call replaces the previous logger.
func Init(cfg Config) {
	mu.Lock()
	defer mu.Unlock()

	w := cfg.Output
	if w == nil {
		w = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: cfg.Level}
	var h slog.Handler
	if cfg.JSON {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}

	logger = slog.New(h)
	initted = true
}

// Get returns the package logger, lazily defaulting to an INFO-level
// text logger on stderr if Init was never called.
func Get() *slog.Logger {
	mu.RLock()
	if initted {
		l := logger
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if !initted {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
		initted = true
	}
	return logger
}

// Bytes renders a byte count for log fields the way an operator reads it,
// e.g. buffer pool footprint or catalog snapshot size.
func Bytes(n uint64) string {
	return humanize.Bytes(n)
}

func Debug(msg string, args ...any) { Get().Debug(msg, args...) }
func Info(msg string, args ...any)  { Get().Info(msg, args...) }
func Warn(msg string, args ...any)  { Get().Warn(msg, args...) }
func Error(msg string, args ...any) { Get().Error(msg, args...) }
