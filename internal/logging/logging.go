// Package logging sets up one slog backend and hands out a tagged logger
// per subsystem.
package logging

import (
	"fmt"
	"io"
	"sync"

	"github.com/decred/slog"
)

type Backend struct {
	mu      sync.Mutex
	backend *slog.Backend
	level   slog.Level
	loggers map[string]slog.Logger
}

// New writes to w at the named level (trace, debug, info, warn, error,
// critical, off).
func New(w io.Writer, level string) (*Backend, error) {
	lvl, ok := slog.LevelFromString(level)
	if !ok {
		return nil, fmt.Errorf("unknown log level %q", level)
	}
	return &Backend{
		backend: slog.NewBackend(w),
		level:   lvl,
		loggers: make(map[string]slog.Logger),
	}, nil
}

// Logger returns the logger for tag, creating it on first use.
func (b *Backend) Logger(tag string) slog.Logger {
	b.mu.Lock()
	defer b.mu.Unlock()
	if l, ok := b.loggers[tag]; ok {
		return l
	}
	l := b.backend.Logger(tag)
	l.SetLevel(b.level)
	b.loggers[tag] = l
	return l
}

// SetLevel changes the level of every logger handed out so far and of
// those created later.
func (b *Backend) SetLevel(level string) error {
	lvl, ok := slog.LevelFromString(level)
	if !ok {
		return fmt.Errorf("unknown log level %q", level)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.level = lvl
	for _, l := range b.loggers {
		l.SetLevel(lvl)
	}
	return nil
}
