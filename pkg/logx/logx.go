// Package logx provides the small leveled logging surface shared by the
// conversation host components. Components accept a Logger and treat nil as
// "log nothing", so callers only pay for logging they ask for.
package logx

import (
	"log"
	"os"
	"sync"
)

// Level orders log severities from most to least verbose.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Logger is the interface host components log through.
type Logger interface {
	Debug(format string, v ...any)
	Info(format string, v ...any)
	Warn(format string, v ...any)
	Error(format string, v ...any)
}

// StdLogger writes through the standard library logger with a level gate.
type StdLogger struct {
	logger *log.Logger
	level  Level
	mu     sync.Mutex
}

// NewStdLogger returns a logger writing to stderr at the given level.
func NewStdLogger(level Level) *StdLogger {
	return &StdLogger{
		logger: log.New(os.Stderr, "[angiehost] ", log.LstdFlags|log.Lmsgprefix),
		level:  level,
	}
}

// SetLevel adjusts the minimum severity that is emitted.
func (l *StdLogger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

func (l *StdLogger) logf(level Level, prefix, format string, v ...any) {
	l.mu.Lock()
	min := l.level
	l.mu.Unlock()
	if level < min {
		return
	}
	l.logger.Printf(prefix+format, v...)
}

func (l *StdLogger) Debug(format string, v ...any) { l.logf(LevelDebug, "DEBUG: ", format, v...) }
func (l *StdLogger) Info(format string, v ...any)  { l.logf(LevelInfo, "INFO: ", format, v...) }
func (l *StdLogger) Warn(format string, v ...any)  { l.logf(LevelWarn, "WARN: ", format, v...) }
func (l *StdLogger) Error(format string, v ...any) { l.logf(LevelError, "ERROR: ", format, v...) }

// Nop discards everything. Useful as an explicit placeholder in tests.
type Nop struct{}

func (Nop) Debug(string, ...any) {}
func (Nop) Info(string, ...any)  {}
func (Nop) Warn(string, ...any)  {}
func (Nop) Error(string, ...any) {}
