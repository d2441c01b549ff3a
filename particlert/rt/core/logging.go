package core

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync/atomic"
)

type Logger interface {
	DebugEnabled() bool
	SetDebug(enabled bool)
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// DefaultLogger writes debug and info lines to one writer and warnings and
// errors to another, as "[prefix] LEVEL: message".
type DefaultLogger struct {
	debug  atomic.Bool
	prefix string
	out    *log.Logger
	err    *log.Logger
}

func NewDefaultLogger(prefix string, debug bool) *DefaultLogger {
	return NewDefaultLoggerTo(os.Stdout, os.Stderr, prefix, debug)
}

func NewDefaultLoggerTo(out, errOut io.Writer, prefix string, debug bool) *DefaultLogger {
	flags := log.LstdFlags | log.Lmicroseconds
	l := &DefaultLogger{
		prefix: prefix,
		out:    log.New(out, "", flags),
		err:    log.New(errOut, "", flags),
	}
	l.debug.Store(debug)
	return l
}

func (l *DefaultLogger) DebugEnabled() bool    { return l.debug.Load() }
func (l *DefaultLogger) SetDebug(enabled bool) { l.debug.Store(enabled) }

func (l *DefaultLogger) line(level string, format string, args ...any) string {
	msg := fmt.Sprintf(format, args...)
	if l.prefix == "" {
		return level + ": " + msg
	}
	return "[" + l.prefix + "] " + level + ": " + msg
}

func (l *DefaultLogger) Debugf(format string, args ...any) {
	if l.DebugEnabled() {
		l.out.Print(l.line("DEBUG", format, args...))
	}
}

func (l *DefaultLogger) Infof(format string, args ...any) {
	l.out.Print(l.line("INFO", format, args...))
}

func (l *DefaultLogger) Warnf(format string, args ...any) {
	l.err.Print(l.line("WARN", format, args...))
}

func (l *DefaultLogger) Errorf(format string, args ...any) {
	l.err.Print(l.line("ERROR", format, args...))
}

type nopLogger struct{}

func NewNopLogger() Logger                          { return nopLogger{} }
func (nopLogger) DebugEnabled() bool                { return false }
func (nopLogger) SetDebug(enabled bool)             {}
func (nopLogger) Debugf(format string, args ...any) {}
func (nopLogger) Infof(format string, args ...any)  {}
func (nopLogger) Warnf(format string, args ...any)  {}
func (nopLogger) Errorf(format string, args ...any) {}

// OrNop returns l, or a no-op logger when l is nil. Never returns nil.
func OrNop(l Logger) Logger {
	if l == nil {
		return NewNopLogger()
	}
	return l
}

// componentLogger tags every message with the subsystem that logged it,
// e.g. "pool: new billboard set ...". The debug flag is the parent's.
type componentLogger struct {
	Logger
	name string
}

// ForComponent returns a logger that prefixes messages with name. A nil
// parent yields a no-op logger; tagging an already tagged logger nests the
// names as "parent/name".
func ForComponent(parent Logger, name string) Logger {
	if parent == nil {
		return NewNopLogger()
	}
	if _, ok := parent.(nopLogger); ok {
		return parent
	}
	if c, ok := parent.(componentLogger); ok {
		return componentLogger{Logger: c.Logger, name: c.name + "/" + name}
	}
	return componentLogger{Logger: parent, name: name}
}

func (c componentLogger) Debugf(format string, args ...any) {
	c.Logger.Debugf(c.name+": "+format, args...)
}

func (c componentLogger) Infof(format string, args ...any) {
	c.Logger.Infof(c.name+": "+format, args...)
}

func (c componentLogger) Warnf(format string, args ...any) {
	c.Logger.Warnf(c.name+": "+format, args...)
}

func (c componentLogger) Errorf(format string, args ...any) {
	c.Logger.Errorf(c.name+": "+format, args...)
}
