// Package log wraps logrus so the rest of solarboat depends on a small
// interface instead of the logging library directly.
package log

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

// Logger is the logging surface every component receives. Components never
// import logrus directly.
type Logger interface {
	WithField(key string, value any) Logger
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

type logger struct {
	entry *logrus.Entry
}

// New creates a Logger that writes to w at the given level. Output is
// colorized only when w is a terminal.
func New(w io.Writer, level Level) Logger {
	base := logrus.New()
	base.SetOutput(w)
	base.SetLevel(level.toLogrus())

	isTerminal := false
	if f, ok := w.(*os.File); ok {
		isTerminal = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}

	base.SetFormatter(&logrus.TextFormatter{
		DisableColors:    !isTerminal,
		DisableTimestamp: false,
		FullTimestamp:    true,
		TimestampFormat:  "15:04:05",
	})

	return &logger{entry: logrus.NewEntry(base)}
}

// Discard returns a Logger that drops every entry, for tests that don't
// want to assert on log output.
func Discard() Logger {
	return New(io.Discard, ErrorLevel)
}

func (l *logger) WithField(key string, value any) Logger {
	return &logger{entry: l.entry.WithField(key, value)}
}

func (l *logger) Debugf(format string, args ...any) { l.entry.Debugf(format, args...) }
func (l *logger) Infof(format string, args ...any)  { l.entry.Infof(format, args...) }
func (l *logger) Warnf(format string, args ...any)  { l.entry.Warnf(format, args...) }
func (l *logger) Errorf(format string, args ...any) { l.entry.Errorf(format, args...) }
