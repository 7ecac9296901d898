// Package logging defines the leveled-logger contract every component
// logs through, grounded on the teacher's types.Logger interface
// (pkg/mcast/definition/default_logger.go) and backed by logrus.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is the leveled-logging contract used across the core. It mirrors
// the teacher's Logger shape (Info/Warn/Error/Debug/Fatal, each with an
// -f variant, plus runtime debug toggling) so every component logs
// through the same narrow surface regardless of which concrete backend is
// wired in.
type Logger interface {
	Info(args ...interface{})
	Infof(format string, args ...interface{})
	Warn(args ...interface{})
	Warnf(format string, args ...interface{})
	Error(args ...interface{})
	Errorf(format string, args ...interface{})
	Debug(args ...interface{})
	Debugf(format string, args ...interface{})
	Fatal(args ...interface{})
	Fatalf(format string, args ...interface{})
	ToggleDebug(on bool) bool

	// With returns a logger that annotates every subsequent message with
	// the given field, e.g. the owning peer or connection id.
	With(key string, value interface{}) Logger
}

// logrusLogger adapts *logrus.Entry to the Logger interface.
type logrusLogger struct {
	entry *logrus.Entry
}

// New creates a Logger writing to stderr in text format, matching the
// teacher's DefaultLogger destination.
func New() Logger {
	base := logrus.New()
	base.SetOutput(os.Stderr)
	base.SetLevel(logrus.InfoLevel)
	return &logrusLogger{entry: logrus.NewEntry(base)}
}

func (l *logrusLogger) Info(args ...interface{})  { l.entry.Info(args...) }
func (l *logrusLogger) Warn(args ...interface{})  { l.entry.Warn(args...) }
func (l *logrusLogger) Error(args ...interface{}) { l.entry.Error(args...) }
func (l *logrusLogger) Debug(args ...interface{}) { l.entry.Debug(args...) }
func (l *logrusLogger) Fatal(args ...interface{}) { l.entry.Fatal(args...) }

func (l *logrusLogger) Infof(format string, args ...interface{})  { l.entry.Infof(format, args...) }
func (l *logrusLogger) Warnf(format string, args ...interface{})  { l.entry.Warnf(format, args...) }
func (l *logrusLogger) Errorf(format string, args ...interface{}) { l.entry.Errorf(format, args...) }
func (l *logrusLogger) Debugf(format string, args ...interface{}) { l.entry.Debugf(format, args...) }
func (l *logrusLogger) Fatalf(format string, args ...interface{}) { l.entry.Fatalf(format, args...) }

func (l *logrusLogger) ToggleDebug(on bool) bool {
	logger := l.entry.Logger
	if on {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}
	return on
}

func (l *logrusLogger) With(key string, value interface{}) Logger {
	return &logrusLogger{entry: l.entry.WithField(key, value)}
}
