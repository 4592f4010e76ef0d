// Package platformlog implements the donor's common.Logger contract
// (backend/internal/application/common/interfaces.go) on top of logrus,
// giving the orchestrator structured, leveled logging instead of the
// donor's unimplemented interface alone.
package platformlog

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Logger matches the donor's common.Logger shape: msg plus loosely-typed
// key/value field pairs, the same call shape used throughout
// cmd/worker/publish_post.go.
type Logger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
}

type logrusLogger struct {
	entry *logrus.Entry
}

// New builds a Logger backed by a JSON-formatted logrus instance writing to
// stderr, leveled by the given string ("debug", "info", "warn", "error").
func New(level string) Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.JSONFormatter{})
	if lvl, err := logrus.ParseLevel(level); err == nil {
		l.SetLevel(lvl)
	} else {
		l.SetLevel(logrus.InfoLevel)
	}
	return &logrusLogger{entry: logrus.NewEntry(l)}
}

// withFields attaches loosely-typed key/value pairs to the entry; a key
// that is not a string is skipped along with its value, and a trailing
// key without a value is ignored.
func (l *logrusLogger) withFields(fields []interface{}) *logrus.Entry {
	entry := l.entry
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		entry = entry.WithField(key, fields[i+1])
	}
	return entry
}

func (l *logrusLogger) Debug(msg string, fields ...interface{}) { l.withFields(fields).Debug(msg) }
func (l *logrusLogger) Info(msg string, fields ...interface{})  { l.withFields(fields).Info(msg) }
func (l *logrusLogger) Warn(msg string, fields ...interface{})  { l.withFields(fields).Warn(msg) }
func (l *logrusLogger) Error(msg string, fields ...interface{}) { l.withFields(fields).Error(msg) }

// WithPlatform returns a derived Logger with a "platform" field attached to
// every subsequent call.
func WithPlatform(l Logger, platform string) Logger {
	return WithField(l, "platform", platform)
}

// WithField returns a derived Logger with one extra field attached to
// every subsequent call, the same way WithPlatform scopes a platform
// symbol, used to stamp a per-pass correlation ID onto an
// Orchestrator collection pass.
func WithField(l Logger, key string, value interface{}) Logger {
	ll, ok := l.(*logrusLogger)
	if !ok {
		return l
	}
	return &logrusLogger{entry: ll.entry.WithField(key, value)}
}
