// Package logging adapts logrus to the Nakama runtime logger so table code
// runs unchanged outside the Nakama server.
package logging

import (
	"io"

	"github.com/heroiclabs/nakama-common/runtime"
	"github.com/sirupsen/logrus"
)

type logger struct {
	entry *logrus.Entry
}

// New returns a runtime.Logger writing to out at the named level. Unknown
// levels fall back to info.
func New(out io.Writer, level string) runtime.Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)
	return &logger{entry: logrus.NewEntry(l)}
}

// Wrap adapts an existing logrus entry.
func Wrap(entry *logrus.Entry) runtime.Logger {
	return &logger{entry: entry}
}

func (l *logger) Debug(format string, v ...interface{}) { l.entry.Debugf(format, v...) }
func (l *logger) Info(format string, v ...interface{})  { l.entry.Infof(format, v...) }
func (l *logger) Warn(format string, v ...interface{})  { l.entry.Warnf(format, v...) }
func (l *logger) Error(format string, v ...interface{}) { l.entry.Errorf(format, v...) }

func (l *logger) WithField(key string, v interface{}) runtime.Logger {
	return &logger{entry: l.entry.WithField(key, v)}
}

func (l *logger) WithFields(fields map[string]interface{}) runtime.Logger {
	return &logger{entry: l.entry.WithFields(fields)}
}

func (l *logger) Fields() map[string]interface{} {
	out := make(map[string]interface{}, len(l.entry.Data))
	for k, v := range l.entry.Data {
		out[k] = v
	}
	return out
}
