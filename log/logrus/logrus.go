// Package logrus adapts a logrus entry to netgate.Logger.
package logrus

import (
	"github.com/sirupsen/logrus"

	"github.com/unkn0wn-root/netgate"
)

var _ netgate.Logger = Logger{}

type Logger struct{ E *logrus.Entry }

// New wraps l with a component field so gateway lines are easy to filter.
func New(l *logrus.Logger) Logger {
	return Logger{E: l.WithField("component", "netgate")}
}

func (l Logger) Debug(msg string, f netgate.Fields) { l.with(f).Debug(msg) }
func (l Logger) Info(msg string, f netgate.Fields)  { l.with(f).Info(msg) }
func (l Logger) Warn(msg string, f netgate.Fields)  { l.with(f).Warn(msg) }
func (l Logger) Error(msg string, f netgate.Fields) { l.with(f).Error(msg) }

func (l Logger) with(f netgate.Fields) *logrus.Entry {
	if len(f) == 0 {
		return l.E
	}
	// logrus renders errors only under its own key
	fields := make(logrus.Fields, len(f))
	for k, v := range f {
		if err, ok := v.(error); ok && k == "err" {
			fields[logrus.ErrorKey] = err
			continue
		}
		fields[k] = v
	}
	return l.E.WithFields(fields)
}
