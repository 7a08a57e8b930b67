// Package zap adapts a zap logger to netgate.Logger.
package zap

import (
	"go.uber.org/zap"

	"github.com/unkn0wn-root/netgate"
)

var _ netgate.Logger = Logger{}

type Logger struct{ L *zap.Logger }

func (z Logger) Debug(msg string, f netgate.Fields) { z.L.Debug(msg, fields(f)...) }
func (z Logger) Info(msg string, f netgate.Fields)  { z.L.Info(msg, fields(f)...) }
func (z Logger) Warn(msg string, f netgate.Fields)  { z.L.Warn(msg, fields(f)...) }
func (z Logger) Error(msg string, f netgate.Fields) { z.L.Error(msg, fields(f)...) }

func fields(f netgate.Fields) []zap.Field {
	if len(f) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(f))
	for k, v := range f {
		if err, ok := v.(error); ok {
			out = append(out, zap.NamedError(k, err))
			continue
		}
		out = append(out, zap.Any(k, v))
	}
	return out
}
