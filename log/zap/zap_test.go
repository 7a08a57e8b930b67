package zap

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/unkn0wn-root/netgate"
)

func TestLevelsAndFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := Logger{L: zap.New(core)}

	l.Debug("debug", nil)
	l.Info("info", netgate.Fields{"size": 3})
	l.Warn("warn", nil)
	l.Error("call failed", netgate.Fields{"err": errors.New("boom"), "kind": "unknown"})

	if logs.Len() != 4 {
		t.Fatalf("got %d entries", logs.Len())
	}
	last := logs.All()[3]
	if last.Level != zapcore.ErrorLevel {
		t.Fatalf("level=%v", last.Level)
	}
	ctx := last.ContextMap()
	if ctx["err"] != "boom" || ctx["kind"] != "unknown" {
		t.Fatalf("fields=%v", ctx)
	}
	if got := logs.FilterMessage("info").All()[0].ContextMap()["size"]; got != int64(3) {
		t.Fatalf("size=%v (%T)", got, got)
	}
}
