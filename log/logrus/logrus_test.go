package logrus

import (
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/unkn0wn-root/netgate"
)

func TestLevelsAndFields(t *testing.T) {
	base, hook := test.NewNullLogger()
	base.SetLevel(logrus.DebugLevel)
	l := New(base)

	boom := errors.New("boom")
	l.Warn("call failed", netgate.Fields{"key": "GET:/users:", "err": boom})

	e := hook.LastEntry()
	if e == nil || e.Level != logrus.WarnLevel || e.Message != "call failed" {
		t.Fatalf("entry=%+v", e)
	}
	if e.Data["key"] != "GET:/users:" || e.Data["component"] != "netgate" {
		t.Fatalf("data=%v", e.Data)
	}
	if e.Data[logrus.ErrorKey] != boom {
		t.Fatalf("error not under %q: %v", logrus.ErrorKey, e.Data)
	}

	l.Debug("d", nil)
	l.Info("i", nil)
	l.Error("e", nil)
	want := []logrus.Level{logrus.WarnLevel, logrus.DebugLevel, logrus.InfoLevel, logrus.ErrorLevel}
	entries := hook.AllEntries()
	if len(entries) != len(want) {
		t.Fatalf("got %d entries", len(entries))
	}
	for i, e := range entries {
		if e.Level != want[i] {
			t.Fatalf("entry %d level=%v want %v", i, e.Level, want[i])
		}
	}
}
