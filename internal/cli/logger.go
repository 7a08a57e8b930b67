package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/unkn0wn-root/netgate"
	"github.com/unkn0wn-root/netgate/config"
	logrusadapter "github.com/unkn0wn-root/netgate/log/logrus"
	slogadapter "github.com/unkn0wn-root/netgate/log/slog"
	zapadapter "github.com/unkn0wn-root/netgate/log/zap"
)

// newLogger builds the gateway logger for c. The returned func flushes
// buffered output, if any.
func newLogger(c config.LogConfig, w io.Writer) (netgate.Logger, func(), error) {
	switch c.Backend {
	case "logrus":
		l := logrus.New()
		l.SetOutput(w)
		level, err := logrus.ParseLevel(c.Level)
		if err != nil {
			return nil, nil, err
		}
		l.SetLevel(level)
		if c.Format == "json" {
			l.SetFormatter(&logrus.JSONFormatter{})
		} else {
			l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		}
		return logrusadapter.New(l), func() {}, nil

	case "zap":
		level, err := zapcore.ParseLevel(c.Level)
		if err != nil {
			return nil, nil, err
		}
		var enc zapcore.Encoder
		if c.Format == "json" {
			enc = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
		} else {
			enc = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
		}
		zl := zap.New(zapcore.NewCore(enc, zapcore.AddSync(w), level)).Named("netgate")
		return zapadapter.Logger{L: zl}, func() { _ = zl.Sync() }, nil

	case "slog":
		return slogadapter.Logger{L: newSlog(c, w)}, func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown log backend %q", c.Backend)
}

// newSlog renders text through tint and json through the stdlib handler.
func newSlog(c config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		level = slog.LevelInfo
	}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.RFC3339,
		NoColor:    os.Getenv("NO_COLOR") != "" || w != os.Stderr,
	}))
}
