package logger

import (
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options level is one of debug/info/warn/error (unknown values mean info); format is
// "json" (default) or "console". Timestamps are written in Location, UTC when nil, so log
// lines line up with billing periods computed in the same zone.
type Options struct {
	Level    string
	Format   string
	Service  string
	Location *time.Location
}

func NewLogger(opts Options) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(opts.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	var config zap.Config
	if opts.Format == "console" {
		config = zap.NewDevelopmentConfig()
	} else {
		config = zap.NewProductionConfig()
		config.OutputPaths = []string{"stdout"}
		config.ErrorOutputPaths = []string{"stderr"}
	}
	config.Level = zap.NewAtomicLevelAt(level)
	config.EncoderConfig = encoderConfig(config.EncoderConfig, opts.Location)

	base, err := config.Build()
	if err != nil {
		return nil, err
	}
	if opts.Service != "" {
		base = base.With(zap.String("service_name", opts.Service))
	}
	if hostname, err := os.Hostname(); err == nil && hostname != "" {
		base = base.With(zap.String("hostname", hostname))
	}
	return base, nil
}

func encoderConfig(ec zapcore.EncoderConfig, loc *time.Location) zapcore.EncoderConfig {
	if loc == nil {
		loc = time.UTC
	}
	ec.TimeKey = "timestamp"
	ec.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.In(loc).Format("2006-01-02T15:04:05.000Z07:00"))
	}
	return ec
}
