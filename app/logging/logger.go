// Package logging builds the structured loggers used across the service
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/amirphl/counter-clean-arch/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// NewLogger builds a zap logger from the logging configuration. File output is
// rotated by lumberjack.
func NewLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(orDefault(cfg.Level, "info"))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.TimeKey = "timestamp"

	var encoder zapcore.Encoder
	if cfg.Format == "text" {
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(NewWriter(cfg)), zap.NewAtomicLevelAt(level))

	var opts []zap.Option
	if cfg.EnableCaller {
		opts = append(opts, zap.AddCaller())
	}
	if cfg.EnableStacktrace {
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	}
	return zap.New(core, opts...), nil
}

// NewWriter returns the sink selected by cfg.Output: stdout, a rotated file or both
func NewWriter(cfg config.LoggingConfig) io.Writer {
	switch cfg.Output {
	case "file":
		return newRotatingFile(cfg)
	case "both":
		return io.MultiWriter(os.Stdout, newRotatingFile(cfg))
	default:
		return os.Stdout
	}
}

func newRotatingFile(cfg config.LoggingConfig) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
