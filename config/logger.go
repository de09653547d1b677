package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// NewLogger builds a console encoded zap logger writing to stdout or to a
// rotated file.
func NewLogger(c LogConfig) *zap.Logger {
	enc := zap.NewDevelopmentEncoderConfig()
	enc.TimeKey = "time"
	enc.EncodeLevel = zapcore.CapitalLevelEncoder
	enc.EncodeTime = func(t time.Time, pe zapcore.PrimitiveArrayEncoder) {
		pe.AppendString(t.Format("2006-01-02 15:04:05"))
	}
	enc.EncodeCaller = zapcore.ShortCallerEncoder

	var out zapcore.WriteSyncer
	if c.Output == "file" {
		out = zapcore.AddSync(&lumberjack.Logger{
			Filename:   filepath.Join(c.Path, c.Filename),
			MaxSize:    c.RotateSize,
			MaxBackups: c.RotateNum,
			MaxAge:     c.KeepDays,
			Compress:   true,
		})
	} else {
		out = zapcore.AddSync(os.Stdout)
	}

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), out, parseLevel(c.Level))
	return zap.New(core, zap.AddCaller())
}

// InitLogger installs the logger as zap's global, which the rest of the
// service logs through with zap.S().
func InitLogger(c LogConfig) *zap.Logger {
	logger := NewLogger(c)
	zap.ReplaceGlobals(logger)
	return logger
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return zapcore.DebugLevel
	case "WARN", "WARNING":
		return zapcore.WarnLevel
	case "ERROR":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
