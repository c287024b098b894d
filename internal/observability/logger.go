package observability

import (
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	logFileName       = "weather.log"
	logFileMaxSizeMB  = 10
	logFileMaxBackups = 10
)

// NewLogger builds the process logger. Console output goes to stderr so stdout stays
// reserved for command results; debug forces the debug level there, otherwise LOG_LEVEL
// decides. When logDir is non-empty every entry down to debug is also written to a
// rotating file in logDir, keeping at most ten rotated files.
func NewLogger(debug bool, logDir string) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.Encoding = "console"
	config.OutputPaths = []string{"stderr"}
	config.ErrorOutputPaths = []string{"stderr"}
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	config.DisableStacktrace = true
	config.Level = parseLogLevel(os.Getenv("LOG_LEVEL"))
	if debug {
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	if logDir == "" {
		return config.Build()
	}

	if err := os.MkdirAll(logDir, 0o700); err != nil {
		return nil, err
	}
	fileCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(config.EncoderConfig),
		zapcore.AddSync(&lumberjack.Logger{
			Filename:   filepath.Join(logDir, logFileName),
			MaxSize:    logFileMaxSizeMB,
			MaxBackups: logFileMaxBackups,
		}),
		zap.DebugLevel,
	)

	return config.Build(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, fileCore)
	}))
}

func parseLogLevel(s string) zap.AtomicLevel {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return zap.NewAtomicLevelAt(zap.DebugLevel)
	case "INFO":
		return zap.NewAtomicLevelAt(zap.InfoLevel)
	case "ERROR":
		return zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		return zap.NewAtomicLevelAt(zap.WarnLevel)
	}
}
