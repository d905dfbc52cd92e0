package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Service is attached to every production log entry.
const Service = "bundlehost"

// Logger is the process logger. Domain packages receive the embedded
// *zap.Logger, usually through Named.
type Logger struct {
	*zap.Logger
}

// Config defines logger configuration.
type Config struct {
	Level       string // "debug", "info", "warn", "error"
	Development bool
	// OutputPaths defaults to stdout.
	OutputPaths []string
}

// New creates a logger. Production mode writes JSON with lower-case level
// names; development mode writes colored console lines and stack traces on
// warnings.
func New(cfg Config) (*Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	zapCfg := zap.NewProductionConfig()
	zapCfg.EncoderConfig.TimeKey = "timestamp"
	zapCfg.EncoderConfig.MessageKey = "message"
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapCfg.InitialFields = map[string]any{"service": Service}
	if cfg.Development {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	// Every per-bundle line of a startup scan is kept.
	zapCfg.Sampling = nil
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	if len(cfg.OutputPaths) > 0 {
		zapCfg.OutputPaths = cfg.OutputPaths
	}

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{Logger: logger}, nil
}

// NewDefault creates an info-level production logger.
func NewDefault() *Logger {
	return mustOrNop(New(Config{Level: "info"}))
}

// NewDevelopment creates a debug-level console logger.
func NewDevelopment() *Logger {
	return mustOrNop(New(Config{Level: "debug", Development: true}))
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

// FromSettings builds the logger described by the LOG_LEVEL and LOG_DEV
// settings. An empty level means info, or debug in development mode; an
// invalid one falls back to that default and logs a warning.
func FromSettings(level string, development bool) *Logger {
	fallback := "info"
	if development {
		fallback = "debug"
	}
	if level == "" {
		level = fallback
	}

	logger, err := New(Config{Level: level, Development: development})
	if err == nil {
		return logger
	}

	logger = mustOrNop(New(Config{Level: fallback, Development: development}))
	logger.Warn("Invalid log level, using default",
		zap.String("level", level),
		zap.String("default", fallback),
		zap.Error(err))
	return logger
}

func mustOrNop(l *Logger, err error) *Logger {
	if err != nil {
		return NewNop()
	}
	return l
}
