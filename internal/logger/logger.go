package logger

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type options struct {
	level  string
	output string
}

// Option adjusts how New builds the logger
type Option func(*options)

// WithLevel overrides the environment's default level ("debug", "info", "warn", "error")
func WithLevel(level string) Option {
	return func(o *options) { o.level = level }
}

// WithOutput sends log lines to path instead of stdout. bortctl uses stderr so
// its JSON reports stay alone on stdout.
func WithOutput(path string) Option {
	return func(o *options) { o.output = path }
}

// New creates a structured logger: JSON in production, colored console otherwise
func New(env string, opts ...Option) (*zap.Logger, error) {
	o := options{output: "stdout"}
	for _, opt := range opts {
		opt(&o)
	}

	var config zap.Config
	if env == "production" {
		config = zap.NewProductionConfig()
		config.EncoderConfig.TimeKey = "timestamp"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	if o.level != "" {
		level, err := zap.ParseAtomicLevel(o.level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", o.level, err)
		}
		config.Level = level
	}

	config.OutputPaths = []string{o.output}
	config.ErrorOutputPaths = []string{"stderr"}

	logger, err := config.Build(
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
	if err != nil {
		return nil, err
	}

	return logger.With(zap.String("service", "bortsbooks")), nil
}

// NewWithDefaults creates a logger from SERVER_ENV, falling back to a production logger
func NewWithDefaults() *zap.Logger {
	env := os.Getenv("SERVER_ENV")
	if env == "" {
		env = "development"
	}

	logger, err := New(env, WithLevel(os.Getenv("LOG_LEVEL")))
	if err != nil {
		logger, _ = zap.NewProduction()
	}

	return logger
}

// Truncate shortens long values (HTML snippets, raw CSV cells) before they are logged
func Truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
