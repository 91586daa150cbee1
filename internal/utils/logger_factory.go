package utils

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	unsupportedLogLevelTemplateConstant  = "unsupported log level: %s"
	unsupportedLogFormatTemplateConstant = "unsupported log format: %s"
	loggerBuildErrorTemplateConstant     = "unable to build %s logger: %w"
	runIdentifierFieldNameConstant       = "run_id"
)

// LogLevel enumerates supported logging granularities.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// LogFormat enumerates supported logger output encodings.
type LogFormat string

const (
	// LogFormatStructured emits one JSON object per entry.
	LogFormatStructured LogFormat = "structured"
	// LogFormatConsole emits human-readable lines without stack traces.
	LogFormatConsole LogFormat = "console"
)

// loggerProfile adjusts a production zap configuration for one output format.
type loggerProfile func(configuration *zap.Config)

var zapLevels = map[LogLevel]zapcore.Level{
	LogLevelDebug: zapcore.DebugLevel,
	LogLevelInfo:  zapcore.InfoLevel,
	LogLevelWarn:  zapcore.WarnLevel,
	LogLevelError: zapcore.ErrorLevel,
}

var loggerProfiles = map[LogFormat]loggerProfile{
	LogFormatStructured: func(configuration *zap.Config) {
		configuration.Encoding = "json"
	},
	LogFormatConsole: func(configuration *zap.Config) {
		configuration.Encoding = "console"
		configuration.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		configuration.DisableStacktrace = true
	},
}

// LoggerFactory builds the zap loggers used by every subsync command.
type LoggerFactory struct{}

// NewLoggerFactory constructs a new logger factory.
func NewLoggerFactory() *LoggerFactory {
	return &LoggerFactory{}
}

// CreateLogger builds a logger writing to stderr at the requested level and format. Level and format names
// are matched case-insensitively after trimming.
func (factory *LoggerFactory) CreateLogger(requestedLogLevel LogLevel, requestedLogFormat LogFormat) (*zap.Logger, error) {
	zapLevel, levelKnown := zapLevels[LogLevel(normalizeName(string(requestedLogLevel)))]
	if !levelKnown {
		return nil, fmt.Errorf(unsupportedLogLevelTemplateConstant, requestedLogLevel)
	}
	applyProfile, formatKnown := loggerProfiles[LogFormat(normalizeName(string(requestedLogFormat)))]
	if !formatKnown {
		return nil, fmt.Errorf(unsupportedLogFormatTemplateConstant, requestedLogFormat)
	}

	configuration := zap.NewProductionConfig()
	configuration.Level = zap.NewAtomicLevelAt(zapLevel)
	configuration.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	applyProfile(&configuration)

	logger, buildError := configuration.Build()
	if buildError != nil {
		return nil, fmt.Errorf(loggerBuildErrorTemplateConstant, requestedLogFormat, buildError)
	}
	return logger, nil
}

// WithRunIdentifier returns a child logger tagging every entry with the run identifier.
func WithRunIdentifier(logger *zap.Logger, runIdentifier string) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	if len(runIdentifier) == 0 {
		return logger
	}
	return logger.With(zap.String(runIdentifierFieldNameConstant, runIdentifier))
}

func normalizeName(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
