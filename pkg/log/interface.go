// Package log provides a structured logging interface for tabstack training
// and transform operations.
//
// The interface is slog-shaped so implementations can be swapped; the default
// provider is backed by zerolog. Components obtain named loggers through a
// LoggerProvider and attach workflow context with With:
//
//	logger := provider.GetLoggerWithName("Trainer").With(
//	    log.AlgorithmKey, "forest",
//	)
//	logger.Info("sweep finished", log.MetricKey, "auc", log.ScoreKey, 0.91)
package log

import "context"

// Logger is a structured logger with slog-style variadic key-value fields.
type Logger interface {
	// Debug logs detailed diagnostic information.
	Debug(msg string, fields ...any)

	// Info logs general operational information.
	Info(msg string, fields ...any)

	// Warn logs conditions that do not stop the workflow, such as a skipped
	// hyperparameter combination or an undefined fold metric.
	Warn(msg string, fields ...any)

	// Error logs error conditions. If the first field is an error value its
	// stack trace is included when available.
	Error(msg string, fields ...any)

	// With returns a new Logger with the given fields pre-populated.
	With(fields ...any) Logger

	// Enabled reports whether the logger emits records at the given level.
	Enabled(ctx context.Context, level Level) bool
}

// LoggerProvider creates loggers, optionally scoped to a component name.
type LoggerProvider interface {
	// GetLogger returns the default logger instance.
	GetLogger() Logger

	// GetLoggerWithName returns a logger tagged with a component identifier.
	GetLoggerWithName(name string) Logger
}

// Level represents a logging level, value-compatible with slog.Level.
type Level int

const (
	LevelDebug Level = -4
	LevelInfo  Level = 0
	LevelWarn  Level = 4
	LevelError Level = 8
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ToLogLevel parses a level name. Unknown names fall back to info.
func ToLogLevel(level string) Level {
	switch level {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Standard attribute keys for workflow logging.
const (
	ComponentKey = "component"
	AlgorithmKey = "algorithm"
	OperationKey = "operation"
	MetricKey    = "metric"
	ScoreKey     = "score"
	FoldKey      = "fold"
	RepeatKey    = "repeat"
	SamplesKey   = "samples"
	FeaturesKey  = "features"
	DurationKey  = "duration_ms"
	SeedKey      = "seed"
)
