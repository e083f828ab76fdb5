// Package log provides structured logging for the bloomcast pipeline, backed
// by zerolog. Components obtain a named Logger and attach structured fields
// with the shared key constants so stage logs stay machine-parseable.
package log

import (
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Structured field keys shared across the pipeline.
const (
	ComponentKey = "component"
	ModelNameKey = "model"
	OperationKey = "operation"
	PhaseKey     = "phase"
	SamplesKey   = "samples"
	FeaturesKey  = "features"
	SeedKey      = "seed"
	ColumnKey    = "column"
	StageKey     = "stage"
)

// Common operation and phase values.
const (
	OperationFit       = "fit"
	OperationTransform = "transform"
	OperationPredict   = "predict"
	PhaseTraining      = "training"
	PhaseEvaluation    = "evaluation"
)

var (
	mu         sync.RWMutex
	baseLogger = zerolog.New(os.Stderr).With().Timestamp().Logger().Level(zerolog.InfoLevel)
)

// Logger is the minimal structured logging capability handed to components.
// Fields are alternating key/value pairs.
type Logger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
	With(fields ...interface{}) Logger
}

// LoggerProvider creates named loggers. A provider is process-wide; packages
// lazily create one with NewZerologProvider when none was injected.
type LoggerProvider interface {
	GetLoggerWithName(name string) Logger
}

// ToLogLevel parses a level string ("debug", "info", "warn", "error") into a
// zerolog level, defaulting to info.
func ToLogLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// SetupLogger configures the process-wide logger at the given level.
func SetupLogger(level string) {
	mu.Lock()
	defer mu.Unlock()
	baseLogger = zerolog.New(os.Stderr).With().Timestamp().Logger().Level(ToLogLevel(level))
}

// GetLogger returns the underlying zerolog.Logger for callers that want the
// full chained API.
func GetLogger() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return baseLogger
}

// GetLoggerWithName returns a named Logger using the process-wide backend.
func GetLoggerWithName(name string) Logger {
	return &zerologAdapter{logger: GetLogger().With().Str(ComponentKey, name).Logger()}
}

// LogError logs err at error level with a message.
func LogError(err error, msg string) {
	l := GetLogger()
	l.Error().Err(err).Msg(msg)
}

// ZerologProvider is a LoggerProvider backed by zerolog.
type ZerologProvider struct {
	level zerolog.Level
}

// NewZerologProvider creates a provider emitting at the given level.
func NewZerologProvider(level zerolog.Level) LoggerProvider {
	return &ZerologProvider{level: level}
}

// GetLoggerWithName returns a named Logger at the provider's level.
func (p *ZerologProvider) GetLoggerWithName(name string) Logger {
	l := zerolog.New(os.Stderr).With().Timestamp().Str(ComponentKey, name).Logger().Level(p.level)
	return &zerologAdapter{logger: l}
}

type zerologAdapter struct {
	logger zerolog.Logger
}

func (a *zerologAdapter) Debug(msg string, fields ...interface{}) {
	emit(a.logger.Debug(), msg, fields)
}

func (a *zerologAdapter) Info(msg string, fields ...interface{}) {
	emit(a.logger.Info(), msg, fields)
}

func (a *zerologAdapter) Warn(msg string, fields ...interface{}) {
	emit(a.logger.Warn(), msg, fields)
}

func (a *zerologAdapter) Error(msg string, fields ...interface{}) {
	emit(a.logger.Error(), msg, fields)
}

func (a *zerologAdapter) With(fields ...interface{}) Logger {
	ctx := a.logger.With()
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		ctx = ctx.Interface(key, fields[i+1])
	}
	return &zerologAdapter{logger: ctx.Logger()}
}

func emit(ev *zerolog.Event, msg string, fields []interface{}) {
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		switch v := fields[i+1].(type) {
		case string:
			ev = ev.Str(key, v)
		case int:
			ev = ev.Int(key, v)
		case int64:
			ev = ev.Int64(key, v)
		case float64:
			ev = ev.Float64(key, v)
		case bool:
			ev = ev.Bool(key, v)
		case error:
			ev = ev.AnErr(key, v)
		default:
			ev = ev.Interface(key, v)
		}
	}
	ev.Msg(msg)
}
