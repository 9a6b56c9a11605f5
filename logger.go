package fetchx

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Logger is the minimal structured logging surface used for debug output.
// Key/value pairs follow the message in alternating order.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// DebugConfig controls which pipeline stages emit debug logs.
type DebugConfig struct {
	Enabled      bool
	LogRequests  bool
	LogRetries   bool
	LogHooks     bool
	LogCookies   bool
	RequestIDGen func() string
}

// DefaultDebugConfig returns a disabled config with all stages selected, so
// WithDebug lights everything up at once.
func DefaultDebugConfig() *DebugConfig {
	return &DebugConfig{
		Enabled:      false,
		LogRequests:  true,
		LogRetries:   true,
		LogHooks:     true,
		LogCookies:   true,
		RequestIDGen: DefaultRequestIDGenerator,
	}
}

// DefaultRequestIDGenerator returns a short unique ID for correlating one
// logical call's log lines.
func DefaultRequestIDGenerator() string {
	return uuid.NewString()[:8]
}

// zerologLogger adapts a zerolog.Logger to the Logger interface.
type zerologLogger struct {
	logger zerolog.Logger
}

// NewZerologLogger wraps a zerolog.Logger so it can serve as the client's
// debug logger.
func NewZerologLogger(logger zerolog.Logger) Logger {
	return &zerologLogger{logger: logger}
}

// NewSimpleLogger returns a human-readable console logger writing to
// stderr.
func NewSimpleLogger() Logger {
	writer := zerolog.ConsoleWriter{Out: os.Stderr}
	return &zerologLogger{logger: zerolog.New(writer).With().Timestamp().Logger()}
}

func (l *zerologLogger) Debug(msg string, keysAndValues ...any) {
	l.log(l.logger.Debug(), msg, keysAndValues)
}

func (l *zerologLogger) Info(msg string, keysAndValues ...any) {
	l.log(l.logger.Info(), msg, keysAndValues)
}

func (l *zerologLogger) Warn(msg string, keysAndValues ...any) {
	l.log(l.logger.Warn(), msg, keysAndValues)
}

func (l *zerologLogger) Error(msg string, keysAndValues ...any) {
	l.log(l.logger.Error(), msg, keysAndValues)
}

func (l *zerologLogger) log(event *zerolog.Event, msg string, keysAndValues []any) {
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			key = fmt.Sprint(keysAndValues[i])
		}
		event = event.Interface(key, keysAndValues[i+1])
	}
	event.Msg(msg)
}
