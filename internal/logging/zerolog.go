package logging

import (
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// parseZerologLevel reads a config level name, defaulting to info.
func parseZerologLevel(level string) zerolog.Level {
	l, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || l == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return l
}

// NewZerolog builds the console-formatted zerolog logger handed to the storage
// and metrics managers.
func NewZerolog(w io.Writer, level string, component string) zerolog.Logger {
	out := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.RFC3339,
		NoColor:    true,
	}
	return zerolog.New(out).
		Level(parseZerologLevel(level)).
		With().Timestamp().Str("component", component).Logger()
}

// NewTickLogger returns a logger for code running every physics tick: at most 5
// entries per 10 seconds, then 1 in 100.
func NewTickLogger(base zerolog.Logger) zerolog.Logger {
	return base.With().Bool("sampled", true).Logger().Sample(&zerolog.BurstSampler{
		Burst:       5,
		Period:      10 * time.Second,
		NextSampler: &zerolog.BasicSampler{N: 100},
	})
}

// EventLogger adapts zerolog.Logger to the dispatcher.Logger interface.
// Key-value pairs become fields; a dangling key or a non-string key is
// dropped.
type EventLogger struct {
	logger zerolog.Logger
}

// NewEventLogger wraps logger.
func NewEventLogger(logger zerolog.Logger) *EventLogger {
	return &EventLogger{logger: logger}
}

func (l *EventLogger) Debug(msg string, keysAndValues ...any) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l *EventLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Info().Fields(keysAndValues).Msg(msg)
}

func (l *EventLogger) Error(msg string, keysAndValues ...any) {
	l.logger.Error().Fields(keysAndValues).Msg(msg)
}
