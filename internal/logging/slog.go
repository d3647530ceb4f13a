package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// swapped by tests
var (
	osStdout = os.Stdout
	osPipe   = os.Pipe
)

// SlogManager manages slog-based logging with optional OTel and Graylog outputs.
type SlogManager struct {
	logger *slog.Logger

	// OTel provider for flushing
	logProvider *sdklog.LoggerProvider

	graylog io.Closer

	// ContextAttrs, when set, is called for every record to add live session state.
	ContextAttrs ContextProvider
}

// NewSlogManager creates a new slog-based logging manager.
func NewSlogManager() *SlogManager {
	return &SlogManager{}
}

// parseLevel reads a slog level name, case-insensitively and with an optional
// offset such as "warn+2". Anything else is info.
func parseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

func handlerOptions(level string) *slog.HandlerOptions {
	return &slog.HandlerOptions{
		Level: parseLevel(level),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
				}
			}
			return a
		},
	}
}

// Setup initializes the logging system.
// Records go to file when one is given and to stdout otherwise; if provider is
// non-nil they are also bridged to OTel, and graylogAddr (host:port) adds a GELF
// output. A Graylog connection failure is logged and otherwise ignored.
func (m *SlogManager) Setup(file io.Writer, level string, provider *sdklog.LoggerProvider, graylogAddr string) {
	m.logProvider = provider
	if m.graylog != nil {
		m.graylog.Close()
		m.graylog = nil
	}

	opts := handlerOptions(level)
	var handlers []slog.Handler

	if file != nil {
		handlers = append(handlers, slog.NewTextHandler(file, opts))
	} else {
		handlers = append(handlers, slog.NewTextHandler(osStdout, opts))
	}

	if provider != nil {
		handlers = append(handlers, otelslog.NewHandler("realthrust", otelslog.WithLoggerProvider(provider)))
	}

	var graylogErr error
	if graylogAddr != "" {
		h, closer, err := NewGraylogHandler(graylogAddr, opts)
		if err != nil {
			graylogErr = err
		} else {
			handlers = append(handlers, h)
			m.graylog = closer
		}
	}

	var root slog.Handler = newFanout(handlers...)
	if m.ContextAttrs != nil {
		root = stamped{next: root, attrs: m.ContextAttrs}
	}

	m.logger = slog.New(root)
	m.logger.Info("Logging initialized", "level", level)
	if graylogErr != nil {
		m.logger.Warn("Graylog output disabled", "address", graylogAddr, "error", graylogErr)
	}
}

// Logger returns the configured slog.Logger.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		// Return a default logger if Setup hasn't been called
		return slog.Default()
	}
	return m.logger
}

// Flush forces a flush of OTel logs if available.
func (m *SlogManager) Flush(ctx context.Context) error {
	if m.logProvider != nil {
		return m.logProvider.ForceFlush(ctx)
	}
	return nil
}

// Close releases the Graylog connection.
func (m *SlogManager) Close() error {
	if m.graylog == nil {
		return nil
	}
	err := m.graylog.Close()
	m.graylog = nil
	return err
}
