package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// captureStdout points the stdout fallback at a pipe until the returned
// function is called, which returns what was written.
func captureStdout(t *testing.T) func() string {
	t.Helper()

	r, w, err := osPipe()
	require.NoError(t, err)
	saved := osStdout
	osStdout = w

	return func() string {
		w.Close()
		osStdout = saved
		var buf bytes.Buffer
		buf.ReadFrom(r)
		r.Close()
		return buf.String()
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"Warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"warn+2":  slog.LevelWarn + 2,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, parseLevel(in))
		})
	}
}

func TestSetup_Levels(t *testing.T) {
	tests := []struct {
		level     string
		wantDebug bool
		wantInfo  bool
	}{
		{"debug", true, true},
		{"info", false, true},
		{"error", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			m := NewSlogManager()
			m.Setup(&buf, tt.level, nil, "")

			m.Logger().Debug("roster refreshed")
			m.Logger().Info("grid added")

			assert.Equal(t, tt.wantDebug, bytes.Contains(buf.Bytes(), []byte("roster refreshed")))
			assert.Equal(t, tt.wantInfo, bytes.Contains(buf.Bytes(), []byte("grid added")))
		})
	}
}

func TestSetup_Destination(t *testing.T) {
	t.Run("file keeps stdout quiet", func(t *testing.T) {
		done := captureStdout(t)
		var file bytes.Buffer
		m := NewSlogManager()
		m.Setup(&file, "info", nil, "")
		m.Logger().Info("to file")

		assert.Empty(t, done())
		assert.Contains(t, file.String(), "Logging initialized")
		assert.Contains(t, file.String(), "to file")
	})

	t.Run("no file falls back to stdout", func(t *testing.T) {
		done := captureStdout(t)
		m := NewSlogManager()
		m.Setup(nil, "info", nil, "")
		m.Logger().Info("to console")

		assert.Contains(t, done(), "to console")
	})

	t.Run("second setup moves output", func(t *testing.T) {
		var before, after bytes.Buffer
		m := NewSlogManager()
		m.Setup(&before, "info", nil, "")
		m.Setup(&after, "info", nil, "")
		m.Logger().Info("moved")

		assert.NotContains(t, before.String(), "moved")
		assert.Contains(t, after.String(), "moved")
	})
}

func TestSetup_TimesAreUTC(t *testing.T) {
	var buf bytes.Buffer
	m := NewSlogManager()
	m.Setup(&buf, "info", nil, "")
	assert.Regexp(t, `time=\d{4}-\d\d-\d\dT\d\d:\d\d:\d\dZ `, buf.String())
}

func TestSetup_StampsContext(t *testing.T) {
	var buf bytes.Buffer
	m := NewSlogManager()
	calls := 0
	m.ContextAttrs = func() []slog.Attr {
		calls++
		return []slog.Attr{slog.Int("tick", calls), slog.Int("grids", 12)}
	}
	m.Setup(&buf, "info", nil, "")
	m.Logger().Info("tick done")

	assert.Contains(t, buf.String(), "grids=12")
	assert.Contains(t, buf.String(), "tick=2", "Setup logs once before this record")
}

func TestSlogManager_OTel(t *testing.T) {
	provider := sdklog.NewLoggerProvider()
	t.Cleanup(func() { provider.Shutdown(context.Background()) })

	var buf bytes.Buffer
	m := NewSlogManager()
	m.Setup(&buf, "info", provider, "")
	m.Logger().Info("bridged")

	assert.Contains(t, buf.String(), "bridged")
	assert.NoError(t, m.Flush(context.Background()))
}

func TestSlogManager_Unconfigured(t *testing.T) {
	m := NewSlogManager()
	assert.Same(t, slog.Default(), m.Logger())
	assert.NoError(t, m.Flush(context.Background()))
	assert.NoError(t, m.Close())
}

func TestSetup_Graylog(t *testing.T) {
	t.Run("bad address only warns", func(t *testing.T) {
		var buf bytes.Buffer
		m := NewSlogManager()
		m.Setup(&buf, "info", nil, "no-port")
		m.Logger().Info("still here")

		assert.Contains(t, buf.String(), "Graylog output disabled")
		assert.Contains(t, buf.String(), "still here")
		assert.NoError(t, m.Close())
	})

	t.Run("udp output", func(t *testing.T) {
		var buf bytes.Buffer
		m := NewSlogManager()
		m.Setup(&buf, "info", nil, "127.0.0.1:12201")
		m.Logger().Info("shipped")

		assert.NotContains(t, buf.String(), "Graylog output disabled")
		assert.NoError(t, m.Close())
		assert.NoError(t, m.Close(), "closing twice is fine")
	})
}
