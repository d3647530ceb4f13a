package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errSink = errors.New("sink down")

// failing accepts everything and fails every write.
type failing struct{ slog.Handler }

func (failing) Enabled(context.Context, slog.Level) bool { return true }

func (failing) Handle(context.Context, slog.Record) error { return errSink }

func textAt(buf *bytes.Buffer, level slog.Level) slog.Handler {
	return slog.NewTextHandler(buf, &slog.HandlerOptions{Level: level})
}

func TestFanout(t *testing.T) {
	ctx := context.Background()

	t.Run("every output gets the record", func(t *testing.T) {
		var a, b bytes.Buffer
		slog.New(newFanout(textAt(&a, slog.LevelInfo), nil, textAt(&b, slog.LevelInfo))).Info("thrust applied")
		assert.Contains(t, a.String(), "thrust applied")
		assert.Contains(t, b.String(), "thrust applied")
	})

	t.Run("level is the most verbose output", func(t *testing.T) {
		var a, b bytes.Buffer
		f := newFanout(textAt(&a, slog.LevelWarn), textAt(&b, slog.LevelDebug))
		assert.True(t, f.Enabled(ctx, slog.LevelDebug))

		slog.New(f).Debug("roster refreshed")
		assert.Empty(t, a.String())
		assert.Contains(t, b.String(), "roster refreshed")
	})

	t.Run("empty accepts nothing", func(t *testing.T) {
		assert.False(t, newFanout().Enabled(ctx, slog.LevelError))
		assert.False(t, newFanout(nil).Enabled(ctx, slog.LevelError))
	})

	t.Run("failed output does not stop the rest", func(t *testing.T) {
		var buf bytes.Buffer
		f := newFanout(failing{}, textAt(&buf, slog.LevelInfo))
		r := slog.NewRecord(start, slog.LevelInfo, "grid closed", 0)

		err := f.Handle(ctx, r)
		assert.ErrorIs(t, err, errSink)
		assert.Contains(t, buf.String(), "grid closed")
	})

	t.Run("attrs and groups reach every output", func(t *testing.T) {
		var a, b bytes.Buffer
		f := newFanout(textAt(&a, slog.LevelInfo), textAt(&b, slog.LevelInfo))
		slog.New(f.WithAttrs([]slog.Attr{slog.String("component", "fleet")}).WithGroup("grid")).Info("added", "id", 7)

		for _, out := range []string{a.String(), b.String()} {
			assert.Contains(t, out, "component=fleet")
			assert.Contains(t, out, "grid.id=7")
		}
		assert.Len(t, f.WithGroup("").(fanout), 2)
	})
}

func TestStamped(t *testing.T) {
	var buf bytes.Buffer
	tick := 40
	h := stamped{
		next: textAt(&buf, slog.LevelInfo),
		attrs: func() []slog.Attr {
			tick++
			return []slog.Attr{slog.Int("tick", tick)}
		},
	}

	logger := slog.New(h.WithAttrs([]slog.Attr{slog.String("component", "session")}))
	logger.Info("first")
	logger.Info("second")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	assert.Contains(t, string(lines[0]), "tick=41")
	assert.Contains(t, string(lines[1]), "tick=42")
	assert.Contains(t, string(lines[1]), "component=session")

	assert.False(t, h.Enabled(context.Background(), slog.LevelDebug))
	_, ok := h.WithGroup("").(stamped)
	assert.True(t, ok)
}
