package otel

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Disabled(t *testing.T) {
	p, err := New(Config{Enabled: false, MetricInterval: time.Second})
	require.NoError(t, err)

	assert.False(t, p.Enabled())
	assert.False(t, p.MetricsEnabled())
	assert.Nil(t, p.LoggerProvider())
	assert.NoError(t, p.Flush(context.Background()))
	assert.NoError(t, p.Shutdown(context.Background()))
	assert.NotNil(t, p.Meter("test"))
}

func TestNew_EnabledWithoutSink(t *testing.T) {
	_, err := New(Config{Enabled: true, ServiceName: "realthrust"})
	assert.ErrorIs(t, err, ErrNoSink)
}

func TestNew_LogsOnly(t *testing.T) {
	var buf bytes.Buffer
	p, err := New(Config{
		Enabled:      true,
		ServiceName:  "realthrust",
		BatchTimeout: time.Second,
		LogWriter:    &buf,
	})
	require.NoError(t, err)
	require.NotNil(t, p.LoggerProvider())
	assert.False(t, p.MetricsEnabled())

	ctx := context.Background()
	assert.NoError(t, p.Flush(ctx))
	assert.NoError(t, p.Shutdown(ctx))
}

func TestNew_MetricsExportedOnFlush(t *testing.T) {
	var buf bytes.Buffer
	p, err := New(Config{
		Enabled:        true,
		ServiceName:    "realthrust",
		BatchTimeout:   time.Second,
		LogWriter:      &buf,
		MetricInterval: time.Hour,
	})
	require.NoError(t, err)
	require.True(t, p.MetricsEnabled())

	ctx := context.Background()
	counter, err := p.Meter("test").Int64Counter("fleet.test.counter")
	require.NoError(t, err)
	counter.Add(ctx, 3)

	require.NoError(t, p.Flush(ctx))
	assert.Contains(t, buf.String(), "fleet.test.counter")
	assert.NoError(t, p.Shutdown(ctx))
}
