package fleet

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/realthrust/extension/internal/fleet"

type metrics struct {
	grids       metric.Int64ObservableGauge
	updates     metric.Int64Counter
	removed     metric.Int64Counter
	transitions metric.Int64Counter
}

func newMetrics(s *Scheduler) (*metrics, error) {
	m := otel.Meter(instrumentationName)
	out := &metrics{}

	var err error
	out.grids, err = m.Int64ObservableGauge(
		"fleet.grids",
		metric.WithDescription("Grid logic instances by state"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating grids gauge: %w", err)
	}

	// Runs on the SDK's collection goroutine.
	_, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			o.ObserveInt64(out.grids, int64(s.gridsActive.Load()),
				metric.WithAttributes(attribute.String("state", "active")))
			o.ObserveInt64(out.grids, int64(s.gridsPooled.Load()),
				metric.WithAttributes(attribute.String("state", "pooled")))
			return nil
		},
		out.grids,
	)
	if err != nil {
		return nil, fmt.Errorf("registering grids callback: %w", err)
	}

	out.updates, err = m.Int64Counter(
		"fleet.updates",
		metric.WithDescription("Total grid logic updates"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating updates counter: %w", err)
	}

	out.removed, err = m.Int64Counter(
		"fleet.grids.removed",
		metric.WithDescription("Total grids torn down after close"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating removed counter: %w", err)
	}

	out.transitions, err = m.Int64Counter(
		"fleet.realism.transitions",
		metric.WithDescription("Total realism level changes"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating transitions counter: %w", err)
	}

	return out, nil
}
