package monitor

import (
	"log/slog"

	"github.com/sony/gobreaker"
)

// sink runs writes to one output through an optional circuit breaker.
type sink struct {
	breaker *gobreaker.CircuitBreaker
}

func newSink(name string, cfg BreakerConfig, log *slog.Logger) *sink {
	if cfg.Failures == 0 {
		return &sink{}
	}
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.Failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("Sink breaker state changed",
				"sink", name,
				"from", from.String(),
				"to", to.String())
		},
	}
	return &sink{breaker: gobreaker.NewCircuitBreaker(settings)}
}

func (s *sink) write(fn func() error) error {
	if s.breaker == nil {
		return fn()
	}
	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	return err
}

// state reports the breaker state; a sink without a breaker is always closed.
func (s *sink) state() gobreaker.State {
	if s.breaker == nil {
		return gobreaker.StateClosed
	}
	return s.breaker.State()
}
