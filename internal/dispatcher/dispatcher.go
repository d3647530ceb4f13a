// Package dispatcher routes host callbacks to their handlers.
//
// Handlers run on the caller's goroutine unless registered with Buffered, in
// which case a dedicated goroutine drains a bounded queue. Every handler is
// isolated: a panic becomes a PanicError instead of unwinding into the host.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/sourcegraph/conc"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/realthrust/extension/internal/dispatcher"

// ErrUnknownEvent is returned by Dispatch for an event kind with no handler.
var ErrUnknownEvent = errors.New("unknown event")

// ErrQueueFull is returned by a non-blocking buffered handler when its queue is full.
var ErrQueueFull = errors.New("queue full")

// ErrClosed is returned after Close.
var ErrClosed = errors.New("dispatcher closed")

// Event is one host callback.
type Event struct {
	Kind      string
	Payload   any
	Timestamp time.Time
}

// HandlerFunc processes an event.
type HandlerFunc func(Event) error

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// PanicError wraps a value recovered from a panicking handler.
type PanicError struct {
	Kind  string
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("handler for %s panicked: %v", e.Kind, e.Value)
}

// Option configures handler registration.
type Option func(*config)

type config struct {
	bufferSize int
	blocking   bool
	logged     bool
}

// Buffered makes the handler async with a queue of the given size.
func Buffered(size int) Option {
	return func(c *config) {
		c.bufferSize = size
	}
}

// Blocking makes a buffered handler block when the queue is full instead of dropping.
func Blocking() Option {
	return func(c *config) {
		c.blocking = true
	}
}

// Logged adds debug logging to the handler.
func Logged() Option {
	return func(c *config) {
		c.logged = true
	}
}

// Dispatcher routes events to registered handlers.
type Dispatcher struct {
	handlers map[string]HandlerFunc
	logger   Logger
	metrics  instruments

	mu      sync.RWMutex
	buffers map[string]chan Event
	closed  bool
	wg      conc.WaitGroup
}

type instruments struct {
	processed metric.Int64Counter
	failed    metric.Int64Counter
	dropped   metric.Int64Counter
	depth     metric.Int64ObservableGauge
}

// New creates a Dispatcher. Its instruments come from the global meter
// provider, so they are no-ops until one is installed.
func New(logger Logger) (*Dispatcher, error) {
	return newWithMeter(logger, otel.Meter(meterName))
}

func newWithMeter(logger Logger, m metric.Meter) (*Dispatcher, error) {
	d := &Dispatcher{
		handlers: make(map[string]HandlerFunc),
		buffers:  make(map[string]chan Event),
		logger:   logger,
	}
	if err := d.instrument(m); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Dispatcher) instrument(m metric.Meter) error {
	var errs []error
	counter := func(name, desc string) metric.Int64Counter {
		c, err := m.Int64Counter(name, metric.WithDescription(desc))
		if err != nil {
			errs = append(errs, fmt.Errorf("creating %s: %w", name, err))
		}
		return c
	}
	d.metrics.processed = counter("dispatcher.events.processed", "Events handled")
	d.metrics.failed = counter("dispatcher.events.failed", "Events whose handler returned an error or panicked")
	d.metrics.dropped = counter("dispatcher.events.dropped", "Events refused by a full queue")
	if err := errors.Join(errs...); err != nil {
		return err
	}

	var err error
	d.metrics.depth, err = m.Int64ObservableGauge("dispatcher.queue.depth",
		metric.WithDescription("Events waiting in a buffered handler's queue"))
	if err != nil {
		return fmt.Errorf("creating queue gauge: %w", err)
	}
	_, err = m.RegisterCallback(d.observeDepth, d.metrics.depth)
	if err != nil {
		return fmt.Errorf("registering queue callback: %w", err)
	}
	return nil
}

func (d *Dispatcher) observeDepth(_ context.Context, o metric.Observer) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for kind, buf := range d.buffers {
		o.ObserveInt64(d.metrics.depth, int64(len(buf)), eventAttr(kind))
	}
	return nil
}

func eventAttr(kind string) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("event", kind))
}

// Register adds a handler for the given event kind with optional configuration.
// Registering a kind twice replaces the first handler.
func (d *Dispatcher) Register(kind string, h HandlerFunc, opts ...Option) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	handler := d.withRecover(kind, h)

	if cfg.logged {
		handler = d.withLogging(kind, handler)
	}

	handler = d.withCounters(kind, handler)

	if cfg.bufferSize > 0 {
		handler = d.withBuffer(kind, cfg.bufferSize, cfg.blocking, handler)
	}

	d.handlers[kind] = handler
}

// Dispatch routes an event to its registered handler. A zero Timestamp is set
// to now.
func (d *Dispatcher) Dispatch(e Event) error {
	h, ok := d.handlers[e.Kind]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEvent, e.Kind)
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	return h(e)
}

// HasHandler returns true if a handler is registered for the event kind.
func (d *Dispatcher) HasHandler(kind string) bool {
	_, ok := d.handlers[kind]
	return ok
}

// Close stops accepting buffered events and waits until every queue is drained.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, buf := range d.buffers {
		close(buf)
	}
	d.mu.Unlock()

	d.wg.Wait()
}

func (d *Dispatcher) withRecover(kind string, h HandlerFunc) HandlerFunc {
	return func(e Event) (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = &PanicError{Kind: kind, Value: r, Stack: debug.Stack()}
			}
		}()
		return h(e)
	}
}

func (d *Dispatcher) withCounters(kind string, h HandlerFunc) HandlerFunc {
	attrs := eventAttr(kind)
	return func(e Event) error {
		err := h(e)
		d.metrics.processed.Add(context.Background(), 1, attrs)
		if err != nil {
			d.metrics.failed.Add(context.Background(), 1, attrs)
		}
		return err
	}
}

func (d *Dispatcher) withBuffer(kind string, size int, blocking bool, h HandlerFunc) HandlerFunc {
	buffer := make(chan Event, size)

	d.mu.Lock()
	d.buffers[kind] = buffer
	d.mu.Unlock()

	attrs := eventAttr(kind)

	d.wg.Go(func() {
		for e := range buffer {
			if err := h(e); err != nil {
				d.logger.Error("buffered event failed", "event", kind, "error", err)
			}
		}
	})

	send := func(e Event) error {
		d.mu.RLock()
		defer d.mu.RUnlock()
		if d.closed {
			return ErrClosed
		}
		if blocking {
			buffer <- e
			return nil
		}
		select {
		case buffer <- e:
			return nil
		default:
			d.metrics.dropped.Add(context.Background(), 1, attrs)
			return fmt.Errorf("%w: %s", ErrQueueFull, kind)
		}
	}
	return send
}

func (d *Dispatcher) withLogging(kind string, h HandlerFunc) HandlerFunc {
	return func(e Event) error {
		start := time.Now()
		d.logger.Debug("handling event", "event", kind, "payload", fmt.Sprintf("%T", e.Payload))

		err := h(e)

		if err != nil {
			d.logger.Error("event failed", "event", kind, "duration", time.Since(start), "error", err)
		} else {
			d.logger.Debug("event complete", "event", kind, "duration", time.Since(start))
		}

		return err
	}
}
