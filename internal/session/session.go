// Package session is the mod session component. It owns the configuration,
// the loggers and sinks, the thruster registry and the fleet scheduler, and
// turns host lifecycle hooks into dispatcher events.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"github.com/realthrust/extension/internal/config"
	"github.com/realthrust/extension/internal/dispatcher"
	"github.com/realthrust/extension/internal/fleet"
	"github.com/realthrust/extension/internal/influx"
	"github.com/realthrust/extension/internal/logging"
	"github.com/realthrust/extension/internal/monitor"
	intOtel "github.com/realthrust/extension/internal/otel"
	"github.com/realthrust/extension/internal/storage"
	"github.com/realthrust/extension/internal/thruster"
	"github.com/realthrust/extension/pkg/core"
	"github.com/realthrust/extension/pkg/host"
)

// Event kinds routed through the dispatcher.
const (
	EventEntityAdded        = ":ENTITY:ADDED:"
	EventPlayerConnected    = ":PLAYER:CONNECTED:"
	EventPlayerDisconnected = ":PLAYER:DISCONNECTED:"
	EventFactionEdited      = ":FACTION:EDITED:"
	EventTransition         = ":REALISM:TRANSITION:"
	EventFleetStats         = ":FLEET:STATS:"
)

const (
	transitionBuffer = 1024
	statsBuffer      = 16
	connectTimeout   = 5 * time.Second
	flushTimeout     = 5 * time.Second
)

// ErrNotLoaded is returned by Unload before Load succeeded.
var ErrNotLoaded = errors.New("session not loaded")

// ErrPayload is returned by a handler given the wrong payload type.
var ErrPayload = errors.New("unexpected event payload")

// Host is what the session needs from the game.
type Host struct {
	Players  host.PlayerSource
	Factions host.FactionRegistry
	Forces   host.ForceApplicator
}

// Options tune where the session reads and writes.
type Options struct {
	// ConfigDir holds realthrust.cfg.json and the status file.
	ConfigDir string
	// LogWriter replaces the session log file when set.
	LogWriter io.Writer
	// Start names the log file; zero means now.
	Start time.Time
}

// Session is the mod session. Hooks must be called from the simulation thread.
type Session struct {
	id   string
	host Host
	opts Options

	logManager *logging.SlogManager
	logger     *slog.Logger
	logFile    *os.File
	logPath    string
	zlog       zerolog.Logger

	otel       *intOtel.Provider
	dispatcher *dispatcher.Dispatcher
	thrusters  *thruster.Registry
	fleet      *fleet.Scheduler
	monitor    *monitor.Service
	backend    storage.Backend
	influx     *influx.Manager

	loaded bool

	// Read by the log context handler from any goroutine.
	tick  atomic.Uint64
	grids atomic.Int64
}

// New returns an unloaded session.
func New(h Host, opts Options) *Session {
	if opts.Start.IsZero() {
		opts.Start = time.Now()
	}
	return &Session{
		id:         uuid.NewString(),
		host:       h,
		opts:       opts,
		logManager: logging.NewSlogManager(),
		logger:     slog.Default(),
		zlog:       zerolog.Nop(),
	}
}

// Load reads the configuration and brings up logging, sinks, the dispatcher,
// the thruster registry and the fleet scheduler. A missing or unreadable config
// file is logged and defaults apply; sink failures degrade to running without
// that sink.
func (s *Session) Load() error {
	if s.loaded {
		return nil
	}

	s.logManager.Setup(s.opts.LogWriter, "info", nil, "")
	s.logger = s.logManager.Logger()

	if err := config.Load(s.opts.ConfigDir); err != nil {
		s.logger.Warn("Failed to load config, using defaults!", "error", err)
	} else {
		s.logger.Info("Loaded config", "dir", s.opts.ConfigDir)
	}

	level := config.GetString("logLevel")
	out := s.openLog()

	otelCfg := config.GetOTelConfig()
	if otelCfg.Enabled {
		p, err := intOtel.New(intOtel.Config{
			Enabled:        otelCfg.Enabled,
			ServiceName:    otelCfg.ServiceName,
			BatchTimeout:   otelCfg.BatchTimeout,
			LogWriter:      out,
			Endpoint:       otelCfg.Endpoint,
			Insecure:       otelCfg.Insecure,
			MetricInterval: otelCfg.MetricInterval,
			Global:         true,
		})
		if err != nil {
			s.logger.Error("Failed to initialize OTel provider", "error", err)
		} else {
			s.otel = p
		}
	}

	var otelLogProvider *sdklog.LoggerProvider
	if s.otel != nil {
		otelLogProvider = s.otel.LoggerProvider()
	}
	var graylogAddr string
	if gl := config.GetGraylogConfig(); gl.Enabled {
		graylogAddr = gl.Address
	}
	s.logManager.ContextAttrs = s.contextAttrs
	s.logManager.Setup(out, level, otelLogProvider, graylogAddr)
	s.logger = s.logManager.Logger()
	if s.logPath != "" {
		s.logger.Info("Logging to file", "path", s.logPath)
	}

	s.zlog = logging.NewZerolog(out, level, "session")
	s.openSinks()

	d, err := dispatcher.New(logging.NewEventLogger(s.zlog.With().Str("component", "dispatcher").Logger()))
	if err != nil {
		return s.abort(fmt.Errorf("creating dispatcher: %w", err))
	}
	s.dispatcher = d

	s.thrusters = thruster.NewRegistry(s.host.Forces,
		logging.NewTickLogger(s.zlog.With().Str("component", "thruster").Logger()))

	f, err := fleet.New(fleet.Dependencies{
		Config:    config.GetSchedulerConfig(),
		Players:   s.host.Players,
		Factions:  s.host.Factions,
		Thrusters: s.thrusters,
		Logger:    s.logger.With("component", "fleet"),
		Recorder:  s,
	})
	if err != nil {
		return s.abort(fmt.Errorf("creating fleet scheduler: %w", err))
	}
	s.fleet = f

	s.registerHandlers()
	s.loaded = true
	s.logger.Info("Session loaded",
		"id", s.id,
		"window", config.GetSchedulerConfig().Window,
		"storage", config.GetStorageConfig().Type)
	return nil
}

// openLog creates the session log file and returns the writer every logger
// shares. Without a usable file it falls back to the initial writer.
func (s *Session) openLog() io.Writer {
	if s.opts.LogWriter != nil {
		return s.opts.LogWriter
	}

	file, err := logging.OpenFile(config.GetString("logsDir"), s.opts.Start)
	if err != nil {
		s.logger.Error("Failed to open log file, logging to stdout", "error", err)
		return os.Stdout
	}
	s.logFile = file
	s.logPath = file.Name()
	return file
}

func (s *Session) openSinks() {
	storageCfg := config.GetStorageConfig()
	backend, err := storage.NewBackend(storageCfg, s.zlog.With().Str("component", "storage").Logger())
	if err != nil {
		s.logger.Error("Storage unavailable, continuing without it", "type", storageCfg.Type, "error", err)
	} else if backend != nil {
		if err := backend.Init(); err != nil {
			s.logger.Error("Storage init failed, continuing without it", "type", storageCfg.Type, "error", err)
			backend.Close()
		} else {
			s.backend = backend
		}
	}

	var metrics monitor.MetricsWriter
	im := influx.NewManager(s.zlog.With().Str("component", "influx").Logger(), config.GetInfluxConfig())
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	err = im.Connect(ctx)
	cancel()
	switch {
	case errors.Is(err, influx.ErrDisabled):
	case err != nil:
		s.logger.Error("InfluxDB unavailable, continuing without it", "error", err)
		im.Close()
	default:
		s.influx = im
		metrics = im
	}

	statusCfg := config.GetStatusConfig()
	var statusFile string
	if statusCfg.File != "" {
		statusFile = filepath.Join(s.opts.ConfigDir, statusCfg.File)
	}
	var breaker monitor.BreakerConfig
	if statusCfg.BreakerFailures > 0 {
		breaker = monitor.BreakerConfig{
			Failures: uint32(statusCfg.BreakerFailures),
			Timeout:  statusCfg.BreakerTimeout,
		}
	}
	s.monitor = monitor.NewService(monitor.Dependencies{
		Logger:     s.logger.With("component", "monitor"),
		Backend:    s.backend,
		Metrics:    metrics,
		Interval:   statusCfg.Interval,
		StatusFile: statusFile,
		Breaker:    breaker,
	})
}

func (s *Session) abort(err error) error {
	s.logger.Error("Session load failed", "error", err)
	s.closeSinks()
	return err
}

// Unload resets every grid, drains queued records and closes every sink.
func (s *Session) Unload() error {
	if !s.loaded {
		return ErrNotLoaded
	}
	s.loaded = false

	s.fleet.Close()
	s.dispatcher.Close()
	s.grids.Store(0)
	s.logger.Info("Session unloaded",
		"ticks", s.fleet.Tick(),
		"transitions", s.monitor.Status().Transitions)
	return s.closeSinks()
}

func (s *Session) closeSinks() error {
	var errs []error
	if s.backend != nil {
		if err := s.backend.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing storage: %w", err))
		}
		s.backend = nil
	}
	if s.influx != nil {
		if err := s.influx.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing influx: %w", err))
		}
		s.influx = nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	if err := s.logManager.Flush(ctx); err != nil {
		errs = append(errs, fmt.Errorf("flushing logs: %w", err))
	}
	if s.otel != nil {
		if err := s.otel.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutting down otel: %w", err))
		}
		s.otel = nil
	}
	if err := s.logManager.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing graylog: %w", err))
	}
	if s.logFile != nil {
		if err := s.logFile.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing log file: %w", err))
		}
		s.logFile = nil
	}
	return errors.Join(errs...)
}

// BeforeSimulation runs the fleet scheduler tick and steps every active
// thruster unit.
func (s *Session) BeforeSimulation() {
	if !s.loaded {
		return
	}
	defer s.guard("before simulation")

	s.fleet.BeforeSimulation()
	s.thrusters.Step()
	s.tick.Store(s.fleet.Tick())
	s.grids.Store(int64(s.fleet.Len()))
}

// AfterSimulation queues a fleet snapshot when the monitor interval elapsed.
func (s *Session) AfterSimulation() {
	if !s.loaded {
		return
	}
	defer s.guard("after simulation")

	if s.monitor.Due() {
		stats := s.fleet.Stats()
		stats.Session = s.id
		s.dispatch(EventFleetStats, stats)
	}
}

// EntityAdded forwards a newly created entity.
func (s *Session) EntityAdded(e host.Entity) {
	s.dispatch(EventEntityAdded, e)
}

// PlayerConnected forwards a player join.
func (s *Session) PlayerConnected(id host.IdentityID) {
	s.dispatch(EventPlayerConnected, id)
}

// PlayerDisconnected forwards a player leave.
func (s *Session) PlayerDisconnected(id host.IdentityID) {
	s.dispatch(EventPlayerDisconnected, id)
}

// FactionEdited forwards a faction change.
func (s *Session) FactionEdited(factionID int64) {
	s.dispatch(EventFactionEdited, factionID)
}

// RecordTransition queues a realism change for the sinks.
func (s *Session) RecordTransition(t core.Transition) {
	t.Session = s.id
	s.dispatch(EventTransition, t)
}

func (s *Session) dispatch(kind string, payload any) {
	if !s.loaded {
		return
	}
	defer s.guard(kind)

	if err := s.dispatcher.Dispatch(dispatcher.Event{Kind: kind, Payload: payload}); err != nil {
		s.logger.Warn("Event not handled", "event", kind, "error", err)
	}
}

func (s *Session) guard(op string) {
	if r := recover(); r != nil {
		s.logger.Error("Session hook failed", "op", op, "panic", fmt.Sprint(r))
	}
}

func (s *Session) contextAttrs() []slog.Attr {
	return []slog.Attr{
		slog.String("session", s.id),
		slog.Uint64("tick", s.tick.Load()),
		slog.Int64("grids", s.grids.Load()),
	}
}

// ID returns the run identifier stamped on every record.
func (s *Session) ID() string {
	return s.id
}

// Fleet returns the fleet scheduler; nil before Load.
func (s *Session) Fleet() *fleet.Scheduler {
	return s.fleet
}

// Thrusters returns the thruster registry; nil before Load.
func (s *Session) Thrusters() *thruster.Registry {
	return s.thrusters
}

// Monitor returns the monitor service; nil before Load.
func (s *Session) Monitor() *monitor.Service {
	return s.monitor
}

// Backend returns the storage backend, nil when storage is off or failed.
func (s *Session) Backend() storage.Backend {
	return s.backend
}

// Logger returns the session logger.
func (s *Session) Logger() *slog.Logger {
	return s.logger
}

// Loaded reports whether Load succeeded and Unload has not run.
func (s *Session) Loaded() bool {
	return s.loaded
}
