// Package supervisor runs a collection of chat endpoints as one unit.
// Start launches every held run-loop, Shutdown requests their final
// close, and Join blocks until the collection drains. Endpoints built
// through the configured Factory are rebuilt in place after a final
// close when respawning is enabled; adopted endpoints are only reaped.
package supervisor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/SarahisCode/basebot/config"
	"github.com/SarahisCode/basebot/errors"
	"github.com/SarahisCode/basebot/metric"
)

// Endpoint is one supervised unit. *client.Client satisfies it; tests
// substitute scripted implementations.
type Endpoint interface {
	// Run drives the endpoint until its final close and reports the
	// terminal error, nil when the close was deliberate.
	Run(ctx context.Context) error

	// Close requests the final close. It must be callable at any point
	// of the endpoint's life, including before Run and more than once.
	Close() error

	// Config describes where the endpoint currently lives. Replacements
	// are built from this snapshot, so a room change made at runtime
	// survives a respawn.
	Config() config.EndpointConfig
}

// Factory builds a fresh endpoint from a bot definition. The manifest
// Kind and Behavior ride along, so a single factory can rebuild every
// bot a manifest names.
type Factory func(cfg config.BotConfig) (Endpoint, error)

type entry struct {
	id       uuid.UUID
	endpoint Endpoint
	spec     config.BotConfig
	managed  bool // built by the factory, eligible for respawn
	launched bool
}

// Supervisor holds a set of endpoints and their run-loop goroutines.
// The zero value is not usable; construct with New.
type Supervisor struct {
	logger       *slog.Logger
	metrics      *metric.Metrics
	factory      Factory
	respawn      bool
	respawnDelay time.Duration

	mu           sync.Mutex
	cond         *sync.Cond
	entries      map[uuid.UUID]*entry
	started      bool
	shuttingDown bool
	runCtx       context.Context

	stop chan struct{} // closed once by Shutdown
}

// Option configures a Supervisor at construction.
type Option func(*Supervisor) error

// WithLogger sets the supervisor's logger. A nil logger restores the
// default.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Supervisor) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithMetrics attaches a metrics sink, shared with the endpoints it
// supervises.
func WithMetrics(m *metric.Metrics) Option {
	return func(s *Supervisor) error {
		s.metrics = m
		return nil
	}
}

// WithFactory sets the factory used by Spawn and by respawns.
func WithFactory(f Factory) Option {
	return func(s *Supervisor) error {
		s.factory = f
		return nil
	}
}

// WithRespawn enables rebuilding managed endpoints after a final close,
// waiting delay before each replacement's run-loop starts. A delay of
// zero or less keeps the default.
func WithRespawn(delay time.Duration) Option {
	return func(s *Supervisor) error {
		s.respawn = true
		if delay > 0 {
			s.respawnDelay = delay
		}
		return nil
	}
}

// New builds an empty Supervisor.
func New(opts ...Option) (*Supervisor, error) {
	s := &Supervisor{
		logger:       slog.Default(),
		respawnDelay: config.DefaultRespawnDelay,
		entries:      make(map[uuid.UUID]*entry),
		stop:         make(chan struct{}),
	}
	s.cond = sync.NewCond(&s.mu)
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, errors.WrapInvalid(err, "Supervisor", "New", "apply option")
		}
	}
	s.logger = s.logger.With("component", "supervisor")
	return s, nil
}

// Spawn builds an endpoint for cfg through the factory and registers it
// as a managed entry.
func (s *Supervisor) Spawn(cfg config.BotConfig) (uuid.UUID, error) {
	if s.factory == nil {
		return uuid.Nil, errors.WrapInvalid(errors.ErrNoEndpointFactory, "Supervisor", "Spawn", "build endpoint")
	}
	ep, err := s.factory(cfg)
	if err != nil {
		return uuid.Nil, errors.Wrap(err, "Supervisor", "Spawn", "build endpoint")
	}
	return s.register("Spawn", ep, cfg, true)
}

// Add registers an endpoint the caller built itself. Adopted entries
// are removed when their run-loop ends and are never respawned.
func (s *Supervisor) Add(ep Endpoint) (uuid.UUID, error) {
	return s.register("Add", ep, config.BotConfig{}, false)
}

func (s *Supervisor) register(method string, ep Endpoint, spec config.BotConfig, managed bool) (uuid.UUID, error) {
	e := &entry{id: uuid.New(), endpoint: ep, spec: spec, managed: managed}

	s.mu.Lock()
	if s.shuttingDown {
		s.mu.Unlock()
		_ = ep.Close()
		return uuid.Nil, errors.Wrap(errors.ErrShuttingDown, "Supervisor", method, "register endpoint")
	}
	s.entries[e.id] = e
	launch := s.started
	if launch {
		e.launched = true
	}
	ctx := s.runCtx
	live := len(s.entries)
	s.mu.Unlock()

	s.recordLive(live)
	s.logger.Info("Endpoint registered", "room", ep.Config().Room, "managed", managed)
	if launch {
		s.launch(ctx, e, 0)
	}
	return e.id, nil
}

// Len reports the number of endpoints currently held.
func (s *Supervisor) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Start launches the run-loop of every held endpoint and returns
// without waiting for any of them. Endpoints registered afterwards
// launch as they arrive. ctx bounds every run-loop, replacements
// included.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.Wrap(errors.ErrAlreadyStarted, "Supervisor", "Start", "launch endpoints")
	}
	s.started = true
	s.runCtx = ctx
	var pending []*entry
	for _, e := range s.entries {
		if !e.launched {
			e.launched = true
			pending = append(pending, e)
		}
	}
	s.mu.Unlock()

	s.logger.Info("Starting endpoints", "count", len(pending))
	for _, e := range pending {
		s.launch(ctx, e, 0)
	}
	return nil
}

// launch runs one endpoint on its own goroutine. A positive delay holds
// the run-loop back first; a waiting replacement already occupies its
// slot in the collection.
func (s *Supervisor) launch(ctx context.Context, e *entry, delay time.Duration) {
	go func() {
		if delay > 0 {
			t := time.NewTimer(delay)
			select {
			case <-t.C:
			case <-ctx.Done():
				t.Stop()
			case <-s.stop:
				t.Stop()
			}
		}
		if ctx.Err() != nil || s.isShuttingDown() {
			s.remove(e)
			return
		}
		err := e.endpoint.Run(ctx)
		s.handleExit(ctx, e, err)
	}()
}

func (s *Supervisor) isShuttingDown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shuttingDown
}

// handleExit reaps a finished run-loop. A managed entry is rebuilt when
// respawning is on: the replacement takes the dead entry's slot in one
// critical section, so the collection never looks empty to Join, and
// its run-loop starts after the respawn delay. During shutdown every
// exit only removes.
func (s *Supervisor) handleExit(ctx context.Context, e *entry, runErr error) {
	room := e.endpoint.Config().Room
	if runErr != nil {
		s.logger.Error("Endpoint terminated", "room", room, "error", runErr)
		s.recordError(room, "terminated")
	} else {
		s.logger.Info("Endpoint closed", "room", room)
	}

	s.mu.Lock()
	respawn := s.respawn && e.managed && !s.shuttingDown
	s.mu.Unlock()
	if !respawn {
		s.remove(e)
		return
	}

	spec := e.spec
	spec.EndpointConfig = e.endpoint.Config()
	if spec.Room == "" {
		s.logger.Warn("Endpoint left no room to respawn into")
		s.remove(e)
		return
	}
	next, err := s.factory(spec)
	if err != nil {
		s.logger.Error("Respawn failed", "room", spec.Room, "error", err)
		s.recordError(spec.Room, "respawn")
		s.remove(e)
		return
	}

	replacement := &entry{id: uuid.New(), endpoint: next, spec: spec, managed: true, launched: true}
	s.mu.Lock()
	if s.shuttingDown {
		s.mu.Unlock()
		_ = next.Close()
		s.remove(e)
		return
	}
	delete(s.entries, e.id)
	s.entries[replacement.id] = replacement
	s.mu.Unlock()

	s.recordRespawn()
	s.logger.Info("Respawning endpoint", "room", spec.Room, "delay", s.respawnDelay)
	s.launch(ctx, replacement, s.respawnDelay)
}

// remove drops an entry and wakes Join waiters.
func (s *Supervisor) remove(e *entry) {
	s.mu.Lock()
	delete(s.entries, e.id)
	live := len(s.entries)
	s.cond.Broadcast()
	s.mu.Unlock()
	s.recordLive(live)
}

// Shutdown requests the final close of every held endpoint and waits,
// bounded by ctx, for the close calls to return. Respawns are
// suppressed from the moment it is called, and endpoints mid-retry
// observe the close and stop. Run-loops drain asynchronously; Join
// waits for the collection to empty.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	already := s.shuttingDown
	s.shuttingDown = true
	if !already {
		close(s.stop)
	}
	endpoints := make([]Endpoint, 0, len(s.entries))
	for id, e := range s.entries {
		endpoints = append(endpoints, e.endpoint)
		// Entries that never launched have no run-loop to reap them.
		if !e.launched {
			delete(s.entries, id)
		}
	}
	live := len(s.entries)
	s.cond.Broadcast()
	s.mu.Unlock()
	s.recordLive(live)
	if already {
		return nil
	}

	s.logger.Info("Shutting down", "endpoints", len(endpoints))
	var g errgroup.Group
	for _, ep := range endpoints {
		ep := ep
		g.Go(func() error { return ep.Close() })
	}
	done := make(chan error, 1)
	go func() { done <- g.Wait() }()
	select {
	case err := <-done:
		if err != nil {
			return errors.Wrap(err, "Supervisor", "Shutdown", "close endpoints")
		}
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "Supervisor", "Shutdown", "close endpoints")
	}
}

// Join blocks until the supervisor holds no endpoints, or ctx ends.
// After Shutdown that means every run-loop has wound down.
func (s *Supervisor) Join(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.cond.Broadcast()
	})
	defer stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.entries) > 0 {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(err, "Supervisor", "Join", "wait for endpoints")
		}
		s.cond.Wait()
	}
	return nil
}

func (s *Supervisor) recordLive(n int) {
	if s.metrics != nil {
		s.metrics.RecordEndpointsLive(n)
	}
}

func (s *Supervisor) recordRespawn() {
	if s.metrics != nil {
		s.metrics.RecordRespawn()
	}
}

func (s *Supervisor) recordError(room, kind string) {
	if s.metrics != nil {
		s.metrics.RecordError(room, kind)
	}
}
