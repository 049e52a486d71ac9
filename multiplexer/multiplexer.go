package multiplexer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kbukum/cloudbatch/errors"
	"github.com/kbukum/cloudbatch/logger"
)

// Handle is one unit of network work the multiplexer can drive.
type Handle interface {
	// Perform runs the unit of work to completion, recording its own
	// outcome. Only the first call does the work; every other call blocks
	// until that work has completed.
	Perform(ctx context.Context)
	// Started reports whether Perform has been entered.
	Started() bool
}

// Option configures a Multiplexer.
type Option func(*Multiplexer)

// WithMaxParallel caps how many handles a drain runs at once (0 = no cap).
func WithMaxParallel(n int) Option {
	return func(m *Multiplexer) { m.maxParallel = n }
}

// WithLogger sets the multiplexer's logger.
func WithLogger(l *logger.Logger) Option {
	return func(m *Multiplexer) { m.log = l }
}

// DrainOption adjusts a single Drain call.
type DrainOption func(*drainConfig)

type drainConfig struct {
	limit  int
	scoped bool
	only   []Handle
}

// Limit caps concurrency for one drain, overriding WithMaxParallel when
// positive. Zero or less keeps the multiplexer's own limit.
func Limit(n int) DrainOption {
	return func(c *drainConfig) {
		if n > 0 {
			c.limit = n
		}
	}
}

// Only restricts a drain to the given handles, so callers sharing one
// Multiplexer wait for their own work and nobody else's. Handles that are
// not registered are ignored.
func Only(handles ...Handle) DrainOption {
	return func(c *drainConfig) {
		c.scoped = true
		c.only = append(c.only, handles...)
	}
}

// DrainStats describes one completed drain.
type DrainStats struct {
	Handles  int
	Duration time.Duration
}

// Multiplexer owns the active-handle registration set.
type Multiplexer struct {
	mu          sync.Mutex
	registered  map[Handle]struct{}
	order       []Handle
	maxParallel int
	closed      bool
	log         *logger.Logger
}

// New creates a standalone Multiplexer.
func New(opts ...Option) *Multiplexer {
	m := &Multiplexer{
		registered: make(map[Handle]struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.log == nil {
		m.log = logger.Get(logger.ComponentMultiplexer)
	}
	return m
}

// Register adds h to the active set. Registering nil, a handle that is
// already registered, or a handle that has already started is an error.
func (m *Multiplexer) Register(h Handle) error {
	if h == nil {
		return errors.InvalidArgument("handle", "must not be nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return errClosed()
	}
	if _, ok := m.registered[h]; ok {
		return errors.InvalidArgument("handle", "already registered")
	}
	if h.Started() {
		return errors.InvalidArgument("handle", "already started")
	}
	m.registered[h] = struct{}{}
	m.order = append(m.order, h)
	return nil
}

// Deregister removes h from the active set. Deregistering a handle that is
// not registered is an error.
func (m *Multiplexer) Deregister(h Handle) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.registered[h]; !ok {
		return errors.InvalidArgument("handle", "not registered")
	}
	delete(m.registered, h)
	for i, r := range m.order {
		if r == h {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// Registered returns the number of handles in the registration set.
func (m *Multiplexer) Registered() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.registered)
}

// Drain performs the registered handles (all of them, or those named with
// Only) and blocks until every one has completed, including handles some
// other drain already started. Handles stay registered afterwards; the
// caller deregisters them before inspecting their results. Drain with
// nothing registered returns immediately and is safe to call repeatedly.
func (m *Multiplexer) Drain(ctx context.Context, opts ...DrainOption) DrainStats {
	cfg := drainConfig{limit: m.maxParallel}
	for _, opt := range opts {
		opt(&cfg)
	}

	m.mu.Lock()
	var pending []Handle
	if cfg.scoped {
		pending = make([]Handle, 0, len(cfg.only))
		for _, h := range cfg.only {
			if _, ok := m.registered[h]; ok {
				pending = append(pending, h)
			}
		}
	} else {
		pending = append(pending, m.order...)
	}
	m.mu.Unlock()

	if len(pending) == 0 {
		return DrainStats{}
	}

	start := time.Now()
	var g errgroup.Group
	if cfg.limit > 0 {
		g.SetLimit(cfg.limit)
	}
	for _, h := range pending {
		g.Go(func() error {
			h.Perform(ctx)
			return nil
		})
	}
	_ = g.Wait()

	stats := DrainStats{Handles: len(pending), Duration: time.Since(start)}
	m.log.Debug("drain complete", logger.Fields(
		"handles", stats.Handles,
		"limit", cfg.limit,
		logger.FieldDuration, stats.Duration.Milliseconds(),
	))
	return stats
}

// Close releases the multiplexer. It fails while handles are still
// registered, since their owners have not collected them yet.
func (m *Multiplexer) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if n := len(m.registered); n > 0 {
		return errors.Conflict(fmt.Sprintf("multiplexer: %d handles still registered", n))
	}
	m.closed = true
	return nil
}

func errClosed() *errors.AppError {
	return errors.New(errors.ErrCodeInvalidState, "multiplexer is closed", 0)
}
