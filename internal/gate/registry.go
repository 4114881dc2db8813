package gate

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// TickerFunc returns a tick channel and a function releasing it.
type TickerFunc func() (<-chan time.Time, func())

func secondTicker() (<-chan time.Time, func()) {
	t := time.NewTicker(time.Second)
	return t.C, t.Stop
}

type entry struct {
	countdown *Countdown
	cancel    context.CancelFunc
}

// Registry keeps one countdown per form instance, keyed by the signed-in
// identity.
type Registry struct {
	seconds   int
	newTicker TickerFunc
	gates     map[string]*entry
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	logger    *zap.Logger
}

type Option func(*Registry)

func WithTicker(fn TickerFunc) Option {
	return func(r *Registry) {
		r.newTicker = fn
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

func NewRegistry(seconds int, opts ...Option) *Registry {
	ctx, cancel := context.WithCancel(context.Background())

	r := &Registry{
		seconds:   seconds,
		newTicker: secondTicker,
		gates:     make(map[string]*entry),
		ctx:       ctx,
		cancel:    cancel,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Open mounts the form for key and starts its countdown. Opening an already
// mounted form returns the running countdown unchanged.
func (r *Registry) Open(key string) *Countdown {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.gates[key]; ok {
		return existing.countdown
	}

	c := NewCountdown(r.seconds)
	ctx, cancel := context.WithCancel(r.ctx)
	r.gates[key] = &entry{countdown: c, cancel: cancel}

	ticks, stop := r.newTicker()
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer stop()
		c.Run(ctx, ticks)
	}()

	r.logger.Debug("pledge form gate opened", zap.String("key", key), zap.Int("seconds", r.seconds))

	return c
}

// Allow reports whether key's countdown has run out. Unknown keys are closed.
func (r *Registry) Allow(key string) bool {
	r.mu.RLock()
	e, ok := r.gates[key]
	r.mu.RUnlock()

	return ok && e.countdown.Enabled()
}

func (r *Registry) Get(key string) (*Countdown, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.gates[key]
	if !ok {
		return nil, false
	}
	return e.countdown, true
}

// Release unmounts the form for key and stops its timer.
func (r *Registry) Release(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.gates[key]; ok {
		e.cancel()
		delete(r.gates, key)
		r.logger.Debug("pledge form gate released", zap.String("key", key))
	}
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.gates)
}

// Stop releases every gate and waits for their timers to exit.
func (r *Registry) Stop() {
	r.cancel()

	r.mu.Lock()
	r.gates = make(map[string]*entry)
	r.mu.Unlock()

	r.wg.Wait()
}
