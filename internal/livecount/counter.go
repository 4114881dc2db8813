// Package livecount keeps a running pledge total: one count snapshot, then
// +1 per insert notification. It never reconciles against a fresh count, so
// missed or duplicated notifications drift the total for the process lifetime.
package livecount

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/bloomforlungs/bloom/internal/models"
	"github.com/bloomforlungs/bloom/internal/realtime"
	"go.uber.org/zap"
)

type Source interface {
	CountPledges(ctx context.Context) (int64, error)
	SubscribeToInserts() *realtime.Subscription
}

type Counter struct {
	source      Source
	count       atomic.Int64
	onIncrement []func(count int64, p models.Pledge)
	ready       chan struct{}
	readyOnce   sync.Once
	logger      *zap.Logger
}

type Option func(*Counter)

func WithLogger(logger *zap.Logger) Option {
	return func(c *Counter) {
		c.logger = logger
	}
}

// OnIncrement registers fn to run after every increment with the new total.
// It runs on the counter goroutine and must not block.
func OnIncrement(fn func(count int64, p models.Pledge)) Option {
	return func(c *Counter) {
		c.onIncrement = append(c.onIncrement, fn)
	}
}

func New(source Source, opts ...Option) *Counter {
	c := &Counter{
		source: source,
		ready:  make(chan struct{}),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run takes the snapshot, subscribes and applies notifications until ctx is
// cancelled or the subscription is closed. The subscription is released on
// return. A failed snapshot leaves the total where it was.
func (c *Counter) Run(ctx context.Context) error {
	if n, err := c.source.CountPledges(ctx); err != nil {
		c.logger.Warn("initial pledge count failed", zap.Error(err))
	} else {
		c.count.Store(n)
	}

	sub := c.source.SubscribeToInserts()
	defer sub.Close()

	c.readyOnce.Do(func() { close(c.ready) })
	c.logger.Info("live pledge count started", zap.Int64("count", c.count.Load()))

	for {
		select {
		case <-ctx.Done():
			return nil
		case p, ok := <-sub.C:
			if !ok {
				return nil
			}

			n := c.count.Add(1)
			for _, fn := range c.onIncrement {
				fn(n, p)
			}
		}
	}
}

// Ready is closed once the snapshot is taken and the subscription is open.
func (c *Counter) Ready() <-chan struct{} {
	return c.ready
}

func (c *Counter) Value() int64 {
	return c.count.Load()
}
