// Package gate holds the countdown that must run out before a pledge form may
// be submitted.
package gate

import (
	"context"
	"sync"
	"time"
)

const DefaultSeconds = 30

// Countdown starts at a whole number of seconds and loses one per tick. Once
// it reaches zero it stays open.
type Countdown struct {
	mu        sync.Mutex
	remaining int
	enabled   bool
	done      chan struct{}
}

func NewCountdown(seconds int) *Countdown {
	c := &Countdown{
		remaining: seconds,
		done:      make(chan struct{}),
	}

	if seconds <= 0 {
		c.remaining = 0
		c.enabled = true
	}

	return c
}

// Tick removes one second and reports whether the gate is open.
func (c *Countdown) Tick() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.enabled {
		return true
	}

	c.remaining--
	if c.remaining <= 0 {
		c.remaining = 0
		c.enabled = true
	}

	return c.enabled
}

// Run ticks once per value received on ticks until the gate opens or ctx is
// cancelled. Done is closed when it returns.
func (c *Countdown) Run(ctx context.Context, ticks <-chan time.Time) {
	defer close(c.done)

	if c.Enabled() {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticks:
			if c.Tick() {
				return
			}
		}
	}
}

func (c *Countdown) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.enabled
}

func (c *Countdown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.remaining
}

func (c *Countdown) Done() <-chan struct{} {
	return c.done
}
