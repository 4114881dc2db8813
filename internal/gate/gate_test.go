package gate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestCountdownOpensAfterAllTicks(t *testing.T) {
	c := NewCountdown(DefaultSeconds)

	for i := 1; i < DefaultSeconds; i++ {
		assert.False(t, c.Tick(), "tick %d", i)
		assert.Equal(t, DefaultSeconds-i, c.Remaining())
		assert.False(t, c.Enabled())
	}

	assert.True(t, c.Tick())
	assert.True(t, c.Enabled())
	assert.Zero(t, c.Remaining())

	assert.True(t, c.Tick(), "an open gate never closes again")
	assert.Zero(t, c.Remaining())
}

func TestCountdownNonPositiveStartsOpen(t *testing.T) {
	assert.True(t, NewCountdown(0).Enabled())
	assert.True(t, NewCountdown(-5).Enabled())
}

func TestCountdownRun(t *testing.T) {
	c := NewCountdown(3)
	ticks := make(chan time.Time)

	go c.Run(context.Background(), ticks)

	ticks <- time.Now()
	ticks <- time.Now()
	assert.False(t, c.Enabled())

	ticks <- time.Now()
	<-c.Done()
	assert.True(t, c.Enabled())
}

func TestCountdownRunCancelled(t *testing.T) {
	c := NewCountdown(3)
	ctx, cancel := context.WithCancel(context.Background())

	go c.Run(ctx, make(chan time.Time))
	cancel()
	<-c.Done()

	assert.False(t, c.Enabled())
	assert.Equal(t, 3, c.Remaining())
}

type manualTicker struct {
	ch      chan time.Time
	stopped chan struct{}
}

func newManualTicker() *manualTicker {
	return &manualTicker{ch: make(chan time.Time), stopped: make(chan struct{}, 8)}
}

func (m *manualTicker) factory() (<-chan time.Time, func()) {
	return m.ch, func() { m.stopped <- struct{}{} }
}

func TestRegistryGatesSubmission(t *testing.T) {
	ticker := newManualTicker()
	r := NewRegistry(2, WithTicker(ticker.factory))
	defer r.Stop()

	assert.False(t, r.Allow("ada@example.com"), "unmounted forms are closed")

	c := r.Open("ada@example.com")
	assert.Same(t, c, r.Open("ada@example.com"), "reopening keeps the running countdown")
	assert.False(t, r.Allow("ada@example.com"))

	ticker.ch <- time.Now()
	assert.False(t, r.Allow("ada@example.com"))

	ticker.ch <- time.Now()
	<-c.Done()
	assert.True(t, r.Allow("ada@example.com"))
	assert.False(t, r.Allow("grace@example.com"))

	got, ok := r.Get("ada@example.com")
	require.True(t, ok)
	assert.Zero(t, got.Remaining())
}

func TestRegistryRelease(t *testing.T) {
	ticker := newManualTicker()
	r := NewRegistry(30, WithTicker(ticker.factory))
	defer r.Stop()

	c := r.Open("ada@example.com")
	require.Equal(t, 1, r.Len())

	r.Release("ada@example.com")
	<-c.Done()
	<-ticker.stopped

	assert.Zero(t, r.Len())
	assert.False(t, r.Allow("ada@example.com"))
	_, ok := r.Get("ada@example.com")
	assert.False(t, ok)

	r.Release("ada@example.com")
}

func TestRegistryStopWaitsForTimers(t *testing.T) {
	ticker := newManualTicker()
	r := NewRegistry(30, WithTicker(ticker.factory))

	a := r.Open("ada@example.com")
	g := r.Open("grace@example.com")

	r.Stop()

	<-a.Done()
	<-g.Done()
	assert.Zero(t, r.Len())
}
