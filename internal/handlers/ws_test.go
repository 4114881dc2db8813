package handlers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcastDoesNotWaitForClients(t *testing.T) {
	s := NewPledgeStream(nil, nil)
	stalled := newStreamClient(nil)
	s.add(stalled)
	require.Equal(t, 1, s.Clients())

	done := make(chan struct{})
	go func() {
		defer close(done)
		for n := int64(1); n <= 100; n++ {
			s.Broadcast(n)
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Broadcast blocked on a client that never reads")
	}

	require.Len(t, stalled.send, sendBuffer)

	var last CountMessage
	for len(stalled.send) > 0 {
		last = <-stalled.send
	}
	assert.Equal(t, MessagePledgeCreated, last.Type)
	assert.EqualValues(t, 100, last.Count, "the newest total is kept")
	assert.EqualValues(t, 300, last.Stats.LivesImpacted)

	s.remove(stalled)
	assert.Zero(t, s.Clients())
}

func TestOfferKeepsOrder(t *testing.T) {
	c := newStreamClient(nil)

	c.offer(countMessage(MessagePledgeCreated, 1))
	c.offer(countMessage(MessagePledgeCreated, 2))

	assert.EqualValues(t, 1, (<-c.send).Count)
	assert.EqualValues(t, 2, (<-c.send).Count)
}
