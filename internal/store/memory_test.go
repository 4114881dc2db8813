package store

import (
	"context"
	"errors"
	"testing"

	"github.com/bloomforlungs/bloom/internal/models"
	"github.com/bloomforlungs/bloom/internal/pledge"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ pledge.Repository = (*Memory)(nil)
var _ pledge.Repository = (*Store)(nil)

func TestMemoryContract(t *testing.T) {
	m := NewMemory(nil)
	ctx := context.Background()
	sub := m.SubscribeToInserts()
	defer sub.Close()

	created, err := m.Insert(ctx, "Ada Lovelace", "ada@example.com", "ADAL042")
	require.NoError(t, err)
	assert.Equal(t, created.ID, (<-sub.C).ID)

	_, err = m.Insert(ctx, "Ada", "ada@example.com", "OTHR000")
	assert.True(t, pledge.IsEmailConflict(err))

	_, err = m.Insert(ctx, "Adam", "adam@example.com", "ADAL042")
	var conflict *pledge.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, pledge.ConflictReferralCode, conflict.Field)

	n, err := m.CountPledges(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestMemoryFaults(t *testing.T) {
	m := NewMemory(nil)
	ctx := context.Background()

	m.SetFault(OpFindByEmail, errors.New("connection reset"))
	_, err := m.FindByEmail(ctx, "ada@example.com")
	assert.ErrorIs(t, err, pledge.ErrTransient)
	assert.Equal(t, 1, m.Calls(OpFindByEmail))

	m.SetFault(OpFindByEmail, nil)
	p, err := m.FindByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Nil(t, p)

	m.SetFault(OpInsert, &pledge.ConflictError{Field: pledge.ConflictEmail})
	_, err = m.Insert(ctx, "Ada", "ada@example.com", "ADA0001")
	assert.True(t, pledge.IsEmailConflict(err))
}

func TestMemorySeedDoesNotPublish(t *testing.T) {
	m := NewMemory(nil)
	sub := m.SubscribeToInserts()
	defer sub.Close()

	seeded := m.Seed(models.Pledge{FullName: "Grace Hopper", Email: "grace@example.com", ReferralCode: "ABCD123"})
	assert.NotEmpty(t, seeded.ID)

	select {
	case <-sub.C:
		t.Fatal("seed must not publish")
	default:
	}
}

func TestMemoryGenerateReferralCodeAvoidsTaken(t *testing.T) {
	m := NewMemory(nil)
	m.Seed(models.Pledge{Email: "john@example.com", ReferralCode: "JOHN001"})

	seq := []int{1, 1, 2}
	m.intn = func(int) int {
		n := seq[0]
		seq = seq[1:]
		return n
	}

	code, err := m.GenerateReferralCode(context.Background(), "John Doe")
	require.NoError(t, err)
	assert.Equal(t, "JOHN002", code)

	m.intn = func(int) int { return 1 }
	_, err = m.GenerateReferralCode(context.Background(), "John Doe")
	assert.ErrorIs(t, err, ErrCodeSpaceExhausted)
}
