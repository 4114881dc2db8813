package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"testing"

	"github.com/bloomforlungs/bloom/db"
	"github.com/bloomforlungs/bloom/internal/pledge"
	"github.com/bloomforlungs/bloom/internal/realtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestStore(t *testing.T, opts ...Option) (*Store, *realtime.Hub) {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	conn, err := db.Open(db.DriverSQLite, fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	require.NoError(t, db.Migrate(conn))

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	hub := realtime.NewHub(nil, 8)
	return New(conn, hub, opts...), hub
}

func TestStoreInsertAndFind(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	missing, err := s.FindByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Nil(t, missing)

	created, err := s.Insert(ctx, "Ada Lovelace", "ada@example.com", "ADAL042")
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID, "repository assigns the id")
	assert.False(t, created.CreatedAt.IsZero())

	found, err := s.FindByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, "ADAL042", found.ReferralCode)

	byCode, err := s.FindByReferralCode(ctx, "ADAL042")
	require.NoError(t, err)
	require.NotNil(t, byCode)
	assert.Equal(t, created.ID, byCode.ID)

	none, err := s.FindByReferralCode(ctx, "NOPE000")
	require.NoError(t, err)
	assert.Nil(t, none)

	n, err := s.CountPledges(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestStoreInsertConflicts(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.Insert(ctx, "Ada Lovelace", "ada@example.com", "ADAL042")
	require.NoError(t, err)

	_, err = s.Insert(ctx, "Ada Again", "ada@example.com", "ADAL777")
	var conflict *pledge.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, pledge.ConflictEmail, conflict.Field)
	assert.True(t, pledge.IsEmailConflict(err))

	_, err = s.Insert(ctx, "Adam Smith", "adam@example.com", "ADAL042")
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, pledge.ConflictReferralCode, conflict.Field)
	assert.False(t, pledge.IsEmailConflict(err))
}

func TestStoreUnclassifiedConflictIsTransient(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.Insert(ctx, "Ada Lovelace", "ada@example.com", "ADAL042")
	require.NoError(t, err)

	err = s.db.Callback().Query().Before("gorm:query").Register("test:fail_query", func(tx *gorm.DB) {
		tx.AddError(errors.New("connection reset"))
	})
	require.NoError(t, err)

	_, err = s.Insert(ctx, "Adam Smith", "adam@example.com", "ADAL042")
	require.Error(t, err)
	assert.ErrorIs(t, err, pledge.ErrTransient)
	assert.False(t, pledge.IsEmailConflict(err), "an unclassified violation is never reported as already pledged")

	var conflict *pledge.ConflictError
	assert.False(t, errors.As(err, &conflict))
}

func TestStorePublishesInserts(t *testing.T) {
	s, _ := newTestStore(t)
	sub := s.SubscribeToInserts()
	defer sub.Close()

	created, err := s.Insert(context.Background(), "Grace Hopper", "grace@example.com", "GRAC001")
	require.NoError(t, err)

	got := <-sub.C
	assert.Equal(t, created.ID, got.ID)
}

func TestStoreWithoutLocalPublish(t *testing.T) {
	s, hub := newTestStore(t, WithLocalPublish(false))
	sub := hub.Subscribe()
	defer sub.Close()

	_, err := s.Insert(context.Background(), "Grace Hopper", "grace@example.com", "GRAC001")
	require.NoError(t, err)

	select {
	case p := <-sub.C:
		t.Fatalf("unexpected local publish of %s", p.ID)
	default:
	}
}

func TestStoreReferrals(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	grace, err := s.Insert(ctx, "Grace Hopper", "grace@example.com", "ABCD123")
	require.NoError(t, err)
	ada, err := s.Insert(ctx, "Ada Lovelace", "ada@example.com", "ADAL042")
	require.NoError(t, err)

	require.NoError(t, s.InsertReferral(ctx, grace.ID, ada.ID, "ABCD123"))

	n, err := s.CountReferrals(ctx, grace.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = s.CountReferrals(ctx, ada.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStoreGenerateReferralCode(t *testing.T) {
	s, _ := newTestStore(t)

	code, err := s.GenerateReferralCode(context.Background(), "John Doe!")
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^JOHN\d{3}$`), code)
}

func TestStoreTransientErrors(t *testing.T) {
	s, _ := newTestStore(t)

	sqlDB, err := s.db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	_, err = s.FindByEmail(context.Background(), "ada@example.com")
	assert.ErrorIs(t, err, pledge.ErrTransient)

	_, err = s.CountPledges(context.Background())
	assert.ErrorIs(t, err, pledge.ErrTransient)

	_, err = s.Insert(context.Background(), "Ada", "ada@example.com", "ADA0001")
	assert.ErrorIs(t, err, pledge.ErrTransient)
}
