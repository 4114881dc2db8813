// Package store implements the pledge repository on top of GORM, plus an
// in-memory equivalent used by tests and local runs.
package store

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"github.com/bloomforlungs/bloom/internal/models"
	"github.com/bloomforlungs/bloom/internal/pledge"
	"github.com/bloomforlungs/bloom/internal/realtime"
	"github.com/bloomforlungs/bloom/internal/referral"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const generateAttempts = 10

var ErrCodeSpaceExhausted = errors.New("no free referral code")

type Store struct {
	db           *gorm.DB
	hub          *realtime.Hub
	publishLocal bool
	logger       *zap.Logger
}

type Option func(*Store)

// WithLocalPublish controls whether successful inserts are published to the
// hub directly. Disable it when a database listener already feeds the hub.
func WithLocalPublish(enabled bool) Option {
	return func(s *Store) {
		s.publishLocal = enabled
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New wraps db. The handle must be opened with TranslateError enabled so
// unique violations surface as gorm.ErrDuplicatedKey.
func New(db *gorm.DB, hub *realtime.Hub, opts ...Option) *Store {
	s := &Store{
		db:           db,
		hub:          hub,
		publishLocal: true,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.hub == nil {
		s.hub = realtime.NewHub(s.logger, 0)
	}
	return s
}

func (s *Store) FindByEmail(ctx context.Context, email string) (*models.Pledge, error) {
	var p models.Pledge

	err := s.db.WithContext(ctx).Where("email = ?", email).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, pledge.Transient("find pledge by email", err)
	}

	return &p, nil
}

func (s *Store) Insert(ctx context.Context, fullName, email, referralCode string) (*models.Pledge, error) {
	p := models.Pledge{
		FullName:     fullName,
		Email:        email,
		ReferralCode: referralCode,
	}

	if err := s.db.WithContext(ctx).Create(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, s.classifyConflict(ctx, email, err)
		}
		return nil, pledge.Transient("insert pledge", err)
	}

	if s.publishLocal && s.hub != nil {
		s.hub.Publish(p)
	}

	return &p, nil
}

// classifyConflict works out which unique index an insert violated. The
// drivers do not agree on how they name the constraint, so it asks the table.
// When the table cannot answer, the insert is reported as transient.
func (s *Store) classifyConflict(ctx context.Context, email string, cause error) error {
	var n int64

	err := s.db.WithContext(ctx).Model(&models.Pledge{}).Where("email = ?", email).Count(&n).Error
	if err != nil {
		s.logger.Warn("classifying unique violation failed", zap.Error(err))
		return pledge.Transient("classify unique violation", err)
	}

	if n == 0 {
		return &pledge.ConflictError{Field: pledge.ConflictReferralCode, Err: cause}
	}

	return &pledge.ConflictError{Field: pledge.ConflictEmail, Err: cause}
}

func (s *Store) FindByReferralCode(ctx context.Context, code string) (*models.Pledge, error) {
	var p models.Pledge

	err := s.db.WithContext(ctx).Where("referral_code = ?", code).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, pledge.Transient("find pledge by referral code", err)
	}

	return &p, nil
}

func (s *Store) InsertReferral(ctx context.Context, referrerID, referredID, code string) error {
	r := models.Referral{
		ReferrerPledgeID: referrerID,
		ReferredPledgeID: referredID,
		ReferralCode:     code,
	}

	if err := s.db.WithContext(ctx).Create(&r).Error; err != nil {
		return pledge.Transient("insert referral", err)
	}

	return nil
}

// GenerateReferralCode picks a code in the local format that no stored pledge
// uses yet. It gives up after a few tries on a crowded prefix.
func (s *Store) GenerateReferralCode(ctx context.Context, name string) (string, error) {
	for i := 0; i < generateAttempts; i++ {
		code := referral.Derive(name, rand.Intn(1000))

		var n int64
		if err := s.db.WithContext(ctx).Model(&models.Pledge{}).Where("referral_code = ?", code).Count(&n).Error; err != nil {
			return "", pledge.Transient("generate referral code", err)
		}

		if n == 0 {
			return code, nil
		}
	}

	return "", fmt.Errorf("%w for %q", ErrCodeSpaceExhausted, referral.Prefix(name))
}

func (s *Store) CountPledges(ctx context.Context) (int64, error) {
	var n int64

	if err := s.db.WithContext(ctx).Model(&models.Pledge{}).Count(&n).Error; err != nil {
		return 0, pledge.Transient("count pledges", err)
	}

	return n, nil
}

func (s *Store) CountReferrals(ctx context.Context, referrerID string) (int64, error) {
	var n int64

	err := s.db.WithContext(ctx).Model(&models.Referral{}).Where("referrer_pledge_id = ?", referrerID).Count(&n).Error
	if err != nil {
		return 0, pledge.Transient("count referrals", err)
	}

	return n, nil
}

func (s *Store) SubscribeToInserts() *realtime.Subscription {
	return s.hub.Subscribe()
}
