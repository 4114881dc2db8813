package store

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/bloomforlungs/bloom/internal/models"
	"github.com/bloomforlungs/bloom/internal/pledge"
	"github.com/bloomforlungs/bloom/internal/realtime"
	"github.com/bloomforlungs/bloom/internal/referral"
	"github.com/google/uuid"
)

// Op names a repository operation, for fault injection and call counting.
type Op string

const (
	OpFindByEmail          Op = "find_by_email"
	OpInsert               Op = "insert"
	OpFindByReferralCode   Op = "find_by_referral_code"
	OpInsertReferral       Op = "insert_referral"
	OpGenerateReferralCode Op = "generate_referral_code"
	OpCountPledges         Op = "count_pledges"
)

// Memory is an in-process repository with the same contract as the GORM
// store. Faults set with SetFault are returned instead of running the op.
type Memory struct {
	mu        sync.Mutex
	byEmail   map[string]*models.Pledge
	byCode    map[string]*models.Pledge
	referrals []models.Referral
	faults    map[Op]error
	calls     map[Op]int
	hub       *realtime.Hub
	intn      func(n int) int
}

func NewMemory(hub *realtime.Hub) *Memory {
	if hub == nil {
		hub = realtime.NewHub(nil, 0)
	}

	return &Memory{
		byEmail: make(map[string]*models.Pledge),
		byCode:  make(map[string]*models.Pledge),
		faults:  make(map[Op]error),
		calls:   make(map[Op]int),
		hub:     hub,
		intn:    rand.Intn,
	}
}

// SetFault makes op fail with err until cleared with a nil err.
func (m *Memory) SetFault(op Op, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err == nil {
		delete(m.faults, op)
		return
	}
	m.faults[op] = err
}

func (m *Memory) Calls(op Op) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.calls[op]
}

// Seed stores p without publishing an insert event.
func (m *Memory) Seed(p models.Pledge) *models.Pledge {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}

	stored := p
	m.byEmail[p.Email] = &stored
	m.byCode[p.ReferralCode] = &stored
	return &stored
}

func (m *Memory) Referrals() []models.Referral {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]models.Referral(nil), m.referrals...)
}

func (m *Memory) enter(op Op) error {
	m.calls[op]++
	return m.faults[op]
}

func (m *Memory) FindByEmail(ctx context.Context, email string) (*models.Pledge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.enter(OpFindByEmail); err != nil {
		return nil, pledge.Transient("find pledge by email", err)
	}

	return clone(m.byEmail[email]), nil
}

func (m *Memory) Insert(ctx context.Context, fullName, email, referralCode string) (*models.Pledge, error) {
	m.mu.Lock()

	if err := m.enter(OpInsert); err != nil {
		m.mu.Unlock()
		var conflict *pledge.ConflictError
		if errors.As(err, &conflict) {
			return nil, err
		}
		return nil, pledge.Transient("insert pledge", err)
	}

	if _, taken := m.byEmail[email]; taken {
		m.mu.Unlock()
		return nil, &pledge.ConflictError{Field: pledge.ConflictEmail}
	}
	if _, taken := m.byCode[referralCode]; taken {
		m.mu.Unlock()
		return nil, &pledge.ConflictError{Field: pledge.ConflictReferralCode}
	}

	p := &models.Pledge{
		ID:           uuid.NewString(),
		FullName:     fullName,
		Email:        email,
		ReferralCode: referralCode,
		CreatedAt:    time.Now(),
	}
	m.byEmail[email] = p
	m.byCode[referralCode] = p
	created := *p
	m.mu.Unlock()

	m.hub.Publish(created)

	return &created, nil
}

func (m *Memory) FindByReferralCode(ctx context.Context, code string) (*models.Pledge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.enter(OpFindByReferralCode); err != nil {
		return nil, pledge.Transient("find pledge by referral code", err)
	}

	return clone(m.byCode[code]), nil
}

func (m *Memory) InsertReferral(ctx context.Context, referrerID, referredID, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.enter(OpInsertReferral); err != nil {
		return pledge.Transient("insert referral", err)
	}

	m.referrals = append(m.referrals, models.Referral{
		ID:               uint(len(m.referrals) + 1),
		ReferrerPledgeID: referrerID,
		ReferredPledgeID: referredID,
		ReferralCode:     code,
		CreatedAt:        time.Now(),
	})
	return nil
}

func (m *Memory) GenerateReferralCode(ctx context.Context, name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.enter(OpGenerateReferralCode); err != nil {
		return "", err
	}

	for i := 0; i < generateAttempts; i++ {
		code := referral.Derive(name, m.intn(1000))
		if _, taken := m.byCode[code]; !taken {
			return code, nil
		}
	}

	return "", fmt.Errorf("%w for %q", ErrCodeSpaceExhausted, referral.Prefix(name))
}

func (m *Memory) CountPledges(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.enter(OpCountPledges); err != nil {
		return 0, pledge.Transient("count pledges", err)
	}

	return int64(len(m.byEmail)), nil
}

func (m *Memory) CountReferrals(ctx context.Context, referrerID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for _, r := range m.referrals {
		if r.ReferrerPledgeID == referrerID {
			n++
		}
	}
	return n, nil
}

func (m *Memory) SubscribeToInserts() *realtime.Subscription {
	return m.hub.Subscribe()
}

func clone(p *models.Pledge) *models.Pledge {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}
