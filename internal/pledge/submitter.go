package pledge

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/bloomforlungs/bloom/internal/models"
	"github.com/bloomforlungs/bloom/internal/referral"
	"github.com/bloomforlungs/bloom/internal/types"
	"github.com/bloomforlungs/bloom/internal/validation"
	"go.uber.org/zap"
)

const DefaultCodeAttempts = 3

// Gate decides whether a form instance may submit yet.
type Gate interface {
	Allow(key string) bool
}

// Receipt is handed to the caller once per successful or reused submission.
type Receipt struct {
	PledgeID     string
	FullName     string
	Email        string
	ReferralCode string
	Outcome      Outcome

	// ReferredBy is the referrer's display name when a referral was linked.
	ReferredBy string

	// Path lists the states the run went through, Idle first.
	Path []State
}

type Submitter struct {
	repo     Repository
	codes    *referral.Generator
	gate     Gate
	attempts int
	hooks    []func(Receipt)
	logger   *zap.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
}

type Option func(*Submitter)

func WithGate(gate Gate) Option {
	return func(s *Submitter) {
		s.gate = gate
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Submitter) {
		s.logger = logger
	}
}

// WithCodeAttempts bounds how many referral codes are tried when insert keeps
// colliding on the referral code. One disables the retry.
func WithCodeAttempts(n int) Option {
	return func(s *Submitter) {
		if n > 0 {
			s.attempts = n
		}
	}
}

// OnSuccess registers fn to receive every receipt. Hooks run synchronously,
// in registration order, after the run reaches Done.
func OnSuccess(fn func(Receipt)) Option {
	return func(s *Submitter) {
		s.hooks = append(s.hooks, fn)
	}
}

func NewSubmitter(repo Repository, codes *referral.Generator, opts ...Option) *Submitter {
	s := &Submitter{
		repo:     repo,
		codes:    codes,
		attempts: DefaultCodeAttempts,
		logger:   zap.NewNop(),
		inFlight: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.codes == nil {
		s.codes = referral.NewGenerator(repo, referral.WithLogger(s.logger))
	}
	return s
}

// Submit runs one submission for identity. Each call is a fresh run; a second
// call for the same identity while one is in flight fails with
// ErrSubmissionInFlight, and nothing runs while the gate is closed.
func (s *Submitter) Submit(ctx context.Context, identity types.Identity, form validation.PledgeForm) (Receipt, error) {
	if s.gate != nil && !s.gate.Allow(identity.Email) {
		return Receipt{Path: []State{StateIdle}}, ErrGateClosed
	}

	if !s.acquire(identity.Email) {
		return Receipt{Path: []State{StateIdle}}, ErrSubmissionInFlight
	}
	defer s.release(identity.Email)

	r := &run{Submitter: s, identity: identity, form: form, path: []State{StateIdle}}

	receipt, err := r.execute(ctx)
	if err != nil {
		return receipt, err
	}

	for _, hook := range s.hooks {
		hook(receipt)
	}

	return receipt, nil
}

// Submitting reports whether a run is in flight for email.
func (s *Submitter) Submitting(email string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, busy := s.inFlight[email]
	return busy
}

func (s *Submitter) acquire(email string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, busy := s.inFlight[email]; busy {
		return false
	}
	s.inFlight[email] = struct{}{}
	return true
}

func (s *Submitter) release(email string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.inFlight, email)
}

type run struct {
	*Submitter

	identity types.Identity
	form     validation.PledgeForm
	path     []State
}

func (r *run) advance(next State) {
	r.logger.Debug("pledge submission transition",
		zap.String("email", r.identity.Email),
		zap.Stringer("from", r.path[len(r.path)-1]),
		zap.Stringer("to", next))
	r.path = append(r.path, next)

	if next.Terminal() {
		r.logger.Debug("pledge submission finished",
			zap.String("email", r.identity.Email),
			zap.Int("steps", len(r.path)))
	}
}

func (r *run) fail(err error) (Receipt, error) {
	r.advance(StateErrored)
	return Receipt{Email: r.identity.Email, Path: r.path}, err
}

func (r *run) execute(ctx context.Context) (Receipt, error) {
	r.advance(StateValidating)

	if errs := validation.ValidatePledge(r.form, r.identity.Email); !errs.Empty() {
		return r.fail(&ValidationError{Fields: errs})
	}

	r.advance(StateCheckingExisting)

	existing, err := r.repo.FindByEmail(ctx, r.identity.Email)
	if err != nil {
		r.logger.Error("checking existing pledge failed", zap.String("email", r.identity.Email), zap.Error(err))
		return r.fail(Transient("check existing pledge", err))
	}

	if existing != nil {
		r.advance(StateReusingExisting)
		r.advance(StateDone)

		return Receipt{
			PledgeID:     existing.ID,
			FullName:     existing.FullName,
			Email:        r.identity.Email,
			ReferralCode: existing.ReferralCode,
			Outcome:      OutcomeAlreadyPledged,
			Path:         r.path,
		}, nil
	}

	r.advance(StateCreating)

	created, err := r.create(ctx)
	if err != nil {
		return r.fail(err)
	}

	receipt := Receipt{
		PledgeID:     created.ID,
		FullName:     created.FullName,
		Email:        r.identity.Email,
		ReferralCode: created.ReferralCode,
		Outcome:      OutcomeCreated,
	}

	if code := strings.TrimSpace(r.form.ReferralCode); code != "" {
		r.advance(StateLinkingReferral)
		receipt.ReferredBy = r.linkReferral(ctx, created, code)
	}

	r.advance(StateDone)
	receipt.Path = r.path

	r.logger.Info("pledge created",
		zap.String("pledge_id", created.ID),
		zap.String("referral_code", created.ReferralCode))

	return receipt, nil
}

// create inserts the pledge, regenerating the referral code while the insert
// collides on it and attempts remain.
func (r *run) create(ctx context.Context) (*models.Pledge, error) {
	fullName := strings.TrimSpace(r.form.FullName)

	var err error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		code := r.codes.Generate(ctx, fullName)

		var created *models.Pledge
		created, err = r.repo.Insert(ctx, fullName, r.identity.Email, code)
		if err == nil {
			return created, nil
		}

		var conflict *ConflictError
		if !errors.As(err, &conflict) {
			r.logger.Error("creating pledge failed", zap.String("email", r.identity.Email), zap.Error(err))
			return nil, Transient("create pledge", err)
		}

		if conflict.Field == ConflictEmail {
			r.logger.Info("pledge created concurrently for email", zap.String("email", r.identity.Email))
			return nil, err
		}

		r.logger.Warn("referral code collision",
			zap.String("referral_code", code),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", r.attempts))
	}

	return nil, err
}

// linkReferral records who referred created. Every failure here is logged and
// swallowed. It returns the referrer's display name when the edge was stored.
func (r *run) linkReferral(ctx context.Context, created *models.Pledge, code string) string {
	referrer, err := r.repo.FindByReferralCode(ctx, code)
	if err != nil {
		r.logger.Warn("finding referrer failed", zap.String("referral_code", code), zap.Error(err))
		return ""
	}

	if referrer == nil {
		r.logger.Info("referral code not found", zap.String("referral_code", code))
		return ""
	}

	if referrer.ID == created.ID {
		r.logger.Info("ignoring self referral", zap.String("pledge_id", created.ID))
		return ""
	}

	if err := r.repo.InsertReferral(ctx, referrer.ID, created.ID, code); err != nil {
		r.logger.Warn("creating referral failed",
			zap.String("referrer_pledge_id", referrer.ID),
			zap.String("referred_pledge_id", created.ID),
			zap.Error(err))
		return ""
	}

	return referrer.FullName
}
