package handlers

import (
	"context"

	"github.com/bloomforlungs/bloom/internal/auth"
	"github.com/bloomforlungs/bloom/internal/gate"
	"github.com/bloomforlungs/bloom/internal/livecount"
	"github.com/bloomforlungs/bloom/internal/models"
	"github.com/bloomforlungs/bloom/internal/pledge"
	"go.uber.org/zap"
)

// Directory looks up stored pledges for the signed-in visitor.
type Directory interface {
	FindByEmail(ctx context.Context, email string) (*models.Pledge, error)
	CountReferrals(ctx context.Context, referrerID string) (int64, error)
}

type Handler struct {
	Submitter *pledge.Submitter
	Gates     *gate.Registry
	Counter   *livecount.Counter
	Directory Directory
	Stream    *PledgeStream

	Issuer   *auth.Issuer
	Provider auth.IdentityProvider

	ClientURL     string
	PublicBaseURL string
	CookieDomain  string

	// Ready reports whether the database answers. Nil skips the check.
	Ready func(ctx context.Context) error

	Logger *zap.Logger
}

func (h *Handler) logger() *zap.Logger {
	if h.Logger == nil {
		return zap.NewNop()
	}
	return h.Logger
}
