// Package pledge implements the pledge submission protocol: validation,
// deduplication by email, referral code assignment and referral linking.
package pledge

import (
	"context"

	"github.com/bloomforlungs/bloom/internal/models"
	"github.com/bloomforlungs/bloom/internal/realtime"
)

// Repository is the data service the protocol runs against.
//
// Lookups return a nil pledge and a nil error when nothing matches. Faults
// wrap ErrTransient. Insert reports unique violations as *ConflictError.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*models.Pledge, error)
	Insert(ctx context.Context, fullName, email, referralCode string) (*models.Pledge, error)
	FindByReferralCode(ctx context.Context, code string) (*models.Pledge, error)
	InsertReferral(ctx context.Context, referrerID, referredID, code string) error
	GenerateReferralCode(ctx context.Context, name string) (string, error)
	CountPledges(ctx context.Context) (int64, error)
	SubscribeToInserts() *realtime.Subscription
}
