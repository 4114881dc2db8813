package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Pledge struct {
	ID           string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	FullName     string    `gorm:"not null" json:"full_name"`
	Email        string    `gorm:"uniqueIndex;not null;size:320" json:"email"`
	ReferralCode string    `gorm:"uniqueIndex;not null;size:32" json:"referral_code"`
	CreatedAt    time.Time `json:"created_at"`

	// Relationships
	Referrals []Referral `gorm:"foreignKey:ReferrerPledgeID;constraint:OnUpdate:Cascade,OnDelete:CASCADE" json:"-"`
}

// BeforeCreate assigns the identifier. Callers never choose pledge ids.
func (p *Pledge) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
