package models

import "time"

type Referral struct {
	ID uint `gorm:"primaryKey" json:"id"`

	ReferrerPledgeID string    `gorm:"not null;index;type:varchar(36)" json:"referrer_pledge_id"`
	ReferredPledgeID string    `gorm:"not null;index;type:varchar(36)" json:"referred_pledge_id"`
	ReferralCode     string    `gorm:"not null;size:32" json:"referral_code"`
	CreatedAt        time.Time `json:"created_at"`

	// Relationships
	Referred Pledge `gorm:"foreignKey:ReferredPledgeID;constraint:OnUpdate:Cascade,OnDelete:CASCADE" json:"-"`
}
