package models

import "time"

// ReferralGrant tracks referral credits awarded at registration time.
// ReferredEmail carries a unique index: a given registration can only ever
// credit the referrer once, no matter how many times the event is replayed.
type ReferralGrant struct {
	ID            string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ReferrerEmail string `gorm:"index;not null" json:"referrer_email"`
	ReferredEmail string `gorm:"uniqueIndex;not null" json:"referred_email"`

	ReferralCodeUsed string     `gorm:"not null" json:"referral_code_used"`
	CoinsAwarded     float64    `json:"coins_awarded" gorm:"default:0"`
	AwardedAt        *time.Time `json:"awarded_at,omitempty"`

	Timestamps
}
