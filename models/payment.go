// models/payment.go
package models

import (
	"time"
)

// CoinPurchase records one confirmed coin top-up from the payment gateway.
// Reference is the gateway's transaction reference and is the idempotency key:
// duplicate delivery of the same confirmation hits the unique index and is
// dropped without touching the balance.
type CoinPurchase struct {
	ID        string  `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	Reference string  `gorm:"uniqueIndex;not null" json:"reference"`
	Email     string  `gorm:"index;not null" json:"email"`
	Package   string  `gorm:"type:varchar(32);not null" json:"package"`
	Coins     float64 `gorm:"not null" json:"coins"`

	CreditedAt time.Time `gorm:"autoCreateTime" json:"credited_at"`
}
