package models

import (
	"time"

	"gorm.io/gorm"
)

// Broker is the tenant root. Every connection, quote, payment and
// conversation belongs to exactly one broker. Brokers are never hard-deleted,
// only deactivated.
type Broker struct {
	ID       uint    `json:"id" gorm:"primaryKey"`
	Email    string  `json:"email" gorm:"uniqueIndex;not null"`
	Password string  `json:"-" gorm:"not null"`
	Name     string  `json:"name" gorm:"not null"`
	Country  string  `json:"country" gorm:"type:varchar(2);not null"` // ISO 3166-1 alpha-2
	Phone    *string `json:"phone,omitempty"`
	// Yappy merchant credentials (broker-scoped)
	YappyMerchantID string `json:"yappy_merchant_id"`
	YappySecretKey  string `json:"-"`
	// Mercado Pago connect account (the platform token is app-wide)
	MPCollectorID string         `json:"mp_collector_id"`
	Active        bool           `json:"active" gorm:"default:true"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `json:"deleted_at" gorm:"index"`
}

// HasYappyCredentials reports whether the broker can accept Yappy payments.
func (b *Broker) HasYappyCredentials() bool {
	return b.YappyMerchantID != "" && b.YappySecretKey != ""
}

// RegisterRequest - broker signup payload
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name" binding:"required"`
	Country  string `json:"country" binding:"required,len=2"`
	Phone    string `json:"phone,omitempty"`
}

// LoginRequest - broker login payload
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// PaymentSettingsRequest - updates the broker's payment provider credentials
type PaymentSettingsRequest struct {
	YappyMerchantID *string `json:"yappy_merchant_id,omitempty"`
	YappySecretKey  *string `json:"yappy_secret_key,omitempty"`
	MPCollectorID   *string `json:"mp_collector_id,omitempty"`
}
