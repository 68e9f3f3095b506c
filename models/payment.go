package models

import (
	"time"

	"gorm.io/gorm"
)

// Payment statuses. Transitions are one-directional: pending moves to exactly
// one terminal state and terminal states are never overwritten.
const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
	PaymentStatusCancelled = "cancelled"
)

func TerminalPaymentStatus(status string) bool {
	switch status {
	case PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusCancelled:
		return true
	}
	return false
}

// Payment is one payment attempt for one chosen quote result. OrderID is the
// correlation key threaded through checkout URLs and provider webhooks.
type Payment struct {
	ID             uint           `json:"id" gorm:"primaryKey"`
	OrderID        string         `json:"order_id" gorm:"uniqueIndex;not null"`
	BrokerID       uint           `json:"broker_id" gorm:"not null;index:idx_broker_payments"`
	QuoteResultID  uint           `json:"quote_result_id" gorm:"not null;index"`
	ConversationID *uint          `json:"conversation_id,omitempty" gorm:"index"`
	Provider       string         `json:"provider" gorm:"not null"` // yappy, mercadopago
	Amount         float64        `json:"amount" gorm:"not null"`
	Currency       string         `json:"currency" gorm:"type:varchar(3);not null"`
	Status         string         `json:"status" gorm:"default:'pending';index:idx_payment_status"`
	ProviderRef    string         `json:"provider_ref"` // provider-side session/transaction id
	CheckoutURL    string         `json:"checkout_url"`
	CustomerPhone  string         `json:"customer_phone"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `json:"deleted_at" gorm:"index"`
}

// CreatePaymentRequest - issues a payable link for a chosen quote result
type CreatePaymentRequest struct {
	QuoteResultID uint   `json:"quote_result_id" binding:"required"`
	CustomerPhone string `json:"customer_phone,omitempty"`
}
