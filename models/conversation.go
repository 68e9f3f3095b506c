package models

import (
	"time"

	"gorm.io/gorm"
)

// Conversation statuses. A payment link moves the conversation to
// waiting_payment; payment success closes it; failure keeps it waiting so the
// customer can retry.
const (
	ConversationActive         = "active"
	ConversationWaitingPayment = "waiting_payment"
	ConversationHumanTakeover  = "human_takeover"
	ConversationClosed         = "closed"
)

// Conversation is the customer-facing session a quote/payment is attached to.
type Conversation struct {
	ID            uint           `json:"id" gorm:"primaryKey"`
	UUID          string         `json:"uuid" gorm:"uniqueIndex;not null"`
	BrokerID      uint           `json:"broker_id" gorm:"not null;index:idx_broker_conversations"`
	CustomerPhone string         `json:"customer_phone" gorm:"not null"`
	CustomerName  string         `json:"customer_name"`
	Status        string         `json:"status" gorm:"default:'active';index:idx_conversation_status"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `json:"deleted_at" gorm:"index"`
}

// CreateConversationRequest - opens a customer session
type CreateConversationRequest struct {
	CustomerPhone string `json:"customer_phone" binding:"required"`
	CustomerName  string `json:"customer_name,omitempty"`
}
