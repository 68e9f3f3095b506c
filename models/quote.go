package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Quote groups one customer request; each QuoteResult row is one provider's
// offer. At most one result per quote is selected for payment.
type Quote struct {
	ID             uint           `json:"id" gorm:"primaryKey"`
	BrokerID       uint           `json:"broker_id" gorm:"not null;index:idx_broker_quotes"`
	ConversationID *uint          `json:"conversation_id,omitempty" gorm:"index"`
	Category       string         `json:"category" gorm:"not null;index:idx_quote_category"`
	CoverageTier   string         `json:"coverage_tier" gorm:"default:'basic'"`
	InputData      datatypes.JSON `json:"input_data" gorm:"type:jsonb"` // raw request payload
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `json:"deleted_at" gorm:"index"`

	Results []QuoteResult `json:"results,omitempty" gorm:"foreignKey:QuoteID"`
}

// QuoteResult is one provider's priced offer. BrokerID is denormalized so
// ownership checks stay one query.
type QuoteResult struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	QuoteID      uint      `json:"quote_id" gorm:"not null;index"`
	BrokerID     uint      `json:"broker_id" gorm:"not null;index"`
	ProviderSlug string    `json:"provider_slug" gorm:"not null"`
	ProviderName string    `json:"provider_name" gorm:"not null"`
	Price        float64   `json:"price" gorm:"not null"`
	Currency     string    `json:"currency" gorm:"type:varchar(3);not null"`
	Coverage     datatypes.JSON `json:"coverage" gorm:"type:jsonb"` // coverage detail map
	Deductible   *float64  `json:"deductible,omitempty"`
	IsRealtime   bool      `json:"is_realtime" gorm:"default:false"`
	Selected     bool      `json:"selected" gorm:"default:false"`
	Paid         bool      `json:"paid" gorm:"default:false"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// AggregateQuoteRequest - fans a request out to every capable connection
type AggregateQuoteRequest struct {
	Category       string                 `json:"category" binding:"required"`
	Data           map[string]interface{} `json:"data" binding:"required"`
	CoverageTier   string                 `json:"coverage_tier,omitempty"`
	ConversationID *uint                  `json:"conversation_id,omitempty"`
}

// SingleQuoteRequest - quotes one insurer connection, with latency diagnostics
type SingleQuoteRequest struct {
	InsurerConnectionID uint                   `json:"insurer_connection_id" binding:"required"`
	Category            string                 `json:"category" binding:"required"`
	Data                map[string]interface{} `json:"data" binding:"required"`
	CoverageTier        string                 `json:"coverage_tier,omitempty"`
}
