package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// InsurerConnection links one broker to one provider. At most one row exists
// per (broker, provider) pair; connecting again upserts the credentials.
// Disconnect deactivates, it never deletes.
type InsurerConnection struct {
	ID           uint           `json:"id" gorm:"primaryKey"`
	BrokerID     uint           `json:"broker_id" gorm:"index:uniq_broker_provider,unique;not null"`
	ProviderID   uint           `json:"provider_id" gorm:"index:uniq_broker_provider,unique;not null"`
	Credentials  datatypes.JSON `json:"-" gorm:"type:jsonb"` // opaque key-value bag
	Active       bool           `json:"active" gorm:"default:true"`
	LastTestedAt *time.Time     `json:"last_tested_at"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"deleted_at" gorm:"index"`

	Provider Provider `json:"provider,omitempty" gorm:"foreignKey:ProviderID;references:ID"`
}

func (ic *InsurerConnection) CredentialMap() map[string]string {
	creds := map[string]string{}
	if len(ic.Credentials) > 0 {
		_ = json.Unmarshal(ic.Credentials, &creds)
	}
	return creds
}

func (ic *InsurerConnection) SetCredentials(creds map[string]string) error {
	b, err := json.Marshal(creds)
	if err != nil {
		return err
	}
	ic.Credentials = datatypes.JSON(b)
	return nil
}

// TestConnectionRequest - credentials check against a provider
type TestConnectionRequest struct {
	ProviderID  uint              `json:"provider_id" binding:"required"`
	Credentials map[string]string `json:"credentials" binding:"required"`
}

// ConnectRequest - tests then upserts an InsurerConnection
type ConnectRequest struct {
	ProviderID  uint              `json:"provider_id" binding:"required"`
	Credentials map[string]string `json:"credentials" binding:"required"`
}
