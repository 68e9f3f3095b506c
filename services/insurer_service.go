package services

import (
	"context"
	"errors"
	"time"

	"corredorflow/insurers"
	"corredorflow/models"
	"corredorflow/utils"

	"gorm.io/gorm"
)

// InsurerService manages broker-provider connections. Credentials are only
// persisted after a successful connectivity test.
type InsurerService struct {
	db       *gorm.DB
	registry *insurers.Registry
	timeout  time.Duration
}

func NewInsurerService(db *gorm.DB, registry *insurers.Registry) *InsurerService {
	return &InsurerService{db: db, registry: registry, timeout: 10 * time.Second}
}

// TestResult is the outcome of a connectivity check.
type TestResult struct {
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
}

func (s *InsurerService) loadProvider(providerID uint) (*models.Provider, error) {
	var provider models.Provider
	if err := s.db.First(&provider, providerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NewNotFoundError("provider not found")
		}
		return nil, err
	}
	return &provider, nil
}

// TestProvider runs the adapter's connectivity check without touching stored
// connections.
func (s *InsurerService) TestProvider(ctx context.Context, brokerID, providerID uint, creds map[string]string) (*TestResult, error) {
	provider, err := s.loadProvider(providerID)
	if err != nil {
		return nil, err
	}

	adapter := s.registry.Resolve(provider.Slug, provider.Name)
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	ok, reason, err := adapter.TestConnection(callCtx, insurers.Credentials(creds))
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return nil, utils.NewUpstreamError(provider.Slug, latency, err)
	}
	return &TestResult{Success: ok, Message: reason, LatencyMS: latency}, nil
}

// Connect tests the credentials and, only on success, upserts the broker's
// connection for that provider. A failed test never overwrites a previously
// stored credential bag.
func (s *InsurerService) Connect(ctx context.Context, broker *models.Broker, providerID uint, creds map[string]string) (*models.InsurerConnection, error) {
	provider, err := s.loadProvider(providerID)
	if err != nil {
		return nil, err
	}
	if !provider.AvailableIn(broker.Country) {
		return nil, utils.NewForbiddenError("provider is not available in the broker's country")
	}

	result, err := s.TestProvider(ctx, broker.ID, providerID, creds)
	if err != nil {
		return nil, err
	}
	if !result.Success {
		msg := result.Message
		if msg == "" {
			msg = "connection test failed"
		}
		return nil, utils.NewValidationError(msg)
	}

	now := time.Now()
	var conn models.InsurerConnection
	err = s.db.Where("broker_id = ? AND provider_id = ?", broker.ID, providerID).First(&conn).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		conn = models.InsurerConnection{
			BrokerID:     broker.ID,
			ProviderID:   providerID,
			Active:       true,
			LastTestedAt: &now,
		}
		if err := conn.SetCredentials(creds); err != nil {
			return nil, err
		}
		if err := s.db.Create(&conn).Error; err != nil {
			return nil, utils.NewPersistenceError("failed to save insurer connection", err)
		}
	case err != nil:
		return nil, err
	default:
		if err := conn.SetCredentials(creds); err != nil {
			return nil, err
		}
		conn.Active = true
		conn.LastTestedAt = &now
		if err := s.db.Save(&conn).Error; err != nil {
			return nil, utils.NewPersistenceError("failed to update insurer connection", err)
		}
	}

	conn.Provider = *provider
	return &conn, nil
}

// Disconnect deactivates a connection; credentials stay in place so a
// reconnect does not force re-entry.
func (s *InsurerService) Disconnect(brokerID, connectionID uint) error {
	res := s.db.Model(&models.InsurerConnection{}).
		Where("id = ? AND broker_id = ?", connectionID, brokerID).
		Update("active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return utils.NewNotFoundError("insurer connection not found")
	}
	return nil
}

// ListConnections returns the broker's connections with their providers.
func (s *InsurerService) ListConnections(brokerID uint) ([]models.InsurerConnection, error) {
	var conns []models.InsurerConnection
	if err := s.db.Preload("Provider").Where("broker_id = ?", brokerID).Order("created_at DESC").Find(&conns).Error; err != nil {
		return nil, err
	}
	return conns, nil
}
