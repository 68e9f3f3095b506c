package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"corredorflow/insurers"
	"corredorflow/models"
	"corredorflow/utils"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// QuoteService fans quote requests out to the broker's insurer connections.
// Each adapter call is independent: a slow or broken provider only costs its
// own slot in the result, never the batch.
type QuoteService struct {
	db       *gorm.DB
	registry *insurers.Registry
	// per-adapter call budget
	Timeout time.Duration
}

func NewQuoteService(db *gorm.DB, registry *insurers.Registry) *QuoteService {
	return &QuoteService{db: db, registry: registry, Timeout: 8 * time.Second}
}

// ProviderFailure is a partial-failure entry in an aggregate result.
type ProviderFailure struct {
	ProviderSlug string `json:"provider_slug"`
	ProviderName string `json:"provider_name"`
	Error        string `json:"error"`
}

// AggregateResult is the ordered list of successes plus the failures; callers
// decide whether "some quotes failed" is acceptable.
type AggregateResult struct {
	Quote    *models.Quote        `json:"quote"`
	Results  []models.QuoteResult `json:"results"`
	Failures []ProviderFailure    `json:"failures"`
}

func normalizeQuoteRequest(category, tier string, data map[string]interface{}) (insurers.QuoteRequest, error) {
	if !models.ValidCategory(category) {
		return insurers.QuoteRequest{}, utils.NewValidationError(fmt.Sprintf("unknown product category %q", category))
	}
	if tier == "" {
		tier = models.TierBasic
	}
	if !models.ValidTier(tier) {
		return insurers.QuoteRequest{}, utils.NewValidationError(fmt.Sprintf("unknown coverage tier %q", tier))
	}
	return insurers.QuoteRequest{Category: category, Data: data, CoverageTier: tier}, nil
}

type quoteOutcome struct {
	result *insurers.QuoteResult
	err    error
}

// AggregateQuotes resolves the broker's active connections that support the
// category, quotes them concurrently, and persists the quote with its
// results.
func (s *QuoteService) AggregateQuotes(ctx context.Context, brokerID uint, req models.AggregateQuoteRequest) (*AggregateResult, error) {
	qr, err := normalizeQuoteRequest(req.Category, req.CoverageTier, req.Data)
	if err != nil {
		return nil, err
	}

	if req.ConversationID != nil {
		var conv models.Conversation
		if err := s.db.Where("id = ? AND broker_id = ?", *req.ConversationID, brokerID).First(&conv).Error; err != nil {
			return nil, utils.NewNotFoundError("conversation not found")
		}
	}

	var conns []models.InsurerConnection
	if err := s.db.Preload("Provider").
		Where("broker_id = ? AND active = ?", brokerID, true).
		Order("id ASC").
		Find(&conns).Error; err != nil {
		return nil, err
	}

	capable := conns[:0]
	for _, conn := range conns {
		if conn.Provider.SupportsCategory(qr.Category) {
			capable = append(capable, conn)
		}
	}

	// One slot per connection; goroutines never share a slot, so no lock is
	// needed around the collection.
	outcomes := make([]quoteOutcome, len(capable))
	done := make(chan int, len(capable))
	for i := range capable {
		go func(i int) {
			defer func() { done <- i }()
			conn := capable[i]
			adapter := s.registry.Resolve(conn.Provider.Slug, conn.Provider.Name)
			callCtx, cancel := context.WithTimeout(ctx, s.Timeout)
			defer cancel()
			res, err := adapter.GetQuote(callCtx, insurers.Credentials(conn.CredentialMap()), qr)
			outcomes[i] = quoteOutcome{result: res, err: err}
		}(i)
	}
	for range capable {
		<-done
	}

	inputData, _ := json.Marshal(qr.Data)
	quote := models.Quote{
		BrokerID:       brokerID,
		ConversationID: req.ConversationID,
		Category:       qr.Category,
		CoverageTier:   qr.CoverageTier,
		InputData:      datatypes.JSON(inputData),
	}
	if err := s.db.Create(&quote).Error; err != nil {
		return nil, utils.NewPersistenceError("failed to save quote", err)
	}

	results := []models.QuoteResult{}
	failures := []ProviderFailure{}
	for i, outcome := range outcomes {
		provider := capable[i].Provider
		if outcome.err != nil {
			failures = append(failures, ProviderFailure{
				ProviderSlug: provider.Slug,
				ProviderName: provider.Name,
				Error:        outcome.err.Error(),
			})
			continue
		}
		coverage, _ := json.Marshal(outcome.result.Coverage)
		row := models.QuoteResult{
			QuoteID:      quote.ID,
			BrokerID:     brokerID,
			ProviderSlug: outcome.result.ProviderSlug,
			ProviderName: outcome.result.ProviderName,
			Price:        outcome.result.Price,
			Currency:     outcome.result.Currency,
			Coverage:     datatypes.JSON(coverage),
			Deductible:   outcome.result.Deductible,
			IsRealtime:   outcome.result.IsRealtime,
		}
		if err := s.db.Create(&row).Error; err != nil {
			utils.LogError(err, "Save quote result")
			continue
		}
		results = append(results, row)
	}

	return &AggregateResult{Quote: &quote, Results: results, Failures: failures}, nil
}

// QuoteConnection quotes one insurer connection and reports the measured
// latency for diagnostics. The result is not persisted.
func (s *QuoteService) QuoteConnection(ctx context.Context, brokerID uint, req models.SingleQuoteRequest) (*insurers.QuoteResult, int64, error) {
	qr, err := normalizeQuoteRequest(req.Category, req.CoverageTier, req.Data)
	if err != nil {
		return nil, 0, err
	}

	var conn models.InsurerConnection
	if err := s.db.Preload("Provider").
		Where("id = ? AND broker_id = ?", req.InsurerConnectionID, brokerID).
		First(&conn).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, utils.NewNotFoundError("insurer connection not found")
		}
		return nil, 0, err
	}
	if !conn.Active {
		return nil, 0, utils.NewPreconditionError("insurer connection is inactive")
	}
	if !conn.Provider.SupportsCategory(qr.Category) {
		return nil, 0, utils.NewValidationError(fmt.Sprintf("provider %s does not support %s", conn.Provider.Slug, qr.Category))
	}

	adapter := s.registry.Resolve(conn.Provider.Slug, conn.Provider.Name)
	callCtx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	start := time.Now()
	result, err := adapter.GetQuote(callCtx, insurers.Credentials(conn.CredentialMap()), qr)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return nil, latency, utils.NewUpstreamError(conn.Provider.Slug, latency, err)
	}
	return result, latency, nil
}
