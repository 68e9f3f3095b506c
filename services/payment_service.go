package services

import (
	"context"
	"errors"
	"fmt"

	"corredorflow/config"
	"corredorflow/models"
	"corredorflow/utils"

	"gorm.io/gorm"
)

// PaymentRequest is the provider-agnostic checkout input.
type PaymentRequest struct {
	OrderID       string
	Amount        float64
	Currency      string
	Description   string
	CustomerPhone string
	SuccessURL    string
	CancelURL     string
	IPNURL        string
}

// CheckoutSession is what a provider hands back for a created checkout.
type CheckoutSession struct {
	Reference   string
	CheckoutURL string
}

// CheckoutProvider is one payment provider's checkout creation surface.
type CheckoutProvider interface {
	Name() string
	CreateCheckout(ctx context.Context, broker *models.Broker, req PaymentRequest) (*CheckoutSession, error)
}

// PaymentService routes payment creation to a provider chosen purely from the
// broker's configuration, creates the external checkout first, then persists
// the local Payment row.
type PaymentService struct {
	db          *gorm.DB
	cfg         *config.Config
	yappy       CheckoutProvider
	mercadopago CheckoutProvider
}

func NewPaymentService(db *gorm.DB, cfg *config.Config, yappy, mercadopago CheckoutProvider) *PaymentService {
	return &PaymentService{db: db, cfg: cfg, yappy: yappy, mercadopago: mercadopago}
}

// countryCurrencies maps broker countries to their charge currency, for quote
// results that arrive without one. Panama transacts in USD.
var countryCurrencies = map[string]string{
	"PA": "USD",
	"CR": "CRC",
	"CO": "COP",
	"MX": "MXN",
	"CL": "CLP",
	"NI": "NIO",
	"SV": "USD",
	"GT": "GTQ",
	"HN": "HNL",
}

func defaultCurrencyFor(country string) string {
	if c, ok := countryCurrencies[country]; ok {
		return c
	}
	return "USD"
}

// SelectProvider picks Yappy when the broker operates in its market and has
// merchant credentials configured; everything else goes to Mercado Pago.
func (s *PaymentService) SelectProvider(broker *models.Broker) CheckoutProvider {
	if broker.Country == s.cfg.YappyMarketCode && broker.HasYappyCredentials() {
		return s.yappy
	}
	return s.mercadopago
}

// CreatePaymentResult is returned to the caller; the checkout URL is what the
// customer pays through.
type CreatePaymentResult struct {
	PaymentURL string `json:"payment_url"`
	OrderID    string `json:"order_id"`
	Provider   string `json:"provider"`
}

// CreatePayment issues a payable link for a chosen quote result.
//
// Order of operations matters: the external checkout is created before the
// local row is written. If the local write fails afterwards the link is still
// returned, since the provider-side object is the source of truth and the row
// can be reconciled later.
func (s *PaymentService) CreatePayment(ctx context.Context, brokerID uint, req models.CreatePaymentRequest) (*CreatePaymentResult, error) {
	var broker models.Broker
	if err := s.db.First(&broker, brokerID).Error; err != nil {
		return nil, utils.NewNotFoundError("broker not found")
	}

	var result models.QuoteResult
	if err := s.db.Where("id = ? AND broker_id = ?", req.QuoteResultID, brokerID).First(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NewNotFoundError("quote result not found")
		}
		return nil, err
	}
	if result.Paid {
		return nil, utils.NewPreconditionError("quote result is already paid")
	}

	var quote models.Quote
	if err := s.db.First(&quote, result.QuoteID).Error; err != nil {
		return nil, utils.NewNotFoundError("quote not found")
	}

	customerPhone := req.CustomerPhone
	if customerPhone == "" && quote.ConversationID != nil {
		var conv models.Conversation
		if err := s.db.First(&conv, *quote.ConversationID).Error; err == nil {
			customerPhone = conv.CustomerPhone
		}
	}

	provider := s.SelectProvider(&broker)
	orderID := utils.NewOrderID()
	currency := result.Currency
	if currency == "" {
		currency = defaultCurrencyFor(broker.Country)
	}

	paymentReq := PaymentRequest{
		OrderID:       orderID,
		Amount:        result.Price,
		Currency:      currency,
		Description:   fmt.Sprintf("%s insurance - %s (%s)", quote.Category, result.ProviderName, orderID),
		CustomerPhone: customerPhone,
		SuccessURL:    fmt.Sprintf("%s/payments/%s-callback?order_id=%s&result=success", s.cfg.CallbackBaseURL, provider.Name(), orderID),
		CancelURL:     fmt.Sprintf("%s/payments/%s-callback?order_id=%s&result=cancel", s.cfg.CallbackBaseURL, provider.Name(), orderID),
		IPNURL:        fmt.Sprintf("%s/webhooks/%s", s.cfg.CallbackBaseURL, provider.Name()),
	}

	session, err := provider.CreateCheckout(ctx, &broker, paymentReq)
	if err != nil {
		return nil, utils.NewUpstreamError(provider.Name(), 0, err)
	}

	out := &CreatePaymentResult{
		PaymentURL: session.CheckoutURL,
		OrderID:    orderID,
		Provider:   provider.Name(),
	}

	// From here on the external payment object exists; local failures are
	// logged loudly but the link is still returned.
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.QuoteResult{}).
			Where("quote_id = ? AND id <> ?", result.QuoteID, result.ID).
			Update("selected", false).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.QuoteResult{}).
			Where("id = ?", result.ID).
			Update("selected", true).Error; err != nil {
			return err
		}

		payment := models.Payment{
			OrderID:        orderID,
			BrokerID:       brokerID,
			QuoteResultID:  result.ID,
			ConversationID: quote.ConversationID,
			Provider:       provider.Name(),
			Amount:         result.Price,
			Currency:       currency,
			Status:         models.PaymentStatusPending,
			ProviderRef:    session.Reference,
			CheckoutURL:    session.CheckoutURL,
			CustomerPhone:  customerPhone,
		}
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}

		if quote.ConversationID != nil {
			if err := tx.Model(&models.Conversation{}).
				Where("id = ? AND broker_id = ? AND status IN ?", *quote.ConversationID, brokerID,
					[]string{models.ConversationActive, models.ConversationWaitingPayment}).
				Update("status", models.ConversationWaitingPayment).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		utils.LogError(err, fmt.Sprintf("Persist payment %s after external checkout succeeded", orderID))
	}

	return out, nil
}

// GetPayment returns a broker's payment by order id, with a best-effort
// provider status sync for Yappy orders still pending. The webhook stays
// authoritative; the sync only refreshes the raw provider reference status
// shown on the dashboard.
func (s *PaymentService) GetPayment(ctx context.Context, brokerID uint, orderID string) (*models.Payment, error) {
	var payment models.Payment
	if err := s.db.Where("order_id = ? AND broker_id = ?", orderID, brokerID).First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NewNotFoundError("payment not found")
		}
		return nil, err
	}

	if payment.Status == models.PaymentStatusPending && payment.Provider == "yappy" && payment.ProviderRef != "" {
		if yc, ok := s.yappy.(*YappyClient); ok {
			var broker models.Broker
			if err := s.db.First(&broker, brokerID).Error; err == nil {
				if raw, err := yc.GetOrder(ctx, &broker, payment.ProviderRef); err == nil {
					if status, ok := yc.ClassifyStatus(raw); ok && status == models.PaymentStatusCancelled {
						// Safe to reflect a provider-side cancellation early;
						// success/failure still waits for the signed webhook.
						s.db.Model(&models.Payment{}).
							Where("order_id = ? AND status = ?", orderID, models.PaymentStatusPending).
							Update("status", models.PaymentStatusCancelled)
						s.db.Where("order_id = ?", orderID).First(&payment)
					}
				}
			}
		}
	}

	return &payment, nil
}

// ListPayments returns the broker's payments with optional status/provider
// filters.
func (s *PaymentService) ListPayments(brokerID uint, status, provider string, limit, offset int) ([]models.Payment, int64, error) {
	if limit > 100 {
		limit = 100
	}
	if limit < 1 {
		limit = 20
	}

	query := s.db.Model(&models.Payment{}).Where("broker_id = ?", brokerID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if provider != "" {
		query = query.Where("provider = ?", provider)
	}

	var total int64
	query.Count(&total)

	var payments []models.Payment
	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&payments).Error; err != nil {
		return nil, 0, err
	}
	return payments, total, nil
}
