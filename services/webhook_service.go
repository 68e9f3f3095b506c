package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"corredorflow/config"
	"corredorflow/models"
	"corredorflow/utils"

	"gorm.io/gorm"
)

// PaymentEvent is a verified, classified provider callback.
type PaymentEvent struct {
	OrderID   string
	Provider  string
	RawStatus string
	Status    string // terminal payment status the callback resolves to
}

// Notifier delivers customer-facing messages (the messaging channel is a
// black box behind this interface).
type Notifier interface {
	SendText(ctx context.Context, to, text string) error
	SendTemplate(ctx context.Context, to, template string, params []string) error
}

// YappyVerifier is the Yappy-specific verification/classification surface.
type YappyVerifier interface {
	VerifySignature(payload []byte, signature, secretKey string) bool
	ClassifyStatus(raw string) (string, bool)
}

// MPGateway is the Mercado Pago-specific verification/resolution surface.
type MPGateway interface {
	VerifySignature(xSignature, xRequestID, dataID string) bool
	FetchPayment(ctx context.Context, paymentID string) (orderID, rawStatus string, err error)
	ClassifyStatus(raw string) (string, bool)
}

// WebhookService applies asynchronous payment callbacks. Deliveries are
// at-least-once and possibly out of order; correctness rests on the
// conditional status write, not on locking.
type WebhookService struct {
	db       *gorm.DB
	cfg      *config.Config
	notifier Notifier
	yappy    YappyVerifier
	mp       MPGateway
}

func NewWebhookService(db *gorm.DB, cfg *config.Config, notifier Notifier, yappy YappyVerifier, mp MPGateway) *WebhookService {
	return &WebhookService{db: db, cfg: cfg, notifier: notifier, yappy: yappy, mp: mp}
}

// HandleYappy authenticates and applies a Yappy webhook. The signature is an
// HMAC with the broker's secret key, so the target payment is resolved first
// to find which secret to verify against; no state changes before the
// signature checks out.
func (s *WebhookService) HandleYappy(ctx context.Context, rawBody []byte, signature string) error {
	var hook YappyWebhook
	if err := json.Unmarshal(rawBody, &hook); err != nil || hook.OrderID == "" {
		return utils.NewValidationError("malformed webhook payload")
	}

	var payment models.Payment
	if err := s.db.Where("order_id = ?", hook.OrderID).First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.LogError(fmt.Errorf("yappy webhook for unknown order %s", hook.OrderID), "Yappy webhook")
			return utils.NewNotFoundError("payment not found")
		}
		return err
	}

	var broker models.Broker
	if err := s.db.First(&broker, payment.BrokerID).Error; err != nil {
		return err
	}
	if !s.yappy.VerifySignature(rawBody, signature, broker.YappySecretKey) {
		return utils.NewAuthError("invalid webhook signature")
	}

	status, ok := s.yappy.ClassifyStatus(hook.Status)
	if !ok {
		return utils.NewValidationError(fmt.Sprintf("unknown yappy status %q", hook.Status))
	}

	return s.Apply(ctx, PaymentEvent{
		OrderID:   hook.OrderID,
		Provider:  "yappy",
		RawStatus: hook.Status,
		Status:    status,
	})
}

// HandleMercadoPago authenticates a Mercado Pago webhook and resolves the
// referenced payment back to our order id before applying it. Non-terminal
// statuses are acknowledged without a state change.
func (s *WebhookService) HandleMercadoPago(ctx context.Context, xSignature, xRequestID, dataID string) error {
	if dataID == "" {
		return utils.NewValidationError("missing data.id")
	}
	if !s.mp.VerifySignature(xSignature, xRequestID, dataID) {
		return utils.NewAuthError("invalid webhook signature")
	}

	orderID, rawStatus, err := s.mp.FetchPayment(ctx, dataID)
	if err != nil {
		return utils.NewUpstreamError("mercadopago", 0, err)
	}
	if orderID == "" {
		utils.LogError(fmt.Errorf("mercado pago payment %s has no external reference", dataID), "Mercado Pago webhook")
		return utils.NewNotFoundError("payment not found")
	}

	status, ok := s.mp.ClassifyStatus(rawStatus)
	if !ok {
		// pending / in_process; nothing to apply yet
		return nil
	}

	return s.Apply(ctx, PaymentEvent{
		OrderID:   orderID,
		Provider:  "mercadopago",
		RawStatus: rawStatus,
		Status:    status,
	})
}

// Apply advances the payment state machine exactly once per order.
//
// The write is conditional on the current status still being pending: the
// first terminal callback wins, replays and conflicting terminal callbacks
// are logged and acknowledged without a second notification.
func (s *WebhookService) Apply(ctx context.Context, ev PaymentEvent) error {
	seenKey := fmt.Sprintf("webhook_seen:%s:%s:%s", ev.Provider, ev.OrderID, ev.Status)
	if rdb := utils.GetRedis(); rdb != nil {
		if n, err := rdb.Exists(ctx, seenKey).Result(); err == nil && n > 0 {
			return nil
		}
	}

	var payment models.Payment
	if err := s.db.Where("order_id = ?", ev.OrderID).First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.LogError(fmt.Errorf("webhook for unknown order %s", ev.OrderID), "Webhook apply")
			return utils.NewNotFoundError("payment not found")
		}
		return err
	}

	if models.TerminalPaymentStatus(payment.Status) {
		if payment.Status != ev.Status {
			utils.LogError(fmt.Errorf("conflicting terminal webhook for %s: have %s, got %s (%s)",
				ev.OrderID, payment.Status, ev.Status, ev.RawStatus), "Webhook apply")
		}
		s.markSeen(ctx, seenKey)
		return nil
	}

	res := s.db.Model(&models.Payment{}).
		Where("order_id = ? AND status = ?", ev.OrderID, models.PaymentStatusPending).
		Update("status", ev.Status)
	if res.Error != nil {
		return utils.NewPersistenceError("failed to update payment status", res.Error)
	}
	if res.RowsAffected == 0 {
		// lost the race to a concurrent delivery; it did the cascade
		var current models.Payment
		if err := s.db.Where("order_id = ?", ev.OrderID).First(&current).Error; err == nil && current.Status != ev.Status {
			utils.LogError(fmt.Errorf("conflicting terminal webhook for %s: have %s, got %s",
				ev.OrderID, current.Status, ev.Status), "Webhook apply")
		}
		s.markSeen(ctx, seenKey)
		return nil
	}
	payment.Status = ev.Status

	if ev.Status == models.PaymentStatusCompleted {
		if err := s.db.Model(&models.QuoteResult{}).
			Where("id = ?", payment.QuoteResultID).
			Updates(map[string]interface{}{"paid": true, "selected": true}).Error; err != nil {
			utils.LogError(err, "Mark quote result paid")
		}
		if payment.ConversationID != nil {
			if err := s.db.Model(&models.Conversation{}).
				Where("id = ? AND status = ?", *payment.ConversationID, models.ConversationWaitingPayment).
				Update("status", models.ConversationClosed).Error; err != nil {
				utils.LogError(err, "Close conversation")
			}
		}
	}
	// on failure/cancellation the conversation stays waiting_payment so the
	// customer can retry from the same session

	s.notify(ctx, &payment, ev)
	s.markSeen(ctx, seenKey)
	return nil
}

func (s *WebhookService) markSeen(ctx context.Context, key string) {
	if rdb := utils.GetRedis(); rdb != nil {
		rdb.Set(ctx, key, 1, 24*time.Hour)
	}
}

// notify sends the customer outcome message. Notification failures are
// logged and swallowed: the state change already happened and reporting an
// error to the provider would only trigger pointless redeliveries.
func (s *WebhookService) notify(ctx context.Context, payment *models.Payment, ev PaymentEvent) {
	if s.notifier == nil || payment.CustomerPhone == "" {
		return
	}

	var result models.QuoteResult
	providerName := payment.Provider
	if err := s.db.First(&result, payment.QuoteResultID).Error; err == nil {
		providerName = result.ProviderName
	}

	var err error
	if ev.Status == models.PaymentStatusCompleted {
		text := fmt.Sprintf("✅ ¡Pago confirmado! Tu póliza con %s por %.2f %s quedó activa. Orden %s.",
			providerName, payment.Amount, payment.Currency, payment.OrderID)
		err = s.notifier.SendText(ctx, payment.CustomerPhone, text)
	} else {
		retryLink := fmt.Sprintf("%s/pay/%s", s.cfg.FrontendBaseURL, payment.OrderID)
		err = s.notifier.SendTemplate(ctx, payment.CustomerPhone, "payment_retry", []string{providerName, retryLink})
	}
	if err != nil {
		utils.LogError(err, fmt.Sprintf("Notify customer for order %s", payment.OrderID))
	}
}
