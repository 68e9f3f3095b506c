package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"corredorflow/models"

	mpconfig "github.com/mercadopago/sdk-go/pkg/config"
	"github.com/mercadopago/sdk-go/pkg/payment"
	"github.com/mercadopago/sdk-go/pkg/preference"
)

// MercadoPagoClient is the multi-country checkout provider. The access token
// belongs to the platform account; brokers only contribute their collector id.
type MercadoPagoClient struct {
	accessToken   string
	webhookSecret string
}

func NewMercadoPagoClient(accessToken, webhookSecret string) *MercadoPagoClient {
	return &MercadoPagoClient{accessToken: accessToken, webhookSecret: webhookSecret}
}

func (m *MercadoPagoClient) Name() string {
	return "mercadopago"
}

func (m *MercadoPagoClient) sdkConfig() (*mpconfig.Config, error) {
	if m.accessToken == "" {
		return nil, fmt.Errorf("mercado pago access token not configured")
	}
	return mpconfig.New(m.accessToken)
}

// CreateCheckout creates a checkout preference whose external_reference is
// our order id, and returns the init point as the payable link.
func (m *MercadoPagoClient) CreateCheckout(ctx context.Context, broker *models.Broker, req PaymentRequest) (*CheckoutSession, error) {
	cfg, err := m.sdkConfig()
	if err != nil {
		return nil, err
	}

	metadata := map[string]any{"order_id": req.OrderID}
	if broker.MPCollectorID != "" {
		metadata["collector_id"] = broker.MPCollectorID
	}

	prefReq := preference.Request{
		Items: []preference.ItemRequest{
			{
				ID:         req.OrderID,
				Title:      req.Description,
				Quantity:   1,
				UnitPrice:  req.Amount,
				CurrencyID: req.Currency,
			},
		},
		ExternalReference: req.OrderID,
		NotificationURL:   req.IPNURL,
		BackURLs: &preference.BackURLsRequest{
			Success: req.SuccessURL,
			Pending: req.SuccessURL,
			Failure: req.CancelURL,
		},
		AutoReturn: "approved",
		Metadata:   metadata,
	}

	client := preference.NewClient(cfg)
	resp, err := client.Create(ctx, prefReq)
	if err != nil {
		return nil, fmt.Errorf("mercado pago preference creation failed: %w", err)
	}

	return &CheckoutSession{
		Reference:   resp.ID,
		CheckoutURL: resp.InitPoint,
	}, nil
}

// FetchPayment resolves a webhook's payment id into our order id (the
// external reference set at checkout creation) and the raw provider status.
func (m *MercadoPagoClient) FetchPayment(ctx context.Context, paymentID string) (string, string, error) {
	cfg, err := m.sdkConfig()
	if err != nil {
		return "", "", err
	}

	id, err := strconv.Atoi(paymentID)
	if err != nil {
		return "", "", fmt.Errorf("invalid mercado pago payment id %q", paymentID)
	}

	client := payment.NewClient(cfg)
	resp, err := client.Get(ctx, id)
	if err != nil {
		return "", "", fmt.Errorf("mercado pago payment lookup failed: %w", err)
	}
	return resp.ExternalReference, resp.Status, nil
}

// VerifySignature validates the x-signature header:
// "ts=<unix>,v1=<hmac>" where the hmac manifest is
// "id:<data.id>;request-id:<x-request-id>;ts:<ts>;" signed with the app-wide
// webhook secret.
func (m *MercadoPagoClient) VerifySignature(xSignature, xRequestID, dataID string) bool {
	if m.webhookSecret == "" || xSignature == "" {
		return false
	}

	var ts, v1 string
	for _, part := range strings.Split(xSignature, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "ts":
			ts = kv[1]
		case "v1":
			v1 = kv[1]
		}
	}
	if ts == "" || v1 == "" {
		return false
	}

	manifest := fmt.Sprintf("id:%s;request-id:%s;ts:%s;", dataID, xRequestID, ts)
	mac := hmac.New(sha256.New, []byte(m.webhookSecret))
	mac.Write([]byte(manifest))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(v1)))
}

// ClassifyStatus maps Mercado Pago payment statuses to a terminal payment
// status. Non-terminal statuses (pending, in_process, authorized) return
// ok=false and are acknowledged without a state change.
func (m *MercadoPagoClient) ClassifyStatus(raw string) (string, bool) {
	switch strings.ToLower(raw) {
	case "approved":
		return models.PaymentStatusCompleted, true
	case "rejected":
		return models.PaymentStatusFailed, true
	case "cancelled":
		return models.PaymentStatusCancelled, true
	}
	return "", false
}
