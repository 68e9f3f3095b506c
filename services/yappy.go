package services

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"corredorflow/models"
	"corredorflow/utils"
)

// YappyClient talks to the Yappy merchant API (Panama). Merchant credentials
// are broker-scoped; the session token is cached in redis per merchant.
type YappyClient struct {
	baseURL string
	client  *http.Client
}

func NewYappyClient(baseURL string) *YappyClient {
	return &YappyClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (y *YappyClient) Name() string {
	return "yappy"
}

func (y *YappyClient) getToken(ctx context.Context, merchantID, secretKey string) (string, error) {
	cacheKey := "yappy_token:" + merchantID
	if rdb := utils.GetRedis(); rdb != nil {
		if token, err := rdb.Get(ctx, cacheKey).Result(); err == nil && token != "" {
			return token, nil
		}
	}

	body, _ := json.Marshal(map[string]string{
		"merchant_id": merchantID,
		"secret_key":  secretKey,
	})
	req, err := http.NewRequestWithContext(ctx, "POST", y.baseURL+"/v1/session", bytes.NewBuffer(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := y.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("yappy auth request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("yappy auth failed: %s", string(raw))
	}

	var result struct {
		Token     string `json:"token"`
		ExpiresIn int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to parse yappy auth response: %w", err)
	}
	if result.Token == "" {
		return "", fmt.Errorf("no token in yappy auth response")
	}

	if rdb := utils.GetRedis(); rdb != nil {
		ttl := 50 * time.Minute
		if result.ExpiresIn > 300 {
			ttl = time.Duration(result.ExpiresIn-300) * time.Second
		}
		rdb.Set(ctx, cacheKey, result.Token, ttl)
	}
	return result.Token, nil
}

// CreateCheckout creates a Yappy order and returns the payable link.
func (y *YappyClient) CreateCheckout(ctx context.Context, broker *models.Broker, req PaymentRequest) (*CheckoutSession, error) {
	token, err := y.getToken(ctx, broker.YappyMerchantID, broker.YappySecretKey)
	if err != nil {
		return nil, err
	}

	payload := map[string]interface{}{
		"merchant_id": broker.YappyMerchantID,
		"order_id":    req.OrderID,
		"amount":      int64(math.Round(req.Amount * 100)), // cents
		"currency":    req.Currency,
		"description": req.Description,
		"success_url": req.SuccessURL,
		"cancel_url":  req.CancelURL,
		"ipn_url":     req.IPNURL,
	}
	if req.CustomerPhone != "" {
		payload["customer_phone"] = req.CustomerPhone
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, "POST", y.baseURL+"/v1/orders", bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := y.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("yappy order request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)

	var result struct {
		Success bool `json:"success"`
		Data    struct {
			TransactionID string `json:"transaction_id"`
			CheckoutURL   string `json:"checkout_url"`
		} `json:"data"`
		Error *struct {
			Code    string `json:"code"`
			Details string `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("failed to parse yappy response: %w", err)
	}
	if !result.Success {
		errMsg := "unknown error"
		if result.Error != nil {
			errMsg = result.Error.Details
		}
		return nil, fmt.Errorf("yappy order creation failed: %s", errMsg)
	}

	return &CheckoutSession{
		Reference:   result.Data.TransactionID,
		CheckoutURL: result.Data.CheckoutURL,
	}, nil
}

// GetOrder fetches the provider-side status of an order, for best-effort
// status sync. The webhook remains the authoritative state change.
func (y *YappyClient) GetOrder(ctx context.Context, broker *models.Broker, transactionID string) (string, error) {
	token, err := y.getToken(ctx, broker.YappyMerchantID, broker.YappySecretKey)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "GET", fmt.Sprintf("%s/v1/orders/%s", y.baseURL, transactionID), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := y.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("yappy status request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	var result struct {
		Success bool `json:"success"`
		Data    struct {
			Status string `json:"status"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", fmt.Errorf("failed to parse yappy status response: %w", err)
	}
	if !result.Success {
		return "", fmt.Errorf("yappy status lookup failed")
	}
	return result.Data.Status, nil
}

// YappyWebhook is the signed server-to-server callback body.
type YappyWebhook struct {
	OrderID       string `json:"order_id"`
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
}

// VerifySignature checks the X-Yappy-Signature header: lowercase hex
// HMAC-SHA256 of the raw body with the broker's secret key.
func (y *YappyClient) VerifySignature(payload []byte, signature, secretKey string) bool {
	if signature == "" || secretKey == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secretKey))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}

// ClassifyStatus maps Yappy's status vocabulary to a terminal payment status.
// E = executed, R = rejected, X = expired, C = cancelled by the payer.
// Unknown statuses return ok=false so the caller can reject the payload.
func (y *YappyClient) ClassifyStatus(raw string) (string, bool) {
	switch strings.ToUpper(raw) {
	case "E":
		return models.PaymentStatusCompleted, true
	case "R", "X":
		return models.PaymentStatusFailed, true
	case "C":
		return models.PaymentStatusCancelled, true
	}
	return "", false
}
