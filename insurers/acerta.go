package insurers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const acertaDefaultBaseURL = "https://api.acertaseguros.com"

// Acerta integrates Acerta Seguros. The API uses a static key, so there is no
// token exchange to cache.
type Acerta struct {
	slug   string
	name   string
	client *http.Client
}

func NewAcerta(slug, name string) *Acerta {
	return &Acerta{
		slug:   slug,
		name:   name,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (a *Acerta) baseURL(creds Credentials) string {
	if u := creds["base_url"]; u != "" {
		return u
	}
	return acertaDefaultBaseURL
}

func (a *Acerta) TestConnection(ctx context.Context, creds Credentials) (bool, string, error) {
	apiKey := creds["api_key"]
	if apiKey == "" {
		return false, "api_key is required", nil
	}

	req, err := http.NewRequestWithContext(ctx, "GET", a.baseURL(creds)+"/v1/ping", nil)
	if err != nil {
		return false, "", err
	}
	req.Header.Set("X-Api-Key", apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return false, "", err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, "", nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return false, "provider rejected the api key", nil
	default:
		return false, fmt.Sprintf("provider returned status %d", resp.StatusCode), nil
	}
}

func (a *Acerta) GetQuote(ctx context.Context, creds Credentials, qr QuoteRequest) (*QuoteResult, error) {
	apiKey := creds["api_key"]
	if apiKey == "" {
		return nil, fmt.Errorf("acerta: missing api_key")
	}

	payload := map[string]interface{}{
		"line":  qr.Category,
		"tier":  qr.CoverageTier,
		"input": qr.Data,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", a.baseURL(creds)+"/v1/quotes", bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("acerta quote request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("acerta quote failed with status %d: %s", resp.StatusCode, string(raw))
	}

	var result struct {
		Quote struct {
			Premium    float64                `json:"premium"`
			Currency   string                 `json:"currency"`
			Deductible *float64               `json:"deductible"`
			Benefits   map[string]interface{} `json:"benefits"`
		} `json:"quote"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("failed to parse acerta response: %w", err)
	}
	if result.Quote.Premium <= 0 {
		return nil, fmt.Errorf("acerta returned a non-positive premium")
	}

	currency := result.Quote.Currency
	if currency == "" {
		currency = "USD"
	}
	return &QuoteResult{
		ProviderSlug: a.slug,
		ProviderName: a.name,
		Price:        result.Quote.Premium,
		Currency:     currency,
		Coverage:     result.Quote.Benefits,
		Deductible:   result.Quote.Deductible,
		IsRealtime:   true,
	}, nil
}
