package insurers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"corredorflow/utils"
)

const internacionalDefaultBaseURL = "https://api.iseguros.com.pa"

// Internacional integrates Internacional de Seguros. Auth is a login/password
// exchange for a bearer token; the token is cached in redis keyed by login so
// concurrent quote requests don't re-authenticate.
type Internacional struct {
	slug   string
	name   string
	client *http.Client
}

func NewInternacional(slug, name string) *Internacional {
	return &Internacional{
		slug:   slug,
		name:   name,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (a *Internacional) baseURL(creds Credentials) string {
	if u := creds["base_url"]; u != "" {
		return u
	}
	return internacionalDefaultBaseURL
}

func (a *Internacional) authenticate(ctx context.Context, creds Credentials) (string, error) {
	login := creds["login"]
	password := creds["password"]
	if login == "" || password == "" {
		return "", fmt.Errorf("internacional: missing login or password")
	}

	cacheKey := fmt.Sprintf("insurer_token:%s:%s", a.slug, login)
	if rdb := utils.GetRedis(); rdb != nil {
		if token, err := rdb.Get(ctx, cacheKey).Result(); err == nil && token != "" {
			return token, nil
		}
	}

	body, _ := json.Marshal(map[string]string{"login": login, "password": password})
	req, err := http.NewRequestWithContext(ctx, "POST", a.baseURL(creds)+"/api/auth/login", bytes.NewBuffer(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("internacional auth request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("internacional auth failed with status %d: %s", resp.StatusCode, string(raw))
	}

	var authResp struct {
		Token     string `json:"token"`
		ExpiresIn int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&authResp); err != nil {
		return "", fmt.Errorf("internacional auth response parse failed: %w", err)
	}
	if authResp.Token == "" {
		return "", fmt.Errorf("no token in internacional auth response")
	}

	if rdb := utils.GetRedis(); rdb != nil {
		ttl := 55 * time.Minute
		if authResp.ExpiresIn > 300 {
			ttl = time.Duration(authResp.ExpiresIn-300) * time.Second
		}
		rdb.Set(ctx, cacheKey, authResp.Token, ttl)
	}
	return authResp.Token, nil
}

func (a *Internacional) TestConnection(ctx context.Context, creds Credentials) (bool, string, error) {
	login := creds["login"]
	password := creds["password"]
	if login == "" || password == "" {
		return false, "login and password are required", nil
	}

	body, _ := json.Marshal(map[string]string{"login": login, "password": password})
	req, err := http.NewRequestWithContext(ctx, "POST", a.baseURL(creds)+"/api/auth/login", bytes.NewBuffer(body))
	if err != nil {
		return false, "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		// transport failure, not an auth verdict
		return false, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return true, "", nil
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return false, "provider rejected the credentials", nil
	}
	return false, fmt.Sprintf("provider returned status %d", resp.StatusCode), nil
}

func (a *Internacional) GetQuote(ctx context.Context, creds Credentials, qr QuoteRequest) (*QuoteResult, error) {
	token, err := a.authenticate(ctx, creds)
	if err != nil {
		return nil, err
	}

	payload := map[string]interface{}{
		"product":       qr.Category,
		"coverage_tier": qr.CoverageTier,
		"data":          qr.Data,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", a.baseURL(creds)+"/api/quotes/calculate", bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("internacional quote request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("internacional quote failed with status %d: %s", resp.StatusCode, string(raw))
	}

	var result struct {
		Success bool `json:"success"`
		Data    struct {
			Premium    float64                `json:"premium"`
			Currency   string                 `json:"currency"`
			Deductible *float64               `json:"deductible"`
			Coverage   map[string]interface{} `json:"coverage"`
		} `json:"data"`
		Error *struct {
			Code    string `json:"code"`
			Details string `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("failed to parse internacional response: %w", err)
	}
	if !result.Success {
		errMsg := "unknown error"
		if result.Error != nil {
			errMsg = result.Error.Details
		}
		return nil, fmt.Errorf("internacional quote rejected: %s", errMsg)
	}
	if result.Data.Premium <= 0 {
		return nil, fmt.Errorf("internacional returned a non-positive premium")
	}

	currency := result.Data.Currency
	if currency == "" {
		currency = "USD"
	}
	return &QuoteResult{
		ProviderSlug: a.slug,
		ProviderName: a.name,
		Price:        result.Data.Premium,
		Currency:     currency,
		Coverage:     result.Data.Coverage,
		Deductible:   result.Data.Deductible,
		IsRealtime:   true,
	}, nil
}
