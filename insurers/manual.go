package insurers

import (
	"context"
	"fmt"
	"math"
)

// Manual is the rate-table fallback for providers without a live API. It is
// also what the registry hands out for unknown provider slugs, so quoting
// degrades to "no live data" instead of "no adapter".
type Manual struct {
	slug string
	name string
}

func NewManual(slug, name string) *Manual {
	return &Manual{slug: slug, name: name}
}

// Base annual premiums in USD per product category.
var manualBaseRates = map[string]float64{
	"auto":     180.00,
	"health":   95.00,
	"home":     120.00,
	"travel":   35.00,
	"business": 450.00,
}

var manualTierMultipliers = map[string]float64{
	"basic":         1.0,
	"intermediate":  1.35,
	"comprehensive": 1.80,
}

// Per-category key of the input payload that scales the premium, and the
// fraction of that value added on top of the base rate.
var manualValueFactors = map[string]struct {
	key    string
	factor float64
}{
	"auto":     {"vehicle_value", 0.015},
	"home":     {"property_value", 0.002},
	"business": {"annual_revenue", 0.001},
	"travel":   {"trip_days", 1.50},
	"health":   {"age", 1.20},
}

// TestConnection always succeeds: there is no external dependency to test.
func (m *Manual) TestConnection(ctx context.Context, creds Credentials) (bool, string, error) {
	return true, "", nil
}

func (m *Manual) GetQuote(ctx context.Context, creds Credentials, qr QuoteRequest) (*QuoteResult, error) {
	base, ok := manualBaseRates[qr.Category]
	if !ok {
		return nil, fmt.Errorf("manual rates: unsupported category %q", qr.Category)
	}

	tier := qr.CoverageTier
	if tier == "" {
		tier = "basic"
	}
	mult, ok := manualTierMultipliers[tier]
	if !ok {
		return nil, fmt.Errorf("manual rates: unsupported coverage tier %q", tier)
	}

	price := base
	if vf, ok := manualValueFactors[qr.Category]; ok {
		if v, ok := numericField(qr.Data, vf.key); ok {
			price += v * vf.factor
		}
	}
	price = math.Round(price*mult*100) / 100

	deductible := math.Round(price*0.10*100) / 100
	return &QuoteResult{
		ProviderSlug: m.slug,
		ProviderName: m.name,
		Price:        price,
		Currency:     "USD",
		Coverage: map[string]interface{}{
			"tier":   tier,
			"source": "rate_table",
		},
		Deductible: &deductible,
		IsRealtime: false,
	}, nil
}

func numericField(data map[string]interface{}, key string) (float64, bool) {
	v, ok := data[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
