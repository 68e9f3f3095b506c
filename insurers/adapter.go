package insurers

import (
	"context"
)

// Credentials is the opaque key-value bag a broker stores for one provider.
type Credentials map[string]string

// QuoteRequest is the normalized input every adapter accepts.
type QuoteRequest struct {
	Category     string                 // auto, health, home, travel, business
	Data         map[string]interface{} // free-form product payload
	CoverageTier string                 // basic, intermediate, comprehensive
}

// QuoteResult is the normalized offer an adapter returns. IsRealtime is false
// for manual rate-table lookups.
type QuoteResult struct {
	ProviderSlug string                 `json:"provider_slug"`
	ProviderName string                 `json:"provider_name"`
	Price        float64                `json:"price"`
	Currency     string                 `json:"currency"`
	Coverage     map[string]interface{} `json:"coverage"`
	Deductible   *float64               `json:"deductible,omitempty"`
	IsRealtime   bool                   `json:"is_realtime"`
}

// Adapter normalizes one external insurer/lender API.
//
// TestConnection returns false plus a loggable reason for ordinary auth
// failures; only abnormal transport failure comes back as an error.
// GetQuote fails closed: any provider error propagates, never a fabricated
// zero-price success.
type Adapter interface {
	TestConnection(ctx context.Context, creds Credentials) (bool, string, error)
	GetQuote(ctx context.Context, creds Credentials, req QuoteRequest) (*QuoteResult, error)
}

// Constructor builds an adapter for a provider identified by slug/name.
type Constructor func(slug, name string) Adapter

// Registry maps provider slugs to adapter constructors. It is built once at
// startup and never mutated; lookup misses fall back to the manual rate-table
// adapter so every provider is always quotable in degraded mode.
type Registry struct {
	ctors map[string]Constructor
}

func NewRegistry(ctors map[string]Constructor) *Registry {
	copied := make(map[string]Constructor, len(ctors))
	for slug, ctor := range ctors {
		copied[slug] = ctor
	}
	return &Registry{ctors: copied}
}

// DefaultRegistry wires the live adapters.
func DefaultRegistry() *Registry {
	return NewRegistry(map[string]Constructor{
		"internacional": func(slug, name string) Adapter { return NewInternacional(slug, name) },
		"acerta":        func(slug, name string) Adapter { return NewAcerta(slug, name) },
	})
}

// Resolve returns the adapter for slug, or the manual fallback.
func (r *Registry) Resolve(slug, name string) Adapter {
	if ctor, ok := r.ctors[slug]; ok {
		return ctor(slug, name)
	}
	return NewManual(slug, name)
}
