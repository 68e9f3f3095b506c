package models

import (
	"strings"
	"time"
)

// Product categories a quote can be requested for.
const (
	CategoryAuto     = "auto"
	CategoryHealth   = "health"
	CategoryHome     = "home"
	CategoryTravel   = "travel"
	CategoryBusiness = "business"
)

// Coverage tiers. Basic is the default when a request omits the tier.
const (
	TierBasic         = "basic"
	TierIntermediate  = "intermediate"
	TierComprehensive = "comprehensive"
)

func ValidCategory(c string) bool {
	switch c {
	case CategoryAuto, CategoryHealth, CategoryHome, CategoryTravel, CategoryBusiness:
		return true
	}
	return false
}

func ValidTier(t string) bool {
	switch t {
	case TierBasic, TierIntermediate, TierComprehensive:
		return true
	}
	return false
}

// Provider is a catalog row for an external insurer/lender. The catalog is
// seeded at startup; brokers link to providers through InsurerConnection.
type Provider struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	Slug       string    `json:"slug" gorm:"uniqueIndex;not null"`
	Name       string    `json:"name" gorm:"not null"`
	Categories string    `json:"categories" gorm:"not null"` // comma-separated product categories
	Countries  string    `json:"countries"`                   // comma-separated ISO codes, empty = everywhere
	HasLiveAPI bool      `json:"has_live_api" gorm:"default:false"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (p *Provider) SupportsCategory(category string) bool {
	for _, c := range strings.Split(p.Categories, ",") {
		if strings.TrimSpace(c) == category {
			return true
		}
	}
	return false
}

func (p *Provider) AvailableIn(country string) bool {
	if p.Countries == "" {
		return true
	}
	for _, c := range strings.Split(p.Countries, ",") {
		if strings.TrimSpace(c) == country {
			return true
		}
	}
	return false
}
