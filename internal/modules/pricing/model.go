// README: Rate card, quote request and breakdown definitions for service pricing.
package pricing

import (
	"time"

	"dronequote/internal/types"
)

// Version identifies the arithmetic used to produce a breakdown. Bump it when
// Calculate changes so stored snapshots stay reproducible.
const Version = "pricing-v1"

// Multipliers is a seller-managed JSON object of key -> multiplier. Values are
// not trusted to be numbers.
type Multipliers map[string]any

type RateCard struct {
	ID                   string      `json:"id"`
	SellerOrgID          string      `json:"seller_org_id"`
	ServiceType          string      `json:"service_type"`
	Currency             string      `json:"currency"`
	BaseRatePerHaCents   int64       `json:"base_rate_per_ha_cents"`
	MinChargeCents       int64       `json:"min_charge_cents"`
	TravelRatePerKmCents int64       `json:"travel_rate_per_km_cents"`
	SeasonalMultipliers  Multipliers `json:"seasonal_multipliers"`
	RiskMultipliers      Multipliers `json:"risk_multipliers"`
	UpdatedAt            time.Time   `json:"updated_at"`
}

type QuoteRequest struct {
	SellerOrgID string       `json:"seller_org_id" validate:"required"`
	ServiceType string       `json:"service_type" validate:"required"`
	AreaHa      float64      `json:"area_ha" validate:"gt=0"`
	DistanceKm  float64      `json:"distance_km" validate:"gte=0"`
	RiskKey     string       `json:"risk_key,omitempty"`
	Month       *int         `json:"month,omitempty" validate:"omitempty,min=1,max=12"`
	Origin      *types.Point `json:"origin,omitempty"`
	Field       *types.Point `json:"field,omitempty"`
}

type QuoteBreakdown struct {
	BaseCents       int64   `json:"baseCents"`
	TravelCents     int64   `json:"travelCents"`
	SubtotalCents   int64   `json:"subtotalCents"`
	SeasonalMult    float64 `json:"seasonalMult"`
	RiskMult        float64 `json:"riskMult"`
	MultipliedCents int64   `json:"multipliedCents"`
	MinCharge       int64   `json:"minCharge"`
	TotalCents      int64   `json:"totalCents"`
}

// Snapshot is everything needed to reproduce a quote after the seller edits
// their rate card.
type Snapshot struct {
	Input      QuoteRequest   `json:"input"`
	RateCardID string         `json:"rate_card_id"`
	RateCard   RateCard       `json:"rate_card"`
	Breakdown  QuoteBreakdown `json:"breakdown"`
	Version    string         `json:"version"`
	ComputedAt time.Time      `json:"computed_at"`
}

type Quote struct {
	ID        string         `json:"id"`
	Total     types.Money    `json:"total"`
	Breakdown QuoteBreakdown `json:"breakdown"`
	Snapshot  Snapshot       `json:"snapshot"`
	ExpiresAt time.Time      `json:"expires_at"`
}
