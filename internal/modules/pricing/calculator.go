package pricing

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// Calculate prices one job against a rate card. Each step is rounded to a
// whole cent (half away from zero) before it feeds the next, and every
// intermediate value is returned so the chain can be audited.
func Calculate(card RateCard, req QuoteRequest) (QuoteBreakdown, error) {
	if err := req.Validate(); err != nil {
		return QuoteBreakdown{}, err
	}

	baseCents := roundCents(decimal.NewFromInt(card.BaseRatePerHaCents).Mul(decimal.NewFromFloat(req.AreaHa)))
	travelCents := roundCents(decimal.NewFromInt(card.TravelRatePerKmCents).Mul(decimal.NewFromFloat(req.DistanceKm)))
	subtotalCents := baseCents + travelCents

	var monthKey string
	if req.Month != nil {
		monthKey = strconv.Itoa(*req.Month)
	}
	seasonalMult := ResolveMultiplier(card.SeasonalMultipliers, monthKey)
	riskMult := ResolveMultiplier(card.RiskMultipliers, req.RiskKey)

	multipliedCents := roundCents(decimal.NewFromInt(subtotalCents).
		Mul(decimal.NewFromFloat(seasonalMult)).
		Mul(decimal.NewFromFloat(riskMult)))

	// A negative floor on a misconfigured card must not let the total go below zero.
	minCharge := max(card.MinChargeCents, 0)

	return QuoteBreakdown{
		BaseCents:       baseCents,
		TravelCents:     travelCents,
		SubtotalCents:   subtotalCents,
		SeasonalMult:    seasonalMult,
		RiskMult:        riskMult,
		MultipliedCents: multipliedCents,
		MinCharge:       minCharge,
		TotalCents:      max(minCharge, multipliedCents),
	}, nil
}

func roundCents(d decimal.Decimal) int64 {
	return d.Round(0).IntPart()
}
