// README: Quote handlers for estimate and held-quote lookup.
package handlers

import (
	"errors"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"dronequote/internal/modules/pricing"
	"dronequote/internal/types"
)

type QuoteHandler struct {
	pricing *pricing.Service
	logger  *zap.Logger
}

func NewQuoteHandler(svc *pricing.Service, logger *zap.Logger) *QuoteHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuoteHandler{pricing: svc, logger: logger}
}

type estimateReq struct {
	SellerOrgID string       `json:"seller_org_id"`
	ServiceType string       `json:"service_type"`
	AreaHa      *float64     `json:"area_ha"`
	DistanceKm  *float64     `json:"distance_km"`
	RiskKey     *string      `json:"risk_key"`
	Month       *float64     `json:"month"`
	Origin      *types.Point `json:"origin"`
	Field       *types.Point `json:"field"`
}

type quoteResp struct {
	QuoteID             string                 `json:"quote_id"`
	Currency            string                 `json:"currency"`
	TotalEstimatedCents int64                  `json:"total_estimated_cents"`
	Breakdown           pricing.QuoteBreakdown `json:"breakdown"`
	PricingSnapshotJSON pricing.Snapshot       `json:"pricing_snapshot_json"`
	ExpiresAt           time.Time              `json:"expires_at"`
}

func toQuoteResp(q pricing.Quote) quoteResp {
	return quoteResp{
		QuoteID:             q.ID,
		Currency:            q.Total.Currency,
		TotalEstimatedCents: q.Total.Amount,
		Breakdown:           q.Breakdown,
		PricingSnapshotJSON: q.Snapshot,
		ExpiresAt:           q.ExpiresAt,
	}
}

// Estimate handles POST /api/quotes/estimate.
func (h *QuoteHandler) Estimate(c *gin.Context) {
	var body estimateReq
	if err := c.ShouldBindJSON(&body); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}

	req, verr := body.toQuoteRequest()
	var v *pricing.ValidationError
	if errors.As(req.Validate(), &v) {
		for _, f := range v.Fields {
			verr.Add(f.Field, f.Message)
		}
	}
	if len(verr.Fields) > 0 {
		writeValidationError(c, verr)
		return
	}

	q, err := h.pricing.Estimate(c.Request.Context(), req)
	if err != nil {
		writePricingError(c, h.logger, err)
		return
	}
	writeJSON(c, http.StatusOK, toQuoteResp(q))
}

// Get handles GET /api/quotes/held/:id.
func (h *QuoteHandler) Get(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		writeError(c, http.StatusBadRequest, "invalid quote id")
		return
	}
	q, err := h.pricing.GetQuote(c.Request.Context(), id)
	if err != nil {
		writePricingError(c, h.logger, err)
		return
	}
	writeJSON(c, http.StatusOK, toQuoteResp(q))
}

// toQuoteRequest converts the wire body, reporting the checks that only make
// sense on raw JSON (presence of area_ha, integral month).
func (b estimateReq) toQuoteRequest() (pricing.QuoteRequest, *pricing.ValidationError) {
	verr := &pricing.ValidationError{}
	req := pricing.QuoteRequest{
		SellerOrgID: strings.TrimSpace(b.SellerOrgID),
		ServiceType: strings.TrimSpace(b.ServiceType),
		Origin:      b.Origin,
		Field:       b.Field,
	}
	if b.AreaHa == nil {
		verr.Add("area_ha", "is required")
	} else {
		req.AreaHa = *b.AreaHa
	}
	if b.DistanceKm != nil {
		req.DistanceKm = *b.DistanceKm
	}
	if b.RiskKey != nil {
		req.RiskKey = *b.RiskKey
	}
	if b.Month != nil {
		m := *b.Month
		if m != math.Trunc(m) {
			verr.Add("month", "must be an integer")
		} else if m < 1 || m > 12 {
			verr.Add("month", "must be between 1 and 12")
		} else {
			month := int(m)
			req.Month = &month
		}
	}
	return req, verr
}
