// README: Quote handler tests (status mapping and response shape).
package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dronequote/internal/http/handlers"
	"dronequote/internal/modules/pricing"
)

type stubRateCards struct {
	mu    sync.Mutex
	card  *pricing.RateCard
	err   error
	calls int
}

func (s *stubRateCards) GetRateCard(_ context.Context, sellerOrgID, serviceType string) (pricing.RateCard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return pricing.RateCard{}, s.err
	}
	if s.card == nil || s.card.SellerOrgID != sellerOrgID || s.card.ServiceType != serviceType {
		return pricing.RateCard{}, pricing.ErrRateCardNotFound
	}
	return *s.card, nil
}

type memHolds struct {
	mu     sync.Mutex
	quotes map[string]pricing.Quote
}

func (m *memHolds) Save(_ context.Context, q pricing.Quote, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quotes[q.ID] = q
	return nil
}

func (m *memHolds) Get(_ context.Context, id string) (pricing.Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quotes[id]
	if !ok {
		return pricing.Quote{}, pricing.ErrQuoteNotFound
	}
	return q, nil
}

func sprayingCard() *pricing.RateCard {
	return &pricing.RateCard{
		ID:                   "0b6c1f4e-8f0d-4f7a-a8b2-6d8d8f5e2c11",
		SellerOrgID:          "org-agri",
		ServiceType:          "spraying",
		Currency:             "EUR",
		BaseRatePerHaCents:   1000,
		MinChargeCents:       5000,
		TravelRatePerKmCents: 120,
		SeasonalMultipliers:  pricing.Multipliers{"7": 1.1},
	}
}

func buildTestRouter(cards *stubRateCards) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := pricing.NewService(cards, &memHolds{quotes: map[string]pricing.Quote{}}, nil, pricing.Options{
		HoldTTL: time.Hour,
		Now:     func() time.Time { return time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC) },
	})
	h := handlers.NewQuoteHandler(svc, nil)
	r := gin.New()
	r.POST("/api/quotes/estimate", h.Estimate)
	r.GET("/api/quotes/held/:id", h.Get)
	return r
}

func doRequest(r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		_ = json.NewEncoder(&buf).Encode(b)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type fieldsResp struct {
	Error  string `json:"error"`
	Fields []struct {
		Field   string `json:"field"`
		Message string `json:"message"`
	} `json:"fields"`
}

func decodeFields(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var resp fieldsResp
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "validation failed", resp.Error)
	out := map[string]string{}
	for _, f := range resp.Fields {
		out[f.Field] = f.Message
	}
	return out
}

func TestEstimate_OK(t *testing.T) {
	r := buildTestRouter(&stubRateCards{card: sprayingCard()})
	w := doRequest(r, http.MethodPost, "/api/quotes/estimate", map[string]any{
		"seller_org_id": "org-agri",
		"service_type":  "spraying",
		"area_ha":       10,
		"distance_km":   20,
		"month":         7,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "EUR", resp["currency"])
	assert.Equal(t, 13640.0, resp["total_estimated_cents"])
	_, err := uuid.Parse(resp["quote_id"].(string))
	assert.NoError(t, err)

	breakdown := resp["breakdown"].(map[string]any)
	assert.Equal(t, 10000.0, breakdown["baseCents"])
	assert.Equal(t, 2400.0, breakdown["travelCents"])
	assert.Equal(t, 12400.0, breakdown["subtotalCents"])
	assert.Equal(t, 1.1, breakdown["seasonalMult"])
	assert.Equal(t, 1.0, breakdown["riskMult"])
	assert.Equal(t, 13640.0, breakdown["multipliedCents"])
	assert.Equal(t, 5000.0, breakdown["minCharge"])
	assert.Equal(t, 13640.0, breakdown["totalCents"])

	snap := resp["pricing_snapshot_json"].(map[string]any)
	assert.Equal(t, pricing.Version, snap["version"])
	assert.Equal(t, "0b6c1f4e-8f0d-4f7a-a8b2-6d8d8f5e2c11", snap["rate_card_id"])
	assert.Equal(t, "2026-07-01T08:00:00Z", snap["computed_at"])
	assert.Equal(t, breakdown, snap["breakdown"])
	input := snap["input"].(map[string]any)
	assert.Equal(t, "org-agri", input["seller_org_id"])
	assert.Equal(t, 7.0, input["month"])
}

func TestEstimate_FloorApplied(t *testing.T) {
	card := sprayingCard()
	card.BaseRatePerHaCents = 1800
	card.MinChargeCents = 25000
	r := buildTestRouter(&stubRateCards{card: card})
	w := doRequest(r, http.MethodPost, "/api/quotes/estimate", map[string]any{
		"seller_org_id": "org-agri",
		"service_type":  "spraying",
		"area_ha":       1,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Total     int64                  `json:"total_estimated_cents"`
		Breakdown pricing.QuoteBreakdown `json:"breakdown"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(25000), resp.Total)
	assert.Equal(t, int64(1800), resp.Breakdown.MultipliedCents)
}

func TestEstimate_MonthOutOfRangeRejectedBeforeLookup(t *testing.T) {
	cards := &stubRateCards{card: sprayingCard()}
	r := buildTestRouter(cards)
	w := doRequest(r, http.MethodPost, "/api/quotes/estimate", map[string]any{
		"seller_org_id": "org-agri",
		"service_type":  "spraying",
		"area_ha":       10,
		"month":         13,
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	fields := decodeFields(t, w)
	assert.Equal(t, "must be between 1 and 12", fields["month"])
	assert.Equal(t, 0, cards.calls)
}

func TestEstimate_FieldErrors(t *testing.T) {
	tests := []struct {
		name string
		body map[string]any
		want map[string]string
	}{
		{
			name: "fractional month",
			body: map[string]any{"seller_org_id": "org-agri", "service_type": "spraying", "area_ha": 1, "month": 7.5},
			want: map[string]string{"month": "must be an integer"},
		},
		{
			name: "missing area",
			body: map[string]any{"seller_org_id": "org-agri", "service_type": "spraying"},
			want: map[string]string{"area_ha": "is required"},
		},
		{
			name: "negative distance and zero area",
			body: map[string]any{"seller_org_id": "org-agri", "service_type": "spraying", "area_ha": 0, "distance_km": -3},
			want: map[string]string{"area_ha": "must be greater than 0", "distance_km": "must be greater than or equal to 0"},
		},
		{
			name: "blank identifiers",
			body: map[string]any{"seller_org_id": " ", "service_type": "", "area_ha": 2},
			want: map[string]string{"seller_org_id": "is required", "service_type": "is required"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cards := &stubRateCards{card: sprayingCard()}
			r := buildTestRouter(cards)
			w := doRequest(r, http.MethodPost, "/api/quotes/estimate", tt.body)
			require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.Equal(t, tt.want, decodeFields(t, w))
			assert.Equal(t, 0, cards.calls)
		})
	}
}

func TestEstimate_InvalidJSON(t *testing.T) {
	r := buildTestRouter(&stubRateCards{card: sprayingCard()})
	w := doRequest(r, http.MethodPost, "/api/quotes/estimate", `{"area_ha": "lots"`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"invalid json"}`, w.Body.String())
}

func TestEstimate_ErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		cards    *stubRateCards
		wantCode int
		wantBody string
	}{
		{"no rate card", &stubRateCards{}, http.StatusNotFound, `{"error":"rate card not found"}`},
		{"breaker open", &stubRateCards{err: pricing.ErrStoreUnavailable}, http.StatusServiceUnavailable, `{"error":"pricing store unavailable"}`},
		{"database failure", &stubRateCards{err: errors.New("dial tcp: connection refused")}, http.StatusInternalServerError, `{"error":"internal error"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := buildTestRouter(tt.cards)
			w := doRequest(r, http.MethodPost, "/api/quotes/estimate", map[string]any{
				"seller_org_id": "org-agri",
				"service_type":  "spraying",
				"area_ha":       4,
			})
			require.Equal(t, tt.wantCode, w.Code)
			assert.JSONEq(t, tt.wantBody, w.Body.String())
		})
	}
}

func TestGetHeldQuote(t *testing.T) {
	r := buildTestRouter(&stubRateCards{card: sprayingCard()})
	w := doRequest(r, http.MethodPost, "/api/quotes/estimate", map[string]any{
		"seller_org_id": "org-agri",
		"service_type":  "spraying",
		"area_ha":       6,
	})
	require.Equal(t, http.StatusOK, w.Code)
	var created struct {
		QuoteID string `json:"quote_id"`
		Total   int64  `json:"total_estimated_cents"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = doRequest(r, http.MethodGet, "/api/quotes/held/"+created.QuoteID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var held struct {
		QuoteID string `json:"quote_id"`
		Total   int64  `json:"total_estimated_cents"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &held))
	assert.Equal(t, created, held)

	w = doRequest(r, http.MethodGet, "/api/quotes/held/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(r, http.MethodGet, "/api/quotes/held/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"quote not found"}`, w.Body.String())
}
