// README: Pricing service validates requests, prices them against the seller's rate card and issues quotes.
package pricing

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"dronequote/internal/modules/location"
	"dronequote/internal/types"
)

type RateCards interface {
	GetRateCard(ctx context.Context, sellerOrgID, serviceType string) (RateCard, error)
}

type Holds interface {
	Save(ctx context.Context, q Quote, ttl time.Duration) error
	Get(ctx context.Context, id string) (Quote, error)
}

// Recorder receives one observation per Estimate call.
type Recorder interface {
	ObserveQuote(serviceType, outcome string, totalCents int64)
}

const (
	OutcomeOK         = "ok"
	OutcomeInvalid    = "invalid"
	OutcomeNoRateCard = "no_rate_card"
	OutcomeError      = "error"
)

type Options struct {
	HoldTTL         time.Duration
	DefaultCurrency string
	Now             func() time.Time
	Recorder        Recorder
}

type Service struct {
	cards    RateCards
	holds    Holds
	logger   *zap.Logger
	ttl      time.Duration
	currency string
	now      func() time.Time
	recorder Recorder
}

func NewService(cards RateCards, holds Holds, logger *zap.Logger, opts Options) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		cards:    cards,
		holds:    holds,
		logger:   logger,
		ttl:      opts.HoldTTL,
		currency: opts.DefaultCurrency,
		now:      opts.Now,
		recorder: opts.Recorder,
	}
	if s.ttl <= 0 {
		s.ttl = 24 * time.Hour
	}
	if s.currency == "" {
		s.currency = types.DefaultCurrency
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Estimate prices a job and, when a hold store is configured, keeps the
// resulting quote retrievable by id until it expires.
func (s *Service) Estimate(ctx context.Context, req QuoteRequest) (Quote, error) {
	req = withDerivedDistance(req)
	if err := req.Validate(); err != nil {
		s.observe(req.ServiceType, OutcomeInvalid, 0)
		return Quote{}, err
	}

	card, err := s.cards.GetRateCard(ctx, req.SellerOrgID, req.ServiceType)
	if err != nil {
		if errors.Is(err, ErrRateCardNotFound) {
			s.logger.Debug("no rate card",
				zap.String("seller_org_id", req.SellerOrgID),
				zap.String("service_type", req.ServiceType))
			s.observe(req.ServiceType, OutcomeNoRateCard, 0)
			return Quote{}, err
		}
		s.logger.Error("rate card lookup failed", zap.Error(err))
		s.observe(req.ServiceType, OutcomeError, 0)
		return Quote{}, err
	}

	breakdown, err := Calculate(card, req)
	if err != nil {
		s.observe(req.ServiceType, OutcomeInvalid, 0)
		return Quote{}, err
	}

	currency := card.Currency
	if currency == "" {
		currency = s.currency
	}
	computedAt := s.now().UTC()
	q := Quote{
		ID:        uuid.NewString(),
		Total:     types.Money{Amount: breakdown.TotalCents, Currency: currency},
		Breakdown: breakdown,
		Snapshot: Snapshot{
			Input:      req,
			RateCardID: card.ID,
			RateCard:   card,
			Breakdown:  breakdown,
			Version:    Version,
			ComputedAt: computedAt,
		},
		ExpiresAt: computedAt.Add(s.ttl),
	}

	if s.holds != nil {
		if err := s.holds.Save(ctx, q, s.ttl); err != nil {
			s.logger.Error("quote hold failed", zap.String("quote_id", q.ID), zap.Error(err))
			s.observe(req.ServiceType, OutcomeError, 0)
			return Quote{}, err
		}
	}

	s.observe(req.ServiceType, OutcomeOK, breakdown.TotalCents)
	return q, nil
}

// GetQuote returns a previously issued quote that has not expired.
func (s *Service) GetQuote(ctx context.Context, id string) (Quote, error) {
	if s.holds == nil {
		return Quote{}, ErrQuoteNotFound
	}
	return s.holds.Get(ctx, id)
}

func (s *Service) observe(serviceType, outcome string, totalCents int64) {
	if s.recorder != nil {
		s.recorder.ObserveQuote(serviceType, outcome, totalCents)
	}
}

// withDerivedDistance fills DistanceKm from coordinates when the caller gave
// both points and no explicit distance.
func withDerivedDistance(req QuoteRequest) QuoteRequest {
	if req.DistanceKm != 0 || req.Origin == nil || req.Field == nil {
		return req
	}
	if !req.Origin.Valid() || !req.Field.Valid() {
		return req
	}
	req.DistanceKm = location.DistanceKm(*req.Origin, *req.Field)
	return req
}
