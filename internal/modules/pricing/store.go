// README: Rate card store backed by PostgreSQL, guarded by a circuit breaker.
package pricing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sony/gobreaker"
)

type BreakerConfig struct {
	MaxFailures int
	OpenTimeout time.Duration
}

type Store struct {
	db      *pgxpool.Pool
	breaker *gobreaker.CircuitBreaker
}

func NewStore(db *pgxpool.Pool, cfg BreakerConfig) *Store {
	return &Store{db: db, breaker: newBreaker("rate-card-store", cfg)}
}

func newBreaker(name string, cfg BreakerConfig) *gobreaker.CircuitBreaker {
	fails := cfg.MaxFailures
	if fails < 1 {
		fails = 1
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    name,
		Timeout: cfg.OpenTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= uint32(fails)
		},
		// A missing card is the caller's problem, not the database's.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrRateCardNotFound)
		},
	})
}

// GetRateCard returns the single card for a seller and service type.
func (s *Store) GetRateCard(ctx context.Context, sellerOrgID, serviceType string) (RateCard, error) {
	res, err := s.breaker.Execute(func() (interface{}, error) {
		return s.queryRateCard(ctx, sellerOrgID, serviceType)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return RateCard{}, ErrStoreUnavailable
	}
	if err != nil {
		return RateCard{}, err
	}
	return res.(RateCard), nil
}

func (s *Store) queryRateCard(ctx context.Context, sellerOrgID, serviceType string) (RateCard, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id::text, seller_org_id, service_type, currency,
		       base_rate_per_ha_cents, min_charge_cents, travel_rate_per_km_cents,
		       COALESCE(seasonal_multipliers, '{}'::jsonb),
		       COALESCE(risk_multipliers, '{}'::jsonb),
		       updated_at
		FROM rate_cards
		WHERE seller_org_id = $1 AND service_type = $2`,
		sellerOrgID, serviceType,
	)

	var c RateCard
	err := row.Scan(
		&c.ID, &c.SellerOrgID, &c.ServiceType, &c.Currency,
		&c.BaseRatePerHaCents, &c.MinChargeCents, &c.TravelRatePerKmCents,
		&c.SeasonalMultipliers, &c.RiskMultipliers,
		&c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return RateCard{}, ErrRateCardNotFound
	}
	if err != nil {
		return RateCard{}, fmt.Errorf("get rate card: %w", err)
	}
	return c, nil
}
