// README: Rate card store tests (breaker policy always; queries when a database is available).
package pricing

import (
	"bufio"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sony/gobreaker"
)

func TestBreaker_MissingCardDoesNotTrip(t *testing.T) {
	cb := newBreaker("test", BreakerConfig{MaxFailures: 2, OpenTimeout: time.Minute})
	for i := 0; i < 5; i++ {
		_, err := cb.Execute(func() (interface{}, error) { return nil, ErrRateCardNotFound })
		if !errors.Is(err, ErrRateCardNotFound) {
			t.Fatalf("attempt %d: expected ErrRateCardNotFound, got %v", i, err)
		}
	}
	if cb.State() != gobreaker.StateClosed {
		t.Fatalf("expected closed breaker, got %s", cb.State())
	}
}

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	cb := newBreaker("test", BreakerConfig{MaxFailures: 2, OpenTimeout: time.Minute})
	down := errors.New("db down")
	for i := 0; i < 2; i++ {
		_, _ = cb.Execute(func() (interface{}, error) { return nil, down })
	}
	if cb.State() != gobreaker.StateOpen {
		t.Fatalf("expected open breaker, got %s", cb.State())
	}
	_, err := cb.Execute(func() (interface{}, error) { return RateCard{}, nil })
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("expected ErrOpenState, got %v", err)
	}
}

func TestStore_GetRateCard(t *testing.T) {
	store, db := setupTestStore(t)
	ctx := context.Background()

	if _, err := db.Exec(ctx, `
		INSERT INTO rate_cards (seller_org_id, service_type, base_rate_per_ha_cents, min_charge_cents,
			travel_rate_per_km_cents, seasonal_multipliers, risk_multipliers)
		VALUES ('org_store', 'spraying', 1000, 5000, 120, '{"7": 1.1, "8": "0.9"}', '{"steep": "x"}')`); err != nil {
		t.Fatalf("seed: %v", err)
	}

	card, err := store.GetRateCard(ctx, "org_store", "spraying")
	if err != nil {
		t.Fatalf("GetRateCard: %v", err)
	}
	if card.ID == "" || card.Currency != "EUR" {
		t.Fatalf("unexpected card identity: %+v", card)
	}
	if card.BaseRatePerHaCents != 1000 || card.MinChargeCents != 5000 || card.TravelRatePerKmCents != 120 {
		t.Fatalf("unexpected rates: %+v", card)
	}
	if got := ResolveMultiplier(card.SeasonalMultipliers, "7"); got != 1.1 {
		t.Errorf("seasonal 7 = %v, want 1.1", got)
	}
	if got := ResolveMultiplier(card.SeasonalMultipliers, "8"); got != 0.9 {
		t.Errorf("seasonal 8 = %v, want 0.9", got)
	}
	if got := ResolveMultiplier(card.RiskMultipliers, "steep"); got != 1 {
		t.Errorf("risk steep = %v, want 1", got)
	}
}

func TestStore_GetRateCardNotFound(t *testing.T) {
	store, _ := setupTestStore(t)
	_, err := store.GetRateCard(context.Background(), "org_none", "spraying")
	if err != ErrRateCardNotFound {
		t.Fatalf("expected ErrRateCardNotFound, got %v", err)
	}
}

// setupTestStore creates a real postgres-backed Store.
// It skips the test when DRONEQUOTE_TEST_DSN is not set.
func setupTestStore(t *testing.T) (*Store, *pgxpool.Pool) {
	t.Helper()

	dsn := os.Getenv("DRONEQUOTE_TEST_DSN")
	if dsn == "" {
		t.Skip("DRONEQUOTE_TEST_DSN not set; skipping DB-backed tests")
	}

	ctx := context.Background()
	db, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := applyMigrations(ctx, db); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	if _, err := db.Exec(ctx, "TRUNCATE TABLE rate_cards"); err != nil {
		t.Fatalf("truncate rate_cards: %v", err)
	}

	return NewStore(db, BreakerConfig{MaxFailures: 5, OpenTimeout: time.Second}), db
}

func applyMigrations(ctx context.Context, db *pgxpool.Pool) error {
	root, err := repoRoot()
	if err != nil {
		return err
	}
	content, err := os.ReadFile(filepath.Join(root, "migrations", "0001_rate_cards.sql"))
	if err != nil {
		return err
	}
	for _, stmt := range splitSQL(stripSQLComments(string(content))) {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func repoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for i := 0; i < 6; i++ {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", os.ErrNotExist
}

func stripSQLComments(input string) string {
	var b strings.Builder
	scanner := bufio.NewScanner(strings.NewReader(input))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		b.WriteString(scanner.Text())
		b.WriteString("\n")
	}
	return b.String()
}

func splitSQL(input string) []string {
	parts := strings.Split(input, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		stmt := strings.TrimSpace(p)
		if stmt == "" {
			continue
		}
		out = append(out, stmt)
	}
	return out
}
