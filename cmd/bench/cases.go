// README: Quote API smoke cases; includes HTTP, DB, Redis, concurrency, and throughput checks.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const (
	statusPass = "PASS"
	statusFail = "FAIL"
	statusSkip = "SKIP"

	benchSeller  = "bench-org"
	benchService = "spraying"
)

type Runner struct {
	cfg   Config
	httpc *http.Client
	db    *pgxpool.Pool
	redis *redis.Client
}

type Result struct {
	Name    string
	Status  string
	Latency time.Duration
	Note    string
}

type TestCase struct {
	Name  string
	Focus string
	Run   func(ctx context.Context, r *Runner) Result
}

func NewRunner(cfg Config) *Runner {
	return &Runner{
		cfg:   cfg,
		httpc: &http.Client{Timeout: 10 * time.Second},
	}
}

func (r *Runner) RunAll(ctx context.Context) []Result {
	if r.cfg.DSN != "" {
		if db, err := pgxpool.New(ctx, r.cfg.DSN); err == nil {
			r.db = db
		}
	}
	if r.cfg.RedisAddr != "" {
		r.redis = redis.NewClient(&redis.Options{Addr: r.cfg.RedisAddr})
	}

	tests := r.cases()
	results := make([]Result, 0, len(tests))

	for _, tc := range tests {
		res := tc.Run(ctx, r)
		res.Name = tc.Name
		results = append(results, res)
		fmt.Printf("%-7s %s", res.Status, tc.Name)
		if res.Latency > 0 {
			fmt.Printf(" (%s)", res.Latency)
		}
		if res.Note != "" {
			fmt.Printf(" - %s", res.Note)
		}
		fmt.Println()
	}

	if r.db != nil {
		r.db.Close()
	}
	if r.redis != nil {
		_ = r.redis.Close()
	}

	return results
}

// benchQuote prices to 14806 cents against the seeded card:
// 12.5ha*1000 + 8km*120 = 13460, times 1.1 for July.
func benchQuote() map[string]any {
	return map[string]any{
		"seller_org_id": benchSeller,
		"service_type":  benchService,
		"area_ha":       12.5,
		"distance_km":   8,
		"month":         7,
	}
}

const benchQuoteTotal = 14806

func (r *Runner) cases() []TestCase {
	base := r.cfg.BaseURL
	estimate := base + "/api/quotes/estimate"
	return []TestCase{
		{
			Name:  "Env: Postgres connect",
			Focus: "rate card store reachable",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.db == nil {
					return Result{Status: statusFail, Note: "db not configured"}
				}
				ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
				defer cancel()
				if err := r.db.Ping(ctx); err != nil {
					return Result{Status: statusFail, Note: err.Error()}
				}
				return Result{Status: statusPass}
			},
		},
		{
			Name:  "Env: Redis connect",
			Focus: "quote hold store reachable",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.redis == nil {
					return Result{Status: statusFail, Note: "redis not configured"}
				}
				ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
				defer cancel()
				if err := r.redis.Ping(ctx).Err(); err != nil {
					return Result{Status: statusFail, Note: err.Error()}
				}
				return Result{Status: statusPass}
			},
		},
		{
			Name:  "Migration: apply (optional)",
			Focus: "apply migration SQL",
			Run: func(ctx context.Context, r *Runner) Result {
				if !r.cfg.ApplyMigration {
					return Result{Status: statusSkip, Note: "apply-migration=false"}
				}
				if r.db == nil {
					return Result{Status: statusFail, Note: "db not configured"}
				}
				sql, err := os.ReadFile(r.cfg.MigrationPath)
				if err != nil {
					return Result{Status: statusFail, Note: err.Error()}
				}
				for _, s := range splitSQL(string(sql)) {
					if _, err := r.db.Exec(ctx, s); err != nil {
						return Result{Status: statusFail, Note: err.Error()}
					}
				}
				return Result{Status: statusPass}
			},
		},
		{
			Name:  "Migration: tables exist",
			Focus: "tables from the migration file are present",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.db == nil {
					return Result{Status: statusFail, Note: "db not configured"}
				}
				tables, err := extractTables(r.cfg.MigrationPath)
				if err != nil {
					return Result{Status: statusFail, Note: err.Error()}
				}
				for _, t := range tables {
					var exists bool
					err := r.db.QueryRow(ctx,
						"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name=$1)",
						t,
					).Scan(&exists)
					if err != nil {
						return Result{Status: statusFail, Note: err.Error()}
					}
					if !exists {
						return Result{Status: statusFail, Note: "missing table: " + t}
					}
				}
				return Result{Status: statusPass}
			},
		},
		{
			Name:  "Seed: bench rate card",
			Focus: "upsert the rate card the quote cases price against",
			Run: func(ctx context.Context, r *Runner) Result {
				if !r.cfg.Seed {
					return Result{Status: statusSkip, Note: "seed=false"}
				}
				if r.db == nil {
					return Result{Status: statusFail, Note: "db not configured"}
				}
				_, err := r.db.Exec(ctx, `
INSERT INTO rate_cards (seller_org_id, service_type, currency, base_rate_per_ha_cents, travel_rate_per_km_cents, min_charge_cents, seasonal_multipliers)
VALUES ($1, $2, 'EUR', 1000, 120, 5000, '{"7": 1.1}'::jsonb)
ON CONFLICT (seller_org_id, service_type) DO UPDATE SET
    base_rate_per_ha_cents = EXCLUDED.base_rate_per_ha_cents,
    travel_rate_per_km_cents = EXCLUDED.travel_rate_per_km_cents,
    min_charge_cents = EXCLUDED.min_charge_cents,
    seasonal_multipliers = EXCLUDED.seasonal_multipliers,
    risk_multipliers = '{}'::jsonb,
    updated_at = now()`, benchSeller, benchService)
				if err != nil {
					return Result{Status: statusFail, Note: err.Error()}
				}
				return Result{Status: statusPass}
			},
		},
		{
			Name:  "API: health",
			Focus: "server answers",
			Run: func(ctx context.Context, r *Runner) Result {
				start := time.Now()
				resp, err := r.httpc.Get(base + "/health")
				if err != nil {
					return Result{Status: statusFail, Note: err.Error()}
				}
				_ = resp.Body.Close()
				if resp.StatusCode != http.StatusOK {
					return Result{Status: statusFail, Note: fmt.Sprintf("status=%d", resp.StatusCode)}
				}
				return Result{Status: statusPass, Latency: time.Since(start)}
			},
		},
		{
			Name:  "Quote: estimate total matches the rate card",
			Focus: "pricing arithmetic end to end",
			Run: func(ctx context.Context, r *Runner) Result {
				start := time.Now()
				status, body, err := r.post(ctx, estimate, benchQuote())
				if err != nil {
					return Result{Status: statusFail, Note: err.Error()}
				}
				latency := time.Since(start)
				if status != http.StatusOK {
					return Result{Status: statusFail, Latency: latency, Note: fmt.Sprintf("status=%d", status)}
				}
				if body.Total != benchQuoteTotal {
					return Result{Status: statusFail, Latency: latency, Note: fmt.Sprintf("total=%d want %d", body.Total, benchQuoteTotal)}
				}
				return Result{Status: statusPass, Latency: latency}
			},
		},
		{
			Name:  "Quote: held quote can be read back",
			Focus: "quote hold round trip",
			Run: func(ctx context.Context, r *Runner) Result {
				status, body, err := r.post(ctx, estimate, benchQuote())
				if err != nil || status != http.StatusOK {
					return Result{Status: statusFail, Note: fmt.Sprintf("estimate status=%d err=%v", status, err)}
				}
				start := time.Now()
				resp, err := r.httpc.Get(base + "/api/quotes/held/" + body.QuoteID)
				if err != nil {
					return Result{Status: statusFail, Note: err.Error()}
				}
				_, _ = io.Copy(io.Discard, resp.Body)
				_ = resp.Body.Close()
				if resp.StatusCode != http.StatusOK {
					return Result{Status: statusFail, Note: fmt.Sprintf("status=%d", resp.StatusCode)}
				}
				return Result{Status: statusPass, Latency: time.Since(start)}
			},
		},
		{
			Name:  "Quote: floor applies to tiny jobs",
			Focus: "min charge",
			Run: func(ctx context.Context, r *Runner) Result {
				q := benchQuote()
				q["area_ha"] = 0.5
				q["distance_km"] = 0
				delete(q, "month")
				status, body, err := r.post(ctx, estimate, q)
				if err != nil {
					return Result{Status: statusFail, Note: err.Error()}
				}
				if status != http.StatusOK || body.Total != 5000 {
					return Result{Status: statusFail, Note: fmt.Sprintf("status=%d total=%d", status, body.Total)}
				}
				return Result{Status: statusPass}
			},
		},

		httpCase("Quote: month 13 -> 400", estimate, merge(benchQuote(), map[string]any{"month": 13}), []int{400}),
		httpCase("Quote: negative area -> 400", estimate, merge(benchQuote(), map[string]any{"area_ha": -1}), []int{400}),
		httpCase("Quote: empty body -> 400", estimate, map[string]any{}, []int{400}),
		httpCase("Quote: unknown seller -> 404", estimate, merge(benchQuote(), map[string]any{"seller_org_id": "nobody"}), []int{404}),
		httpCaseMethod("Quote: GET estimate -> 405", http.MethodGet, estimate, nil, []int{405}),
		httpCaseMethod("Quote: DELETE estimate -> 405", http.MethodDelete, estimate, nil, []int{405}),

		{
			Name:  "Concurrency: identical estimates agree",
			Focus: "deterministic totals under load",
			Run: func(ctx context.Context, r *Runner) Result {
				return concurrentEstimates(ctx, r, estimate)
			},
		},
		{
			Name:  "Perf: estimate throughput",
			Focus: "rps under sustained load",
			Run: func(ctx context.Context, r *Runner) Result {
				return perfLoad(ctx, r, estimate, benchQuote())
			},
		},
	}
}

type estimateBody struct {
	QuoteID string `json:"quote_id"`
	Total   int64  `json:"total_estimated_cents"`
}

func (r *Runner) post(ctx context.Context, url string, payload any) (int, estimateBody, error) {
	var out estimateBody
	b, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(string(b)))
	if err != nil {
		return 0, out, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := r.httpc.Do(req)
	if err != nil {
		return 0, out, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return resp.StatusCode, out, err
		}
	}
	return resp.StatusCode, out, nil
}

func merge(base, over map[string]any) map[string]any {
	for k, v := range over {
		base[k] = v
	}
	return base
}

func httpCase(name, url string, body any, okStatuses []int) TestCase {
	return httpCaseMethod(name, http.MethodPost, url, body, okStatuses)
}

func httpCaseMethod(name, method, url string, body any, okStatuses []int) TestCase {
	return TestCase{
		Name:  name,
		Focus: "HTTP API",
		Run: func(ctx context.Context, r *Runner) Result {
			var reader io.Reader
			if body != nil {
				b, _ := json.Marshal(body)
				reader = strings.NewReader(string(b))
			}
			req, _ := http.NewRequestWithContext(ctx, method, url, reader)
			req.Header.Set("Content-Type", "application/json")
			start := time.Now()
			resp, err := r.httpc.Do(req)
			if err != nil {
				return Result{Status: statusFail, Note: err.Error()}
			}
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
			latency := time.Since(start)

			if contains(okStatuses, resp.StatusCode) {
				return Result{Status: statusPass, Latency: latency, Note: fmt.Sprintf("status=%d", resp.StatusCode)}
			}
			return Result{Status: statusFail, Latency: latency, Note: fmt.Sprintf("status=%d", resp.StatusCode)}
		},
	}
}

func concurrentEstimates(ctx context.Context, r *Runner, url string) Result {
	wg := sync.WaitGroup{}
	mu := sync.Mutex{}
	totals := make(map[int64]int)
	failed := 0

	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			status, body, err := r.post(ctx, url, benchQuote())
			mu.Lock()
			defer mu.Unlock()
			if err != nil || status != http.StatusOK {
				failed++
				return
			}
			totals[body.Total]++
		}()
	}
	wg.Wait()

	if failed > 0 {
		return Result{Status: statusFail, Note: fmt.Sprintf("failed=%d", failed)}
	}
	if len(totals) != 1 {
		return Result{Status: statusFail, Note: fmt.Sprintf("distinct totals=%v", totals)}
	}
	return Result{Status: statusPass, Note: fmt.Sprintf("requests=%d", r.cfg.Concurrency)}
}

func perfLoad(ctx context.Context, r *Runner, url string, payload any) Result {
	b, _ := json.Marshal(payload)
	end := time.Now().Add(r.cfg.Duration)
	var count int64
	var errCount int64
	var mu sync.Mutex
	wg := sync.WaitGroup{}

	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(end) && ctx.Err() == nil {
				req, _ := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(string(b)))
				req.Header.Set("Content-Type", "application/json")
				resp, err := r.httpc.Do(req)
				if err != nil {
					mu.Lock()
					errCount++
					mu.Unlock()
					continue
				}
				_, _ = io.Copy(io.Discard, resp.Body)
				_ = resp.Body.Close()
				mu.Lock()
				if resp.StatusCode != http.StatusOK {
					errCount++
				}
				count++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if count == 0 {
		return Result{Status: statusFail, Note: "no requests completed"}
	}
	rps := float64(count) / r.cfg.Duration.Seconds()
	return Result{Status: statusPass, Note: fmt.Sprintf("rps=%.1f errors=%d", rps, errCount)}
}

func contains(list []int, v int) bool {
	for _, i := range list {
		if i == v {
			return true
		}
	}
	return false
}

func extractTables(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	re := regexp.MustCompile(`(?i)create\s+table\s+if\s+not\s+exists\s+([a-zA-Z0-9_]+)`)
	matches := re.FindAllStringSubmatch(string(b), -1)
	tables := make([]string, 0, len(matches))
	for _, m := range matches {
		tables = append(tables, m[1])
	}
	return tables, nil
}

func splitSQL(sql string) []string {
	lines := strings.Split(sql, "\n")
	filtered := make([]string, 0, len(lines))
	for _, line := range lines {
		l := strings.TrimSpace(line)
		if strings.HasPrefix(l, "--") || l == "" {
			continue
		}
		filtered = append(filtered, line)
	}
	parts := strings.Split(strings.Join(filtered, "\n"), ";")
	stmts := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			stmts = append(stmts, s)
		}
	}
	return stmts
}
