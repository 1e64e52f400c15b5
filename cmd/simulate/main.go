package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/juliherms/petAgendamentos/internal/db"
)

// Load simulator for the admission engine. Workers fire creation requests
// that deliberately collide on a small window of slots, so the run doubles
// as a check that concurrent bookings of the same slot produce exactly one
// success and conflicts for the rest.

type SimConfig struct {
	APIBaseURL  string
	Duration    time.Duration
	Workers     int
	DaySpread   int // how many upcoming days to spread bookings over
	PostgresDSN string
}

type DataPool struct {
	Pets      []uuid.UUID
	Services  []uuid.UUID
	Providers []uuid.UUID
}

type Metrics struct {
	Total     int64
	Created   int64
	Conflict  int64
	Rejected  int64
	Error     int64
	mu        sync.Mutex
	latencies []time.Duration
}

func (m *Metrics) Record(latency time.Duration, status int) {
	atomic.AddInt64(&m.Total, 1)
	switch {
	case status == http.StatusCreated:
		atomic.AddInt64(&m.Created, 1)
	case status == http.StatusConflict:
		atomic.AddInt64(&m.Conflict, 1)
	case status >= 400 && status < 500:
		atomic.AddInt64(&m.Rejected, 1)
	default:
		atomic.AddInt64(&m.Error, 1)
	}

	m.mu.Lock()
	m.latencies = append(m.latencies, latency)
	m.mu.Unlock()
}

func (m *Metrics) Percentile(p int) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.latencies) == 0 {
		return 0
	}

	sorted := make([]time.Duration, len(m.latencies))
	copy(sorted, m.latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	idx := len(sorted) * p / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg := loadSimConfig()
	log.Printf("simulate: url=%s workers=%d duration=%s", cfg.APIBaseURL, cfg.Workers, cfg.Duration)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	cancel()
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}

	data, err := loadDataPool(context.Background(), pool)
	pool.Close()
	if err != nil {
		log.Fatalf("load data pool: %v", err)
	}
	if len(data.Pets) == 0 || len(data.Services) == 0 || len(data.Providers) == 0 {
		log.Fatal("no seed data found, run cmd/seed first")
	}
	log.Printf("data pool: pets=%d services=%d providers=%d", len(data.Pets), len(data.Services), len(data.Providers))

	metrics := &Metrics{}
	runCtx, stopRun := context.WithTimeout(context.Background(), cfg.Duration)
	defer stopRun()

	var wg sync.WaitGroup
	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			worker(runCtx, cfg, data, metrics, rand.New(rand.NewSource(seed)))
		}(time.Now().UnixNano() + int64(i))
	}
	wg.Wait()

	report(metrics)
}

func worker(ctx context.Context, cfg SimConfig, data *DataPool, metrics *Metrics, rng *rand.Rand) {
	client := &http.Client{Timeout: 10 * time.Second}

	for ctx.Err() == nil {
		body := map[string]string{
			"pet_id":      data.Pets[rng.Intn(len(data.Pets))].String(),
			"service_id":  data.Services[rng.Intn(len(data.Services))].String(),
			"provider_id": data.Providers[rng.Intn(len(data.Providers))].String(),
			"date":        randomDate(rng, cfg.DaySpread),
			"start_time":  fmt.Sprintf("%02d:00", 9+rng.Intn(9)),
		}

		payload, err := json.Marshal(body)
		if err != nil {
			log.Printf("marshal request: %v", err)
			continue
		}

		start := time.Now()
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.APIBaseURL+"/appointments", bytes.NewReader(payload))
		if err != nil {
			log.Printf("build request: %v", err)
			continue
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			if ctx.Err() == nil {
				metrics.Record(time.Since(start), 0)
			}
			continue
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()

		metrics.Record(time.Since(start), resp.StatusCode)
	}
}

// randomDate picks an upcoming non-Sunday day. A narrow spread keeps workers
// colliding on the same slots.
func randomDate(rng *rand.Rand, spread int) string {
	for {
		d := time.Now().AddDate(0, 0, 1+rng.Intn(spread))
		if d.Weekday() != time.Sunday {
			return d.Format("2006-01-02")
		}
	}
}

func loadDataPool(ctx context.Context, pool *pgxpool.Pool) (*DataPool, error) {
	data := &DataPool{}

	var err error
	if data.Pets, err = queryIDs(ctx, pool, `SELECT id FROM pets LIMIT 500`); err != nil {
		return nil, err
	}
	if data.Services, err = queryIDs(ctx, pool, `SELECT id FROM services WHERE active LIMIT 500`); err != nil {
		return nil, err
	}
	if data.Providers, err = queryIDs(ctx, pool, `SELECT id FROM users WHERE role = 'provider' AND status = 'active' LIMIT 100`); err != nil {
		return nil, err
	}

	return data, nil
}

func queryIDs(ctx context.Context, pool *pgxpool.Pool, query string) ([]uuid.UUID, error) {
	rows, err := pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func loadSimConfig() SimConfig {
	cfg := SimConfig{
		APIBaseURL:  getEnv("API_BASE_URL", "http://127.0.0.1:8080"),
		Duration:    30 * time.Second,
		Workers:     8,
		DaySpread:   3,
		PostgresDSN: os.Getenv("POSTGRES_DSN"),
	}

	if v := os.Getenv("SIM_DURATION"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Duration = d
		}
	}
	if v := os.Getenv("SIM_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Workers = n
		}
	}
	if v := os.Getenv("SIM_DAY_SPREAD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.DaySpread = n
		}
	}
	if cfg.PostgresDSN == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func report(m *Metrics) {
	log.Println("simulation complete")
	log.Printf("  total:    %d", atomic.LoadInt64(&m.Total))
	log.Printf("  created:  %d", atomic.LoadInt64(&m.Created))
	log.Printf("  conflict: %d", atomic.LoadInt64(&m.Conflict))
	log.Printf("  rejected: %d", atomic.LoadInt64(&m.Rejected))
	log.Printf("  error:    %d", atomic.LoadInt64(&m.Error))
	log.Printf("  p50=%s p95=%s", m.Percentile(50), m.Percentile(95))
}
