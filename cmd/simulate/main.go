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

	"github.com/thezulux24/dentar-server/internal/config"
	"github.com/thezulux24/dentar-server/internal/db"
)

// The simulator hammers the booking endpoint with overlapping windows for a
// small set of dentists. If conflict resolution holds, concurrent requests
// for intersecting windows produce exactly one success per window per agenda
// and 409s for the rest.

type SimConfig struct {
	APIBaseURL   string
	Duration     time.Duration
	Workers      int
	DentistLimit int
	PatientLimit int
	PostgresDSN  string
}

type DataPool struct {
	Dentists []uuid.UUID
	Patients []uuid.UUID
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	mu        sync.Mutex
	latencies []time.Duration
}

func (om *OperationMetrics) Record(latency time.Duration, status int) {
	atomic.AddInt64(&om.Total, 1)
	switch {
	case status == http.StatusCreated:
		atomic.AddInt64(&om.Success, 1)
	case status == http.StatusConflict:
		atomic.AddInt64(&om.Conflict, 1)
	default:
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.latencies = append(om.latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, p50, p95 time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.latencies) == 0 {
		return 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.latencies))
	copy(latencies, om.latencies)
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}
	avg = sum / time.Duration(len(latencies))
	p50 = latencies[len(latencies)*50/100]
	p95idx := len(latencies) * 95 / 100
	if p95idx >= len(latencies) {
		p95idx = len(latencies) - 1
	}
	p95 = latencies[p95idx]
	return avg, p50, p95
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("simulator starting")

	cfg := loadSimConfig()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pgPool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pgPool.Close()

	pool, err := loadDataPool(ctx, pgPool, cfg)
	if err != nil {
		log.Fatalf("load data pool: %v", err)
	}
	log.Printf("loaded: %d dentists, %d patients", len(pool.Dentists), len(pool.Patients))

	metrics := &OperationMetrics{}
	client := &http.Client{Timeout: 10 * time.Second}

	// Tomorrow, business-locally close enough for a load run.
	day := time.Now().AddDate(0, 0, 1).Format("2006-01-02")

	deadline := time.Now().Add(cfg.Duration)
	var wg sync.WaitGroup
	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for time.Now().Before(deadline) {
				bookOnce(client, cfg.APIBaseURL, pool, rng, day, metrics)
			}
		}(int64(w) + time.Now().UnixNano())
	}
	wg.Wait()

	printReport(metrics)
}

func bookOnce(client *http.Client, baseURL string, pool *DataPool, rng *rand.Rand, day string, m *OperationMetrics) {
	dentist := pool.Dentists[rng.Intn(len(pool.Dentists))]
	patient := pool.Patients[rng.Intn(len(pool.Patients))]

	// Windows deliberately collide: 30-minute slots on a 15-minute grid
	// inside an 8-hour workday.
	startMin := 8*60 + 15*rng.Intn(32)
	endMin := startMin + 30

	body, _ := json.Marshal(map[string]any{
		"patientId": patient.String(),
		"dentistId": dentist.String(),
		"date":      day,
		"startTime": fmt.Sprintf("%02d:%02d", startMin/60, startMin%60),
		"endTime":   fmt.Sprintf("%02d:%02d", endMin/60, endMin%60),
		"reason":    "load test booking",
	})

	start := time.Now()
	resp, err := client.Post(baseURL+"/appointments", "application/json", bytes.NewReader(body))
	latency := time.Since(start)
	if err != nil {
		m.Record(latency, 0)
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()

	m.Record(latency, resp.StatusCode)
}

func loadDataPool(ctx context.Context, pool *pgxpool.Pool, cfg SimConfig) (*DataPool, error) {
	dentists, err := loadIDs(ctx, pool, "dentists", cfg.DentistLimit)
	if err != nil {
		return nil, err
	}
	patients, err := loadIDs(ctx, pool, "patients", cfg.PatientLimit)
	if err != nil {
		return nil, err
	}
	if len(dentists) == 0 || len(patients) == 0 {
		return nil, fmt.Errorf("empty data pool, run cmd/seed first")
	}
	return &DataPool{Dentists: dentists, Patients: patients}, nil
}

func loadIDs(ctx context.Context, pool *pgxpool.Pool, table string, limit int) ([]uuid.UUID, error) {
	rows, err := pool.Query(ctx, `SELECT id FROM `+table+` WHERE active LIMIT $1`, limit)
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
	baseCfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load base config: %v", err)
	}

	return SimConfig{
		APIBaseURL:   getEnv("SIM_API_BASE_URL", "http://localhost:8080"),
		Duration:     getDuration("SIM_DURATION", 30*time.Second),
		Workers:      getInt("SIM_WORKERS", 10),
		DentistLimit: getInt("SIM_DENTIST_LIMIT", 5),
		PatientLimit: getInt("SIM_PATIENT_LIMIT", 500),
		PostgresDSN:  baseCfg.PostgresDSN,
	}
}

func printReport(m *OperationMetrics) {
	avg, p50, p95 := m.Stats()
	log.Printf("bookings: total=%d success=%d conflict=%d error=%d",
		atomic.LoadInt64(&m.Total),
		atomic.LoadInt64(&m.Success),
		atomic.LoadInt64(&m.Conflict),
		atomic.LoadInt64(&m.Error),
	)
	log.Printf("latency: avg=%s p50=%s p95=%s", avg, p50, p95)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
