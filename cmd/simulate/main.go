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

	"github.com/clinicore/clinic-scheduling/internal/db"
	"github.com/clinicore/clinic-scheduling/internal/timeslot"
)

type SimConfig struct {
	APIBaseURL   string
	Duration     time.Duration
	Workers      int
	BookingRatio float64
	CancelRatio  float64
	PostgresDSN  string
}

type DataPool struct {
	Doctors  []uuid.UUID
	Patients []uuid.UUID

	mu           sync.RWMutex
	appointments []uuid.UUID
}

func (dp *DataPool) AddAppointment(id uuid.UUID) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.appointments = append(dp.appointments, id)
}

func (dp *DataPool) RandomAppointment() (uuid.UUID, bool) {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	if len(dp.appointments) == 0 {
		return uuid.Nil, false
	}
	return dp.appointments[rand.Intn(len(dp.appointments))], true
}

type OperationMetrics struct {
	Total    int64
	Success  int64
	Conflict int64
	Error    int64

	mu        sync.Mutex
	latencies []time.Duration
}

func (om *OperationMetrics) Record(latency time.Duration, success, conflict bool) {
	atomic.AddInt64(&om.Total, 1)
	switch {
	case success:
		atomic.AddInt64(&om.Success, 1)
	case conflict:
		atomic.AddInt64(&om.Conflict, 1)
	default:
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.latencies = append(om.latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Report(name string) {
	om.mu.Lock()
	defer om.mu.Unlock()

	fmt.Printf("%-10s total=%d success=%d conflict=%d error=%d",
		name, om.Total, om.Success, om.Conflict, om.Error)

	if len(om.latencies) == 0 {
		fmt.Println()
		return
	}

	sorted := make([]time.Duration, len(om.latencies))
	copy(sorted, om.latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var sum time.Duration
	for _, l := range sorted {
		sum += l
	}
	p50 := sorted[len(sorted)*50/100]
	p95idx := len(sorted) * 95 / 100
	if p95idx >= len(sorted) {
		p95idx = len(sorted) - 1
	}
	fmt.Printf(" avg=%s p50=%s p95=%s max=%s\n",
		sum/time.Duration(len(sorted)), p50, sorted[p95idx], sorted[len(sorted)-1])
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg := loadSimConfig()
	log.Printf("simulate: base_url=%s workers=%d duration=%s", cfg.APIBaseURL, cfg.Workers, cfg.Duration)

	pool, err := loadDataPool(cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("load data pool: %v", err)
	}
	log.Printf("loaded %d doctors, %d patients", len(pool.Doctors), len(pool.Patients))

	var (
		bookings OperationMetrics
		cancels  OperationMetrics
		resolves OperationMetrics
	)

	client := &http.Client{Timeout: 10 * time.Second}
	deadline := time.Now().Add(cfg.Duration)

	var wg sync.WaitGroup
	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for time.Now().Before(deadline) {
				roll := rng.Float64()
				switch {
				case roll < cfg.BookingRatio:
					runBooking(client, cfg, pool, rng, &bookings)
				case roll < cfg.BookingRatio+cfg.CancelRatio:
					runCancel(client, cfg, pool, rng, &cancels)
				default:
					runResolve(client, cfg, pool, rng, &resolves)
				}
			}
		}(time.Now().UnixNano() + int64(w))
	}
	wg.Wait()

	fmt.Println("--- simulation results ---")
	bookings.Report("booking")
	cancels.Report("cancel")
	resolves.Report("resolve")
}

func randomDate(rng *rand.Rand) timeslot.Date {
	return timeslot.DateOf(time.Now().UTC()).AddDays(1 + rng.Intn(7))
}

// randomRange picks a 30 or 60 minute block inside the seeded 09:00-17:00
// working day so that most attempts land inside a real slot.
func randomRange(rng *rand.Rand) (string, string) {
	startMin := 9*60 + 30*rng.Intn(14)
	dur := 30 * (1 + rng.Intn(2))
	return timeslot.FormatMinutes(startMin), timeslot.FormatMinutes(startMin + dur)
}

func runBooking(client *http.Client, cfg SimConfig, pool *DataPool, rng *rand.Rand, m *OperationMetrics) {
	doctor := pool.Doctors[rng.Intn(len(pool.Doctors))]
	patient := pool.Patients[rng.Intn(len(pool.Patients))]
	start, end := randomRange(rng)

	body, _ := json.Marshal(map[string]string{
		"doctor_id":  doctor.String(),
		"patient_id": patient.String(),
		"date":       randomDate(rng).String(),
		"start_time": start,
		"end_time":   end,
		"summary":    "simulated visit",
	})

	t0 := time.Now()
	resp, err := client.Post(cfg.APIBaseURL+"/appointments", "application/json", bytes.NewReader(body))
	latency := time.Since(t0)
	if err != nil {
		m.Record(latency, false, false)
		return
	}
	defer drainAndClose(resp)

	switch resp.StatusCode {
	case http.StatusCreated:
		var created struct {
			ID uuid.UUID `json:"id"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&created); err == nil {
			pool.AddAppointment(created.ID)
		}
		m.Record(latency, true, false)
	case http.StatusConflict:
		m.Record(latency, false, true)
	default:
		m.Record(latency, false, false)
	}
}

func runCancel(client *http.Client, cfg SimConfig, pool *DataPool, rng *rand.Rand, m *OperationMetrics) {
	id, ok := pool.RandomAppointment()
	if !ok {
		return
	}

	body, _ := json.Marshal(map[string]string{
		"reason":       "simulated cancellation",
		"cancelled_by": "simulator",
	})

	t0 := time.Now()
	resp, err := client.Post(cfg.APIBaseURL+"/appointments/"+id.String()+"/cancel", "application/json", bytes.NewReader(body))
	latency := time.Since(t0)
	if err != nil {
		m.Record(latency, false, false)
		return
	}
	defer drainAndClose(resp)

	m.Record(latency, resp.StatusCode == http.StatusOK, resp.StatusCode == http.StatusConflict)
}

func runResolve(client *http.Client, cfg SimConfig, pool *DataPool, rng *rand.Rand, m *OperationMetrics) {
	doctor := pool.Doctors[rng.Intn(len(pool.Doctors))]
	url := fmt.Sprintf("%s/doctors/%s/availability?date=%s", cfg.APIBaseURL, doctor, randomDate(rng))

	t0 := time.Now()
	resp, err := client.Get(url)
	latency := time.Since(t0)
	if err != nil {
		m.Record(latency, false, false)
		return
	}
	defer drainAndClose(resp)

	m.Record(latency, resp.StatusCode == http.StatusOK, false)
}

func drainAndClose(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}

func loadSimConfig() SimConfig {
	cfg := SimConfig{
		APIBaseURL:   getEnv("API_BASE_URL", "http://127.0.0.1:8080"),
		Duration:     getDuration("SIM_DURATION", 30*time.Second),
		Workers:      getInt("SIM_WORKERS", 8),
		BookingRatio: 0.4,
		CancelRatio:  0.1,
		PostgresDSN:  os.Getenv("POSTGRES_DSN"),
	}
	if cfg.PostgresDSN == "" {
		log.Fatal("POSTGRES_DSN is required")
	}
	return cfg
}

func loadDataPool(dsn string) (*DataPool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		return nil, err
	}
	defer pool.Close()

	doctors, err := loadIDs(ctx, pool, `SELECT id FROM doctors LIMIT 200`)
	if err != nil {
		return nil, err
	}
	patients, err := loadIDs(ctx, pool, `SELECT id FROM patients LIMIT 2000`)
	if err != nil {
		return nil, err
	}
	if len(doctors) == 0 || len(patients) == 0 {
		return nil, fmt.Errorf("no doctors or patients seeded; run cmd/seed first")
	}

	return &DataPool{Doctors: doctors, Patients: patients}, nil
}

func loadIDs(ctx context.Context, pool *pgxpool.Pool, query string) ([]uuid.UUID, error) {
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
