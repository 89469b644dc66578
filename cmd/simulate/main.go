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
)

// Load driver for the booking API. Workers race for the same doctor/day
// slots to exercise the reserve-on-book path under contention; the
// interesting output is how many bookings succeed versus conflict.

type SimConfig struct {
	APIBaseURL string
	Duration   time.Duration
	Workers    int
}

type slotTarget struct {
	DoctorID int    `json:"doctor_id"`
	Date     string `json:"date"`
	Time     string `json:"time"`
}

type doctorPayload struct {
	ID           int                 `json:"id"`
	Name         string              `json:"name"`
	Availability map[string][]string `json:"availability"`
}

type bookingResult struct {
	latency  time.Duration
	success  bool
	conflict bool
}

type Metrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	mu        sync.Mutex
	latencies []time.Duration
}

func (m *Metrics) Record(r bookingResult) {
	atomic.AddInt64(&m.Total, 1)
	switch {
	case r.success:
		atomic.AddInt64(&m.Success, 1)
	case r.conflict:
		atomic.AddInt64(&m.Conflict, 1)
	default:
		atomic.AddInt64(&m.Error, 1)
	}

	m.mu.Lock()
	m.latencies = append(m.latencies, r.latency)
	m.mu.Unlock()
}

func (m *Metrics) Stats() (avg, p50, p95 time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.latencies) == 0 {
		return 0, 0, 0
	}

	latencies := make([]time.Duration, len(m.latencies))
	copy(latencies, m.latencies)
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}
	avg = sum / time.Duration(len(latencies))

	p50 = latencies[len(latencies)*50/100]
	p95Idx := len(latencies) * 95 / 100
	if p95Idx >= len(latencies) {
		p95Idx = len(latencies) - 1
	}
	p95 = latencies[p95Idx]
	return avg, p50, p95
}

func loadSimConfig() SimConfig {
	cfg := SimConfig{
		APIBaseURL: "http://127.0.0.1:8080",
		Duration:   30 * time.Second,
		Workers:    16,
	}
	if v := os.Getenv("SIM_API_URL"); v != "" {
		cfg.APIBaseURL = v
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
	return cfg
}

func main() {
	log.SetFlags(log.LstdFlags)
	cfg := loadSimConfig()

	log.Printf("simulate: url=%s duration=%s workers=%d", cfg.APIBaseURL, cfg.Duration, cfg.Workers)

	client := &http.Client{Timeout: 10 * time.Second}

	targets, err := fetchTargets(client, cfg.APIBaseURL)
	if err != nil {
		log.Fatalf("fetch targets: %v", err)
	}
	if len(targets) == 0 {
		log.Fatal("no open slots to book; run cmd/seed first")
	}
	log.Printf("loaded %d open slots", len(targets))

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()

	var metrics Metrics
	var wg sync.WaitGroup

	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))
			for ctx.Err() == nil {
				target := targets[rng.Intn(len(targets))]
				metrics.Record(bookOnce(ctx, client, cfg.APIBaseURL, target, rng))
			}
		}(i)
	}

	wg.Wait()

	avg, p50, p95 := metrics.Stats()
	fmt.Println("--- booking simulation ---")
	fmt.Printf("total:    %d\n", metrics.Total)
	fmt.Printf("success:  %d\n", metrics.Success)
	fmt.Printf("conflict: %d\n", metrics.Conflict)
	fmt.Printf("error:    %d\n", metrics.Error)
	fmt.Printf("latency:  avg=%s p50=%s p95=%s\n", avg, p50, p95)
}

func fetchTargets(client *http.Client, baseURL string) ([]slotTarget, error) {
	resp, err := client.Get(baseURL + "/doctors")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET /doctors: status %d", resp.StatusCode)
	}

	var doctors []doctorPayload
	if err := json.NewDecoder(resp.Body).Decode(&doctors); err != nil {
		return nil, err
	}

	var targets []slotTarget
	for _, d := range doctors {
		for day, slots := range d.Availability {
			for _, slot := range slots {
				targets = append(targets, slotTarget{DoctorID: d.ID, Date: day, Time: slot})
			}
		}
	}
	return targets, nil
}

var patientPool = []string{
	"Avery Quinn", "Morgan Blake", "Riley Chen", "Jordan Vance",
	"Casey Holt", "Drew Ellison", "Skyler Nash", "Rowan Pierce",
}

func bookOnce(ctx context.Context, client *http.Client, baseURL string, target slotTarget, rng *rand.Rand) bookingResult {
	body, _ := json.Marshal(map[string]any{
		"doctor_id":    target.DoctorID,
		"patient_name": patientPool[rng.Intn(len(patientPool))],
		"date":         target.Date,
		"time":         target.Time,
		"reason":       "Simulated booking for load testing purposes",
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/appointments/book", bytes.NewReader(body))
	if err != nil {
		return bookingResult{}
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := client.Do(req)
	latency := time.Since(start)
	if err != nil {
		return bookingResult{latency: latency}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return bookingResult{
		latency:  latency,
		success:  resp.StatusCode == http.StatusCreated,
		conflict: resp.StatusCode == http.StatusConflict,
	}
}
