package observability

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	StatusOK        = "ok"
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

const readinessTimeout = 5 * time.Second

// ErrDegraded marks a probe result that is reachable but impaired.
var ErrDegraded = errors.New("degraded")

// ProbeFunc pings one dependency. Returning an error wrapping ErrDegraded
// reports the dependency as degraded instead of unhealthy.
type ProbeFunc func(ctx context.Context) error

type probe struct {
	name     string
	critical bool
	ping     ProbeFunc
}

// HealthChecker reports liveness and dependency readiness. A failing critical
// probe makes the service unhealthy; any other failure only degrades it.
type HealthChecker struct {
	version     string
	environment string

	mu     sync.RWMutex
	probes []probe
}

// NewHealthChecker creates a checker probing db (critical) and redis
// (optional). Either may be nil: the memory storage mode has no database and
// Redis only backs rate limiting.
func NewHealthChecker(db *sql.DB, redisClient *redis.Client, version, environment string) *HealthChecker {
	h := &HealthChecker{version: version, environment: environment}
	if db != nil {
		h.AddProbe("database", true, databaseProbe(db))
	}
	if redisClient != nil {
		h.AddProbe("redis", false, func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}
	return h
}

// AddProbe registers another dependency check
func (h *HealthChecker) AddProbe(name string, critical bool, ping ProbeFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.probes = append(h.probes, probe{name: name, critical: critical, ping: ping})
}

func databaseProbe(db *sql.DB) ProbeFunc {
	return func(ctx context.Context) error {
		if err := db.PingContext(ctx); err != nil {
			return err
		}
		stats := db.Stats()
		if stats.MaxOpenConnections > 0 && stats.InUse >= stats.MaxOpenConnections {
			return errors.Join(ErrDegraded, errors.New("connection pool exhausted"))
		}
		return nil
	}
}

// HealthStatus is the readiness report
type HealthStatus struct {
	Status       string                      `json:"status"`
	Environment  string                      `json:"environment,omitempty"`
	Timestamp    time.Time                   `json:"timestamp"`
	Version      string                      `json:"version,omitempty"`
	Dependencies map[string]DependencyStatus `json:"dependencies,omitempty"`
}

// DependencyStatus is the outcome of one probe
type DependencyStatus struct {
	Status    string        `json:"status"`
	Message   string        `json:"message,omitempty"`
	Latency   time.Duration `json:"latency_ms,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// Status answers the public /api/health probe used by the frontend.
func (h *HealthChecker) Status(w http.ResponseWriter, r *http.Request) {
	writeHealth(w, http.StatusOK, map[string]interface{}{
		"status":      StatusOK,
		"environment": h.environment,
		"version":     h.version,
	})
}

// Liveness returns 200 whenever the process is serving
func (h *HealthChecker) Liveness(w http.ResponseWriter, r *http.Request) {
	writeHealth(w, http.StatusOK, map[string]interface{}{
		"status":    StatusHealthy,
		"timestamp": time.Now(),
	})
}

// Readiness runs every probe and answers 503 when the service is unhealthy
func (h *HealthChecker) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	status := h.Check(ctx)

	code := http.StatusOK
	if status.Status == StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	writeHealth(w, code, status)
}

func writeHealth(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

// Check runs the probes concurrently and folds their results
func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	h.mu.RLock()
	probes := append([]probe(nil), h.probes...)
	h.mu.RUnlock()

	results := make([]DependencyStatus, len(probes))
	var wg sync.WaitGroup
	for i, p := range probes {
		wg.Add(1)
		go func(i int, p probe) {
			defer wg.Done()
			results[i] = runProbe(ctx, p)
		}(i, p)
	}
	wg.Wait()

	status := HealthStatus{
		Status:       StatusHealthy,
		Environment:  h.environment,
		Timestamp:    time.Now(),
		Version:      h.version,
		Dependencies: make(map[string]DependencyStatus, len(probes)),
	}
	for i, p := range probes {
		result := results[i]
		status.Dependencies[p.name] = result

		switch {
		case result.Status == StatusUnhealthy && p.critical:
			status.Status = StatusUnhealthy
		case result.Status != StatusHealthy && status.Status == StatusHealthy:
			status.Status = StatusDegraded
		}
	}
	return status
}

func runProbe(ctx context.Context, p probe) DependencyStatus {
	start := time.Now()
	err := p.ping(ctx)
	result := DependencyStatus{
		Status:    StatusHealthy,
		Latency:   time.Since(start),
		Timestamp: start,
	}
	switch {
	case errors.Is(err, ErrDegraded):
		result.Status = StatusDegraded
		result.Message = err.Error()
	case err != nil:
		result.Status = StatusUnhealthy
		result.Message = err.Error()
	}
	return result
}
