package observability

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultStatsSchedule refreshes gauges twice a minute.
const DefaultStatsSchedule = "@every 30s"

// ActiveUserCounter reports how many user accounts are active.
type ActiveUserCounter interface {
	CountActive(ctx context.Context) (int, error)
}

// StatsCollector periodically copies database pool statistics and the
// active user count into Prometheus gauges.
type StatsCollector struct {
	cron    *cron.Cron
	db      *sql.DB
	users   ActiveUserCounter
	metrics *Metrics
	logger  *Logger
	timeout time.Duration
}

// NewStatsCollector schedules collection. db and users may be nil.
func NewStatsCollector(schedule string, metrics *Metrics, db *sql.DB, users ActiveUserCounter, logger *Logger) (*StatsCollector, error) {
	if schedule == "" {
		schedule = DefaultStatsSchedule
	}
	c := &StatsCollector{
		cron:    cron.New(),
		db:      db,
		users:   users,
		metrics: metrics,
		logger:  logger,
		timeout: 5 * time.Second,
	}
	if _, err := c.cron.AddFunc(schedule, c.Collect); err != nil {
		return nil, fmt.Errorf("invalid stats schedule %q: %w", schedule, err)
	}
	return c, nil
}

// Start runs the scheduler in its own goroutine and collects once immediately.
func (c *StatsCollector) Start() {
	c.Collect()
	c.cron.Start()
}

// Stop halts scheduling and waits for a running collection to finish.
func (c *StatsCollector) Stop(ctx context.Context) error {
	done := c.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Collect refreshes every gauge once
func (c *StatsCollector) Collect() {
	defer RecoverPanic(c.logger, "stats collection")

	if c.metrics == nil {
		return
	}

	if c.db != nil {
		stats := c.db.Stats()
		c.metrics.DBConnectionsOpen.Set(float64(stats.OpenConnections))
		c.metrics.DBConnectionsInUse.Set(float64(stats.InUse))
		c.metrics.DBConnectionsIdle.Set(float64(stats.Idle))
		c.metrics.DBConnectionsWaitCount.Set(float64(stats.WaitCount))
	}

	if c.users != nil {
		ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
		defer cancel()
		count, err := c.users.CountActive(ctx)
		if err != nil {
			c.logger.WithError(err).Warn("Failed to count active users")
			return
		}
		c.metrics.ActiveUsersTotal.Set(float64(count))
	}
}
