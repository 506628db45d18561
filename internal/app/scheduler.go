package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Pruner drops index entries whose matches have expired.
type Pruner interface {
	PruneOpen(ctx context.Context) (int, error)
}

// Maintenance runs periodic housekeeping next to the HTTP server.
type Maintenance struct {
	sched gocron.Scheduler
	log   *slog.Logger
}

// NewMaintenance schedules the prune job every interval. The job never
// overlaps itself; a run that outlasts the interval delays the next one.
func NewMaintenance(ctx context.Context, p Pruner, interval time.Duration, log *slog.Logger) (*Maintenance, error) {
	sched, err := gocron.NewScheduler(gocron.WithLogger(gocron.NewLogger(gocron.LogLevelError)))
	if err != nil {
		return nil, fmt.Errorf("scheduler: %w", err)
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			n, err := p.PruneOpen(ctx)
			if err != nil {
				log.Warn("prune open matches", "err", err)
				return
			}
			if n > 0 {
				log.Info("pruned expired matches", "count", n)
			}
		}),
		gocron.WithName("prune-open-matches"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, fmt.Errorf("scheduler: prune job: %w", err)
	}
	return &Maintenance{sched: sched, log: log}, nil
}

func (m *Maintenance) Start() {
	m.log.Info("maintenance scheduler started")
	m.sched.Start()
}

func (m *Maintenance) Stop() error {
	return m.sched.Shutdown()
}
