package scheduler

import (
	"context"
	"time"

	"auction-engine/internal/engine"
	"auction-engine/utils"
)

// Scheduler drives time-based auction transitions. It never mutates state
// itself: every transition funnels through the engine's per-auction
// serialization point, so a closing tick can never interleave with a
// last-second bid.
type Scheduler struct {
	engine   *engine.Engine
	interval time.Duration
}

// NewScheduler creates a scheduler ticking at the given interval.
func NewScheduler(eng *engine.Engine, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = time.Second
	}
	return &Scheduler{engine: eng, interval: interval}
}

// Run ticks until the context is cancelled. Transition failures are logged
// and retried on the next tick; a due auction is never abandoned.
func (s *Scheduler) Run(ctx context.Context) {
	utils.Info("lifecycle scheduler started", map[string]any{
		"interval": s.interval.String(),
	})

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			utils.Info("lifecycle scheduler stopped", nil)
			return
		case now := <-ticker.C:
			s.Tick(ctx, now.UTC())
		}
	}
}

// Tick applies all currently due transitions. Exposed so tests and
// administrative tooling can drive the lifecycle without the timer.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) {
	if err := s.engine.FinalizeDue(ctx, now); err != nil {
		utils.Error("lifecycle tick failed, will retry next tick", map[string]any{
			"error": err.Error(),
		})
	}
}
