// Package sweeper owns the recurring expiry pass over the reservation
// ledger.  It guarantees liveness for orphaned holds: if the booking
// orchestrator crashes or never calls back, capacity held by a pending
// reservation is reclaimed within one tick after its hold window elapses.
// The sweeper is started and stopped by the hosting process, not left as
// ambient background state.
package sweeper

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/skyreserve/inventory-reservation/internal/model"
)

// DefaultInterval is the tick period used when none is configured.
const DefaultInterval = time.Minute

// Engine is the slice of the reservation engine the sweeper needs.
type Engine interface {
	ExpireDue(ctx context.Context) ([]model.Reservation, error)
}

// Sweeper runs ExpireDue on a fixed interval.  A failed pass is logged and
// the unprocessed reservations simply stay pending until the next tick;
// expiry is a best-effort, eventually-consistent reclaim.
type Sweeper struct {
	engine   Engine
	interval time.Duration
	logger   zerolog.Logger

	// Notify, when set, is invoked after a pass that expired at least one
	// reservation.  The hosting process uses it to publish lifecycle
	// events and drop stale availability cache entries; failures inside
	// Notify must not affect the ledger, which has already committed.
	Notify func(ctx context.Context, expired []model.Reservation)
}

// New returns a Sweeper over the given engine.  A non-positive interval
// falls back to DefaultInterval.
func New(engine Engine, interval time.Duration, logger zerolog.Logger) *Sweeper {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Sweeper{engine: engine, interval: interval, logger: logger}
}

// Run ticks until ctx is cancelled.  It is meant to be started as a
// goroutine from main and stopped through the process shutdown context.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	s.logger.Info().Dur("interval", s.interval).Msg("expiry sweeper started")
	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("expiry sweeper stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	expired, err := s.engine.ExpireDue(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("expiry sweep failed; due reservations remain pending until next tick")
		return
	}
	if len(expired) == 0 {
		return
	}
	s.logger.Info().Int("expired", len(expired)).Msg("reclaimed capacity from stale reservations")
	if s.Notify != nil {
		s.Notify(ctx, expired)
	}
}
