package checkin

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/carlosfalai/claude-always-on/store"
)

// System runs one check-in cycle end to end: gates, snapshot, decision,
// execution. It owns the in-flight guard, so overlapping triggers (a slow
// cycle meeting the next tick, or a manual trigger during a scheduled one)
// collapse to a skip instead of concurrent cycles.
type System struct {
	store       *store.Store
	userID      int64
	aggregator  *Aggregator
	engine      *Engine
	executor    *Executor
	minInterval time.Duration
	logger      zerolog.Logger

	inFlight atomic.Bool
	now      func() time.Time // injectable clock for the time gate
}

// NewSystem wires the check-in pipeline together.
func NewSystem(st *store.Store, userID int64, agg *Aggregator, engine *Engine, exec *Executor, minInterval time.Duration, logger zerolog.Logger) *System {
	if minInterval <= 0 {
		minInterval = DefaultMinInterval
	}
	return &System{
		store:       st,
		userID:      userID,
		aggregator:  agg,
		engine:      engine,
		executor:    exec,
		minInterval: minInterval,
		logger:      logger.With().Str("component", "checkin").Logger(),
		now:         time.Now,
	}
}

// RunCycle executes one cycle. Proactive cycles pass through the time and
// recency gates first; manual cycles skip both, the user asked explicitly.
// Gate rejections and in-flight skips leave no trace in the check-in log:
// only cycles that reach a decision are recorded.
func (s *System) RunCycle(ctx context.Context, kind Kind) (err error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		s.logger.Debug().Str("kind", string(kind)).Msg("Cycle already in flight, skipping")
		return nil
	}
	defer s.inFlight.Store(false)

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Interface("panic", r).Msg("Check-in cycle panicked")
			err = fmt.Errorf("check-in cycle panic: %v", r)
		}
	}()

	now := s.now()

	if kind == KindProactive {
		if RestrictedHour(now.Hour()) {
			s.logger.Debug().Int("hour", now.Hour()).Msg("Restricted hours, skipping check-in")
			return nil
		}
		last, err := s.store.LastCheckInLog(ctx, s.userID)
		if err != nil {
			return fmt.Errorf("read last check-in: %w", err)
		}
		if TooRecent(now, last, s.minInterval) {
			s.logger.Debug().
				Time("last", last.CreatedAt).
				Dur("min_interval", s.minInterval).
				Msg("Too soon since last check-in, skipping")
			return nil
		}
	}

	s.logger.Info().Str("kind", string(kind)).Msg("Running check-in cycle")

	snap, err := s.aggregator.Collect(ctx, now)
	if err != nil {
		return fmt.Errorf("collect context: %w", err)
	}

	decision := s.engine.Decide(ctx, snap)

	if err := s.executor.Execute(ctx, kind, decision); err != nil {
		return fmt.Errorf("execute decision: %w", err)
	}
	return nil
}

// ResolveCallRequest forwards an affordance answer to the executor.
func (s *System) ResolveCallRequest(ctx context.Context, requestID string, confirmed bool) error {
	return s.executor.ResolveCallRequest(ctx, requestID, confirmed)
}
