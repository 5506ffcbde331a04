// Package runtime drives the periodic check-in loop.
package runtime

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/carlosfalai/claude-always-on/checkin"
)

// Schedule yields the next firing time after a given instant.
type Schedule interface {
	Next(time.Time) time.Time
}

type cronSchedule struct {
	schedule cron.Schedule
}

func (cs *cronSchedule) Next(t time.Time) time.Time {
	return cs.schedule.Next(t)
}

// ParseSchedule parses a schedule string. Supports:
//   - Cron expressions: "0 */30 * * * *" (6-field) or "*/30 * * * *" (5-field)
//   - Go duration strings: "30m", "2h", "1h30m"
func ParseSchedule(schedule string) (Schedule, error) {
	if schedule == "" {
		return nil, fmt.Errorf("schedule string is empty")
	}

	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	cronSched, err := parser.Parse(schedule)
	if err == nil {
		return &cronSchedule{schedule: cronSched}, nil
	}

	duration, err := time.ParseDuration(schedule)
	if err != nil {
		return nil, fmt.Errorf("failed to parse schedule as cron expression or duration: %w", err)
	}
	return &cronSchedule{schedule: cron.ConstantDelaySchedule{Delay: duration}}, nil
}

// Scheduler fires check-in cycles on a fixed schedule. The cadence is
// intentionally decoupled from the decision to make contact: the schedule
// says when to ask, the gates and the classifier say whether to act.
type Scheduler struct {
	system   *checkin.System
	schedule Schedule
	logger   zerolog.Logger
}

// NewScheduler creates a scheduler from a schedule string.
func NewScheduler(system *checkin.System, schedule string, logger zerolog.Logger) (*Scheduler, error) {
	parsed, err := ParseSchedule(schedule)
	if err != nil {
		return nil, fmt.Errorf("invalid check-in schedule %q: %w", schedule, err)
	}
	return &Scheduler{
		system:   system,
		schedule: parsed,
		logger:   logger.With().Str("component", "scheduler").Logger(),
	}, nil
}

// Start runs the loop until ctx is cancelled. Blocking; callers run it in a
// goroutine. Each tick triggers one proactive cycle; cycle errors are logged
// and the loop keeps going.
func (s *Scheduler) Start(ctx context.Context) {
	next := s.schedule.Next(time.Now())
	s.logger.Info().Time("next", next).Msg("Starting check-in scheduler")

	for {
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info().Msg("Scheduler stopped: context cancelled")
			return
		case <-timer.C:
		}

		if err := s.system.RunCycle(ctx, checkin.KindProactive); err != nil {
			s.logger.Error().Err(err).Msg("Check-in cycle failed")
		}

		next = s.schedule.Next(time.Now())
		s.logger.Debug().Time("next", next).Msg("Next check-in scheduled")
	}
}
