package checkin

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/carlosfalai/claude-always-on/monitor"
	"github.com/carlosfalai/claude-always-on/store"
)

const (
	// DefaultMonitorTimeout bounds each monitor call during fan-out.
	DefaultMonitorTimeout = 15 * time.Second
	// memoryLimit is how many recent memories go into a snapshot.
	memoryLimit = 5
)

// Aggregator assembles the context snapshot for one check-in cycle. Store
// reads and monitor calls fan out concurrently; a failing monitor
// contributes nothing and never aborts the cycle, while a failing store
// read does (without local context the decision would be meaningless).
type Aggregator struct {
	store          *store.Store
	userID         int64
	monitors       []monitor.Monitor
	monitorTimeout time.Duration
	logger         zerolog.Logger
}

// NewAggregator creates an Aggregator for the given user.
func NewAggregator(st *store.Store, userID int64, monitors []monitor.Monitor, monitorTimeout time.Duration, logger zerolog.Logger) *Aggregator {
	if monitorTimeout <= 0 {
		monitorTimeout = DefaultMonitorTimeout
	}
	return &Aggregator{
		store:          st,
		userID:         userID,
		monitors:       monitors,
		monitorTimeout: monitorTimeout,
		logger:         logger.With().Str("component", "aggregator").Logger(),
	}
}

// Collect builds a fresh Snapshot.
func (a *Aggregator) Collect(ctx context.Context, now time.Time) (Snapshot, error) {
	snap := Snapshot{
		Timestamp: now,
		Summaries: make(map[string]string),
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		goals, err := a.store.Goals(gctx, a.userID)
		if err != nil {
			return err
		}
		mu.Lock()
		snap.Goals = goals
		mu.Unlock()
		return nil
	})
	g.Go(func() error {
		memories, err := a.store.RecentMemories(gctx, a.userID, memoryLimit)
		if err != nil {
			return err
		}
		mu.Lock()
		snap.Memories = memories
		mu.Unlock()
		return nil
	})
	g.Go(func() error {
		last, err := a.store.LastCheckInLog(gctx, a.userID)
		if err != nil {
			return err
		}
		mu.Lock()
		snap.LastCheckIn = last
		mu.Unlock()
		return nil
	})

	// Monitors join the same fan-out but are fault-isolated: a timeout or
	// error becomes an omission, never a cycle failure.
	var monitorWG sync.WaitGroup
	for _, m := range a.monitors {
		monitorWG.Add(1)
		go func(m monitor.Monitor) {
			defer monitorWG.Done()
			mctx, cancel := context.WithTimeout(ctx, a.monitorTimeout)
			defer cancel()

			summary, err := m.Summary(mctx)
			if err != nil {
				a.logger.Warn().Str("monitor", m.Name()).Err(err).Msg("Monitor failed, omitting from snapshot")
				return
			}
			if summary == "" {
				return
			}
			mu.Lock()
			snap.Summaries[m.Name()] = summary
			mu.Unlock()
		}(m)
	}

	err := g.Wait()
	monitorWG.Wait()
	if err != nil {
		return Snapshot{}, err
	}

	return snap, nil
}
