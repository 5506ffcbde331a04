package checkin

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/carlosfalai/claude-always-on/migrations"
	"github.com/carlosfalai/claude-always-on/monitor"
	"github.com/carlosfalai/claude-always-on/store"

	_ "github.com/mattn/go-sqlite3"
)

// fakeMonitor is a configurable monitor for fan-out tests.
type fakeMonitor struct {
	name    string
	summary string
	err     error
	delay   time.Duration
}

func (m *fakeMonitor) Name() string { return m.name }

func (m *fakeMonitor) Summary(ctx context.Context) (string, error) {
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return m.summary, m.err
}

func TestCollectBuildsSnapshot(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	if _, err := st.SaveGoal(ctx, testUserID, "ship the report", nil); err != nil {
		t.Fatal(err)
	}
	if _, err := st.SaveMemory(ctx, testUserID, "prefers mornings", "preferences", nil); err != nil {
		t.Fatal(err)
	}
	if _, err := st.AppendCheckInLog(ctx, testUserID, "proactive", nil, "NONE"); err != nil {
		t.Fatal(err)
	}

	monitors := []monitor.Monitor{
		&fakeMonitor{name: "email", summary: "2 urgent emails"},
	}
	agg := NewAggregator(st, testUserID, monitors, time.Second, zerolog.Nop())

	now := time.Now()
	snap, err := agg.Collect(ctx, now)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}

	if !snap.Timestamp.Equal(now) {
		t.Errorf("timestamp = %v, want %v", snap.Timestamp, now)
	}
	if len(snap.Goals) != 1 || snap.Goals[0].Description != "ship the report" {
		t.Errorf("unexpected goals: %+v", snap.Goals)
	}
	if len(snap.Memories) != 1 {
		t.Errorf("unexpected memories: %+v", snap.Memories)
	}
	if snap.LastCheckIn == nil {
		t.Error("expected last check-in in snapshot")
	}
	if snap.Summaries["email"] != "2 urgent emails" {
		t.Errorf("unexpected summaries: %v", snap.Summaries)
	}
}

func TestCollectMonitorFaultIsolation(t *testing.T) {
	st := setupTestStore(t)

	monitors := []monitor.Monitor{
		&fakeMonitor{name: "healthy", summary: "all good here"},
		&fakeMonitor{name: "broken", err: errors.New("upstream 500")},
		&fakeMonitor{name: "slow", summary: "too late", delay: 500 * time.Millisecond},
		&fakeMonitor{name: "quiet", summary: ""},
	}
	agg := NewAggregator(st, testUserID, monitors, 50*time.Millisecond, zerolog.Nop())

	snap, err := agg.Collect(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("monitor failures must not fail the cycle: %v", err)
	}

	if len(snap.Summaries) != 1 {
		t.Fatalf("expected only the healthy monitor, got %v", snap.Summaries)
	}
	if snap.Summaries["healthy"] != "all good here" {
		t.Errorf("unexpected summary: %v", snap.Summaries)
	}
}

func TestCollectStoreFailureAbortsCycle(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	db.SetMaxOpenConns(1)
	if err := migrations.RunMigrations(db, zerolog.Nop()); err != nil {
		t.Fatal(err)
	}
	st := store.NewStore(db, zerolog.Nop())
	db.Close()

	agg := NewAggregator(st, testUserID, nil, time.Second, zerolog.Nop())
	if _, err := agg.Collect(context.Background(), time.Now()); err == nil {
		t.Fatal("expected error when local reads fail")
	}
}
