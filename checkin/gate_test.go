package checkin

import (
	"testing"
	"time"

	"github.com/carlosfalai/claude-always-on/store"
)

func TestRestrictedHour(t *testing.T) {
	restricted := map[int]bool{
		0: true, 1: true, 2: true, 3: true, 4: true, 5: true, 6: true, // night
		7: true, 8: true, 9: true, // protected focus block
		10: false, 11: false, 12: false, 15: false, 18: false, 21: false, // open window
		22: true, 23: true, // quiet hours
	}

	for hour, want := range restricted {
		if got := RestrictedHour(hour); got != want {
			t.Errorf("RestrictedHour(%d) = %v, want %v", hour, got, want)
		}
	}
}

func TestRestrictedHourBoundaries(t *testing.T) {
	// The window edges are where off-by-one bugs live.
	cases := []struct {
		hour int
		want bool
	}{
		{6, true},   // last night hour
		{7, true},   // focus begins
		{9, true},   // last focus hour
		{10, false}, // open begins
		{21, false}, // last open hour
		{22, true},  // quiet begins
	}
	for _, c := range cases {
		if got := RestrictedHour(c.hour); got != c.want {
			t.Errorf("RestrictedHour(%d) = %v, want %v", c.hour, got, c.want)
		}
	}
}

func TestTooRecent(t *testing.T) {
	now := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)

	if TooRecent(now, nil, DefaultMinInterval) {
		t.Error("no prior check-in must never be too recent")
	}

	cases := []struct {
		name string
		ago  time.Duration
		want bool
	}{
		{"one minute ago", time.Minute, true},
		{"just inside the interval", 2*time.Hour - time.Second, true},
		{"exactly at the interval", 2 * time.Hour, false},
		{"well past the interval", 3 * time.Hour, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			last := &store.CheckInLog{CreatedAt: now.Add(-c.ago)}
			if got := TooRecent(now, last, DefaultMinInterval); got != c.want {
				t.Errorf("TooRecent(-%s) = %v, want %v", c.ago, got, c.want)
			}
		})
	}
}

func TestTooRecentCountsAllOutcomes(t *testing.T) {
	// A NONE entry suppresses contact the same as a TEXT entry: the gate
	// reads recency, not the action taken.
	now := time.Now()
	last := &store.CheckInLog{Action: "NONE", CreatedAt: now.Add(-time.Minute)}
	if !TooRecent(now, last, DefaultMinInterval) {
		t.Error("recent NONE entry must still gate the next cycle")
	}
}
