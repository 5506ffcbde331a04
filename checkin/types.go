package checkin

import (
	"time"

	"github.com/carlosfalai/claude-always-on/store"
)

// Action is the tier chosen by the decision engine for one cycle.
type Action string

const (
	ActionNone Action = "NONE"
	ActionText Action = "TEXT"
	ActionCall Action = "CALL"
)

// Log actions extend the decision tiers with the two CALL outcomes that can
// actually be recorded: a permission request, or the text fallback used when
// calling is not configured.
const (
	LogActionCallRequested    = "CALL_REQUESTED"
	LogActionCallFallbackText = "CALL_FALLBACK_TEXT"
)

// Kind distinguishes scheduled cycles from manually triggered ones.
type Kind string

const (
	KindProactive Kind = "proactive"
	KindManual    Kind = "manual"
)

// Decision is the parsed outcome of one classifier call.
type Decision struct {
	Action  Action
	Reason  string
	Message string // required when Action != NONE; may still be empty on sloppy output
}

// Snapshot is the context assembled for one check-in cycle. It is ephemeral:
// constructed fresh each cycle and discarded after the decision.
type Snapshot struct {
	Timestamp   time.Time
	Goals       []store.Goal
	Memories    []store.Memory
	LastCheckIn *store.CheckInLog
	// Summaries holds one short human-readable blurb per monitor that had
	// something noteworthy, keyed by monitor name. Failed or silent monitors
	// simply have no entry.
	Summaries map[string]string
}
