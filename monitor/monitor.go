// Package monitor defines external context sources for check-ins. A monitor
// watches one outside system (inbox, calendar, task tracker) and reduces it
// to a short human-readable summary, or nothing.
package monitor

import "context"

// Monitor is a read-only source of a short context summary. Implementations
// share no state with the check-in loop and are independently callable.
type Monitor interface {
	// Name identifies the monitor in snapshots and logs.
	Name() string

	// Summary returns a short human-readable summary of anything noteworthy,
	// or an empty string when there is nothing worth surfacing.
	Summary(ctx context.Context) (string, error)
}
