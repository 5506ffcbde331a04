package checkin

import (
	"time"

	"github.com/carlosfalai/claude-always-on/store"
)

// Protected focus hours run 7am-10am: no proactive contact regardless of
// urgency. Quiet hours run from 10pm until the protected window begins the
// next morning. Only 10am-10pm is open.
const (
	focusStartHour = 7
	focusEndHour   = 10
	quietStartHour = 22
)

// DefaultMinInterval is the minimum gap between proactive contacts.
const DefaultMinInterval = 2 * time.Hour

// RestrictedHour reports whether proactive contact is suppressed at the
// given local hour of day (0-23).
func RestrictedHour(hour int) bool {
	if hour >= focusStartHour && hour < focusEndHour {
		return true
	}
	if hour >= quietStartHour || hour < focusStartHour {
		return true
	}
	return false
}

// TooRecent reports whether the previous check-in is within minInterval of
// now. An absent last entry means the first-ever check-in is allowed.
func TooRecent(now time.Time, last *store.CheckInLog, minInterval time.Duration) bool {
	if last == nil {
		return false
	}
	return now.Sub(last.CreatedAt) < minInterval
}
