package monitor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

const (
	defaultLookAhead  = 24 * time.Hour
	calendarMaxEvents = 10
)

// CalendarMonitor surfaces events starting within the look-ahead window.
type CalendarMonitor struct {
	service    *calendar.Service
	calendarID string
	lookAhead  time.Duration
	logger     zerolog.Logger
}

// NewCalendarMonitor builds a monitor over one calendar. calendarID defaults
// to "primary", lookAheadHours to 24.
func NewCalendarMonitor(ctx context.Context, credentialsFile, tokenFile, calendarID string, lookAheadHours int, logger zerolog.Logger) (*CalendarMonitor, error) {
	client, err := googleHTTPClient(ctx, credentialsFile, tokenFile, calendar.CalendarReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("calendar auth: %w", err)
	}
	service, err := calendar.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("calendar service: %w", err)
	}

	if calendarID == "" {
		calendarID = "primary"
	}
	lookAhead := defaultLookAhead
	if lookAheadHours > 0 {
		lookAhead = time.Duration(lookAheadHours) * time.Hour
	}

	return &CalendarMonitor{
		service:    service,
		calendarID: calendarID,
		lookAhead:  lookAhead,
		logger:     logger.With().Str("component", "calendar_monitor").Logger(),
	}, nil
}

func (m *CalendarMonitor) Name() string { return "calendar" }

// Summary lists events starting between now and now+lookAhead, one line per
// event.
func (m *CalendarMonitor) Summary(ctx context.Context) (string, error) {
	now := time.Now()
	events, err := m.service.Events.List(m.calendarID).
		TimeMin(now.Format(time.RFC3339)).
		TimeMax(now.Add(m.lookAhead).Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(calendarMaxEvents).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("list events: %w", err)
	}
	if len(events.Items) == 0 {
		return "", nil
	}

	lines := make([]string, 0, len(events.Items))
	for _, ev := range events.Items {
		lines = append(lines, fmt.Sprintf("• %s at %s", eventTitle(ev), eventStart(ev)))
	}
	return "📅 Upcoming events:\n" + strings.Join(lines, "\n"), nil
}

func eventTitle(ev *calendar.Event) string {
	if ev.Summary == "" {
		return "(untitled)"
	}
	return ev.Summary
}

// eventStart renders the start time. All-day events only carry a date.
func eventStart(ev *calendar.Event) string {
	if ev.Start == nil {
		return "unknown time"
	}
	if ev.Start.DateTime != "" {
		if t, err := time.Parse(time.RFC3339, ev.Start.DateTime); err == nil {
			return t.Format("Mon 15:04")
		}
		return ev.Start.DateTime
	}
	return ev.Start.Date + " (all day)"
}
