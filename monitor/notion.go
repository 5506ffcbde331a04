package monitor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

const (
	notionBaseURL    = "https://api.notion.com/v1"
	notionAPIVersion = "2022-06-28"
	dueSoonWindow    = 24 * time.Hour
)

// NotionMonitor surfaces open tasks from one Notion database, bucketed into
// overdue and due-soon. The database is expected to carry a "Status" status
// property and a "Due Date" date property.
type NotionMonitor struct {
	client     *resty.Client
	databaseID string
	logger     zerolog.Logger
}

// NewNotionMonitor builds a monitor over the given task database.
func NewNotionMonitor(token, databaseID string, logger zerolog.Logger) *NotionMonitor {
	client := resty.New().
		SetBaseURL(notionBaseURL).
		SetAuthToken(token).
		SetHeader("Notion-Version", notionAPIVersion)

	return &NotionMonitor{
		client:     client,
		databaseID: databaseID,
		logger:     logger.With().Str("component", "notion_monitor").Logger(),
	}
}

func (m *NotionMonitor) Name() string { return "tasks" }

type notionTask struct {
	Title   string
	Status  string
	DueDate *time.Time
}

type notionQueryResponse struct {
	Results []struct {
		Properties struct {
			Name struct {
				Title []struct {
					PlainText string `json:"plain_text"`
				} `json:"title"`
			} `json:"Name"`
			Status struct {
				Status *struct {
					Name string `json:"name"`
				} `json:"status"`
			} `json:"Status"`
			DueDate struct {
				Date *struct {
					Start string `json:"start"`
				} `json:"date"`
			} `json:"Due Date"`
		} `json:"properties"`
	} `json:"results"`
}

// Summary queries open tasks and reduces them to overdue / due-soon counts.
func (m *NotionMonitor) Summary(ctx context.Context) (string, error) {
	tasks, err := m.openTasks(ctx)
	if err != nil {
		return "", err
	}
	if len(tasks) == 0 {
		return "", nil
	}

	now := time.Now()
	var overdue, dueSoon []notionTask
	for _, t := range tasks {
		if t.DueDate == nil {
			continue
		}
		switch {
		case t.DueDate.Before(now):
			overdue = append(overdue, t)
		case t.DueDate.Sub(now) <= dueSoonWindow:
			dueSoon = append(dueSoon, t)
		}
	}

	var parts []string
	if len(overdue) > 0 {
		parts = append(parts, fmt.Sprintf("⚠️ %d overdue tasks:", len(overdue)))
		for _, t := range overdue {
			parts = append(parts, "  • "+t.Title)
		}
	}
	if len(dueSoon) > 0 {
		parts = append(parts, fmt.Sprintf("📌 %d tasks due within a day:", len(dueSoon)))
		for _, t := range dueSoon {
			parts = append(parts, "  • "+t.Title)
		}
	}
	if len(parts) == 0 {
		// Open tasks exist but nothing is time-pressured.
		return "", nil
	}
	return strings.Join(parts, "\n"), nil
}

// openTasks queries the database for everything not yet Done, ordered by due
// date.
func (m *NotionMonitor) openTasks(ctx context.Context) ([]notionTask, error) {
	body := map[string]any{
		"filter": map[string]any{
			"property": "Status",
			"status": map[string]any{
				"does_not_equal": "Done",
			},
		},
		"sorts": []map[string]any{
			{"property": "Due Date", "direction": "ascending"},
		},
	}

	var out notionQueryResponse
	resp, err := m.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		Post(fmt.Sprintf("/databases/%s/query", m.databaseID))
	if err != nil {
		return nil, fmt.Errorf("query notion database: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("notion query failed: %s: %s", resp.Status(), resp.String())
	}

	tasks := make([]notionTask, 0, len(out.Results))
	for _, page := range out.Results {
		task := notionTask{Title: "Untitled", Status: "Unknown"}
		if len(page.Properties.Name.Title) > 0 {
			task.Title = page.Properties.Name.Title[0].PlainText
		}
		if page.Properties.Status.Status != nil {
			task.Status = page.Properties.Status.Status.Name
		}
		if d := page.Properties.DueDate.Date; d != nil && d.Start != "" {
			if t, err := parseNotionDate(d.Start); err == nil {
				task.DueDate = &t
			}
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// parseNotionDate accepts both date-only and full timestamp forms.
func parseNotionDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}
