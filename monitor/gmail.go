package monitor

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// defaultUrgentKeywords flag an email as worth surfacing. English and
// Spanish, matching the inboxes this watches.
var defaultUrgentKeywords = []string{
	"urgent", "importante", "emergency", "emergencia",
	"asap", "deadline", "overdue", "payment due",
	"action required", "acción requerida",
}

const gmailMaxMessages = 20

// GmailMonitor surfaces unread inbox mail that looks urgent. Everything else
// stays invisible to the check-in loop.
type GmailMonitor struct {
	service  *gmail.Service
	keywords []string
	logger   zerolog.Logger
}

// NewGmailMonitor builds a monitor over the authenticated user's inbox.
// extraKeywords extend the built-in urgency list.
func NewGmailMonitor(ctx context.Context, credentialsFile, tokenFile string, extraKeywords []string, logger zerolog.Logger) (*GmailMonitor, error) {
	client, err := googleHTTPClient(ctx, credentialsFile, tokenFile, gmail.GmailReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("gmail auth: %w", err)
	}
	service, err := gmail.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("gmail service: %w", err)
	}

	keywords := make([]string, 0, len(defaultUrgentKeywords)+len(extraKeywords))
	keywords = append(keywords, defaultUrgentKeywords...)
	for _, k := range extraKeywords {
		keywords = append(keywords, strings.ToLower(k))
	}

	return &GmailMonitor{
		service:  service,
		keywords: keywords,
		logger:   logger.With().Str("component", "gmail_monitor").Logger(),
	}, nil
}

func (m *GmailMonitor) Name() string { return "email" }

// Summary lists unread mail from the last day and reduces the urgent subset
// to one line per message.
func (m *GmailMonitor) Summary(ctx context.Context) (string, error) {
	list, err := m.service.Users.Messages.List("me").
		Q("in:inbox is:unread newer_than:1d").
		MaxResults(gmailMaxMessages).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("list messages: %w", err)
	}
	if len(list.Messages) == 0 {
		return "", nil
	}

	var urgent []string
	for _, ref := range list.Messages {
		msg, err := m.service.Users.Messages.Get("me", ref.Id).
			Format("metadata").
			MetadataHeaders("From", "Subject").
			Context(ctx).
			Do()
		if err != nil {
			m.logger.Warn().Str("message_id", ref.Id).Err(err).Msg("Failed to fetch message, skipping")
			continue
		}

		from, subject := headerValues(msg)
		if !m.isUrgent(subject, msg.Snippet) {
			continue
		}
		urgent = append(urgent, fmt.Sprintf("• %s: %s", from, subject))
	}

	if len(urgent) == 0 {
		return "", nil
	}
	return fmt.Sprintf("📧 %d urgent unread emails:\n%s", len(urgent), strings.Join(urgent, "\n")), nil
}

func (m *GmailMonitor) isUrgent(subject, snippet string) bool {
	combined := strings.ToLower(subject + " " + snippet)
	for _, keyword := range m.keywords {
		if strings.Contains(combined, keyword) {
			return true
		}
	}
	return false
}

func headerValues(msg *gmail.Message) (from, subject string) {
	if msg.Payload == nil {
		return "", ""
	}
	for _, h := range msg.Payload.Headers {
		switch h.Name {
		case "From":
			from = h.Value
		case "Subject":
			subject = h.Value
		}
	}
	return from, subject
}
