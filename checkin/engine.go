package checkin

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/carlosfalai/claude-always-on/llm"
)

// ErrMalformed reports classifier output with no recognizable ACTION line.
// Callers fall back to a NONE decision either way, but the distinction
// between "classifier said NONE" and "output unparseable" is preserved for
// observability.
var ErrMalformed = errors.New("unparseable decision output")

// Engine renders a snapshot into a prompt, submits it to the classifier, and
// parses the structured decision. A single blocking call, no retries: any
// failure degrades to a NONE decision, never to a crashed cycle.
type Engine struct {
	client    llm.Client
	model     string
	maxTokens int64
	logger    zerolog.Logger
}

// NewEngine creates a decision engine backed by the given classifier client.
func NewEngine(client llm.Client, model string, maxTokens int64, logger zerolog.Logger) *Engine {
	if maxTokens <= 0 {
		maxTokens = 500
	}
	return &Engine{
		client:    client,
		model:     model,
		maxTokens: maxTokens,
		logger:    logger.With().Str("component", "decision_engine").Logger(),
	}
}

// Decide classifies the snapshot into one of the three action tiers.
func (e *Engine) Decide(ctx context.Context, snap Snapshot) Decision {
	prompt := RenderPrompt(snap)

	resp, err := e.client.Complete(ctx, &llm.Request{
		Model:     e.model,
		MaxTokens: e.maxTokens,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: prompt},
		},
	})
	if err != nil {
		e.logger.Error().Err(err).Msg("Classifier call failed, defaulting to NONE")
		return Decision{Action: ActionNone, Reason: "Error"}
	}

	decision, err := ParseDecision(resp.Text)
	if err != nil {
		e.logger.Warn().
			Str("raw", truncate(resp.Text, 200)).
			Msg("Classifier output unparseable, defaulting to NONE")
		return decision
	}

	e.logger.Info().
		Str("action", string(decision.Action)).
		Str("reason", decision.Reason).
		Msg("Decision made")
	return decision
}

// RenderPrompt serializes a snapshot into the check-in prompt. Monitor
// sections appear under labeled headings in stable order.
func RenderPrompt(snap Snapshot) string {
	var b strings.Builder

	b.WriteString("You are a proactive AI assistant performing a check-in.\n\n")
	b.WriteString("**Current Context:**\n")
	fmt.Fprintf(&b, "- Time: %s\n", snap.Timestamp.Format(time.RFC1123))

	b.WriteString("- User's Goals:\n")
	if len(snap.Goals) == 0 {
		b.WriteString("  (none)\n")
	}
	for _, g := range snap.Goals {
		fmt.Fprintf(&b, "  - %s (%s", g.Description, g.Progress)
		if g.Deadline != nil {
			fmt.Fprintf(&b, ", deadline %s", g.Deadline.Format("2006-01-02"))
		}
		b.WriteString(")\n")
	}

	b.WriteString("- Recent Memories:\n")
	if len(snap.Memories) == 0 {
		b.WriteString("  (none)\n")
	}
	for _, m := range snap.Memories {
		fmt.Fprintf(&b, "  - [%s] %s\n", m.Category, m.Content)
	}

	if snap.LastCheckIn != nil {
		fmt.Fprintf(&b, "- Last Check-in: %s\n", snap.LastCheckIn.CreatedAt.Format(time.RFC1123))
	} else {
		b.WriteString("- Last Check-in: Never\n")
	}

	names := make([]string, 0, len(snap.Summaries))
	for name := range snap.Summaries {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&b, "\n**%s:**\n%s\n", title(name), snap.Summaries[name])
	}

	b.WriteString(`
**Your Task:**
Decide if you should contact the user. Output EXACTLY one of:
- NONE: No action needed (user is likely focused)
- TEXT: Send a message (something worth mentioning but not urgent)
- CALL: Make a voice call (urgent or time-sensitive)

**Decision Framework:**
- NONE: Use this 80% of the time. Only interrupt if truly important.
- TEXT: New opportunity, reminder, FYI update, non-urgent question
- CALL: Urgent deadline, important decision needed, time-sensitive matter

**Output Format:**
ACTION: [NONE|TEXT|CALL]
REASON: [brief explanation]
MESSAGE: [if TEXT or CALL, what to say to the user]

Make your decision:`)

	return b.String()
}

// ParseDecision extracts the structured decision from classifier output.
// Parsing is line-oriented and anchored: each line may carry one of the
// three fields; everything after a MESSAGE line belongs to the message. A
// missing or unrecognized ACTION yields a NONE decision and ErrMalformed,
// never TEXT or CALL on garbage.
func ParseDecision(raw string) (Decision, error) {
	var (
		action     Action
		actionSeen bool
		reason     string
		message    []string
		inMessage  bool
	)

	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(line)

		switch {
		case !actionSeen && strings.HasPrefix(trimmed, "ACTION:"):
			value := strings.TrimSpace(strings.TrimPrefix(trimmed, "ACTION:"))
			value = strings.Trim(value, "[]")
			switch Action(value) {
			case ActionNone, ActionText, ActionCall:
				action = Action(value)
				actionSeen = true
			}
			inMessage = false
		case strings.HasPrefix(trimmed, "REASON:"):
			reason = strings.TrimSpace(strings.TrimPrefix(trimmed, "REASON:"))
			inMessage = false
		case strings.HasPrefix(trimmed, "MESSAGE:"):
			first := strings.TrimSpace(strings.TrimPrefix(trimmed, "MESSAGE:"))
			if first != "" {
				message = append(message, first)
			}
			inMessage = true
		case inMessage && trimmed != "":
			message = append(message, trimmed)
		}
	}

	if !actionSeen {
		return Decision{Action: ActionNone, Reason: "Unparseable response"}, ErrMalformed
	}
	if reason == "" {
		reason = "Unknown"
	}

	return Decision{
		Action:  action,
		Reason:  reason,
		Message: strings.Join(message, "\n"),
	}, nil
}

// title upper-cases the first byte of an ASCII monitor name for the prompt.
func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// truncate clips s to at most n runes for log readability.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
