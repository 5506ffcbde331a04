package checkin

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/carlosfalai/claude-always-on/llm"
	"github.com/carlosfalai/claude-always-on/store"
)

// fakeClient returns a canned response or error and counts calls.
type fakeClient struct {
	text  string
	err   error
	calls int
}

func (f *fakeClient) Complete(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Response{Text: f.text}, nil
}

func TestParseDecisionWellFormed(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want Decision
	}{
		{
			name: "none",
			raw:  "ACTION: NONE\nREASON: User is likely focused",
			want: Decision{Action: ActionNone, Reason: "User is likely focused"},
		},
		{
			name: "text with message",
			raw:  "ACTION: TEXT\nREASON: Reminder\nMESSAGE: Don't forget the 3pm review",
			want: Decision{Action: ActionText, Reason: "Reminder", Message: "Don't forget the 3pm review"},
		},
		{
			name: "call",
			raw:  "ACTION: CALL\nREASON: Deadline at risk\nMESSAGE: The filing closes in an hour",
			want: Decision{Action: ActionCall, Reason: "Deadline at risk", Message: "The filing closes in an hour"},
		},
		{
			name: "bracketed action value",
			raw:  "ACTION: [TEXT]\nREASON: FYI\nMESSAGE: Package delivered",
			want: Decision{Action: ActionText, Reason: "FYI", Message: "Package delivered"},
		},
		{
			name: "multi-line message",
			raw:  "ACTION: TEXT\nREASON: Update\nMESSAGE: Two things:\n1. The deploy finished\n2. CI is green again",
			want: Decision{Action: ActionText, Reason: "Update", Message: "Two things:\n1. The deploy finished\n2. CI is green again"},
		},
		{
			name: "fields in any order",
			raw:  "REASON: Quiet day\nACTION: NONE",
			want: Decision{Action: ActionNone, Reason: "Quiet day"},
		},
		{
			name: "surrounding chatter ignored",
			raw:  "Let me think about this.\n\nACTION: NONE\nREASON: Nothing noteworthy\n\nHope that helps!",
			want: Decision{Action: ActionNone, Reason: "Nothing noteworthy"},
		},
		{
			name: "missing reason defaults",
			raw:  "ACTION: NONE",
			want: Decision{Action: ActionNone, Reason: "Unknown"},
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := ParseDecision(c.raw)
			if err != nil {
				t.Fatalf("ParseDecision: %v", err)
			}
			if got != c.want {
				t.Errorf("got %+v, want %+v", got, c.want)
			}
		})
	}
}

func TestParseDecisionMalformed(t *testing.T) {
	cases := []string{
		"",
		"I think you should probably text them about the deadline.",
		"ACTION: MAYBE\nREASON: unsure",
		"ACT: TEXT\nMESSAGE: hi",
	}
	for _, raw := range cases {
		got, err := ParseDecision(raw)
		if !errors.Is(err, ErrMalformed) {
			t.Errorf("ParseDecision(%q) err = %v, want ErrMalformed", raw, err)
		}
		if got.Action != ActionNone {
			t.Errorf("ParseDecision(%q) action = %s, want NONE", raw, got.Action)
		}
	}
}

func TestParseDecisionFirstActionWins(t *testing.T) {
	raw := "ACTION: NONE\nREASON: calm\nACTION: CALL"
	got, err := ParseDecision(raw)
	if err != nil {
		t.Fatalf("ParseDecision: %v", err)
	}
	if got.Action != ActionNone {
		t.Errorf("action = %s, want NONE (first occurrence)", got.Action)
	}
}

func TestDecideDegradesOnClientError(t *testing.T) {
	client := &fakeClient{err: errors.New("provider down")}
	engine := NewEngine(client, "test-model", 500, zerolog.Nop())

	d := engine.Decide(context.Background(), Snapshot{Timestamp: time.Now()})
	if d.Action != ActionNone {
		t.Errorf("action = %s, want NONE on classifier failure", d.Action)
	}
}

func TestDecideDegradesOnGarbageOutput(t *testing.T) {
	client := &fakeClient{text: "sure, happy to help!"}
	engine := NewEngine(client, "test-model", 500, zerolog.Nop())

	d := engine.Decide(context.Background(), Snapshot{Timestamp: time.Now()})
	if d.Action != ActionNone {
		t.Errorf("action = %s, want NONE on unparseable output", d.Action)
	}
}

func TestRenderPromptIncludesContext(t *testing.T) {
	deadline := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		Timestamp: time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC),
		Goals: []store.Goal{
			{Description: "ship the report", Progress: store.GoalInProgress, Deadline: &deadline},
		},
		Memories: []store.Memory{
			{Category: "preferences", Content: "prefers short updates"},
		},
		Summaries: map[string]string{
			"email": "📧 2 urgent unread emails",
			"tasks": "⚠️ 1 overdue task",
		},
	}

	prompt := RenderPrompt(snap)

	for _, want := range []string{
		"ship the report",
		"in_progress",
		"2026-04-01",
		"prefers short updates",
		"Last Check-in: Never",
		"**Email:**",
		"**Tasks:**",
		"ACTION: [NONE|TEXT|CALL]",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}

	// Monitor sections come out in stable alphabetical order.
	if strings.Index(prompt, "**Email:**") > strings.Index(prompt, "**Tasks:**") {
		t.Error("monitor sections not in stable order")
	}
}

func TestRenderPromptEmptySnapshot(t *testing.T) {
	prompt := RenderPrompt(Snapshot{Timestamp: time.Now()})
	if !strings.Contains(prompt, "(none)") {
		t.Error("empty goals and memories should render as (none)")
	}
	if !strings.Contains(prompt, "Last Check-in: Never") {
		t.Error("absent last check-in should render as Never")
	}
}

func TestTruncateKeepsRunesIntact(t *testing.T) {
	cases := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"exactly", 7, "exactly"},
		{"0123456789", 4, "0123..."},
		{"héllo wörld", 6, "héllo ..."},
		{"🚨🚨🚨🚨", 2, "🚨🚨..."},
	}

	for _, c := range cases {
		got := truncate(c.in, c.n)
		if got != c.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", c.in, c.n, got, c.want)
		}
		if !utf8.ValidString(got) {
			t.Errorf("truncate(%q, %d) produced invalid UTF-8", c.in, c.n)
		}
	}
}
