package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/carlosfalai/claude-always-on/migrations"

	_ "github.com/mattn/go-sqlite3"
)

const testUserID int64 = 42

// setupTestStore creates an in-memory database, runs migrations, and wraps
// it in a Store.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	// One connection keeps the in-memory database alive for the whole test.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	if err := migrations.RunMigrations(db, zerolog.Nop()); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return NewStore(db, zerolog.Nop())
}

func TestConversationRoundTrip(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	turns := []struct{ role, content string }{
		{"user", "hello"},
		{"assistant", "hi there"},
		{"user", "what's on my calendar?"},
	}
	for _, turn := range turns {
		if err := st.AppendConversationTurn(ctx, testUserID, turn.role, turn.content, "telegram"); err != nil {
			t.Fatalf("AppendConversationTurn: %v", err)
		}
	}

	got, err := st.RecentConversation(ctx, testUserID, 10)
	if err != nil {
		t.Fatalf("RecentConversation: %v", err)
	}
	if len(got) != len(turns) {
		t.Fatalf("expected %d turns, got %d", len(turns), len(got))
	}
	// Oldest first, regardless of the limit being applied to the newest end.
	for i, turn := range turns {
		if got[i].Role != turn.role || got[i].Content != turn.content {
			t.Errorf("turn %d: got %s/%q, want %s/%q", i, got[i].Role, got[i].Content, turn.role, turn.content)
		}
	}
}

func TestRecentConversationLimitKeepsNewest(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	for _, content := range []string{"one", "two", "three", "four"} {
		if err := st.AppendConversationTurn(ctx, testUserID, "user", content, "telegram"); err != nil {
			t.Fatalf("AppendConversationTurn: %v", err)
		}
	}

	got, err := st.RecentConversation(ctx, testUserID, 2)
	if err != nil {
		t.Fatalf("RecentConversation: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(got))
	}
	if got[0].Content != "three" || got[1].Content != "four" {
		t.Errorf("expected newest two in chronological order, got %q then %q", got[0].Content, got[1].Content)
	}
}

func TestSaveMemoryRejectsEmptyContent(t *testing.T) {
	st := setupTestStore(t)

	if _, err := st.SaveMemory(context.Background(), testUserID, "", "general", nil); err == nil {
		t.Fatal("expected error for empty memory content")
	}
	if _, err := st.SaveMemory(context.Background(), testUserID, "   ", "general", nil); err == nil {
		t.Fatal("expected error for whitespace-only memory content")
	}
}

func TestMemoryRoundTrip(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	saved, err := st.SaveMemory(ctx, testUserID, "prefers morning meetings", "preferences", []string{"schedule"})
	if err != nil {
		t.Fatalf("SaveMemory: %v", err)
	}
	if saved.ID == 0 {
		t.Error("expected non-zero memory id")
	}

	memories, err := st.RecentMemories(ctx, testUserID, 5)
	if err != nil {
		t.Fatalf("RecentMemories: %v", err)
	}
	if len(memories) != 1 {
		t.Fatalf("expected 1 memory, got %d", len(memories))
	}
	m := memories[0]
	if m.Content != "prefers morning meetings" || m.Category != "preferences" {
		t.Errorf("unexpected memory: %+v", m)
	}
	if len(m.Tags) != 1 || m.Tags[0] != "schedule" {
		t.Errorf("unexpected tags: %v", m.Tags)
	}
}

func TestGoalLifecycle(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	deadline := time.Now().Add(48 * time.Hour)
	goal, err := st.SaveGoal(ctx, testUserID, "ship the quarterly report", &deadline)
	if err != nil {
		t.Fatalf("SaveGoal: %v", err)
	}
	if goal.Progress != GoalNotStarted {
		t.Errorf("new goal progress = %s, want %s", goal.Progress, GoalNotStarted)
	}

	if err := st.UpdateGoalProgress(ctx, goal.ID, GoalInProgress); err != nil {
		t.Fatalf("UpdateGoalProgress: %v", err)
	}

	goals, err := st.Goals(ctx, testUserID)
	if err != nil {
		t.Fatalf("Goals: %v", err)
	}
	if len(goals) != 1 {
		t.Fatalf("expected 1 goal, got %d", len(goals))
	}
	if goals[0].Progress != GoalInProgress {
		t.Errorf("progress = %s, want %s", goals[0].Progress, GoalInProgress)
	}
	if goals[0].Deadline == nil {
		t.Error("expected deadline to round-trip")
	}
}

func TestUpdateGoalProgressValidation(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	goal, err := st.SaveGoal(ctx, testUserID, "learn to sail", nil)
	if err != nil {
		t.Fatalf("SaveGoal: %v", err)
	}

	if err := st.UpdateGoalProgress(ctx, goal.ID, GoalProgress("halfway")); err == nil {
		t.Error("expected error for invalid progress value")
	}
	if err := st.UpdateGoalProgress(ctx, goal.ID+999, GoalDone); err == nil {
		t.Error("expected error for missing goal")
	}
}

func TestCheckInLogOrdering(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	if last, err := st.LastCheckInLog(ctx, testUserID); err != nil || last != nil {
		t.Fatalf("expected no last check-in, got %v, %v", last, err)
	}

	msg := "heads up"
	if _, err := st.AppendCheckInLog(ctx, testUserID, "proactive", nil, "NONE"); err != nil {
		t.Fatalf("AppendCheckInLog: %v", err)
	}
	if _, err := st.AppendCheckInLog(ctx, testUserID, "proactive", &msg, "TEXT"); err != nil {
		t.Fatalf("AppendCheckInLog: %v", err)
	}

	last, err := st.LastCheckInLog(ctx, testUserID)
	if err != nil {
		t.Fatalf("LastCheckInLog: %v", err)
	}
	if last == nil || last.Action != "TEXT" {
		t.Fatalf("expected newest entry TEXT, got %+v", last)
	}
	if last.Message == nil || *last.Message != msg {
		t.Errorf("expected message to round-trip, got %v", last.Message)
	}

	logs, err := st.RecentCheckInLogs(ctx, testUserID, 10)
	if err != nil {
		t.Fatalf("RecentCheckInLogs: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("expected 2 logs, got %d", len(logs))
	}
}

func TestCallRequestLifecycle(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	req, err := st.CreateCallRequest(ctx, testUserID, "deadline at risk", "the report is due in 2 hours")
	if err != nil {
		t.Fatalf("CreateCallRequest: %v", err)
	}
	if req.ID == "" {
		t.Fatal("expected uuid request id")
	}
	if req.Status != CallRequestPending {
		t.Fatalf("new request status = %s, want %s", req.Status, CallRequestPending)
	}

	if err := st.SetCallRequestChatMessage(ctx, req.ID, 1234); err != nil {
		t.Fatalf("SetCallRequestChatMessage: %v", err)
	}

	resolved, err := st.ResolveCallRequest(ctx, req.ID, CallRequestConfirmed)
	if err != nil {
		t.Fatalf("ResolveCallRequest: %v", err)
	}
	if resolved == nil {
		t.Fatal("expected resolved request")
	}
	if resolved.Status != CallRequestConfirmed {
		t.Errorf("status = %s, want %s", resolved.Status, CallRequestConfirmed)
	}
	if resolved.ChatMessageID == nil || *resolved.ChatMessageID != 1234 {
		t.Errorf("chat message id = %v, want 1234", resolved.ChatMessageID)
	}
	if resolved.ResolvedAt == nil {
		t.Error("expected resolved_at to be set")
	}

	// A second answer to the same request is a no-op.
	again, err := st.ResolveCallRequest(ctx, req.ID, CallRequestDeclined)
	if err != nil {
		t.Fatalf("ResolveCallRequest repeat: %v", err)
	}
	if again != nil {
		t.Error("expected nil for already-resolved request")
	}

	// Unknown ids are also a no-op, not an error.
	unknown, err := st.ResolveCallRequest(ctx, "no-such-id", CallRequestConfirmed)
	if err != nil {
		t.Fatalf("ResolveCallRequest unknown: %v", err)
	}
	if unknown != nil {
		t.Error("expected nil for unknown request id")
	}
}

func TestStats(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	if _, err := st.SaveMemory(ctx, testUserID, "likes espresso", "preferences", nil); err != nil {
		t.Fatal(err)
	}
	if _, err := st.SaveGoal(ctx, testUserID, "run a marathon", nil); err != nil {
		t.Fatal(err)
	}
	if err := st.AppendConversationTurn(ctx, testUserID, "user", "hi", "telegram"); err != nil {
		t.Fatal(err)
	}
	if _, err := st.AppendCheckInLog(ctx, testUserID, "proactive", nil, "NONE"); err != nil {
		t.Fatal(err)
	}

	stats, err := st.Stats(ctx, testUserID)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Memories != 1 || stats.Goals != 1 || stats.Conversations != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if stats.LastCheckIn == nil {
		t.Error("expected last check-in in stats")
	}
}
