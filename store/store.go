package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

// Store handles persistence of conversations, memories, goals, check-in
// logs, and call permission requests. All queries filter by user id: the
// daemon is single-tenant but the schema keeps the owner column so a stray
// row from another chat can never leak into context.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewStore creates a Store.
func NewStore(db *sql.DB, logger zerolog.Logger) *Store {
	return &Store{
		db:     db,
		logger: logger.With().Str("component", "store").Logger(),
	}
}

func now() int64 { return time.Now().Unix() }

// AppendConversationTurn saves one message exchanged on a channel.
func (s *Store) AppendConversationTurn(ctx context.Context, userID int64, role, content, channel string) error {
	if strings.TrimSpace(role) == "" {
		return errors.New("role is required")
	}
	if channel == "" {
		channel = "telegram"
	}

	query := sq.Insert("conversations").
		Columns("user_id", "role", "content", "channel", "created_at").
		Values(userID, role, content, channel, now())

	queryStr, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	_, err = s.db.ExecContext(ctx, queryStr, args...)
	return err
}

// RecentConversation returns up to limit turns in chronological order
// (oldest first). Rows are stored newest-first for the index, so the read
// reverses them.
func (s *Store) RecentConversation(ctx context.Context, userID int64, limit int) ([]ConversationTurn, error) {
	query := sq.Select("id", "user_id", "role", "content", "channel", "created_at").
		From("conversations").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(limit))

	queryStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, queryStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var turns []ConversationTurn
	for rows.Next() {
		var t ConversationTurn
		var createdAt int64
		if err := rows.Scan(&t.ID, &t.UserID, &t.Role, &t.Content, &t.Channel, &createdAt); err != nil {
			return nil, fmt.Errorf("scan conversation row: %w", err)
		}
		t.CreatedAt = time.Unix(createdAt, 0)
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return lo.Reverse(turns), nil
}

// SaveMemory stores a semantic memory (fact, preference, observation).
func (s *Store) SaveMemory(ctx context.Context, userID int64, content, category string, tags []string) (Memory, error) {
	if strings.TrimSpace(content) == "" {
		return Memory{}, errors.New("memory content is empty")
	}
	if category == "" {
		category = "general"
	}

	var tagsJSON *string
	if len(tags) > 0 {
		data, err := json.Marshal(tags)
		if err != nil {
			return Memory{}, fmt.Errorf("marshal tags: %w", err)
		}
		str := string(data)
		tagsJSON = &str
	}

	createdAt := now()
	query := sq.Insert("memories").
		Columns("user_id", "content", "category", "tags_json", "created_at").
		Values(userID, content, category, tagsJSON, createdAt)

	queryStr, args, err := query.ToSql()
	if err != nil {
		return Memory{}, fmt.Errorf("build query: %w", err)
	}

	res, err := s.db.ExecContext(ctx, queryStr, args...)
	if err != nil {
		return Memory{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Memory{}, fmt.Errorf("last insert id: %w", err)
	}

	s.logger.Debug().Int64("id", id).Str("category", category).Msg("Stored memory")
	return Memory{
		ID:        id,
		UserID:    userID,
		Content:   content,
		Category:  category,
		Tags:      tags,
		CreatedAt: time.Unix(createdAt, 0),
	}, nil
}

// RecentMemories returns up to limit memories, newest first.
func (s *Store) RecentMemories(ctx context.Context, userID int64, limit int) ([]Memory, error) {
	query := sq.Select("id", "user_id", "content", "category", "tags_json", "created_at").
		From("memories").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(limit))

	queryStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, queryStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var memories []Memory
	for rows.Next() {
		var m Memory
		var tagsJSON sql.NullString
		var createdAt int64
		if err := rows.Scan(&m.ID, &m.UserID, &m.Content, &m.Category, &tagsJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("scan memory row: %w", err)
		}
		if tagsJSON.Valid && tagsJSON.String != "" {
			if err := json.Unmarshal([]byte(tagsJSON.String), &m.Tags); err != nil {
				s.logger.Warn().Int64("id", m.ID).Err(err).Msg("Failed to decode memory tags")
			}
		}
		m.CreatedAt = time.Unix(createdAt, 0)
		memories = append(memories, m)
	}
	return memories, rows.Err()
}

// SaveGoal stores a new goal with progress not_started.
func (s *Store) SaveGoal(ctx context.Context, userID int64, description string, deadline *time.Time) (Goal, error) {
	if strings.TrimSpace(description) == "" {
		return Goal{}, errors.New("goal description is empty")
	}

	var deadlineUnix *int64
	if deadline != nil {
		unix := deadline.Unix()
		deadlineUnix = &unix
	}

	createdAt := now()
	query := sq.Insert("goals").
		Columns("user_id", "description", "progress", "deadline", "created_at", "updated_at").
		Values(userID, description, string(GoalNotStarted), deadlineUnix, createdAt, createdAt)

	queryStr, args, err := query.ToSql()
	if err != nil {
		return Goal{}, fmt.Errorf("build query: %w", err)
	}

	res, err := s.db.ExecContext(ctx, queryStr, args...)
	if err != nil {
		return Goal{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Goal{}, fmt.Errorf("last insert id: %w", err)
	}

	s.logger.Debug().Int64("id", id).Msg("Stored goal")
	return Goal{
		ID:          id,
		UserID:      userID,
		Description: description,
		Progress:    GoalNotStarted,
		Deadline:    deadline,
		CreatedAt:   time.Unix(createdAt, 0),
		UpdatedAt:   time.Unix(createdAt, 0),
	}, nil
}

// Goals returns all goals for the user, newest first.
func (s *Store) Goals(ctx context.Context, userID int64) ([]Goal, error) {
	query := sq.Select("id", "user_id", "description", "progress", "deadline", "created_at", "updated_at").
		From("goals").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("created_at DESC", "id DESC")

	queryStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, queryStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var goals []Goal
	for rows.Next() {
		var g Goal
		var progress string
		var deadline sql.NullInt64
		var createdAt, updatedAt int64
		if err := rows.Scan(&g.ID, &g.UserID, &g.Description, &progress, &deadline, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan goal row: %w", err)
		}
		g.Progress = GoalProgress(progress)
		if deadline.Valid {
			t := time.Unix(deadline.Int64, 0)
			g.Deadline = &t
		}
		g.CreatedAt = time.Unix(createdAt, 0)
		g.UpdatedAt = time.Unix(updatedAt, 0)
		goals = append(goals, g)
	}
	return goals, rows.Err()
}

// UpdateGoalProgress sets the progress status of a goal.
func (s *Store) UpdateGoalProgress(ctx context.Context, goalID int64, progress GoalProgress) error {
	switch progress {
	case GoalNotStarted, GoalInProgress, GoalDone, GoalAbandoned:
	default:
		return fmt.Errorf("invalid goal progress: %q", progress)
	}

	query := sq.Update("goals").
		Set("progress", string(progress)).
		Set("updated_at", now()).
		Where(sq.Eq{"id": goalID})

	queryStr, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	res, err := s.db.ExecContext(ctx, queryStr, args...)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("goal %d not found", goalID)
	}
	return nil
}

// AppendCheckInLog records the outcome of one completed check-in cycle.
func (s *Store) AppendCheckInLog(ctx context.Context, userID int64, kind string, message *string, action string) (CheckInLog, error) {
	createdAt := now()
	query := sq.Insert("check_in_logs").
		Columns("user_id", "check_kind", "message", "action", "created_at").
		Values(userID, kind, message, action, createdAt)

	queryStr, args, err := query.ToSql()
	if err != nil {
		return CheckInLog{}, fmt.Errorf("build query: %w", err)
	}

	res, err := s.db.ExecContext(ctx, queryStr, args...)
	if err != nil {
		return CheckInLog{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return CheckInLog{}, fmt.Errorf("last insert id: %w", err)
	}

	return CheckInLog{
		ID:        id,
		UserID:    userID,
		Kind:      kind,
		Message:   message,
		Action:    action,
		CreatedAt: time.Unix(createdAt, 0),
	}, nil
}

// LastCheckInLog returns the most recent check-in log entry, or nil if the
// user has never been checked in on.
func (s *Store) LastCheckInLog(ctx context.Context, userID int64) (*CheckInLog, error) {
	query := sq.Select("id", "user_id", "check_kind", "message", "action", "created_at").
		From("check_in_logs").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("created_at DESC", "id DESC").
		Limit(1)

	queryStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var entry CheckInLog
	var message sql.NullString
	var createdAt int64
	err = s.db.QueryRowContext(ctx, queryStr, args...).
		Scan(&entry.ID, &entry.UserID, &entry.Kind, &message, &entry.Action, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if message.Valid {
		entry.Message = &message.String
	}
	entry.CreatedAt = time.Unix(createdAt, 0)
	return &entry, nil
}

// RecentCheckInLogs returns up to limit check-in log entries, newest first.
func (s *Store) RecentCheckInLogs(ctx context.Context, userID int64, limit int) ([]CheckInLog, error) {
	query := sq.Select("id", "user_id", "check_kind", "message", "action", "created_at").
		From("check_in_logs").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(limit))

	queryStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, queryStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var entries []CheckInLog
	for rows.Next() {
		var entry CheckInLog
		var message sql.NullString
		var createdAt int64
		if err := rows.Scan(&entry.ID, &entry.UserID, &entry.Kind, &message, &entry.Action, &createdAt); err != nil {
			return nil, fmt.Errorf("scan check-in log row: %w", err)
		}
		if message.Valid {
			entry.Message = &message.String
		}
		entry.CreatedAt = time.Unix(createdAt, 0)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// CreateCallRequest persists a pending call permission request before the
// affordance message is sent, so a crash between the request and the answer
// cannot lose the context.
func (s *Store) CreateCallRequest(ctx context.Context, userID int64, reason, message string) (CallRequest, error) {
	id := uuid.NewString()
	createdAt := now()

	query := sq.Insert("call_requests").
		Columns("id", "user_id", "reason", "message", "status", "created_at").
		Values(id, userID, reason, message, string(CallRequestPending), createdAt)

	queryStr, args, err := query.ToSql()
	if err != nil {
		return CallRequest{}, fmt.Errorf("build query: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, queryStr, args...); err != nil {
		return CallRequest{}, err
	}

	return CallRequest{
		ID:        id,
		UserID:    userID,
		Reason:    reason,
		Message:   message,
		Status:    CallRequestPending,
		CreatedAt: time.Unix(createdAt, 0),
	}, nil
}

// SetCallRequestChatMessage records the id of the chat message carrying the
// affordance, so a decline can annotate it later.
func (s *Store) SetCallRequestChatMessage(ctx context.Context, requestID string, chatMessageID int64) error {
	query := sq.Update("call_requests").
		Set("chat_message_id", chatMessageID).
		Where(sq.Eq{"id": requestID})

	queryStr, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	_, err = s.db.ExecContext(ctx, queryStr, args...)
	return err
}

// ResolveCallRequest transitions a pending request to confirmed or declined
// and returns the resolved record. Returns nil if the request does not exist
// or was already resolved; answering the same affordance twice is a no-op.
func (s *Store) ResolveCallRequest(ctx context.Context, requestID string, status CallRequestStatus) (*CallRequest, error) {
	if status != CallRequestConfirmed && status != CallRequestDeclined {
		return nil, fmt.Errorf("invalid call request resolution: %q", status)
	}

	resolvedAt := now()
	query := sq.Update("call_requests").
		Set("status", string(status)).
		Set("resolved_at", resolvedAt).
		Where(sq.Eq{"id": requestID, "status": string(CallRequestPending)})

	queryStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	res, err := s.db.ExecContext(ctx, queryStr, args...)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return nil, nil
	}

	return s.CallRequest(ctx, requestID)
}

// CallRequest returns a call request by id, or nil if not found.
func (s *Store) CallRequest(ctx context.Context, requestID string) (*CallRequest, error) {
	query := sq.Select("id", "user_id", "reason", "message", "status", "chat_message_id", "created_at", "resolved_at").
		From("call_requests").
		Where(sq.Eq{"id": requestID})

	queryStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var req CallRequest
	var status string
	var chatMessageID, resolvedAt sql.NullInt64
	var createdAt int64
	err = s.db.QueryRowContext(ctx, queryStr, args...).
		Scan(&req.ID, &req.UserID, &req.Reason, &req.Message, &status, &chatMessageID, &createdAt, &resolvedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	req.Status = CallRequestStatus(status)
	if chatMessageID.Valid {
		req.ChatMessageID = &chatMessageID.Int64
	}
	req.CreatedAt = time.Unix(createdAt, 0)
	if resolvedAt.Valid {
		t := time.Unix(resolvedAt.Int64, 0)
		req.ResolvedAt = &t
	}
	return &req, nil
}

// Stats returns row counts and the most recent check-in for the user.
func (s *Store) Stats(ctx context.Context, userID int64) (Stats, error) {
	var stats Stats

	counts := map[string]*int64{
		"memories":      &stats.Memories,
		"goals":         &stats.Goals,
		"conversations": &stats.Conversations,
	}
	for table, dest := range counts {
		queryStr, args, err := sq.Select("COUNT(*)").From(table).Where(sq.Eq{"user_id": userID}).ToSql()
		if err != nil {
			return Stats{}, fmt.Errorf("build query: %w", err)
		}
		if err := s.db.QueryRowContext(ctx, queryStr, args...).Scan(dest); err != nil {
			return Stats{}, fmt.Errorf("count %s: %w", table, err)
		}
	}

	last, err := s.LastCheckInLog(ctx, userID)
	if err != nil {
		return Stats{}, err
	}
	stats.LastCheckIn = last

	return stats, nil
}
