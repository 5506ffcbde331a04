package store

import "time"

// GoalProgress describes the progress status of a goal.
type GoalProgress string

const (
	GoalNotStarted GoalProgress = "not_started"
	GoalInProgress GoalProgress = "in_progress"
	GoalDone       GoalProgress = "done"
	GoalAbandoned  GoalProgress = "abandoned"
)

// CallRequestStatus describes the lifecycle of a call permission request.
type CallRequestStatus string

const (
	CallRequestPending   CallRequestStatus = "pending"
	CallRequestConfirmed CallRequestStatus = "confirmed"
	CallRequestDeclined  CallRequestStatus = "declined"
)

// ConversationTurn is a single message exchanged on any channel.
type ConversationTurn struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Role      string    `json:"role"` // user, assistant, system
	Content   string    `json:"content"`
	Channel   string    `json:"channel"` // telegram, phone, sms
	CreatedAt time.Time `json:"created_at"`
}

// Memory is a stored fact or preference about the user. Memories are
// append-only; they are never mutated by the daemon.
type Memory struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Content   string    `json:"content"`
	Category  string    `json:"category"`
	Tags      []string  `json:"tags,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Goal is something the user wants to achieve, with tracked progress.
type Goal struct {
	ID          int64        `json:"id"`
	UserID      int64        `json:"user_id"`
	Description string       `json:"description"`
	Progress    GoalProgress `json:"progress"`
	Deadline    *time.Time   `json:"deadline,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// CheckInLog records the outcome of one completed check-in cycle,
// including NONE outcomes. The recency gate reads the newest entry.
type CheckInLog struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Kind      string    `json:"kind"` // proactive, manual
	Message   *string   `json:"message,omitempty"`
	Action    string    `json:"action"` // NONE, TEXT, CALL_REQUESTED, CALL_FALLBACK_TEXT
	CreatedAt time.Time `json:"created_at"`
}

// CallRequest is a durable record of a pending call permission request.
// The id travels through the chat affordance round-trip so the eventual
// accept/decline can be correlated without parsing message text.
type CallRequest struct {
	ID            string            `json:"id"` // uuid
	UserID        int64             `json:"user_id"`
	Reason        string            `json:"reason"`
	Message       string            `json:"message"`
	Status        CallRequestStatus `json:"status"`
	ChatMessageID *int64            `json:"chat_message_id,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	ResolvedAt    *time.Time        `json:"resolved_at,omitempty"`
}

// Stats summarizes stored state for the /stats command and the dashboard.
type Stats struct {
	Memories      int64       `json:"memories"`
	Goals         int64       `json:"goals"`
	Conversations int64       `json:"conversations"`
	LastCheckIn   *CheckInLog `json:"last_check_in,omitempty"`
}
