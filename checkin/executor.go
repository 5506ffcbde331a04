package checkin

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/carlosfalai/claude-always-on/store"
)

// Messenger sends text to the user over the chat channel. Implemented by the
// telegram transport.
type Messenger interface {
	// SendText delivers a plain message.
	SendText(ctx context.Context, text string) error

	// SendCallRequest delivers the call permission request with its two
	// response affordances, carrying the request id through the round-trip.
	// Returns the chat message id so a decline can annotate it later.
	SendCallRequest(ctx context.Context, req store.CallRequest) (int64, error)

	// EditMessage rewrites a previously sent message.
	EditMessage(ctx context.Context, messageID int64, text string) error
}

// Caller places an outbound voice call carrying the given context.
type Caller interface {
	PlaceCall(ctx context.Context, contextText string) (string, error)
}

// Executor performs the side effect of a decision. Each action tier is
// terminal for the cycle; the CALL tier only ever sends a permission request
// and never blocks waiting for the answer.
type Executor struct {
	store     *store.Store
	userID    int64
	messenger Messenger
	caller    Caller // nil when voice calling is not configured
	logger    zerolog.Logger
}

// NewExecutor creates an Executor. caller may be nil; CALL decisions then
// fall back to an urgent text, the original behavior before calling existed.
func NewExecutor(st *store.Store, userID int64, messenger Messenger, caller Caller, logger zerolog.Logger) *Executor {
	return &Executor{
		store:     st,
		userID:    userID,
		messenger: messenger,
		caller:    caller,
		logger:    logger.With().Str("component", "executor").Logger(),
	}
}

// Execute performs the decision's side effect and writes the audit log
// entry. A failed audit write is logged and swallowed; a failed send aborts
// the cycle without recording a contact, so the recency gate stays honest.
func (x *Executor) Execute(ctx context.Context, kind Kind, d Decision) error {
	if d.Action != ActionNone && d.Message == "" {
		// The classifier asked for contact but gave us nothing to say.
		// Degrade to silence rather than sending an empty message.
		x.logger.Warn().
			Str("action", string(d.Action)).
			Str("reason", d.Reason).
			Msg("Decision carried no message, degrading to NONE")
		d = Decision{Action: ActionNone, Reason: d.Reason}
	}

	switch d.Action {
	case ActionNone:
		x.logger.Info().Str("reason", d.Reason).Msg("No action needed")
		x.appendLog(ctx, kind, nil, string(ActionNone))
		return nil

	case ActionText:
		if err := x.messenger.SendText(ctx, d.Message); err != nil {
			return fmt.Errorf("send text: %w", err)
		}
		x.logger.Info().Str("message", truncate(d.Message, 80)).Msg("Sent text")
		x.appendLog(ctx, kind, &d.Message, string(ActionText))
		return nil

	case ActionCall:
		if x.caller == nil {
			return x.executeCallFallback(ctx, kind, d)
		}
		return x.executeCallRequest(ctx, kind, d)

	default:
		return fmt.Errorf("unknown action: %q", d.Action)
	}
}

// executeCallRequest runs the first half of the two-step CALL flow: persist
// the pending request, then solicit consent over chat. The call itself only
// happens later, in ResolveCallRequest, when the user answers.
func (x *Executor) executeCallRequest(ctx context.Context, kind Kind, d Decision) error {
	req, err := x.store.CreateCallRequest(ctx, x.userID, d.Reason, d.Message)
	if err != nil {
		// Without the durable record the affordance answer could not be
		// correlated; degrade to the text fallback instead.
		x.logger.Error().Err(err).Msg("Failed to persist call request, falling back to text")
		return x.executeCallFallback(ctx, kind, d)
	}

	chatMessageID, err := x.messenger.SendCallRequest(ctx, req)
	if err != nil {
		return fmt.Errorf("send call permission request: %w", err)
	}
	if err := x.store.SetCallRequestChatMessage(ctx, req.ID, chatMessageID); err != nil {
		x.logger.Warn().Str("request_id", req.ID).Err(err).Msg("Failed to record chat message id")
	}

	x.logger.Info().Str("request_id", req.ID).Str("reason", d.Reason).Msg("Requested call permission")
	x.appendLog(ctx, kind, &d.Message, LogActionCallRequested)
	return nil
}

// executeCallFallback sends the urgent message as text when calling is not
// available.
func (x *Executor) executeCallFallback(ctx context.Context, kind Kind, d Decision) error {
	text := "🚨 [Urgent] " + d.Message
	if err := x.messenger.SendText(ctx, text); err != nil {
		return fmt.Errorf("send urgent text: %w", err)
	}
	x.logger.Info().Str("reason", d.Reason).Msg("Calling unavailable, sent urgent text instead")
	x.appendLog(ctx, kind, &d.Message, LogActionCallFallbackText)
	return nil
}

// ResolveCallRequest handles the asynchronous affordance answer. The request
// id correlates the answer to its pending record; an unknown or
// already-resolved id is a no-op, so double-taps and stale buttons are
// harmless.
func (x *Executor) ResolveCallRequest(ctx context.Context, requestID string, confirmed bool) error {
	status := store.CallRequestDeclined
	if confirmed {
		status = store.CallRequestConfirmed
	}

	req, err := x.store.ResolveCallRequest(ctx, requestID, status)
	if err != nil {
		return fmt.Errorf("resolve call request: %w", err)
	}
	if req == nil {
		x.logger.Debug().Str("request_id", requestID).Msg("Call request unknown or already resolved, ignoring")
		return nil
	}

	if !confirmed {
		x.logger.Info().Str("request_id", req.ID).Msg("Call declined")
		x.annotateRequestMessage(ctx, req, "💬 Okay, sticking to text.\n\n"+req.Message)
		return nil
	}

	if x.caller == nil {
		// Pending rows survive restarts, so a confirm can arrive after voice
		// was deconfigured. Deliver the message as urgent text instead.
		x.logger.Warn().Str("request_id", req.ID).Msg("Call confirmed but calling is unavailable, sending urgent text")
		x.annotateRequestMessage(ctx, req, "🚨 [Urgent] "+req.Message)
		if err := x.messenger.SendText(ctx, "🚨 I can't place calls right now, so here it is in text:\n\n"+req.Message); err != nil {
			return fmt.Errorf("send urgent text: %w", err)
		}
		return nil
	}

	x.logger.Info().Str("request_id", req.ID).Msg("Call confirmed, placing call")
	x.annotateRequestMessage(ctx, req, "📞 Calling you now...\n\n"+req.Message)

	callContext := fmt.Sprintf("This call was initiated because: %s\n\n%s", req.Reason, req.Message)
	callID, err := x.caller.PlaceCall(ctx, callContext)
	if err != nil {
		x.logger.Error().Str("request_id", req.ID).Err(err).Msg("Failed to place call")
		if sendErr := x.messenger.SendText(ctx, "❌ I couldn't place the call: "+err.Error()); sendErr != nil {
			x.logger.Error().Err(sendErr).Msg("Failed to notify user of call failure")
		}
		return fmt.Errorf("place call: %w", err)
	}

	x.logger.Info().Str("request_id", req.ID).Str("call_id", callID).Msg("Call placed")
	return nil
}

// annotateRequestMessage rewrites the permission-request chat message to
// reflect the outcome. Cosmetic: failures are logged and ignored.
func (x *Executor) annotateRequestMessage(ctx context.Context, req *store.CallRequest, text string) {
	if req.ChatMessageID == nil {
		return
	}
	if err := x.messenger.EditMessage(ctx, *req.ChatMessageID, text); err != nil {
		x.logger.Warn().Str("request_id", req.ID).Err(err).Msg("Failed to annotate permission message")
	}
}

// appendLog writes the audit entry for a completed cycle. A missed write
// must not crash the loop; it is logged for operability instead.
func (x *Executor) appendLog(ctx context.Context, kind Kind, message *string, action string) {
	if _, err := x.store.AppendCheckInLog(ctx, x.userID, string(kind), message, action); err != nil {
		x.logger.Error().Str("action", action).Err(err).Msg("Failed to write check-in log entry")
	}
}
