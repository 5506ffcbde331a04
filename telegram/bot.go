// Package telegram is the chat transport: a single-user bot speaking the
// Telegram Bot API over long polling.
package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/carlosfalai/claude-always-on/assistant"
	"github.com/carlosfalai/claude-always-on/checkin"
	"github.com/carlosfalai/claude-always-on/store"
)

const (
	pollTimeoutSeconds = 30

	callbackConfirm = "yes"
	callbackDecline = "no"
)

// Bot relays between the authorized user and the daemon. Messages from
// anyone else are dropped.
type Bot struct {
	api         *tgbotapi.BotAPI
	userID      int64
	assistant   *assistant.Assistant
	store       *store.Store
	checkins    *checkin.System
	chatTimeout time.Duration
	startTime   time.Time
	logger      zerolog.Logger
}

// NewBot authenticates against the Bot API. The check-in system attaches
// later via AttachCheckIn; it needs the bot as its messenger first.
func NewBot(token string, userID int64, asst *assistant.Assistant, st *store.Store, chatTimeout time.Duration, logger zerolog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	return &Bot{
		api:         api,
		userID:      userID,
		assistant:   asst,
		store:       st,
		chatTimeout: chatTimeout,
		startTime:   time.Now(),
		logger:      logger.With().Str("component", "telegram").Logger(),
	}, nil
}

// AttachCheckIn wires the check-in system in after construction.
func (b *Bot) AttachCheckIn(system *checkin.System) {
	b.checkins = system
}

// Username returns the authenticated bot username.
func (b *Bot) Username() string {
	return b.api.Self.UserName
}

// Run long-polls for updates until ctx is cancelled. Blocking; callers run
// it in a goroutine. Each update is handled concurrently so a slow model
// call never stalls the poll loop.
func (b *Bot) Run(ctx context.Context) {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = pollTimeoutSeconds
	updates := b.api.GetUpdatesChan(cfg)

	b.logger.Info().Str("username", b.Username()).Msg("Telegram bot polling")

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.logger.Info().Msg("Telegram bot stopped: context cancelled")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			go b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error().Interface("panic", r).Msg("Update handler panicked")
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || msg.From.ID != b.userID {
		b.logger.Warn().Int64("from", fromID(msg)).Msg("Ignoring message from unauthorized user")
		return
	}

	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}
	if msg.Voice != nil {
		b.reply(msg.Chat.ID, "🎤 I can't listen to voice messages yet. Mind typing that out?")
		return
	}
	if msg.Text == "" {
		return
	}

	b.sendTyping()

	chatCtx, cancel := context.WithTimeout(ctx, b.chatTimeout)
	defer cancel()

	reply, err := b.assistant.HandleMessage(chatCtx, msg.Text)
	if err != nil {
		b.logger.Error().Err(err).Msg("Chat handling failed")
		b.reply(msg.Chat.ID, "❌ Sorry, I encountered an error. Please try again.")
		return
	}
	b.reply(msg.Chat.ID, reply)
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		b.reply(msg.Chat.ID, "👋 Hi! I'm your always-on assistant.\n\n"+
			"Just talk to me and I'll remember what matters. I also check in "+
			"proactively when something deserves your attention.\n\n"+commandHelp)
	case "help":
		b.reply(msg.Chat.ID, commandHelp)
	case "memory":
		b.commandMemory(ctx, msg.Chat.ID)
	case "goals":
		b.commandGoals(ctx, msg.Chat.ID)
	case "checkin":
		b.commandCheckIn(ctx, msg.Chat.ID)
	case "stats":
		b.commandStats(ctx, msg.Chat.ID)
	default:
		b.reply(msg.Chat.ID, "Unknown command. "+commandHelp)
	}
}

const commandHelp = `Commands:
/memory - what I remember about you
/goals - your tracked goals
/checkin - run a check-in right now
/stats - bot statistics
/help - this message`

func (b *Bot) commandMemory(ctx context.Context, chatID int64) {
	memories, err := b.store.RecentMemories(ctx, b.userID, 10)
	if err != nil {
		b.logger.Error().Err(err).Msg("Failed to load memories")
		b.reply(chatID, "❌ Couldn't load memories.")
		return
	}
	if len(memories) == 0 {
		b.reply(chatID, "🧠 I haven't stored any memories yet. Tell me about yourself!")
		return
	}

	var sb strings.Builder
	sb.WriteString("🧠 What I remember:\n\n")
	for _, m := range memories {
		fmt.Fprintf(&sb, "• [%s] %s\n", m.Category, m.Content)
	}
	b.reply(chatID, sb.String())
}

func (b *Bot) commandGoals(ctx context.Context, chatID int64) {
	goals, err := b.store.Goals(ctx, b.userID)
	if err != nil {
		b.logger.Error().Err(err).Msg("Failed to load goals")
		b.reply(chatID, "❌ Couldn't load goals.")
		return
	}
	if len(goals) == 0 {
		b.reply(chatID, "🎯 You haven't set any goals yet. Tell me about your goals!")
		return
	}

	var sb strings.Builder
	sb.WriteString("🎯 Your Goals:\n\n")
	for i, g := range goals {
		fmt.Fprintf(&sb, "%d. %s\n   Status: %s", i+1, g.Description, g.Progress)
		if g.Deadline != nil {
			fmt.Fprintf(&sb, " (deadline: %s)", g.Deadline.Format("2006-01-02"))
		}
		sb.WriteString("\n\n")
	}
	b.reply(chatID, sb.String())
}

func (b *Bot) commandCheckIn(ctx context.Context, chatID int64) {
	if b.checkins == nil {
		b.reply(chatID, "Check-ins are disabled.")
		return
	}
	b.reply(chatID, "🔍 Running check-in...")
	if err := b.checkins.RunCycle(ctx, checkin.KindManual); err != nil {
		b.logger.Error().Err(err).Msg("Manual check-in failed")
		b.reply(chatID, "❌ Check-in failed: "+err.Error())
		return
	}
	b.reply(chatID, "✅ Check-in completed!")
}

func (b *Bot) commandStats(ctx context.Context, chatID int64) {
	stats, err := b.store.Stats(ctx, b.userID)
	if err != nil {
		b.logger.Error().Err(err).Msg("Failed to load stats")
		b.reply(chatID, "❌ Couldn't load stats.")
		return
	}

	lastCheckIn := "Never"
	if stats.LastCheckIn != nil {
		lastCheckIn = stats.LastCheckIn.CreatedAt.Format(time.RFC1123)
	}
	uptime := time.Since(b.startTime).Round(time.Second)

	b.reply(chatID, fmt.Sprintf("📊 Bot Statistics\n\n"+
		"Memories stored: %d\n"+
		"Active goals: %d\n"+
		"Conversation turns: %d\n"+
		"Last check-in: %s\n"+
		"Uptime: %s\n"+
		"Status: 🟢 Online",
		stats.Memories, stats.Goals, stats.Conversations, lastCheckIn, uptime))
}

// handleCallback processes an affordance answer from a call permission
// request. Unknown or malformed data is acknowledged and dropped.
func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	// Always acknowledge, otherwise the client shows a spinner forever.
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.logger.Warn().Err(err).Msg("Failed to acknowledge callback")
	}

	if cb.From == nil || cb.From.ID != b.userID {
		b.logger.Warn().Msg("Ignoring callback from unauthorized user")
		return
	}

	requestID, confirmed, ok := parseCallCallback(cb.Data)
	if !ok {
		b.logger.Warn().Str("data", cb.Data).Msg("Unrecognized callback data")
		return
	}
	if b.checkins == nil {
		return
	}
	if err := b.checkins.ResolveCallRequest(ctx, requestID, confirmed); err != nil {
		b.logger.Error().Str("request_id", requestID).Err(err).Msg("Failed to resolve call request")
	}
}

// parseCallCallback decodes "call:<request-id>:<yes|no>".
func parseCallCallback(data string) (requestID string, confirmed, ok bool) {
	parts := strings.Split(data, ":")
	if len(parts) != 3 || parts[0] != "call" {
		return "", false, false
	}
	switch parts[2] {
	case callbackConfirm:
		return parts[1], true, true
	case callbackDecline:
		return parts[1], false, true
	default:
		return "", false, false
	}
}

// SendText implements checkin.Messenger.
func (b *Bot) SendText(ctx context.Context, text string) error {
	_, err := b.api.Send(tgbotapi.NewMessage(b.userID, text))
	return err
}

// SendCallRequest implements checkin.Messenger: delivers the permission
// request with inline yes/no buttons carrying the request id.
func (b *Bot) SendCallRequest(ctx context.Context, req store.CallRequest) (int64, error) {
	text := fmt.Sprintf("📞 I think this deserves a call.\n\nReason: %s\n\n%s\n\nCan I call you?",
		req.Reason, req.Message)

	msg := tgbotapi.NewMessage(b.userID, text)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Yes, call me", fmt.Sprintf("call:%s:%s", req.ID, callbackConfirm)),
			tgbotapi.NewInlineKeyboardButtonData("❌ No, text me", fmt.Sprintf("call:%s:%s", req.ID, callbackDecline)),
		),
	)

	sent, err := b.api.Send(msg)
	if err != nil {
		return 0, err
	}
	return int64(sent.MessageID), nil
}

// EditMessage implements checkin.Messenger.
func (b *Bot) EditMessage(ctx context.Context, messageID int64, text string) error {
	_, err := b.api.Send(tgbotapi.NewEditMessageText(b.userID, int(messageID), text))
	return err
}

func (b *Bot) reply(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		b.logger.Error().Err(err).Msg("Failed to send message")
	}
}

func (b *Bot) sendTyping() {
	if _, err := b.api.Request(tgbotapi.NewChatAction(b.userID, tgbotapi.ChatTyping)); err != nil {
		b.logger.Debug().Err(err).Msg("Failed to send typing action")
	}
}

func fromID(msg *tgbotapi.Message) int64 {
	if msg.From == nil {
		return 0
	}
	return msg.From.ID
}
