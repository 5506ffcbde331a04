// Package assistant implements the conversational side of the daemon: it
// turns an incoming chat message into a model reply, persists both sides of
// the exchange, and quietly extracts goals and facts worth remembering.
package assistant

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/carlosfalai/claude-always-on/llm"
	"github.com/carlosfalai/claude-always-on/store"
)

const (
	historyLimit       = 20
	contextMemoryLimit = 5
	contextTurnLimit   = 10
	chatMaxTokens      = 1024
	detectMaxTokens    = 200
	detectTimeout      = 30 * time.Second
)

// Assistant handles the chat flow for one user.
type Assistant struct {
	store  *store.Store
	client llm.Client
	model  string
	userID int64
	logger zerolog.Logger
}

// NewAssistant creates an Assistant. The client should already carry the
// retry middleware; chat is the one path where retrying is wanted.
func NewAssistant(st *store.Store, client llm.Client, model string, userID int64, logger zerolog.Logger) *Assistant {
	return &Assistant{
		store:  st,
		client: client,
		model:  model,
		userID: userID,
		logger: logger.With().Str("component", "assistant").Logger(),
	}
}

// HandleMessage processes one incoming message end to end and returns the
// reply text. Goal and fact extraction happens in the background after the
// reply is ready; its failure never affects the reply.
func (a *Assistant) HandleMessage(ctx context.Context, text string) (string, error) {
	if err := a.store.AppendConversationTurn(ctx, a.userID, "user", text, "telegram"); err != nil {
		return "", fmt.Errorf("store user message: %w", err)
	}

	history, err := a.store.RecentConversation(ctx, a.userID, historyLimit)
	if err != nil {
		return "", fmt.Errorf("load conversation history: %w", err)
	}

	memoryContext, err := a.buildMemoryContext(ctx, history)
	if err != nil {
		// Degrade to a context-free reply rather than failing the message.
		a.logger.Warn().Err(err).Msg("Failed to build memory context, replying without it")
		memoryContext = ""
	}

	resp, err := a.client.Complete(ctx, &llm.Request{
		Model:     a.model,
		MaxTokens: chatMaxTokens,
		System:    a.systemPrompt(memoryContext),
		Messages:  toMessages(history),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	reply := resp.Text

	if err := a.store.AppendConversationTurn(ctx, a.userID, "assistant", reply, "telegram"); err != nil {
		a.logger.Error().Err(err).Msg("Failed to store assistant reply")
	}

	go a.detectAndStoreMemories(text, reply)

	return reply, nil
}

func (a *Assistant) systemPrompt(memoryContext string) string {
	return fmt.Sprintf(`You are a 24/7 AI assistant accessible via Telegram. You have persistent memory and can help with various tasks.

**Memory Context:**
%s

**Your Capabilities:**
- Remember facts, preferences, and goals
- Proactively check in on a schedule
- Detect and store important information from conversations
- Track goal progress

**Important:**
- If the user mentions a goal, acknowledge it and confirm you'll track it
- If the user shares a preference or fact, confirm you'll remember it
- Be concise but thorough
- Use emojis occasionally

Respond naturally to the user's message.`, memoryContext)
}

// buildMemoryContext renders memories, goals and recent turns into the
// system prompt block.
func (a *Assistant) buildMemoryContext(ctx context.Context, history []store.ConversationTurn) (string, error) {
	memories, err := a.store.RecentMemories(ctx, a.userID, contextMemoryLimit)
	if err != nil {
		return "", err
	}
	goals, err := a.store.Goals(ctx, a.userID)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	if len(memories) > 0 {
		b.WriteString("**Things I remember about you:**\n")
		for _, m := range memories {
			fmt.Fprintf(&b, "- %s\n", m.Content)
		}
		b.WriteString("\n")
	}
	if len(goals) > 0 {
		b.WriteString("**Your current goals:**\n")
		for _, g := range goals {
			fmt.Fprintf(&b, "- %s (%s)\n", g.Description, g.Progress)
		}
		b.WriteString("\n")
	}
	if len(history) > 0 {
		b.WriteString("**Recent conversation:**\n")
		turns := history
		if len(turns) > contextTurnLimit {
			turns = turns[len(turns)-contextTurnLimit:]
		}
		for _, t := range turns {
			fmt.Fprintf(&b, "%s: %s\n", t.Role, snippet(t.Content, 100))
		}
	}
	return b.String(), nil
}

// detectAndStoreMemories runs a second model call over the exchange to pull
// out a goal or fact. Detached from the request: runs on its own timeout and
// only logs on failure.
func (a *Assistant) detectAndStoreMemories(userMessage, assistantMessage string) {
	ctx, cancel := context.WithTimeout(context.Background(), detectTimeout)
	defer cancel()

	prompt := fmt.Sprintf(`Analyze this conversation and detect if it contains:
1. A goal the user wants to achieve
2. An important fact or preference

User: %s
Assistant: %s

Output format:
TYPE: [GOAL|FACT|NONE]
CONTENT: [what to remember]
CATEGORY: [category name]

If NONE, just output "TYPE: NONE"`, userMessage, assistantMessage)

	resp, err := a.client.Complete(ctx, &llm.Request{
		Model:     a.model,
		MaxTokens: detectMaxTokens,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: prompt},
		},
	})
	if err != nil {
		a.logger.Warn().Err(err).Msg("Memory detection call failed")
		return
	}

	kind, content, category := parseDetection(resp.Text)
	switch kind {
	case "GOAL":
		if _, err := a.store.SaveGoal(ctx, a.userID, content, nil); err != nil {
			a.logger.Warn().Err(err).Msg("Failed to store detected goal")
			return
		}
		a.logger.Info().Str("goal", snippet(content, 80)).Msg("Stored detected goal")
	case "FACT":
		if _, err := a.store.SaveMemory(ctx, a.userID, content, category, nil); err != nil {
			a.logger.Warn().Err(err).Msg("Failed to store detected fact")
			return
		}
		a.logger.Info().Str("fact", snippet(content, 80)).Msg("Stored detected fact")
	}
}

// parseDetection extracts TYPE/CONTENT/CATEGORY from detector output. An
// absent or NONE type, or an empty content, yields kind "".
func parseDetection(raw string) (kind, content, category string) {
	category = "general"
	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "TYPE:"):
			v := strings.TrimSpace(strings.TrimPrefix(trimmed, "TYPE:"))
			v = strings.Trim(v, "[]")
			if v == "GOAL" || v == "FACT" {
				kind = v
			}
		case strings.HasPrefix(trimmed, "CONTENT:"):
			content = strings.TrimSpace(strings.TrimPrefix(trimmed, "CONTENT:"))
		case strings.HasPrefix(trimmed, "CATEGORY:"):
			if v := strings.TrimSpace(strings.TrimPrefix(trimmed, "CATEGORY:")); v != "" {
				category = v
			}
		}
	}
	if content == "" {
		kind = ""
	}
	return kind, content, category
}

func toMessages(history []store.ConversationTurn) []llm.Message {
	msgs := make([]llm.Message, 0, len(history))
	for _, t := range history {
		role := llm.RoleUser
		if t.Role == "assistant" {
			role = llm.RoleAssistant
		}
		msgs = append(msgs, llm.Message{Role: role, Content: t.Content})
	}
	return msgs
}

func snippet(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
