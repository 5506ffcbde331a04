// Package voice places outbound calls through an ElevenLabs conversational
// agent bridged over Twilio.
package voice

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/carlosfalai/claude-always-on/config"
)

const (
	elevenLabsBaseURL = "https://api.elevenlabs.io/v1"
	twilioBaseURL     = "https://api.twilio.com/2010-04-01"

	// Rachel, the stock voice, when no cloned voice is configured.
	defaultVoiceID = "21m00Tcm4TlvDq8ikWAM"
)

// ErrNotConfigured reports missing voice credentials. Callers treat it as
// "calling unavailable", not as a transient failure.
var ErrNotConfigured = errors.New("voice calling not configured")

// Caller creates a context-primed conversational agent per call and dials the
// user through Twilio. Each call gets a fresh agent so the prompt reflects
// the moment the call was approved.
type Caller struct {
	elevenlabs *resty.Client
	twilio     *resty.Client
	accountSID string
	from       string
	to         string
	voiceID    string
	logger     zerolog.Logger
}

// NewCaller validates the voice configuration and builds a Caller. Returns
// ErrNotConfigured when any required credential is missing.
func NewCaller(cfg config.VoiceConfig, logger zerolog.Logger) (*Caller, error) {
	if cfg.TwilioAccountSID == "" || cfg.TwilioAuthToken == "" ||
		cfg.FromNumber == "" || cfg.ToNumber == "" || cfg.ElevenLabsAPIKey == "" {
		return nil, ErrNotConfigured
	}

	voiceID := cfg.VoiceID
	if voiceID == "" {
		voiceID = defaultVoiceID
	}

	return &Caller{
		elevenlabs: resty.New().
			SetBaseURL(elevenLabsBaseURL).
			SetHeader("xi-api-key", cfg.ElevenLabsAPIKey),
		twilio: resty.New().
			SetBaseURL(twilioBaseURL).
			SetBasicAuth(cfg.TwilioAccountSID, cfg.TwilioAuthToken),
		accountSID: cfg.TwilioAccountSID,
		from:       cfg.FromNumber,
		to:         cfg.ToNumber,
		voiceID:    voiceID,
		logger:     logger.With().Str("component", "voice").Logger(),
	}, nil
}

// PlaceCall creates the agent and dials. Returns the Twilio call SID.
func (c *Caller) PlaceCall(ctx context.Context, contextText string) (string, error) {
	agentID, err := c.createAgent(ctx, contextText)
	if err != nil {
		return "", fmt.Errorf("create conversational agent: %w", err)
	}
	c.logger.Info().Str("agent_id", agentID).Msg("Created conversational agent")

	callSID, err := c.dial(ctx, agentID)
	if err != nil {
		return "", fmt.Errorf("dial: %w", err)
	}
	c.logger.Info().Str("call_sid", callSID).Msg("Call initiated")
	return callSID, nil
}

type createAgentResponse struct {
	AgentID string `json:"agent_id"`
}

func (c *Caller) createAgent(ctx context.Context, contextText string) (string, error) {
	prompt := fmt.Sprintf(`You are the user's personal AI assistant. You're speaking to them via phone call.

**Your Role:**
- Be helpful and concise
- Speak naturally (you're on a phone call)
- If they ask you to do something, confirm you'll handle it
- Keep responses brief (this is a phone call, not a chat)
- Be proactive but respectful

**Current Context:**
%s

Respond naturally to what they say.`, contextText)

	body := map[string]any{
		"name": "Always-On Assistant",
		"conversation_config": map[string]any{
			"agent": map[string]any{
				"prompt":        map[string]any{"prompt": prompt},
				"first_message": "Hey! What's up?",
				"language":      "en",
			},
		},
		"tts": map[string]any{
			"voice_id":                   c.voiceID,
			"model_id":                   "eleven_turbo_v2",
			"optimize_streaming_latency": 3,
		},
	}

	var out createAgentResponse
	resp, err := c.elevenlabs.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		Post("/convai/agents")
	if err != nil {
		return "", err
	}
	if resp.IsError() {
		return "", fmt.Errorf("elevenlabs agent creation failed: %s: %s", resp.Status(), resp.String())
	}
	if out.AgentID == "" {
		return "", fmt.Errorf("elevenlabs returned no agent id")
	}
	return out.AgentID, nil
}

type twilioCallResponse struct {
	SID string `json:"sid"`
}

func (c *Caller) dial(ctx context.Context, agentID string) (string, error) {
	var out twilioCallResponse
	resp, err := c.twilio.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"From":   c.from,
			"To":     c.to,
			"Url":    fmt.Sprintf("%s/convai/agents/%s/call", elevenLabsBaseURL, agentID),
			"Method": "POST",
		}).
		SetResult(&out).
		Post(fmt.Sprintf("/Accounts/%s/Calls.json", c.accountSID))
	if err != nil {
		return "", err
	}
	if resp.IsError() {
		return "", fmt.Errorf("twilio call failed: %s: %s", resp.Status(), resp.String())
	}
	return out.SID, nil
}
