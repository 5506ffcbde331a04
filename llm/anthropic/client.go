package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog"

	"github.com/carlosfalai/claude-always-on/llm"
)

// Client implements the llm.Client interface for Anthropic's API.
type Client struct {
	client *anthropic.Client
	logger zerolog.Logger
}

// NewClient creates a new Anthropic client with the given API key.
func NewClient(apiKey string, logger zerolog.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("api key is required")
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &Client{
		client: &client,
		logger: logger.With().Str("component", "anthropic").Logger(),
	}, nil
}

// Complete implements llm.Client.Complete.
func (c *Client) Complete(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	if req == nil {
		return nil, fmt.Errorf("request is required")
	}

	msgs, err := toMessageParams(req.Messages)
	if err != nil {
		return nil, fmt.Errorf("failed to convert messages: %w", err)
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: req.MaxTokens,
		Messages:  msgs,
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if req.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Temperature)
	}

	message, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, mapError(err)
	}

	var text string
	for _, blockUnion := range message.Content {
		if block, ok := blockUnion.AsAny().(anthropic.TextBlock); ok {
			text += block.Text
		}
	}

	usage := &llm.Usage{
		InputTokens:  message.Usage.InputTokens,
		OutputTokens: message.Usage.OutputTokens,
	}

	c.logger.Debug().
		Int64("input_tokens", usage.InputTokens).
		Int64("output_tokens", usage.OutputTokens).
		Str("stop_reason", string(message.StopReason)).
		Msg("Completion finished")

	return &llm.Response{
		Text:       text,
		Usage:      usage,
		StopReason: string(message.StopReason),
	}, nil
}

// toMessageParams converts provider-neutral messages to Anthropic params.
// System messages are rejected here; they belong in Request.System.
func toMessageParams(messages []llm.Message) ([]anthropic.MessageParam, error) {
	params := make([]anthropic.MessageParam, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case llm.RoleUser:
			params = append(params, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		case llm.RoleAssistant:
			params = append(params, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		default:
			return nil, fmt.Errorf("unsupported message role: %q", msg.Role)
		}
	}
	return params, nil
}

// mapError converts SDK errors to provider-neutral llm errors.
func mapError(err error) error {
	var apierr *anthropic.Error
	if errors.As(err, &apierr) {
		switch apierr.StatusCode {
		case http.StatusTooManyRequests:
			var retryAfter *time.Duration
			if apierr.Response != nil {
				if hdr := apierr.Response.Header.Get("Retry-After"); hdr != "" {
					if seconds, parseErr := strconv.Atoi(hdr); parseErr == nil {
						d := time.Duration(seconds) * time.Second
						retryAfter = &d
					}
				}
			}
			return llm.NewRateLimitError("anthropic rate limit exceeded", retryAfter, err)
		case http.StatusBadRequest, http.StatusUnprocessableEntity:
			return &llm.Error{
				Type:        llm.ErrorTypeInvalidRequest,
				Message:     "anthropic rejected request",
				StatusCode:  apierr.StatusCode,
				ProviderErr: err,
			}
		default:
			if apierr.StatusCode >= 500 {
				return llm.NewNetworkError("anthropic server error", err)
			}
			return llm.NewProviderError("anthropic request failed", err)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &llm.Error{
			Type:        llm.ErrorTypeTimeout,
			Message:     "anthropic request timed out",
			Retryable:   true,
			ProviderErr: err,
		}
	}
	return llm.NewNetworkError("anthropic request failed", err)
}

var _ llm.Client = (*Client)(nil)
