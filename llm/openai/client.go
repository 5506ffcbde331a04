package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
	"github.com/rs/zerolog"

	"github.com/carlosfalai/claude-always-on/llm"
)

// Client implements the llm.Client interface for OpenAI-compatible APIs.
type Client struct {
	client *openai.Client
	logger zerolog.Logger
}

// NewClient creates a new OpenAI client. baseURL may point at any
// OpenAI-compatible endpoint; empty means the official API.
func NewClient(apiKey, baseURL string, logger zerolog.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("api key is required")
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return &Client{
		client: openai.NewClientWithConfig(cfg),
		logger: logger.With().Str("component", "openai").Logger(),
	}, nil
}

// Complete implements llm.Client.Complete.
func (c *Client) Complete(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	if req == nil {
		return nil, fmt.Errorf("request is required")
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	for _, msg := range req.Messages {
		role, err := toOpenAIRole(msg.Role)
		if err != nil {
			return nil, err
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    role,
			Content: msg.Content,
		})
	}

	chatReq := openai.ChatCompletionRequest{
		Model:     req.Model,
		Messages:  messages,
		MaxTokens: int(req.MaxTokens),
	}
	if req.Temperature != nil {
		chatReq.Temperature = float32(*req.Temperature)
	}

	resp, err := c.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, mapError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, llm.NewProviderError("openai returned no choices", nil)
	}

	choice := resp.Choices[0]
	return &llm.Response{
		Text: choice.Message.Content,
		Usage: &llm.Usage{
			InputTokens:  int64(resp.Usage.PromptTokens),
			OutputTokens: int64(resp.Usage.CompletionTokens),
		},
		StopReason: string(choice.FinishReason),
	}, nil
}

func toOpenAIRole(role llm.MessageRole) (string, error) {
	switch role {
	case llm.RoleUser:
		return openai.ChatMessageRoleUser, nil
	case llm.RoleAssistant:
		return openai.ChatMessageRoleAssistant, nil
	case llm.RoleSystem:
		return openai.ChatMessageRoleSystem, nil
	default:
		return "", fmt.Errorf("unsupported message role: %q", role)
	}
}

// mapError converts SDK errors to provider-neutral llm errors.
func mapError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusTooManyRequests:
			return llm.NewRateLimitError("openai rate limit exceeded", nil, err)
		case http.StatusBadRequest, http.StatusUnprocessableEntity:
			return &llm.Error{
				Type:        llm.ErrorTypeInvalidRequest,
				Message:     "openai rejected request",
				StatusCode:  apiErr.HTTPStatusCode,
				ProviderErr: err,
			}
		default:
			if apiErr.HTTPStatusCode >= 500 {
				return llm.NewNetworkError("openai server error", err)
			}
			return llm.NewProviderError("openai request failed", err)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &llm.Error{
			Type:        llm.ErrorTypeTimeout,
			Message:     "openai request timed out",
			Retryable:   true,
			ProviderErr: err,
		}
	}
	return llm.NewNetworkError("openai request failed", err)
}

var _ llm.Client = (*Client)(nil)
