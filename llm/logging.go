package llm

import (
	"context"

	"github.com/rs/zerolog"
)

// NewLoggingMiddleware returns middleware that records every call: model and
// message count going out, token usage and stop reason coming back. Errors
// pass through untouched; the typed taxonomy carries its own context.
func NewLoggingMiddleware(logger zerolog.Logger) Middleware {
	log := logger.With().Str("component", "llm").Logger()

	return MiddlewareFunc{
		BeforeRequestFunc: func(ctx context.Context, req *Request) (*Request, error) {
			log.Debug().
				Str("model", req.Model).
				Int("messages", len(req.Messages)).
				Int64("max_tokens", req.MaxTokens).
				Msg("LLM request")
			return req, nil
		},
		AfterResponseFunc: func(ctx context.Context, req *Request, resp *Response) (*Response, error) {
			ev := log.Debug().
				Str("model", req.Model).
				Str("stop_reason", resp.StopReason)
			if resp.Usage != nil {
				ev = ev.
					Int64("input_tokens", resp.Usage.InputTokens).
					Int64("output_tokens", resp.Usage.OutputTokens)
			}
			ev.Msg("LLM response")
			return resp, nil
		},
		OnErrorFunc: func(ctx context.Context, req *Request, err error) error {
			log.Debug().Str("model", req.Model).Err(err).Msg("LLM call failed")
			return err
		},
	}
}
