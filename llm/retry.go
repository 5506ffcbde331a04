package llm

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
)

const (
	// DefaultMaxElapsedTime bounds the total time spent retrying a call.
	DefaultMaxElapsedTime = 5 * time.Minute
	// DefaultInitialDelay is the first backoff interval.
	DefaultInitialDelay = 1 * time.Second
	// DefaultMaxInterval caps a single backoff interval.
	DefaultMaxInterval = 60 * time.Second
)

// retryClient wraps a Client with exponential backoff on retryable errors
// (rate limits, network failures). The check-in decision engine must NOT use
// this wrapper: a check-in cycle makes exactly one attempt and degrades to
// silence on failure. The conversational chat path uses it so transient rate
// limits do not surface as user-visible errors.
type retryClient struct {
	client     Client
	maxElapsed time.Duration
	logger     zerolog.Logger
}

// WithRetry wraps a Client so Complete retries retryable errors with
// exponential backoff, honoring provider retry-after hints.
func WithRetry(client Client, maxElapsed time.Duration, logger zerolog.Logger) Client {
	if maxElapsed <= 0 {
		maxElapsed = DefaultMaxElapsedTime
	}
	return &retryClient{
		client:     client,
		maxElapsed: maxElapsed,
		logger:     logger.With().Str("component", "llm_retry").Logger(),
	}
}

// Complete implements Client.Complete.
func (c *retryClient) Complete(ctx context.Context, req *Request) (*Response, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = DefaultInitialDelay
	policy.MaxInterval = DefaultMaxInterval

	operation := func() (*Response, error) {
		resp, err := c.client.Complete(ctx, req)
		if err == nil {
			return resp, nil
		}
		if !IsRetryableError(err) {
			return nil, backoff.Permanent(err)
		}
		if retryAfter := ExtractRetryAfter(err); retryAfter != nil {
			c.logger.Warn().
				Dur("retry_after", *retryAfter).
				Msg("Rate limited, honoring retry-after")
			return nil, backoff.RetryAfter(int(retryAfter.Seconds()))
		}
		c.logger.Warn().Err(err).Msg("Retryable LLM error, backing off")
		return nil, err
	}

	resp, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxElapsedTime(c.maxElapsed))
	if err != nil {
		return nil, err
	}
	return resp, nil
}

var _ Client = (*retryClient)(nil)
