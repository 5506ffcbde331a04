package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

// stubClient returns a fixed response or error and records calls.
type stubClient struct {
	resp  *Response
	err   error
	calls int
}

func (c *stubClient) Complete(ctx context.Context, req *Request) (*Response, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return c.resp, nil
}

func TestLoggingMiddlewarePassesResponseThrough(t *testing.T) {
	stub := &stubClient{resp: &Response{
		Text:       "hello",
		Usage:      &Usage{InputTokens: 10, OutputTokens: 3},
		StopReason: "end_turn",
	}}
	client := WrapWithMiddleware(stub, NewLoggingMiddleware(zerolog.Nop()))

	resp, err := client.Complete(context.Background(), &Request{Model: "m", MaxTokens: 100})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if stub.calls != 1 {
		t.Errorf("underlying client called %d times, want 1", stub.calls)
	}
	if resp != stub.resp {
		t.Error("response must pass through unmodified")
	}
}

func TestLoggingMiddlewarePassesErrorThrough(t *testing.T) {
	wantErr := errors.New("provider down")
	stub := &stubClient{err: wantErr}
	client := WrapWithMiddleware(stub, NewLoggingMiddleware(zerolog.Nop()))

	_, err := client.Complete(context.Background(), &Request{Model: "m"})
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want the provider error unmodified", err)
	}
}

func TestWrapWithMiddlewareNoMiddlewareReturnsClient(t *testing.T) {
	stub := &stubClient{resp: &Response{Text: "x"}}
	if got := WrapWithMiddleware(stub); got != Client(stub) {
		t.Error("wrapping with no middleware must return the client unchanged")
	}
}
