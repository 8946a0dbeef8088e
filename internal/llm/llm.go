package llm

import "context"

// Client is a text completion service. Output is opaque text; callers
// validate it.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Request is a single-turn completion request.
type Request struct {
	Model       string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// ClientFunc adapts a function to Client.
type ClientFunc func(ctx context.Context, req Request) (string, error)

// Complete calls f.
func (f ClientFunc) Complete(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}
