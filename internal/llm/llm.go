// Package llm is the boundary to the external text generation service.
package llm

import "context"

// Request is one generation call.
type Request struct {
	Model     string
	MaxTokens int
	Prompt    string
	System    string
	// Stage is a logical tag (scaffold|section|review) used for budgets and metrics only.
	Stage string
}

// Caller performs a single generation call and returns the concatenated text blocks.
// Implementations must not retry; retrying is the retry.Client's job.
type Caller interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// CallerFunc adapts a function to Caller.
type CallerFunc func(ctx context.Context, req Request) (string, error)

func (f CallerFunc) Complete(ctx context.Context, req Request) (string, error) { return f(ctx, req) }
