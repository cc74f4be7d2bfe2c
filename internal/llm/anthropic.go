package llm

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/craigdanielk/web-builder/internal/foundation/errors"
)

// AnthropicCaller calls the Messages API with SDK retries disabled.
type AnthropicCaller struct {
	client anthropic.Client
}

// NewAnthropicCaller builds a caller bound to apiKey. timeout bounds each request.
func NewAnthropicCaller(apiKey string, timeout time.Duration) *AnthropicCaller {
	return &AnthropicCaller{
		client: anthropic.NewClient(
			option.WithAPIKey(apiKey),
			option.WithMaxRetries(0),
			option.WithRequestTimeout(timeout),
		),
	}
}

// Complete sends req as a single user message and joins the returned text blocks with newlines.
func (c *AnthropicCaller) Complete(ctx context.Context, req Request) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: int64(req.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", classifyAPIError(err, req)
	}

	parts := make([]string, 0, len(msg.Content))
	for _, block := range msg.Content {
		if block.Type == "text" {
			parts = append(parts, block.Text)
		}
	}
	return strings.Join(parts, "\n"), nil
}

// classifyAPIError maps SDK failures onto the shared error taxonomy.
func classifyAPIError(err error, req Request) error {
	var apiErr *anthropic.Error
	if !stderrors.As(err, &apiErr) {
		if stderrors.Is(err, context.Canceled) {
			return err
		}
		// Transport level failure (DNS, reset, timeout).
		return errors.WrapError(err, errors.CategoryNetwork, "generation request failed").
			Retryable().WithContext("stage", req.Stage).Build()
	}

	status := apiErr.StatusCode
	b := errors.WrapError(err, errors.CategoryGeneration, fmt.Sprintf("generation service returned %d", status)).
		WithContext("stage", req.Stage).
		WithContext("status", status)
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return errors.WrapError(err, errors.CategoryAuth, "generation service rejected credentials").
			WithContext("status", status).Build()
	case status == http.StatusTooManyRequests:
		b = b.RateLimit()
	case status == http.StatusRequestTimeout, status >= http.StatusInternalServerError:
		// 500, 503 and 529 (overloaded) all land here.
		b = b.Retryable()
	default:
		b = b.Fatal()
	}
	return b.Build()
}
