package tokenizer

import (
	"context"
	"errors"
	"os"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// AnthropicCounter counts tokens with the Messages count_tokens endpoint.
// Concurrent requests are capped and paced so a large scan does not trip the
// API's rate limits.
type AnthropicCounter struct {
	client  anthropic.Client
	sem     *semaphore.Weighted
	limiter *rate.Limiter
}

// AnthropicOptions tunes the remote counter. Zero values select defaults.
type AnthropicOptions struct {
	APIKey            string
	BaseURL           string
	MaxConcurrent     int
	RequestsPerSecond float64
}

var errMissingAPIKey = errors.New("ANTHROPIC_API_KEY environment variable not set")

// NewAnthropicCounter builds the remote counter. The API key defaults to
// ANTHROPIC_API_KEY.
func NewAnthropicCounter(opts AnthropicOptions) (*AnthropicCounter, error) {
	key := opts.APIKey
	if key == "" {
		key = os.Getenv("ANTHROPIC_API_KEY")
	}
	if key == "" {
		return nil, errMissingAPIKey
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 4
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 8
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(key)}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}

	return &AnthropicCounter{
		client:  anthropic.NewClient(reqOpts...),
		sem:     semaphore.NewWeighted(int64(opts.MaxConcurrent)),
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), opts.MaxConcurrent),
	}, nil
}

func (c *AnthropicCounter) CountTokens(ctx context.Context, text, model string) (int, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return 0, &Error{Model: model, Err: err}
	}
	defer c.sem.Release(1)

	if err := c.limiter.Wait(ctx); err != nil {
		return 0, &Error{Model: model, Err: err}
	}

	res, err := c.client.Messages.CountTokens(ctx, anthropic.MessageCountTokensParams{
		Model: anthropic.Model(model),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(text)),
		},
	})
	if err != nil {
		return 0, &Error{Model: model, Err: err}
	}
	return int(res.InputTokens), nil
}
