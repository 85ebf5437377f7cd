// Package tokenizer defines the token counting port used by the metric cache,
// the estimation fallback, the model registry and the provider
// implementations (tiktoken, HuggingFace, Anthropic).
package tokenizer

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"
)

// Counter counts tokens in text for a model. Implementations must be a pure
// function of (text, model) for cached results to stay valid, and must be
// safe for concurrent use.
type Counter interface {
	CountTokens(ctx context.Context, text, model string) (int, error)
}

// CounterFunc adapts a function to Counter.
type CounterFunc func(ctx context.Context, text, model string) (int, error)

func (f CounterFunc) CountTokens(ctx context.Context, text, model string) (int, error) {
	return f(ctx, text, model)
}

// ErrUnknownModel is returned by Lookup for names outside the registry.
var ErrUnknownModel = errors.New("unknown model")

// Error is a tokenization failure for one text.
type Error struct {
	Model string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("tokenization failed for model %s: %v", e.Model, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Strategy is how token counts are produced for a scan.
type Strategy int

const (
	// StrategyEstimate uses Estimate; no tokenizer and no cache are involved.
	StrategyEstimate Strategy = iota
	// StrategyExact calls a Counter through the metric cache.
	StrategyExact
)

func (s Strategy) String() string {
	if s == StrategyExact {
		return "exact"
	}
	return "estimate"
}

// StrategyFor picks the strategy for a configured model identifier.
func StrategyFor(model string) Strategy {
	if model == "" {
		return StrategyEstimate
	}
	return StrategyExact
}

// charsPerToken is the usual ratio for English text and source code.
const charsPerToken = 4

// Estimate approximates the token count of text as one token per four
// characters, rounded up.
func Estimate(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + charsPerToken - 1) / charsPerToken
}
