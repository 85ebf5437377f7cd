package tokenizer

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimate(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"a", 1},
		{"abcd", 1},
		{"abcde", 2},
		{"hello world!", 3},
		{"héllo", 2}, // counted in runes, not bytes
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Estimate(tt.text), "Estimate(%q)", tt.text)
	}
}

func TestStrategyFor(t *testing.T) {
	assert.Equal(t, StrategyEstimate, StrategyFor(""))
	assert.Equal(t, StrategyExact, StrategyFor("gpt-4o"))
	assert.Equal(t, "exact", StrategyExact.String())
	assert.Equal(t, "estimate", StrategyEstimate.String())
}

func TestLookup(t *testing.T) {
	m, err := Lookup("gpt-4o")
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenAI, m.Provider)

	m, err = Lookup("  Claude-3-7-Sonnet-Latest ")
	require.NoError(t, err)
	assert.Equal(t, "sonnet-3.7", m.Name)
	assert.Equal(t, ProviderAnthropic, m.Provider)

	_, err = Lookup("gpt-17")
	assert.ErrorIs(t, err, ErrUnknownModel)
}

func TestModelNamesSorted(t *testing.T) {
	names := ModelNames()
	require.NotEmpty(t, names)
	assert.IsNonDecreasing(t, names)
	assert.Contains(t, names, "llama-3-8b")
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := error(&Error{Model: "gpt-4", Err: cause})

	assert.EqualError(t, err, "tokenization failed for model gpt-4: boom")
	assert.ErrorIs(t, err, cause)

	var tokErr *Error
	require.ErrorAs(t, err, &tokErr)
	assert.Equal(t, "gpt-4", tokErr.Model)
}

func TestCounterFunc(t *testing.T) {
	var c Counter = CounterFunc(func(_ context.Context, text, model string) (int, error) {
		return len(text) + len(model), nil
	})
	n, err := c.CountTokens(context.Background(), "abc", "m")
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestNewCounterSelectsProvider(t *testing.T) {
	gpt, err := Lookup("gpt-4")
	require.NoError(t, err)
	c, err := NewCounter(gpt, Options{})
	require.NoError(t, err)
	assert.IsType(t, &TiktokenCounter{}, c)

	llama, err := Lookup("llama-2-7b")
	require.NoError(t, err)
	c, err = NewCounter(llama, Options{TokenizerFile: "tokenizer.json"})
	require.NoError(t, err)
	assert.IsType(t, &HuggingFaceCounter{}, c)

	_, err = NewCounter(Model{Name: "x", Provider: "nope"}, Options{})
	assert.Error(t, err)
}

func TestAnthropicCounterRequiresKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	_, err := NewAnthropicCounter(AnthropicOptions{})
	assert.ErrorIs(t, err, errMissingAPIKey)

	c, err := NewAnthropicCounter(AnthropicOptions{APIKey: "test-key"})
	require.NoError(t, err)
	assert.NotNil(t, c)
}

func TestHuggingFaceCounterRemembersLoadFailure(t *testing.T) {
	c := NewHuggingFaceCounter(t.TempDir() + "/missing.json")

	_, err := c.CountTokens(context.Background(), "hi", "some/model")
	require.Error(t, err)
	var tokErr *Error
	require.ErrorAs(t, err, &tokErr)

	_, err2 := c.CountTokens(context.Background(), "hi", "some/model")
	require.Error(t, err2)
	assert.Contains(t, c.loads, "some/model")
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewTiktokenCounter().CountTokens(ctx, "hi", "gpt-4")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTiktokenUnknownModelConcurrent(t *testing.T) {
	c := NewTiktokenCounter()

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.CountTokens(context.Background(), "hi", "no-such-model")
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		var tokErr *Error
		require.ErrorAs(t, err, &tokErr)
		assert.Equal(t, "no-such-model", tokErr.Model)
	}
	assert.Empty(t, c.encodings)
}
