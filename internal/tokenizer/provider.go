package tokenizer

import "fmt"

// Options configures provider construction.
type Options struct {
	// TokenizerFile is a local tokenizer.json for HuggingFace models.
	TokenizerFile string
	Anthropic     AnthropicOptions
}

// NewCounter returns the provider-backed Counter for m.
func NewCounter(m Model, opts Options) (Counter, error) {
	switch m.Provider {
	case ProviderOpenAI:
		return NewTiktokenCounter(), nil
	case ProviderHuggingFace:
		return NewHuggingFaceCounter(opts.TokenizerFile), nil
	case ProviderAnthropic:
		c, err := NewAnthropicCounter(opts.Anthropic)
		if err != nil {
			return nil, fmt.Errorf("anthropic tokenizer for %s: %w", m.Name, err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unsupported tokenizer provider %q for model %s", m.Provider, m.Name)
	}
}
