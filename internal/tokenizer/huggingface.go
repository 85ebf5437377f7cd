package tokenizer

import (
	"context"
	"fmt"
	"sync"

	hf "github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
)

// HuggingFaceCounter counts tokens with a tokenizer.json, either a local file
// or one fetched from the Hugging Face hub for the model ID on first use.
type HuggingFaceCounter struct {
	file string

	mu    sync.Mutex
	byID  map[string]*hf.Tokenizer
	loads map[string]error
}

// NewHuggingFaceCounter creates a counter; when file is non-empty it is used
// for every model instead of downloading.
func NewHuggingFaceCounter(file string) *HuggingFaceCounter {
	return &HuggingFaceCounter{
		file:  file,
		byID:  make(map[string]*hf.Tokenizer),
		loads: make(map[string]error),
	}
}

func (c *HuggingFaceCounter) CountTokens(ctx context.Context, text, model string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, &Error{Model: model, Err: err}
	}

	// The sugarme tokenizer is not safe for concurrent encoding.
	c.mu.Lock()
	defer c.mu.Unlock()

	tk, err := c.load(model)
	if err != nil {
		return 0, &Error{Model: model, Err: err}
	}
	en, err := tk.EncodeSingle(text)
	if err != nil {
		return 0, &Error{Model: model, Err: fmt.Errorf("encode: %w", err)}
	}
	return len(en.Tokens), nil
}

// load must be called with mu held. Load failures are remembered so a missing
// tokenizer is not downloaded again for every file.
func (c *HuggingFaceCounter) load(model string) (*hf.Tokenizer, error) {
	if tk, ok := c.byID[model]; ok {
		return tk, nil
	}
	if err, ok := c.loads[model]; ok {
		return nil, err
	}

	path := c.file
	if path == "" {
		var err error
		path, err = hf.CachedPath(model, "tokenizer.json")
		if err != nil {
			err = fmt.Errorf("failed to get cache path for model %s: %w", model, err)
			c.loads[model] = err
			return nil, err
		}
	}
	tk, err := pretrained.FromFile(path)
	if err != nil {
		err = fmt.Errorf("failed to load tokenizer from %s: %w", path, err)
		c.loads[model] = err
		return nil, err
	}
	c.byID[model] = tk
	return tk, nil
}
