package tokenizer

import (
	"context"
	"fmt"
	"sync"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

// TiktokenCounter counts tokens with OpenAI's BPE encodings. Encodings are
// loaded once per model and reused.
type TiktokenCounter struct {
	mu        sync.Mutex
	encodings map[string]*tiktoken.Tiktoken
}

func NewTiktokenCounter() *TiktokenCounter {
	return &TiktokenCounter{encodings: make(map[string]*tiktoken.Tiktoken)}
}

func (c *TiktokenCounter) CountTokens(ctx context.Context, text, model string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, &Error{Model: model, Err: err}
	}

	enc, err := c.encoding(model)
	if err != nil {
		return 0, &Error{Model: model, Err: err}
	}
	return len(enc.EncodeOrdinary(text)), nil
}

func (c *TiktokenCounter) encoding(model string) (*tiktoken.Tiktoken, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if enc, ok := c.encodings[model]; ok {
		return enc, nil
	}
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		return nil, fmt.Errorf("no tiktoken encoding: %w", err)
	}
	c.encodings[model] = enc
	return enc, nil
}
