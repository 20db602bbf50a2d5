// Package tokencount provides token counting and truncation for embedding
// inputs using tiktoken-go, the Go port of OpenAI's tiktoken library.
package tokencount

import (
	"strings"
	"sync"

	"log/slog"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

// Counter provides thread-safe token counting for embedding models.
type Counter struct {
	encodingCache map[string]*tiktoken.Tiktoken
	mu            sync.RWMutex
}

// NewCounter creates a new token counter instance.
func NewCounter() *Counter {
	return &Counter{encodingCache: make(map[string]*tiktoken.Tiktoken)}
}

// getEncodingForModel returns the tiktoken encoding for a model, cached.
func (c *Counter) getEncodingForModel(model string) (*tiktoken.Tiktoken, error) {
	key := strings.ToLower(model)

	c.mu.RLock()
	if enc, ok := c.encodingCache[key]; ok {
		c.mu.RUnlock()
		return enc, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if enc, ok := c.encodingCache[key]; ok {
		return enc, nil
	}

	enc, err := tiktoken.EncodingForModel(key)
	if err != nil {
		// cl100k_base covers text-embedding-3-* and most modern models.
		slog.Debug("falling back to cl100k_base encoding",
			slog.String("model", model),
			slog.Any("error", err))
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, err
		}
	}
	c.encodingCache[key] = enc
	return enc, nil
}

// CountTokens counts the number of tokens in text for a given model.
func (c *Counter) CountTokens(text, model string) (int, error) {
	enc, err := c.getEncodingForModel(model)
	if err != nil {
		return 0, err
	}
	return len(enc.Encode(text, nil, nil)), nil
}

// Truncate clips text to at most limit tokens, decoding back to a string.
// Text already within the limit is returned unchanged.
func (c *Counter) Truncate(text, model string, limit int) (string, error) {
	if limit <= 0 {
		return text, nil
	}
	enc, err := c.getEncodingForModel(model)
	if err != nil {
		return "", err
	}
	toks := enc.Encode(text, nil, nil)
	if len(toks) <= limit {
		return text, nil
	}
	return enc.Decode(toks[:limit]), nil
}
