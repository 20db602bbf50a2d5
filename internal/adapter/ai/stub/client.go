// Package stub implements a fast, deterministic embedder for local runs and
// tests. Vectors are derived from a hash of the input text, so equal texts
// always embed identically and similar runs are reproducible.
package stub

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/fairyhunter13/mentor-match/internal/domain"
)

// Dim is the stub vector dimension. Small on purpose; the index and the
// matching pipeline never depend on a specific dimension.
const Dim = 64

// Client is a deterministic embedder with no external dependencies.
type Client struct{}

func New() *Client { return &Client{} }

// Embed derives one unit vector per text from a sha256 stream over the
// sanitized text. Blank texts are rejected.
func (c *Client) Embed(_ context.Context, texts []string) ([][]float32, error) {
	res := make([][]float32, len(texts))
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			return nil, fmt.Errorf("op=stub.Embed: text %d: %w", i, domain.ErrEmptyText)
		}
		res[i] = vectorFor(t)
	}
	return res, nil
}

func vectorFor(text string) []float32 {
	seed := sha256.Sum256([]byte(strings.TrimSpace(strings.ToLower(text))))
	v := make([]float32, Dim)
	var sum float64
	block := seed[:]
	for i := 0; i < Dim; i++ {
		if i%8 == 0 && i > 0 {
			next := sha256.Sum256(block)
			block = next[:]
		}
		u := binary.BigEndian.Uint32(block[(i%8)*4 : (i%8)*4+4])
		// Map into [-1, 1).
		f := float64(u)/float64(math.MaxUint32)*2 - 1
		v[i] = float32(f)
		sum += f * f
	}
	norm := float32(math.Sqrt(sum))
	if norm == 0 {
		v[0] = 1
		return v
	}
	for i := range v {
		v[i] /= norm
	}
	return v
}
