package embedding

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
)

// HashingEmbedder is a deterministic embedder that feature-hashes token unigrams and
// bigrams into a fixed number of buckets. Texts sharing words get similar vectors, so
// it stands in for a model in tests and when no model file is available.
type HashingEmbedder struct {
	dimensions int
	maxTokens  int
	tokenizer  Tokenizer
}

// NewHashingEmbedder returns an embedder with the given dimensions. A nil tokenizer
// selects SimpleTokenizer.
func NewHashingEmbedder(dimensions, maxTokens int, tokenizer Tokenizer) *HashingEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	if tokenizer == nil {
		tokenizer = &SimpleTokenizer{}
	}
	return &HashingEmbedder{dimensions: dimensions, maxTokens: maxTokens, tokenizer: tokenizer}
}

// Tokenize runs the configured tokenizer.
func (e *HashingEmbedder) Tokenize(ctx context.Context, text string) (*Tokens, time.Duration, error) {
	return tokenize(ctx, e.tokenizer, text, e.maxTokens)
}

// Embed hashes every non-special token and adjacent token pair into a signed bucket.
func (e *HashingEmbedder) Embed(ctx context.Context, tokens *Tokens) ([]float32, time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	if tokens == nil {
		return nil, 0, fmt.Errorf("%w: nil tokens", ErrInference)
	}
	start := time.Now()
	vec := make([]float32, e.dimensions)
	var buf [16]byte
	prev := int64(-1)
	for i, id := range tokens.InputIDs {
		if tokens.AttentionMask[i] == 0 || id == padID || id == clsID || id == sepID {
			continue
		}
		binary.LittleEndian.PutUint64(buf[:8], uint64(id))
		e.add(vec, xxhash.Sum64(buf[:8]), 1)
		if prev >= 0 {
			binary.LittleEndian.PutUint64(buf[8:], uint64(prev))
			e.add(vec, xxhash.Sum64(buf[:]), 0.5)
		}
		prev = id
	}
	return vec, time.Since(start), nil
}

func (e *HashingEmbedder) add(vec []float32, h uint64, weight float32) {
	bucket := int(h % uint64(e.dimensions))
	if h&(1<<63) != 0 {
		weight = -weight
	}
	vec[bucket] += weight
}

// Dimensions returns the embedding dimension.
func (e *HashingEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op for HashingEmbedder.
func (e *HashingEmbedder) Close() error {
	return nil
}
