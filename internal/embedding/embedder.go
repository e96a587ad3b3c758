// Package embedding turns item text into dense vectors: a Tokenizer produces
// fixed-length token ids and an Embedder runs them through a model.
package embedding

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrTokenization is returned when text cannot be tokenized.
	ErrTokenization = errors.New("tokenization failed")
	// ErrInference is returned when the model fails to produce an embedding.
	ErrInference = errors.New("inference failed")
)

// Tokens is a tokenized text padded to a fixed length.
type Tokens struct {
	InputIDs      []int64
	AttentionMask []int64
	TokenTypeIDs  []int64
}

// Len returns the number of non-padding tokens.
func (t *Tokens) Len() int {
	n := 0
	for _, m := range t.AttentionMask {
		if m != 0 {
			n++
		}
	}
	return n
}

// Key returns a string identifying the non-padding token sequence.
func (t *Tokens) Key() string {
	var b strings.Builder
	buf := make([]byte, 0, 20)
	for i, id := range t.InputIDs {
		if t.AttentionMask[i] == 0 {
			continue
		}
		buf = strconv.AppendInt(buf[:0], id, 36)
		b.Write(buf)
		b.WriteByte('.')
	}
	return b.String()
}

// Tokenizer produces token ids for BERT-style models (input_ids, attention_mask, token_type_ids).
type Tokenizer interface {
	Tokenize(text string, maxTokens int) (*Tokens, error)
}

// Embedder produces vector embeddings for text in two timed stages.
type Embedder interface {
	// Tokenize converts text to at most MaxTokens token ids.
	Tokenize(ctx context.Context, text string) (*Tokens, time.Duration, error)
	// Embed runs inference and returns a vector of length Dimensions.
	Embed(ctx context.Context, tokens *Tokens) ([]float32, time.Duration, error)
	Dimensions() int
	Close() error
}

// tokenize runs tok and reports how long it took. Errors are wrapped with ErrTokenization.
func tokenize(ctx context.Context, tok Tokenizer, text string, maxTokens int) (*Tokens, time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	start := time.Now()
	tokens, err := tok.Tokenize(text, maxTokens)
	elapsed := time.Since(start)
	if err != nil {
		if errors.Is(err, ErrTokenization) {
			return nil, elapsed, err
		}
		return nil, elapsed, errors.Join(ErrTokenization, err)
	}
	return tokens, elapsed, nil
}
