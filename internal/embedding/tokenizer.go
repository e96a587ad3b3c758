package embedding

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// BERT special token ids.
const (
	padID = 0
	clsID = 101
	sepID = 102
)

const sentenceSeparator = "</s>"

// DefaultMaxTokens is used when a tokenizer is asked for a non-positive length.
const DefaultMaxTokens = 128

// newTokens allocates zeroed buffers of length maxTokens.
func newTokens(maxTokens int) *Tokens {
	return &Tokens{
		InputIDs:      make([]int64, maxTokens),
		AttentionMask: make([]int64, maxTokens),
		TokenTypeIDs:  make([]int64, maxTokens),
	}
}

// SimpleTokenizer is a word-split tokenizer with hash-based token IDs (for testing or fallback).
type SimpleTokenizer struct{}

// Tokenize lowercases and splits text into words and produces [CLS] words [SEP]
// padded to maxTokens. Sentence separators ("</s>") count as whitespace.
func (t *SimpleTokenizer) Tokenize(text string, maxTokens int) (*Tokens, error) {
	if !utf8.ValidString(text) {
		return nil, fmt.Errorf("%w: invalid UTF-8", ErrTokenization)
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	tokens := newTokens(maxTokens)
	tokens.InputIDs[0] = clsID
	tokens.AttentionMask[0] = 1

	pos := 1
	text = strings.ReplaceAll(strings.ToLower(text), sentenceSeparator, " ")
	for _, word := range SplitWords(text) {
		if pos >= maxTokens-1 {
			break
		}
		// keep ids clear of the special range
		tokens.InputIDs[pos] = int64(1000 + HashString(word)%29000)
		tokens.AttentionMask[pos] = 1
		pos++
	}
	if pos < maxTokens {
		tokens.InputIDs[pos] = sepID
		tokens.AttentionMask[pos] = 1
	}
	return tokens, nil
}

// SplitWords splits text on whitespace and returns non-empty words.
func SplitWords(text string) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	return words
}

// HashString returns a deterministic non-negative hash for use as a simple token ID.
func HashString(s string) int {
	var h uint32
	for _, c := range s {
		h = 31*h + uint32(c)
	}
	return int(h & 0x7fffffff)
}
