package embedding

import (
	"fmt"
	"unicode/utf8"

	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
)

// HFTokenizer wraps a HuggingFace tokenizer.json (WordPiece for BERT-style models).
type HFTokenizer struct {
	tk *tokenizer.Tokenizer
}

// NewHFTokenizer loads the tokenizer definition at path.
func NewHFTokenizer(path string) (*HFTokenizer, error) {
	tk, err := pretrained.FromFile(path)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer %s: %w", path, err)
	}
	return &HFTokenizer{tk: tk}, nil
}

// Tokenize encodes text with special tokens and truncates to maxTokens, keeping the
// final [SEP] when the sequence is cut.
func (h *HFTokenizer) Tokenize(text string, maxTokens int) (*Tokens, error) {
	if !utf8.ValidString(text) {
		return nil, fmt.Errorf("%w: invalid UTF-8", ErrTokenization)
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	enc, err := h.tk.EncodeSingle(text, true)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenization, err)
	}
	return fromEncoding(enc.Ids, enc.AttentionMask, enc.TypeIds, maxTokens), nil
}

func fromEncoding(ids, mask, typeIDs []int, maxTokens int) *Tokens {
	tokens := newTokens(maxTokens)
	n := len(ids)
	truncated := n > maxTokens
	if truncated {
		n = maxTokens
	}
	for i := 0; i < n; i++ {
		tokens.InputIDs[i] = int64(ids[i])
		if i < len(mask) {
			tokens.AttentionMask[i] = int64(mask[i])
		} else {
			tokens.AttentionMask[i] = 1
		}
		if i < len(typeIDs) {
			tokens.TokenTypeIDs[i] = int64(typeIDs[i])
		}
	}
	if truncated {
		tokens.InputIDs[n-1] = int64(ids[len(ids)-1])
	}
	return tokens
}
