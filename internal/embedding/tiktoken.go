package embedding

import (
	"fmt"
	"unicode/utf8"

	"github.com/tiktoken-go/tokenizer"
)

// TiktokenTokenizer encodes text with a byte-pair encoding (cl100k_base by default).
// It adds no special tokens, so it pairs with the hashing backend rather than a BERT model.
type TiktokenTokenizer struct {
	codec tokenizer.Codec
}

// NewTiktokenTokenizer loads the cl100k_base encoding.
func NewTiktokenTokenizer() (*TiktokenTokenizer, error) {
	codec, err := tokenizer.Get(tokenizer.Cl100kBase)
	if err != nil {
		return nil, fmt.Errorf("load cl100k_base: %w", err)
	}
	return &TiktokenTokenizer{codec: codec}, nil
}

// Tokenize encodes text and pads or truncates to maxTokens.
func (t *TiktokenTokenizer) Tokenize(text string, maxTokens int) (*Tokens, error) {
	if !utf8.ValidString(text) {
		return nil, fmt.Errorf("%w: invalid UTF-8", ErrTokenization)
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	ids, _, err := t.codec.Encode(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenization, err)
	}
	tokens := newTokens(maxTokens)
	for i, id := range ids {
		if i >= maxTokens {
			break
		}
		tokens.InputIDs[i] = int64(id)
		tokens.AttentionMask[i] = 1
	}
	return tokens, nil
}
