package embedding

import (
	"context"
	"testing"
)

func BenchmarkHashingEmbedder(b *testing.B) {
	e := NewHashingEmbedder(384, DefaultMaxTokens, nil)
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tokens, _, err := e.Tokenize(ctx, "benchmark query text for embedding")
		if err != nil {
			b.Fatal(err)
		}
		if _, _, err := e.Embed(ctx, tokens); err != nil {
			b.Fatal(err)
		}
	}
}
