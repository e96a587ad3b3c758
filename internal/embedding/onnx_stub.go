//go:build !cgo
// +build !cgo

package embedding

import (
	"context"
	"errors"
	"time"
)

// errNoCGO is returned by NewONNXEmbedder when built without CGO.
var errNoCGO = errors.New("ONNX embedder requires CGO; build with CGO_ENABLED=1 and onnxruntime")

// ONNXEmbedder stub type when built without CGO (see onnx.go for real implementation).
type ONNXEmbedder struct{}

// NewONNXEmbedder returns an error when built without CGO (ONNX not available).
func NewONNXEmbedder(_ ONNXOptions, _ Tokenizer) (*ONNXEmbedder, error) {
	return nil, errNoCGO
}

func (e *ONNXEmbedder) Tokenize(context.Context, string) (*Tokens, time.Duration, error) {
	return nil, 0, errNoCGO
}

func (e *ONNXEmbedder) Embed(context.Context, *Tokens) ([]float32, time.Duration, error) {
	return nil, 0, errNoCGO
}

func (e *ONNXEmbedder) Dimensions() int { return 0 }

func (e *ONNXEmbedder) Close() error { return nil }
