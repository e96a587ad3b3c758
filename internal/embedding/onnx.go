//go:build cgo
// +build cgo

package embedding

import (
	"context"
	"fmt"
	"sync"
	"time"

	ort "github.com/yalue/onnxruntime_go"
)

// ONNXEmbedder uses ONNX Runtime to produce embeddings. It requires CGO and the onnxruntime shared library.
type ONNXEmbedder struct {
	session    *ort.AdvancedSession
	tokenizer  Tokenizer
	dimensions int
	maxTokens  int
	pooling    string
	// Pre-allocated tensors for Run(); we update input data and read output.
	inputIDsTensor      *ort.Tensor[int64]
	attentionMaskTensor *ort.Tensor[int64]
	tokenTypeIDsTensor  *ort.Tensor[int64]
	outputTensor        *ort.Tensor[float32]
	mu                  sync.Mutex
}

// NewONNXEmbedder creates an ONNX embedder. InitializeEnvironment is called if not already done.
func NewONNXEmbedder(opts ONNXOptions, tokenizer Tokenizer) (*ONNXEmbedder, error) {
	opts = opts.withDefaults()
	if tokenizer == nil {
		tokenizer = &SimpleTokenizer{}
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("failed to initialize ONNX runtime: %w", err)
		}
	}

	e := &ONNXEmbedder{
		tokenizer:  tokenizer,
		dimensions: opts.Dimensions,
		maxTokens:  opts.MaxTokens,
		pooling:    opts.Pooling,
	}
	inputShape := ort.NewShape(1, int64(opts.MaxTokens))
	var err error
	if e.inputIDsTensor, err = ort.NewEmptyTensor[int64](inputShape); err != nil {
		return nil, fmt.Errorf("failed to create input_ids tensor: %w", err)
	}
	if e.attentionMaskTensor, err = ort.NewEmptyTensor[int64](inputShape); err != nil {
		_ = e.Close()
		return nil, fmt.Errorf("failed to create attention_mask tensor: %w", err)
	}
	if e.tokenTypeIDsTensor, err = ort.NewEmptyTensor[int64](inputShape); err != nil {
		_ = e.Close()
		return nil, fmt.Errorf("failed to create token_type_ids tensor: %w", err)
	}
	outputShape := ort.NewShape(1, int64(opts.Dimensions))
	if opts.Pooling != PoolingNone {
		outputShape = ort.NewShape(1, int64(opts.MaxTokens), int64(opts.Dimensions))
	}
	if e.outputTensor, err = ort.NewEmptyTensor[float32](outputShape); err != nil {
		_ = e.Close()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	inputs := []ort.ArbitraryTensor{e.inputIDsTensor, e.attentionMaskTensor, e.tokenTypeIDsTensor}
	outputs := []ort.ArbitraryTensor{e.outputTensor}
	e.session, err = ort.NewAdvancedSession(
		opts.ModelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{opts.OutputName},
		inputs,
		outputs,
		nil,
	)
	if err != nil {
		_ = e.Close()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}
	return e, nil
}

// Tokenize runs the configured tokenizer.
func (e *ONNXEmbedder) Tokenize(ctx context.Context, text string) (*Tokens, time.Duration, error) {
	return tokenize(ctx, e.tokenizer, text, e.maxTokens)
}

// Embed runs the model on tokens and pools the output to one vector.
func (e *ONNXEmbedder) Embed(ctx context.Context, tokens *Tokens) ([]float32, time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	if tokens == nil {
		return nil, 0, fmt.Errorf("%w: nil tokens", ErrInference)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil, 0, fmt.Errorf("%w: embedder is closed", ErrInference)
	}

	start := time.Now()
	fill(e.inputIDsTensor.GetData(), tokens.InputIDs)
	fill(e.attentionMaskTensor.GetData(), tokens.AttentionMask)
	fill(e.tokenTypeIDsTensor.GetData(), tokens.TokenTypeIDs)

	if err := e.session.Run(); err != nil {
		return nil, time.Since(start), fmt.Errorf("%w: %v", ErrInference, err)
	}
	vec, err := pool(e.pooling, e.outputTensor.GetData(), e.attentionMaskTensor.GetData(), e.maxTokens, e.dimensions)
	if err != nil {
		return nil, time.Since(start), fmt.Errorf("%w: %v", ErrInference, err)
	}
	return vec, time.Since(start), nil
}

// fill copies src into dst and zeroes whatever src does not cover.
func fill(dst, src []int64) {
	n := copy(dst, src)
	for i := n; i < len(dst); i++ {
		dst[i] = 0
	}
}

// Dimensions returns the embedding dimension.
func (e *ONNXEmbedder) Dimensions() int {
	return e.dimensions
}

// Close destroys the session and tensors.
func (e *ONNXEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var err error
	if e.session != nil {
		err = e.session.Destroy()
		e.session = nil
	}
	if e.inputIDsTensor != nil {
		_ = e.inputIDsTensor.Destroy()
		e.inputIDsTensor = nil
	}
	if e.attentionMaskTensor != nil {
		_ = e.attentionMaskTensor.Destroy()
		e.attentionMaskTensor = nil
	}
	if e.tokenTypeIDsTensor != nil {
		_ = e.tokenTypeIDsTensor.Destroy()
		e.tokenTypeIDsTensor = nil
	}
	if e.outputTensor != nil {
		_ = e.outputTensor.Destroy()
		e.outputTensor = nil
	}
	return err
}
