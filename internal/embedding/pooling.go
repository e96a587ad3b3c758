package embedding

import "fmt"

// Pooling strategies for models that emit one vector per token.
const (
	PoolingNone = "none"
	PoolingMean = "mean"
	PoolingCLS  = "cls"
)

// pool reduces a model output to one vector of length hidden. For PoolingNone the
// output is already [hidden]; otherwise it is [seqLen, hidden].
func pool(strategy string, output []float32, mask []int64, seqLen, hidden int) ([]float32, error) {
	switch strategy {
	case PoolingNone, "":
		if len(output) < hidden {
			return nil, fmt.Errorf("unexpected output size: got %d, expected %d", len(output), hidden)
		}
		out := make([]float32, hidden)
		copy(out, output[:hidden])
		return out, nil
	case PoolingMean:
		if len(output) < seqLen*hidden {
			return nil, fmt.Errorf("unexpected output size: got %d, expected %d", len(output), seqLen*hidden)
		}
		return meanPool(output, mask, seqLen, hidden), nil
	case PoolingCLS:
		if len(output) < hidden {
			return nil, fmt.Errorf("unexpected output size: got %d, expected %d", len(output), hidden)
		}
		out := make([]float32, hidden)
		copy(out, output[:hidden])
		return out, nil
	default:
		return nil, fmt.Errorf("unknown pooling strategy: %s", strategy)
	}
}

// meanPool averages token vectors weighted by the attention mask.
func meanPool(output []float32, mask []int64, seqLen, hidden int) []float32 {
	out := make([]float32, hidden)
	var maskSum float32
	for s := 0; s < seqLen && s < len(mask); s++ {
		m := float32(mask[s])
		if m == 0 {
			continue
		}
		maskSum += m
		row := output[s*hidden : (s+1)*hidden]
		for h, v := range row {
			out[h] += v * m
		}
	}
	if maskSum > 0 {
		for h := range out {
			out[h] /= maskSum
		}
	}
	return out
}
