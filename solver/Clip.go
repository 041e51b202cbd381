package solver

import (
	"fmt"
	"math"

	"gorgonia.org/tensor"
)

// ClipGradNorm rescales the given gradient tensors in place so that
// their joint L2 norm does not exceed maxNorm. Gradients whose joint
// norm is already within the bound are left untouched. A maxNorm <= 0
// disables clipping. The pre-clip norm is returned.
func ClipGradNorm(grads []*tensor.Dense, maxNorm float64) (float64, error) {
	sumSq := 0.0
	for i, grad := range grads {
		data, ok := grad.Data().([]float64)
		if !ok {
			return 0, fmt.Errorf("clipgradnorm: gradient %v is not float64 "+
				"backed", i)
		}
		for _, g := range data {
			sumSq += g * g
		}
	}
	norm := math.Sqrt(sumSq)

	if maxNorm <= 0 || norm <= maxNorm {
		return norm, nil
	}

	scale := maxNorm / norm
	for _, grad := range grads {
		data := grad.Data().([]float64)
		for i := range data {
			data[i] *= scale
		}
	}
	return norm, nil
}
