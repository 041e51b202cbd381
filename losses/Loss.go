// Package losses implements the interchangeable loss engines of the
// value-based learners: a scalar double-Q Huber loss, a quantile
// regression loss, and a categorical cross-entropy loss with
// distribution projection onto a fixed support.
//
// Each engine computes an unreduced per-sample loss together with the
// gradient of each per-sample loss with respect to the live network's
// output. The caller owns the reduction: it scales the gradient rows
// by any importance-sampling weights and by the inverse batch size
// before backpropagating. The bootstrap branch only ever runs the
// target network forward, so no gradient flows into the target
// network.
package losses

import (
	"fmt"

	"gorgonia.org/tensor"

	"github.com/rlkit/valuerl/network"
	"github.com/rlkit/valuerl/timestep"
	"github.com/rlkit/valuerl/utils/floatutils"
)

// Loss computes the per-sample training loss of a batch of transitions
type Loss interface {
	// Compute evaluates the live network on the batch's states and the
	// target network on its next states, returning one non-negative
	// loss per sample and the gradient of each per-sample loss with
	// respect to the live network's output. The returned gradient is
	// unweighted and unreduced; a non-finite loss is returned as an
	// error.
	Compute(live, target network.NeuralNet,
		batch timestep.Batch) ([]float64, *tensor.Dense, error)
}

// huber returns the smooth L1 loss of a residual with unit transition
// point, together with its derivative
func huber(x float64) (loss, deriv float64) {
	if x < -1.0 {
		return -x - 0.5, -1.0
	}
	if x > 1.0 {
		return x - 0.5, 1.0
	}
	return 0.5 * x * x, x
}

// checkFinite returns an error when any per-sample loss is NaN or Inf
func checkFinite(op string, perSample []float64) error {
	if !floatutils.AllFinite(perSample) {
		return fmt.Errorf("%v: non-finite loss \n\thave(%v)", op, perSample)
	}
	return nil
}
