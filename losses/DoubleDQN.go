package losses

import (
	"fmt"
	"math"

	"gorgonia.org/tensor"

	"github.com/rlkit/valuerl/network"
	"github.com/rlkit/valuerl/timestep"
)

// DoubleDQN implements the scalar double-Q Huber loss. The bootstrap
// selects and evaluates the next action with the target network, the
// plain double-Q-learning target. Canonical double DQN would select
// the action with the live network instead; that variant is not what
// this engine computes.
type DoubleDQN struct {
	gammaN float64 // Effective discount gamma^n of the n-step return
}

// NewDoubleDQN returns a new double-Q loss engine for n-step
// transitions aggregated with discount gamma
func NewDoubleDQN(gamma float64, n int) (*DoubleDQN, error) {
	if gamma < 0 || gamma > 1 {
		return nil, fmt.Errorf("newdoubledqn: gamma must be in [0, 1] "+
			"\n\thave(%v)", gamma)
	}
	if n < 1 {
		return nil, fmt.Errorf("newdoubledqn: n must be >= 1 \n\thave(%v)", n)
	}

	return &DoubleDQN{gammaN: math.Pow(gamma, float64(n))}, nil
}

// Compute returns the per-sample Huber loss between the live network's
// value at the taken action and the bootstrapped target, together with
// the gradient of each per-sample loss with respect to the live
// network's (batch, actions) output
func (d *DoubleDQN) Compute(live, target network.NeuralNet,
	batch timestep.Batch) ([]float64, *tensor.Dense, error) {
	q, err := live.Forward(batch.States)
	if err != nil {
		return nil, nil, fmt.Errorf("compute: could not evaluate live "+
			"network: %v", err)
	}
	nextQ, err := target.Forward(batch.NextStates)
	if err != nil {
		return nil, nil, fmt.Errorf("compute: could not evaluate target "+
			"network: %v", err)
	}

	size := batch.Size()
	actions := live.Outputs()
	qData := q.Data().([]float64)
	nextData := nextQ.Data().([]float64)

	perSample := make([]float64, size)
	gradData := make([]float64, size*actions)

	for i := 0; i < size; i++ {
		// Bootstrap from the target network's own best action
		best := math.Inf(-1)
		for a := 0; a < actions; a++ {
			if v := nextData[i*actions+a]; v > best {
				best = v
			}
		}

		targetQ := batch.Rewards[i] +
			(1.0-batch.Dones[i])*d.gammaN*best
		current := qData[i*actions+batch.Actions[i]]

		loss, deriv := huber(current - targetQ)
		perSample[i] = loss
		gradData[i*actions+batch.Actions[i]] = deriv
	}

	if err := checkFinite("compute", perSample); err != nil {
		return nil, nil, err
	}

	grad := tensor.New(tensor.WithShape(size, actions),
		tensor.WithBacking(gradData))
	return perSample, grad, nil
}
