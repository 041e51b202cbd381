package losses

import (
	"fmt"
	"math"

	"gorgonia.org/tensor"

	"github.com/rlkit/valuerl/network"
	"github.com/rlkit/valuerl/timestep"
)

// QuantileRegression implements the quantile Huber loss of QR-DQN.
// Both networks must be quantile networks producing a
// (batch, actions, quantiles) output. The bootstrap selects the next
// action by the mean of the target network's quantile distribution.
type QuantileRegression struct {
	gammaN float64
}

// NewQuantileRegression returns a new quantile regression loss engine
// for n-step transitions aggregated with discount gamma
func NewQuantileRegression(gamma float64, n int) (*QuantileRegression,
	error) {
	if gamma < 0 || gamma > 1 {
		return nil, fmt.Errorf("newquantileregression: gamma must be in "+
			"[0, 1] \n\thave(%v)", gamma)
	}
	if n < 1 {
		return nil, fmt.Errorf("newquantileregression: n must be >= 1 "+
			"\n\thave(%v)", n)
	}

	return &QuantileRegression{gammaN: math.Pow(gamma, float64(n))}, nil
}

// Compute returns the per-sample quantile Huber loss, averaged over
// quantiles, together with the gradient of each per-sample loss with
// respect to the live network's (batch, actions, quantiles) output
func (q *QuantileRegression) Compute(live, target network.NeuralNet,
	batch timestep.Batch) ([]float64, *tensor.Dense, error) {
	liveNet, ok := live.(network.QuantileNet)
	if !ok {
		return nil, nil, fmt.Errorf("compute: live network is not a "+
			"quantile network \n\thave(%T)", live)
	}

	cur, err := live.Forward(batch.States)
	if err != nil {
		return nil, nil, fmt.Errorf("compute: could not evaluate live "+
			"network: %v", err)
	}
	next, err := target.Forward(batch.NextStates)
	if err != nil {
		return nil, nil, fmt.Errorf("compute: could not evaluate target "+
			"network: %v", err)
	}

	size := batch.Size()
	actions := live.Outputs()
	quantiles := liveNet.Atoms()
	taus := liveNet.Taus()

	curData := cur.Data().([]float64)
	nextData := next.Data().([]float64)

	perSample := make([]float64, size)
	gradData := make([]float64, size*actions*quantiles)

	for i := 0; i < size; i++ {
		// Select the bootstrap action by quantile mean
		bestAction := 0
		bestMean := math.Inf(-1)
		for a := 0; a < actions; a++ {
			sum := 0.0
			for k := 0; k < quantiles; k++ {
				sum += nextData[(i*actions+a)*quantiles+k]
			}
			if mean := sum / float64(quantiles); mean > bestMean {
				bestMean = mean
				bestAction = a
			}
		}

		scale := (1.0 - batch.Dones[i]) * q.gammaN
		curOffset := (i*actions + batch.Actions[i]) * quantiles
		nextOffset := (i*actions + bestAction) * quantiles

		total := 0.0
		for k := 0; k < quantiles; k++ {
			targetQ := batch.Rewards[i] + scale*nextData[nextOffset+k]
			dist := targetQ - curData[curOffset+k]

			loss, deriv := huber(dist)
			weight := taus[k]
			if dist < 0 {
				weight = math.Abs(weight - 1.0)
			}

			total += weight * loss
			// dLoss/dCurrent flips sign since dist = target - current
			gradData[curOffset+k] = -weight * deriv / float64(quantiles)
		}
		perSample[i] = total / float64(quantiles)
	}

	if err := checkFinite("compute", perSample); err != nil {
		return nil, nil, err
	}

	grad := tensor.New(tensor.WithShape(size, actions, quantiles),
		tensor.WithBacking(gradData))
	return perSample, grad, nil
}
