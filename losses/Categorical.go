package losses

import (
	"fmt"
	"math"

	"gorgonia.org/tensor"

	"github.com/rlkit/valuerl/network"
	"github.com/rlkit/valuerl/timestep"
	"github.com/rlkit/valuerl/utils/floatutils"
)

// Categorical implements the C51 cross-entropy loss. Both networks
// must be categorical networks producing per-action probability
// distributions over the same fixed support. The target distribution
// is the target network's next-state distribution shifted by the
// n-step return and projected back onto the support.
type Categorical struct {
	gammaN float64
}

// NewCategorical returns a new categorical loss engine for n-step
// transitions aggregated with discount gamma
func NewCategorical(gamma float64, n int) (*Categorical, error) {
	if gamma < 0 || gamma > 1 {
		return nil, fmt.Errorf("newcategorical: gamma must be in [0, 1] "+
			"\n\thave(%v)", gamma)
	}
	if n < 1 {
		return nil, fmt.Errorf("newcategorical: n must be >= 1 "+
			"\n\thave(%v)", n)
	}

	return &Categorical{gammaN: math.Pow(gamma, float64(n))}, nil
}

// Compute returns the per-sample cross-entropy between the projected
// target distribution and the live network's distribution at the taken
// action, together with the gradient of each per-sample loss with
// respect to the live network's (batch, actions, atoms) probabilities
func (c *Categorical) Compute(live, target network.NeuralNet,
	batch timestep.Batch) ([]float64, *tensor.Dense, error) {
	liveNet, ok := live.(network.CategoricalNet)
	if !ok {
		return nil, nil, fmt.Errorf("compute: live network is not a "+
			"categorical network \n\thave(%T)", live)
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
	atoms := liveNet.Atoms()
	support := liveNet.Support()

	curData := cur.Data().([]float64)
	nextData := next.Data().([]float64)

	perSample := make([]float64, size)
	gradData := make([]float64, size*actions*atoms)

	for i := 0; i < size; i++ {
		// Select the bootstrap action by expected value under the
		// target network's distribution
		bestAction := 0
		bestValue := math.Inf(-1)
		for a := 0; a < actions; a++ {
			ev := 0.0
			for j := 0; j < atoms; j++ {
				ev += nextData[(i*actions+a)*atoms+j] * support[j]
			}
			if ev > bestValue {
				bestValue = ev
				bestAction = a
			}
		}

		nextOffset := (i*actions + bestAction) * atoms
		proj := project(nextData[nextOffset:nextOffset+atoms],
			batch.Rewards[i], (1.0-batch.Dones[i])*c.gammaN, liveNet)

		// Cross-entropy against the live distribution at the taken
		// action
		curOffset := (i*actions + batch.Actions[i]) * atoms
		loss := 0.0
		for j := 0; j < atoms; j++ {
			p := curData[curOffset+j]
			loss -= proj[j] * math.Log(p)
			gradData[curOffset+j] = -proj[j] / p
		}
		perSample[i] = loss
	}

	if err := checkFinite("compute", perSample); err != nil {
		return nil, nil, err
	}

	grad := tensor.New(tensor.WithShape(size, actions, atoms),
		tensor.WithBacking(gradData))
	return perSample, grad, nil
}

// project maps a next-state distribution, shifted by the transition's
// reward and scaled discount, back onto the network's fixed support.
// Each shifted atom value is clamped to [vMin, vMax] and its
// probability mass split between the two neighboring support bins
// proportionally to distance. When the shifted value lands exactly on
// a bin, the whole mass goes to that bin once. The result sums to the
// same total mass as the input distribution.
func project(nextDist []float64, reward, scale float64,
	net network.CategoricalNet) []float64 {
	atoms := net.Atoms()
	vMin := net.VMin()
	vMax := net.VMax()
	deltaZ := net.DeltaZ()
	support := net.Support()

	proj := make([]float64, atoms)
	for j := 0; j < atoms; j++ {
		tz := floatutils.Clip(reward+scale*support[j], vMin, vMax)

		// Rounding in (tz - vMin) / deltaZ can push b a hair past the
		// last bin when tz sits at vMax, so clamp to the bin range
		b := floatutils.Clip((tz-vMin)/deltaZ, 0, float64(atoms-1))
		l := math.Floor(b)
		u := math.Ceil(b)

		lo := int(l)
		hi := int(u)
		if lo == hi {
			proj[lo] += nextDist[j]
			continue
		}

		proj[lo] += nextDist[j] * (u - b)
		proj[hi] += nextDist[j] * (b - l)
	}
	return proj
}
