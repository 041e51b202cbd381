package deepq

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"

	"github.com/rlkit/valuerl/network"
	"github.com/rlkit/valuerl/utils/floatutils"
)

// EpsGreedy implements an epsilon greedy exploration policy over a
// value network. With probability epsilon a uniformly random action is
// taken, otherwise the action with the highest value. Epsilon decays
// linearly to a floor, one step per network update.
type EpsGreedy struct {
	net     network.NeuralNet
	actions int

	epsilon    float64
	minEpsilon float64
	decay      float64

	rng *rand.Rand
}

// NewEpsGreedy returns a new epsilon greedy policy over the given
// network. Each call to DecayEpsilon lowers epsilon by decay until
// minEpsilon is reached.
func NewEpsGreedy(net network.NeuralNet, epsilon, minEpsilon,
	decay float64, seed uint64) (*EpsGreedy, error) {
	if epsilon < 0 || epsilon > 1 {
		return nil, fmt.Errorf("newepsgreedy: epsilon must be in [0, 1] "+
			"\n\thave(%v)", epsilon)
	}
	if minEpsilon < 0 || minEpsilon > epsilon {
		return nil, fmt.Errorf("newepsgreedy: invalid epsilon floor "+
			"\n\twant(in [0, %v])\n\thave(%v)", epsilon, minEpsilon)
	}

	return &EpsGreedy{
		net:        net,
		actions:    net.Outputs(),
		epsilon:    epsilon,
		minEpsilon: minEpsilon,
		decay:      decay,
		rng:        rand.New(rand.NewSource(seed)),
	}, nil
}

// NewGreedy returns a policy that always takes the highest valued
// action, for evaluation rollouts
func NewGreedy(net network.NeuralNet, seed uint64) (*EpsGreedy, error) {
	return NewEpsGreedy(net, 0.0, 0.0, 0.0, seed)
}

// SelectAction chooses an action for the given observation
func (e *EpsGreedy) SelectAction(obs mat.Vector) (int, error) {
	if e.epsilon > 0 && e.rng.Float64() < e.epsilon {
		return e.rng.Intn(e.actions), nil
	}

	raw := make([]float64, obs.Len())
	for i := range raw {
		raw[i] = obs.AtVec(i)
	}

	values, err := e.net.ActionValues(raw)
	if err != nil {
		return 0, fmt.Errorf("selectaction: could not evaluate "+
			"network: %v", err)
	}
	return floatutils.ArgMax(values), nil
}

// DecayEpsilon lowers the exploration rate one step toward its floor
func (e *EpsGreedy) DecayEpsilon() {
	e.epsilon -= e.decay
	if e.epsilon < e.minEpsilon {
		e.epsilon = e.minEpsilon
	}
}

// Epsilon returns the current exploration rate
func (e *EpsGreedy) Epsilon() float64 {
	return e.epsilon
}
