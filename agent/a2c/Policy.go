package a2c

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/rlkit/valuerl/network"
	"github.com/rlkit/valuerl/utils/floatutils"
)

// Softmax implements the stochastic policy of the actor network.
// During training actions are sampled from the network's action
// distribution; in greedy mode the most probable action is taken.
type Softmax struct {
	actor  network.NeuralNet
	greedy bool
	rng    rand.Source
}

// NewSoftmax returns a policy sampling actions from the actor's
// distribution
func NewSoftmax(actor network.NeuralNet, seed uint64) *Softmax {
	return &Softmax{
		actor: actor,
		rng:   rand.NewSource(seed),
	}
}

// NewGreedySoftmax returns a policy taking the actor's most probable
// action, for evaluation rollouts
func NewGreedySoftmax(actor network.NeuralNet, seed uint64) *Softmax {
	return &Softmax{
		actor:  actor,
		greedy: true,
		rng:    rand.NewSource(seed),
	}
}

// SelectAction chooses an action for the given observation
func (s *Softmax) SelectAction(obs mat.Vector) (int, error) {
	raw := make([]float64, obs.Len())
	for i := range raw {
		raw[i] = obs.AtVec(i)
	}

	probs, err := s.actor.ActionValues(raw)
	if err != nil {
		return 0, fmt.Errorf("selectaction: could not evaluate actor: %v",
			err)
	}

	if s.greedy {
		return floatutils.ArgMax(probs), nil
	}

	dist := distuv.NewCategorical(probs, s.rng)
	return int(dist.Rand()), nil
}
