package expreplay

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"

	"github.com/rlkit/valuerl/timestep"
)

// priorityEpsilon keeps every priority strictly positive so that no
// transition is starved of sampling
const priorityEpsilon = 1e-6

// prioritized implements proportional prioritized experience replay.
// Transitions are sampled with probability proportional to
// priority^alpha and corrected with importance-sampling weights whose
// exponent beta is annealed toward 1 over the configured number of
// sample calls.
type prioritized struct {
	transitions []timestep.Transition
	tree        *sumTree
	insertAt    int
	full        bool

	minCapacity int
	maxCapacity int
	batchSize   int
	featureSize int

	alpha       float64
	beta        float64
	betaStep    float64
	maxPriority float64

	rng *rand.Rand
}

// newPrioritized returns a new prioritized replay buffer. The
// importance-sampling exponent starts at beta and reaches 1 after
// betaAnnealing calls to Sample; betaAnnealing <= 0 keeps beta fixed.
func newPrioritized(minCapacity, maxCapacity, batchSize, featureSize int,
	alpha, beta float64, betaAnnealing int, seed uint64) *prioritized {
	betaStep := 0.0
	if betaAnnealing > 0 {
		betaStep = (1.0 - beta) / float64(betaAnnealing)
	}

	return &prioritized{
		transitions: make([]timestep.Transition, maxCapacity),
		tree:        newSumTree(maxCapacity),
		minCapacity: minCapacity,
		maxCapacity: maxCapacity,
		batchSize:   batchSize,
		featureSize: featureSize,
		alpha:       alpha,
		beta:        beta,
		betaStep:    betaStep,
		maxPriority: 1.0,
		rng:         rand.New(rand.NewSource(seed)),
	}
}

// Add adds a transition at the maximum priority seen so far, so that
// every transition is sampled at least once before its priority is
// adjusted
func (p *prioritized) Add(t timestep.Transition) error {
	if t.State.Len() != p.featureSize || t.NextState.Len() != p.featureSize {
		return fmt.Errorf("add: invalid feature size "+
			"\n\twant(%v)\n\thave(%v)", p.featureSize, t.State.Len())
	}

	p.transitions[p.insertAt] = t
	p.tree.set(p.insertAt, math.Pow(p.maxPriority, p.alpha))

	p.insertAt++
	if p.insertAt >= p.maxCapacity {
		p.insertAt = 0
		p.full = true
	}
	return nil
}

// Sample draws a stratified batch proportional to priority and returns
// it together with buffer positions and normalized importance-sampling
// weights
func (p *prioritized) Sample() (timestep.Batch, error) {
	if p.Len() == 0 {
		return timestep.Batch{}, &ExpReplayError{
			Op:  "sample",
			Err: errEmptyBuffer,
		}
	}
	if p.Len() < p.minCapacity {
		return timestep.Batch{}, &ExpReplayError{
			Op:  "sample",
			Err: errInsufficientSamples,
		}
	}

	// Stratified sampling: one draw per equal slice of the total mass
	indices := make([]int, p.batchSize)
	segment := p.tree.total() / float64(p.batchSize)
	for i := range indices {
		prefix := (float64(i) + p.rng.Float64()) * segment
		index := p.tree.find(prefix)
		if index >= p.Len() {
			index = p.Len() - 1
		}
		indices[i] = index
	}

	sampled := make([]timestep.Transition, p.batchSize)
	for i, index := range indices {
		sampled[i] = p.transitions[index]
	}

	weights := p.weights(indices)
	p.annealBeta()

	batch := timestep.StackTransitions(sampled)
	batch.Indices = indices
	batch.Weights = weights
	return batch, nil
}

// weights computes the importance-sampling corrections
// (N * P(i))^-beta for the sampled indices, normalized by the largest
// weight in the batch
func (p *prioritized) weights(indices []int) []float64 {
	n := float64(p.Len())
	total := p.tree.total()

	weights := make([]float64, len(indices))
	maxWeight := 0.0
	for i, index := range indices {
		prob := p.tree.get(index) / total
		weights[i] = math.Pow(n*prob, -p.beta)
		if weights[i] > maxWeight {
			maxWeight = weights[i]
		}
	}

	for i := range weights {
		weights[i] /= maxWeight
	}
	return weights
}

// annealBeta moves the importance-sampling exponent one step toward 1
func (p *prioritized) annealBeta() {
	p.beta += p.betaStep
	if p.beta > 1.0 {
		p.beta = 1.0
	}
}

// UpdatePriorities writes new priorities back for the given buffer
// positions. Priorities must be non-negative; a small epsilon keeps
// every transition sampleable.
func (p *prioritized) UpdatePriorities(indices []int,
	priorities []float64) error {
	if len(indices) != len(priorities) {
		return fmt.Errorf("updatepriorities: misaligned priorities "+
			"\n\twant(%v)\n\thave(%v)", len(indices), len(priorities))
	}

	for i, index := range indices {
		if index < 0 || index >= p.Len() {
			return fmt.Errorf("updatepriorities: index out of range "+
				"\n\twant(< %v)\n\thave(%v)", p.Len(), index)
		}
		if priorities[i] < 0 || math.IsNaN(priorities[i]) {
			return fmt.Errorf("updatepriorities: invalid priority "+
				"\n\thave(%v)", priorities[i])
		}

		priority := priorities[i] + priorityEpsilon
		p.tree.set(index, math.Pow(priority, p.alpha))
		if priority > p.maxPriority {
			p.maxPriority = priority
		}
	}
	return nil
}

// Len returns the current number of transitions in the buffer
func (p *prioritized) Len() int {
	if p.full {
		return p.maxCapacity
	}
	return p.insertAt
}

// MaxCapacity returns the maximum number of transitions the buffer
// holds
func (p *prioritized) MaxCapacity() int {
	return p.maxCapacity
}

// MinCapacity returns the number of transitions required before the
// buffer can be sampled
func (p *prioritized) MinCapacity() int {
	return p.minCapacity
}

// BatchSize returns the number of transitions returned by Sample
func (p *prioritized) BatchSize() int {
	return p.batchSize
}

// Beta returns the current importance-sampling exponent
func (p *prioritized) Beta() float64 {
	return p.beta
}
