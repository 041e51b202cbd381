package expreplay

import (
	"fmt"

	"golang.org/x/exp/rand"

	"github.com/rlkit/valuerl/timestep"
)

// uniform implements a FIFO replay buffer sampled uniformly at random
type uniform struct {
	transitions []timestep.Transition
	insertAt    int
	full        bool

	minCapacity int
	maxCapacity int
	batchSize   int
	featureSize int

	rng *rand.Rand
}

// newUniform returns a new uniform replay buffer
func newUniform(minCapacity, maxCapacity, batchSize,
	featureSize int, seed uint64) *uniform {
	return &uniform{
		transitions: make([]timestep.Transition, maxCapacity),
		minCapacity: minCapacity,
		maxCapacity: maxCapacity,
		batchSize:   batchSize,
		featureSize: featureSize,
		rng:         rand.New(rand.NewSource(seed)),
	}
}

// Add adds a transition to the buffer, evicting the oldest transition
// once the buffer is full
func (u *uniform) Add(t timestep.Transition) error {
	if t.State.Len() != u.featureSize || t.NextState.Len() != u.featureSize {
		return fmt.Errorf("add: invalid feature size "+
			"\n\twant(%v)\n\thave(%v)", u.featureSize, t.State.Len())
	}

	u.transitions[u.insertAt] = t
	u.insertAt++
	if u.insertAt >= u.maxCapacity {
		u.insertAt = 0
		u.full = true
	}
	return nil
}

// Sample samples a batch of transitions uniformly at random with
// replacement
func (u *uniform) Sample() (timestep.Batch, error) {
	if u.Len() == 0 {
		return timestep.Batch{}, &ExpReplayError{
			Op:  "sample",
			Err: errEmptyBuffer,
		}
	}
	if u.Len() < u.minCapacity {
		return timestep.Batch{}, &ExpReplayError{
			Op:  "sample",
			Err: errInsufficientSamples,
		}
	}

	sampled := make([]timestep.Transition, u.batchSize)
	for i := range sampled {
		sampled[i] = u.transitions[u.rng.Intn(u.Len())]
	}
	return timestep.StackTransitions(sampled), nil
}

// UpdatePriorities is a no-op for uniform replay
func (u *uniform) UpdatePriorities([]int, []float64) error {
	return nil
}

// Len returns the current number of transitions in the buffer
func (u *uniform) Len() int {
	if u.full {
		return u.maxCapacity
	}
	return u.insertAt
}

// MaxCapacity returns the maximum number of transitions the buffer
// holds
func (u *uniform) MaxCapacity() int {
	return u.maxCapacity
}

// MinCapacity returns the number of transitions required before the
// buffer can be sampled
func (u *uniform) MinCapacity() int {
	return u.minCapacity
}

// BatchSize returns the number of transitions returned by Sample
func (u *uniform) BatchSize() int {
	return u.batchSize
}
