// Package expreplay implements experience replay buffers for value
// based learners: a uniform FIFO buffer and a proportional prioritized
// buffer, together with the n-step transition window that feeds them.
package expreplay

import (
	"fmt"

	"github.com/rlkit/valuerl/timestep"
)

// Buffer implements an experience replay buffer over n-step
// transitions
type Buffer interface {
	// Add adds a transition to the buffer, evicting the oldest
	// transition when the buffer is at maximum capacity
	Add(t timestep.Transition) error

	// Sample samples a batch of transitions from the buffer
	Sample() (timestep.Batch, error)

	// UpdatePriorities writes new priorities back for the buffer
	// positions of the last sampled batch. Uniform buffers ignore the
	// call.
	UpdatePriorities(indices []int, priorities []float64) error

	// Len returns the current number of transitions in the buffer
	Len() int

	// MaxCapacity returns the maximum number of transitions the
	// buffer holds
	MaxCapacity() int

	// MinCapacity returns the number of transitions required before
	// the buffer can be sampled
	MinCapacity() int

	// BatchSize returns the number of transitions returned by Sample
	BatchSize() int
}

// Type describes the different types of replay buffers that are
// available
type Type string

// Available replay buffer types
const (
	Uniform     Type = "Uniform"
	Prioritized Type = "Prioritized"
)

// Config implements a specific configuration of a replay Buffer
type Config struct {
	Type              Type
	MaxReplayCapacity int
	MinReplayCapacity int
	BatchSize         int

	// Prioritized replay only
	Alpha         float64 // Priority exponent
	Beta          float64 // Initial importance-sampling exponent
	BetaAnnealing int     // Samples over which Beta reaches 1
}

// Create creates and returns the Buffer described by the Config
func (c Config) Create(featureSize int, seed uint64) (Buffer, error) {
	if c.MinReplayCapacity <= 0 {
		return nil, fmt.Errorf("create: minimum capacity must be > 0")
	}
	if c.MaxReplayCapacity < c.MinReplayCapacity {
		return nil, fmt.Errorf("create: invalid maximum capacity "+
			"\n\twant(>= %v)\n\thave(%v)", c.MinReplayCapacity,
			c.MaxReplayCapacity)
	}
	if c.BatchSize <= 0 || c.BatchSize > c.MaxReplayCapacity {
		return nil, fmt.Errorf("create: cannot have batch size (%v) > max "+
			"buffer capacity (%v)", c.BatchSize, c.MaxReplayCapacity)
	}

	switch c.Type {
	case Uniform:
		return newUniform(c.MinReplayCapacity, c.MaxReplayCapacity,
			c.BatchSize, featureSize, seed), nil

	case Prioritized:
		if c.Alpha < 0 {
			return nil, fmt.Errorf("create: priority exponent must be "+
				">= 0 \n\thave(%v)", c.Alpha)
		}
		if c.Beta <= 0 || c.Beta > 1 {
			return nil, fmt.Errorf("create: importance sampling exponent "+
				"must be in (0, 1] \n\thave(%v)", c.Beta)
		}
		return newPrioritized(c.MinReplayCapacity, c.MaxReplayCapacity,
			c.BatchSize, featureSize, c.Alpha, c.Beta, c.BetaAnnealing,
			seed), nil
	}

	return nil, fmt.Errorf("create: no such replay buffer type: %v", c.Type)
}
