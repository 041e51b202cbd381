// Package agent defines the contracts shared by all training agents:
// the Learner, which updates network weights from sampled batches, and
// the Policy, which chooses actions.
package agent

import (
	"gonum.org/v1/gonum/mat"

	"github.com/rlkit/valuerl/timestep"
)

// Agent runs a complete training loop against an environment
type Agent interface {
	// Train interacts with the environment until the configured
	// number of episodes has finished, updating networks as it goes.
	// Unrecoverable conditions such as a non-finite loss abort the
	// run.
	Train() error
}

// Learner updates network weights from sampled batches of transitions
type Learner interface {
	// UpdateModel performs one gradient update on the batch. The
	// update either fully completes or fails with an error leaving
	// parameters unstepped.
	UpdateModel(batch timestep.Batch) (Update, error)

	// GetPolicy returns a greedy policy over an independent deep copy
	// of the live network, so that evaluation never aliases the
	// network still being trained
	GetPolicy() (Policy, error)

	// SaveParams persists the live network's parameters under the
	// given name
	SaveParams(name string) error
}

// Update reports the outcome of a single Learner update
type Update struct {
	// Loss is the batch mean loss
	Loss float64

	// Indices and Priorities hold the buffer positions of the batch
	// and their freshly computed per-sample priorities, for write-back
	// into a prioritized replay buffer. Both are nil when the batch
	// was not drawn from a prioritized buffer.
	Indices    []int
	Priorities []float64
}

// Policy chooses actions from environment observations
type Policy interface {
	SelectAction(obs mat.Vector) (int, error)
}

// ExplorationPolicy is a Policy whose exploration rate decays over the
// course of training
type ExplorationPolicy interface {
	Policy

	// DecayEpsilon moves the exploration rate one step toward its
	// floor. Called once per network update, not once per environment
	// step.
	DecayEpsilon()

	// Epsilon returns the current exploration rate
	Epsilon() float64
}
