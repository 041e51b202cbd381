// Package network implements the neural value networks consumed by
// the learners, together with the target-network synchronization
// utilities.
//
// Networks are eager: Forward caches the activations it needs so that
// a following Backward can compute parameter gradients analytically
// from the gradient of a loss with respect to the network output. The
// target branch of every loss calls Forward only, so no gradient ever
// flows back through a target network.
package network

import (
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// NeuralNet is a value network over a discrete action space.
//
// Forward consumes a row-major (batch, features) tensor and returns
// the network head's output: (batch, actions) for scalar Q networks
// and (batch, actions, atoms) for distributional networks. Backward
// consumes the gradient of a scalar loss with respect to that output,
// shaped identically, and accumulates parameter gradients.
//
// Parameters and Gradients return ordered, aligned lists; two networks
// constructed from the same configuration have parameter lists that
// align index by index.
type NeuralNet interface {
	Forward(states *tensor.Dense) (*tensor.Dense, error)
	Backward(gradOut *tensor.Dense) error
	ZeroGrad()

	// Features returns the observation length the network consumes
	Features() int

	// Outputs returns the number of discrete actions the network
	// predicts values for
	Outputs() int

	Parameters() []*tensor.Dense
	Gradients() []*tensor.Dense

	// Model returns the parameter-gradient pairs consumed by a
	// gorgonia solver
	Model() []G.ValueGrad

	// ActionValues returns one scalar action value per action for a
	// single observation: the raw head for scalar Q networks, the
	// quantile mean for quantile networks, and the expected value of
	// the distribution for categorical networks.
	ActionValues(obs []float64) ([]float64, error)

	// Clone returns an independent deep copy whose parameter storage
	// never aliases the receiver's
	Clone() (NeuralNet, error)
}

// Distributional is a NeuralNet whose head predicts a distribution of
// Atoms() values per action
type Distributional interface {
	NeuralNet
	Atoms() int
}

// QuantileNet is a Distributional network whose atoms are quantiles at
// the fixed, monotonically increasing fractions Taus() in (0, 1)
type QuantileNet interface {
	Distributional
	Taus() []float64
}

// CategoricalNet is a Distributional network whose atoms are
// probabilities over the fixed support returned by Support(). The
// support is uniformly spaced: Support()[0] == VMin(),
// Support()[Atoms()-1] == VMax(), and neighbors differ by DeltaZ().
// Probabilities are strictly positive by construction.
type CategoricalNet interface {
	Distributional
	Support() []float64
	VMin() float64
	VMax() float64
	DeltaZ() float64
}

// valueGrad adapts a parameter tensor and its gradient tensor to the
// gorgonia solver contract
type valueGrad struct {
	value *tensor.Dense
	grad  *tensor.Dense
}

func (v valueGrad) Value() G.Value {
	return v.value
}

func (v valueGrad) Grad() (G.Value, error) {
	return v.grad, nil
}
