// Package environment outlines the interfaces and structs needed to
// implement concrete environments with discrete action spaces
package environment

import (
	"gonum.org/v1/gonum/mat"
	"github.com/rlkit/valuerl/timestep"
)

// Starter implements a distribution of starting states and samples
// starting states for environments
type Starter interface {
	Start() mat.Vector
}

// Ender determines when an episode ends. If the argument timestep ends
// the episode, End modifies its StepType field to timestep.Last and
// returns true.
type Ender interface {
	End(*timestep.TimeStep) bool
}

// Task implements the reward scheme for taking actions in some
// environment together with the starting state distribution and the
// episode termination rule
type Task interface {
	Starter
	Ender
	GetReward(state mat.Vector, action int, nextState mat.Vector) float64
}

// Environment implements a simulated environment, which includes a
// Task to complete. Environments own exactly one episode at a time:
// Reset starts a new episode and Step advances the current one. The
// boolean returned by Step indicates episode termination.
type Environment interface {
	Task
	Reset() timestep.TimeStep
	Step(action int) (timestep.TimeStep, bool)
	ObservationSpec() Spec
	ActionSpec() Spec
}
