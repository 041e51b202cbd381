package network

import (
	"fmt"
	"math"
)

// Activation represents an elementwise activation function together
// with its derivative. The zero value is not valid; use the
// constructor functions. Activations marshal to JSON by name so that
// network configurations round-trip through configuration files.
type Activation struct {
	Type string
}

// ReLU returns a rectified linear unit activation
func ReLU() *Activation {
	return &Activation{Type: "ReLU"}
}

// Tanh returns a hyperbolic tangent activation
func Tanh() *Activation {
	return &Activation{Type: "Tanh"}
}

// Identity returns the identity activation
func Identity() *Activation {
	return &Activation{Type: "Identity"}
}

// apply computes the activation of a single pre-activation value
func (a *Activation) apply(z float64) float64 {
	switch a.Type {
	case "ReLU":
		if z < 0 {
			return 0
		}
		return z
	case "Tanh":
		return math.Tanh(z)
	case "Identity":
		return z
	}
	panic(fmt.Sprintf("apply: unknown activation %q", a.Type))
}

// deriv computes the derivative of the activation with respect to its
// pre-activation input
func (a *Activation) deriv(z float64) float64 {
	switch a.Type {
	case "ReLU":
		if z < 0 {
			return 0
		}
		return 1
	case "Tanh":
		t := math.Tanh(z)
		return 1 - t*t
	case "Identity":
		return 1
	}
	panic(fmt.Sprintf("deriv: unknown activation %q", a.Type))
}
