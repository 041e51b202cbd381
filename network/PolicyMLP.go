package network

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// PolicyMLP implements a multi-layered perceptron predicting a softmax
// policy over a discrete action space. Forward returns a
// (batch, actions) tensor of strictly positive action probabilities
// summing to 1 per row.
type PolicyMLP struct {
	*mlp
	actions int

	// Probabilities of the last forward pass; backward needs them to
	// push gradients through the softmax
	lastProbs []float64
}

// NewPolicyMLP creates and returns a new PolicyMLP
func NewPolicyMLP(features, actions int, hiddenSizes []int, biases []bool,
	activations []*Activation, init G.InitWFn) (*PolicyMLP, error) {
	if actions < 1 {
		return nil, fmt.Errorf("newpolicymlp: must have at least one "+
			"action \n\thave(%v)", actions)
	}

	trunk, err := newMLP(features, actions, hiddenSizes, biases,
		activations, init)
	if err != nil {
		return nil, fmt.Errorf("newpolicymlp: %v", err)
	}

	return &PolicyMLP{mlp: trunk, actions: actions}, nil
}

// Forward predicts the action probabilities of a batch of states,
// returning a (batch, actions) tensor
func (p *PolicyMLP) Forward(states *tensor.Dense) (*tensor.Dense, error) {
	out, err := p.forward(states)
	if err != nil {
		return nil, err
	}

	batch, _ := out.Dims()
	logits := out.RawMatrix().Data
	probs := make([]float64, len(logits))

	for row := 0; row < batch; row++ {
		start := row * p.actions
		end := start + p.actions

		max := math.Inf(-1)
		for _, l := range logits[start:end] {
			if l > max {
				max = l
			}
		}

		sum := 0.0
		for i := start; i < end; i++ {
			probs[i] = math.Exp(logits[i] - max)
			sum += probs[i]
		}
		for i := start; i < end; i++ {
			probs[i] /= sum
		}
	}

	p.lastProbs = probs
	return tensor.New(tensor.WithShape(batch, p.actions),
		tensor.WithBacking(probs)), nil
}

// Backward accumulates parameter gradients from the gradient of a
// scalar loss with respect to the probabilities returned by the last
// Forward. The softmax Jacobian is applied here, so callers
// differentiate with respect to probabilities, not logits.
func (p *PolicyMLP) Backward(gradOut *tensor.Dense) error {
	shape := gradOut.Shape()
	if len(shape) != 2 || shape[1] != p.actions {
		return fmt.Errorf("backward: invalid gradient shape "+
			"\n\twant(batch, %v)\n\thave(%v)", p.actions, shape)
	}
	if p.lastProbs == nil {
		return fmt.Errorf("backward: no cached forward pass")
	}

	batch := shape[0]
	gradProbs := gradOut.Data().([]float64)
	if len(gradProbs) != len(p.lastProbs) {
		return fmt.Errorf("backward: gradient does not match last forward "+
			"pass \n\twant(%v values)\n\thave(%v)", len(p.lastProbs),
			len(gradProbs))
	}

	gradLogits := make([]float64, len(gradProbs))
	for row := 0; row < batch; row++ {
		start := row * p.actions
		end := start + p.actions

		dot := 0.0
		for i := start; i < end; i++ {
			dot += gradProbs[i] * p.lastProbs[i]
		}
		for i := start; i < end; i++ {
			gradLogits[i] = p.lastProbs[i] * (gradProbs[i] - dot)
		}
	}

	grad := mat.NewDense(batch, p.actions, gradLogits)
	return p.backward(grad)
}

// ZeroGrad clears the accumulated parameter gradients
func (p *PolicyMLP) ZeroGrad() { p.zeroGrad() }

// Features returns the observation length the network consumes
func (p *PolicyMLP) Features() int { return p.features }

// Outputs returns the number of discrete actions
func (p *PolicyMLP) Outputs() int { return p.actions }

// Parameters returns the ordered learnable tensors
func (p *PolicyMLP) Parameters() []*tensor.Dense { return p.parameters() }

// Gradients returns gradient tensors aligned with Parameters
func (p *PolicyMLP) Gradients() []*tensor.Dense { return p.gradients() }

// Model returns the parameter-gradient pairs consumed by a gorgonia
// solver
func (p *PolicyMLP) Model() []G.ValueGrad { return p.model() }

// ActionValues returns the action probabilities of a single
// observation
func (p *PolicyMLP) ActionValues(obs []float64) ([]float64, error) {
	if len(obs) != p.features {
		return nil, fmt.Errorf("actionvalues: invalid observation length"+
			"\n\twant(%v)\n\thave(%v)", p.features, len(obs))
	}

	states := tensor.New(tensor.WithShape(1, p.features),
		tensor.WithBacking(obs))
	out, err := p.Forward(states)
	if err != nil {
		return nil, err
	}

	probs := make([]float64, p.actions)
	copy(probs, out.Data().([]float64))
	return probs, nil
}

// Clone returns an independent deep copy of the network
func (p *PolicyMLP) Clone() (NeuralNet, error) {
	trunk, err := p.clone()
	if err != nil {
		return nil, err
	}
	return &PolicyMLP{mlp: trunk, actions: p.actions}, nil
}
