package network

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// QMLP implements a multi-layered perceptron predicting one scalar
// action value per discrete action. Forward returns a (batch, actions)
// tensor.
type QMLP struct {
	*mlp
	actions int
}

// NewQMLP creates and returns a new QMLP for observations of length
// features over a discrete action space of the given size
func NewQMLP(features, actions int, hiddenSizes []int, biases []bool,
	activations []*Activation, init G.InitWFn) (*QMLP, error) {
	if actions < 1 {
		return nil, fmt.Errorf("newqmlp: must have at least one action"+
			"\n\thave(%v)", actions)
	}

	trunk, err := newMLP(features, actions, hiddenSizes, biases,
		activations, init)
	if err != nil {
		return nil, fmt.Errorf("newqmlp: %v", err)
	}

	return &QMLP{mlp: trunk, actions: actions}, nil
}

// Forward predicts the action values of a (batch, features) batch of
// states, returning a (batch, actions) tensor
func (q *QMLP) Forward(states *tensor.Dense) (*tensor.Dense, error) {
	out, err := q.forward(states)
	if err != nil {
		return nil, err
	}

	batch, _ := out.Dims()
	return tensor.New(tensor.WithShape(batch, q.actions),
		tensor.WithBacking(out.RawMatrix().Data)), nil
}

// Backward accumulates parameter gradients from the gradient of a
// scalar loss with respect to the last Forward's output
func (q *QMLP) Backward(gradOut *tensor.Dense) error {
	shape := gradOut.Shape()
	if len(shape) != 2 || shape[1] != q.actions {
		return fmt.Errorf("backward: invalid gradient shape "+
			"\n\twant(batch, %v)\n\thave(%v)", q.actions, shape)
	}

	grad := mat.NewDense(shape[0], shape[1], gradOut.Data().([]float64))
	return q.backward(grad)
}

// ZeroGrad clears the accumulated parameter gradients
func (q *QMLP) ZeroGrad() { q.zeroGrad() }

// Features returns the observation length the network consumes
func (q *QMLP) Features() int { return q.features }

// Outputs returns the number of discrete actions
func (q *QMLP) Outputs() int { return q.actions }

// Parameters returns the ordered learnable tensors
func (q *QMLP) Parameters() []*tensor.Dense { return q.parameters() }

// Gradients returns gradient tensors aligned with Parameters
func (q *QMLP) Gradients() []*tensor.Dense { return q.gradients() }

// Model returns the parameter-gradient pairs consumed by a gorgonia
// solver
func (q *QMLP) Model() []G.ValueGrad { return q.model() }

// ActionValues returns the predicted action values of a single
// observation
func (q *QMLP) ActionValues(obs []float64) ([]float64, error) {
	if len(obs) != q.features {
		return nil, fmt.Errorf("actionvalues: invalid observation length"+
			"\n\twant(%v)\n\thave(%v)", q.features, len(obs))
	}

	states := tensor.New(tensor.WithShape(1, q.features),
		tensor.WithBacking(obs))
	out, err := q.Forward(states)
	if err != nil {
		return nil, err
	}

	values := make([]float64, q.actions)
	copy(values, out.Data().([]float64))
	return values, nil
}

// Clone returns an independent deep copy of the network
func (q *QMLP) Clone() (NeuralNet, error) {
	trunk, err := q.clone()
	if err != nil {
		return nil, err
	}
	return &QMLP{mlp: trunk, actions: q.actions}, nil
}
