package network

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// QuantileMLP implements a multi-layered perceptron predicting a fixed
// set of quantiles of the return distribution per discrete action.
// Forward returns a (batch, actions, quantiles) tensor whose last axis
// holds the quantile estimates at the fractions returned by Taus.
type QuantileMLP struct {
	*mlp
	actions   int
	quantiles int
	taus      []float64
}

// NewQuantileMLP creates and returns a new QuantileMLP with the given
// number of quantiles per action. The quantile fractions are fixed at
// the distribution midpoints (2k+1)/(2K) for k = 0, ..., K-1.
func NewQuantileMLP(features, actions, quantiles int, hiddenSizes []int,
	biases []bool, activations []*Activation,
	init G.InitWFn) (*QuantileMLP, error) {
	if actions < 1 {
		return nil, fmt.Errorf("newquantilemlp: must have at least one "+
			"action \n\thave(%v)", actions)
	}
	if quantiles < 1 {
		return nil, fmt.Errorf("newquantilemlp: must have at least one "+
			"quantile \n\thave(%v)", quantiles)
	}

	trunk, err := newMLP(features, actions*quantiles, hiddenSizes, biases,
		activations, init)
	if err != nil {
		return nil, fmt.Errorf("newquantilemlp: %v", err)
	}

	taus := make([]float64, quantiles)
	for k := range taus {
		taus[k] = (2.0*float64(k) + 1.0) / (2.0 * float64(quantiles))
	}

	return &QuantileMLP{
		mlp:       trunk,
		actions:   actions,
		quantiles: quantiles,
		taus:      taus,
	}, nil
}

// Forward predicts the per-action quantile distributions of a batch of
// states, returning a (batch, actions, quantiles) tensor
func (q *QuantileMLP) Forward(states *tensor.Dense) (*tensor.Dense, error) {
	out, err := q.forward(states)
	if err != nil {
		return nil, err
	}

	batch, _ := out.Dims()
	return tensor.New(tensor.WithShape(batch, q.actions, q.quantiles),
		tensor.WithBacking(out.RawMatrix().Data)), nil
}

// Backward accumulates parameter gradients from the gradient of a
// scalar loss with respect to the last Forward's output
func (q *QuantileMLP) Backward(gradOut *tensor.Dense) error {
	shape := gradOut.Shape()
	if len(shape) != 3 || shape[1] != q.actions || shape[2] != q.quantiles {
		return fmt.Errorf("backward: invalid gradient shape "+
			"\n\twant(batch, %v, %v)\n\thave(%v)", q.actions, q.quantiles,
			shape)
	}

	grad := mat.NewDense(shape[0], q.actions*q.quantiles,
		gradOut.Data().([]float64))
	return q.backward(grad)
}

// ZeroGrad clears the accumulated parameter gradients
func (q *QuantileMLP) ZeroGrad() { q.zeroGrad() }

// Features returns the observation length the network consumes
func (q *QuantileMLP) Features() int { return q.features }

// Outputs returns the number of discrete actions
func (q *QuantileMLP) Outputs() int { return q.actions }

// Atoms returns the number of quantiles per action
func (q *QuantileMLP) Atoms() int { return q.quantiles }

// Taus returns the fixed quantile fractions, monotonically increasing
// in (0, 1)
func (q *QuantileMLP) Taus() []float64 { return q.taus }

// Parameters returns the ordered learnable tensors
func (q *QuantileMLP) Parameters() []*tensor.Dense { return q.parameters() }

// Gradients returns gradient tensors aligned with Parameters
func (q *QuantileMLP) Gradients() []*tensor.Dense { return q.gradients() }

// Model returns the parameter-gradient pairs consumed by a gorgonia
// solver
func (q *QuantileMLP) Model() []G.ValueGrad { return q.model() }

// ActionValues returns the quantile mean per action for a single
// observation
func (q *QuantileMLP) ActionValues(obs []float64) ([]float64, error) {
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

	data := out.Data().([]float64)
	values := make([]float64, q.actions)
	for a := 0; a < q.actions; a++ {
		sum := 0.0
		for k := 0; k < q.quantiles; k++ {
			sum += data[a*q.quantiles+k]
		}
		values[a] = sum / float64(q.quantiles)
	}
	return values, nil
}

// Clone returns an independent deep copy of the network
func (q *QuantileMLP) Clone() (NeuralNet, error) {
	trunk, err := q.clone()
	if err != nil {
		return nil, err
	}

	taus := make([]float64, len(q.taus))
	copy(taus, q.taus)
	return &QuantileMLP{
		mlp:       trunk,
		actions:   q.actions,
		quantiles: q.quantiles,
		taus:      taus,
	}, nil
}
