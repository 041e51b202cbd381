package network

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// mlp implements the multi-layered perceptron trunk shared by every
// network head. The raw head produces (batch, rawOutputs) values; the
// concrete heads reshape and post-process that output.
type mlp struct {
	layers     []*fcLayer
	features   int
	rawOutputs int

	hiddenSizes []int
	biases      []bool
	activations []*Activation
}

// newMLP creates an MLP with len(hiddenSizes) hidden layers and a
// final linear layer of rawOutputs units. For index i, hiddenSizes[i]
// is the number of units in hidden layer i, biases[i] is whether that
// layer has a bias unit, and activations[i] is its activation. The
// final layer always has a bias and no activation.
func newMLP(features, rawOutputs int, hiddenSizes []int, biases []bool,
	activations []*Activation, init G.InitWFn) (*mlp, error) {
	if len(hiddenSizes) != len(activations) {
		return nil, fmt.Errorf("newmlp: invalid number of activations"+
			"\n\twant(%v)\n\thave(%v)", len(hiddenSizes), len(activations))
	}
	if len(hiddenSizes) != len(biases) {
		return nil, fmt.Errorf("newmlp: invalid number of biases"+
			"\n\twant(%v)\n\thave(%v)", len(hiddenSizes), len(biases))
	}
	if features <= 0 || rawOutputs <= 0 {
		return nil, fmt.Errorf("newmlp: features and outputs must be "+
			"positive \n\thave(%v, %v)", features, rawOutputs)
	}

	sizes := append([]int{}, hiddenSizes...)
	sizes = append(sizes, rawOutputs)
	layerBiases := append([]bool{}, biases...)
	layerBiases = append(layerBiases, true)
	layerActivations := append([]*Activation{}, activations...)
	layerActivations = append(layerActivations, Identity())

	layers := make([]*fcLayer, len(sizes))
	in := features
	for i, out := range sizes {
		layers[i] = newFCLayer(in, out, layerBiases[i],
			layerActivations[i], init)
		in = out
	}

	return &mlp{
		layers:      layers,
		features:    features,
		rawOutputs:  rawOutputs,
		hiddenSizes: hiddenSizes,
		biases:      biases,
		activations: activations,
	}, nil
}

// forward runs the trunk on a (batch, features) tensor and returns the
// raw (batch, rawOutputs) head output
func (m *mlp) forward(states *tensor.Dense) (*mat.Dense, error) {
	shape := states.Shape()
	if len(shape) != 2 || shape[1] != m.features {
		return nil, fmt.Errorf("forward: invalid state batch shape "+
			"\n\twant(batch, %v)\n\thave(%v)", m.features, shape)
	}
	batch := shape[0]

	out := mat.NewDense(batch, m.features, states.Data().([]float64))
	var err error
	for i, layer := range m.layers {
		if out, err = layer.fwd(out); err != nil {
			return nil, fmt.Errorf("forward: layer %v: %v", i, err)
		}
	}
	return out, nil
}

// backward backpropagates the gradient of a scalar loss with respect
// to the raw head output, accumulating parameter gradients
func (m *mlp) backward(gradOut *mat.Dense) error {
	grad := gradOut
	var err error
	for i := len(m.layers) - 1; i >= 0; i-- {
		if grad, err = m.layers[i].bwd(grad); err != nil {
			return fmt.Errorf("backward: layer %v: %v", i, err)
		}
	}
	return nil
}

// zeroGrad clears all accumulated parameter gradients
func (m *mlp) zeroGrad() {
	for _, layer := range m.layers {
		layer.zeroGrad()
	}
}

// parameters returns the ordered learnable tensors: weights then bias
// per layer, first layer first
func (m *mlp) parameters() []*tensor.Dense {
	params := make([]*tensor.Dense, 0, 2*len(m.layers))
	for _, layer := range m.layers {
		params = append(params, layer.weights)
		if layer.bias != nil {
			params = append(params, layer.bias)
		}
	}
	return params
}

// gradients returns gradient tensors ordered and aligned with
// parameters()
func (m *mlp) gradients() []*tensor.Dense {
	grads := make([]*tensor.Dense, 0, 2*len(m.layers))
	for _, layer := range m.layers {
		grads = append(grads, layer.gradW)
		if layer.gradB != nil {
			grads = append(grads, layer.gradB)
		}
	}
	return grads
}

// model returns the parameter-gradient pairs consumed by gorgonia
// solvers
func (m *mlp) model() []G.ValueGrad {
	params := m.parameters()
	grads := m.gradients()
	model := make([]G.ValueGrad, len(params))
	for i := range params {
		model[i] = valueGrad{value: params[i], grad: grads[i]}
	}
	return model
}

// clone returns a deep copy of the trunk whose parameter storage does
// not alias the receiver's
func (m *mlp) clone() (*mlp, error) {
	copied, err := newMLP(m.features, m.rawOutputs, m.hiddenSizes,
		m.biases, m.activations, G.Zeroes())
	if err != nil {
		return nil, fmt.Errorf("clone: could not construct copy: %v", err)
	}

	dst := copied.parameters()
	for i, src := range m.parameters() {
		copy(dst[i].Data().([]float64), src.Data().([]float64))
	}
	return copied, nil
}
