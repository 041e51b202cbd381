package network

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// CategoricalMLP implements a multi-layered perceptron predicting a
// categorical probability distribution over a fixed support of atom
// values per discrete action. Forward returns a
// (batch, actions, atoms) tensor of probabilities. Each per-action
// distribution is normalized with a shifted softmax, so probabilities
// are strictly positive and sum to 1 along the atom axis.
type CategoricalMLP struct {
	*mlp
	actions int
	atoms   int
	vMin    float64
	vMax    float64
	deltaZ  float64
	support []float64

	// Probabilities of the last forward pass; backward needs them to
	// push gradients through the softmax
	lastProbs []float64
}

// NewCategoricalMLP creates and returns a new CategoricalMLP whose
// support holds atoms values uniformly spaced over [vMin, vMax]
func NewCategoricalMLP(features, actions, atoms int, vMin, vMax float64,
	hiddenSizes []int, biases []bool, activations []*Activation,
	init G.InitWFn) (*CategoricalMLP, error) {
	if actions < 1 {
		return nil, fmt.Errorf("newcategoricalmlp: must have at least one "+
			"action \n\thave(%v)", actions)
	}
	if atoms < 2 {
		return nil, fmt.Errorf("newcategoricalmlp: must have at least two "+
			"support atoms \n\thave(%v)", atoms)
	}
	if vMax <= vMin {
		return nil, fmt.Errorf("newcategoricalmlp: invalid support bounds "+
			"\n\twant(vMin < vMax)\n\thave(%v, %v)", vMin, vMax)
	}

	trunk, err := newMLP(features, actions*atoms, hiddenSizes, biases,
		activations, init)
	if err != nil {
		return nil, fmt.Errorf("newcategoricalmlp: %v", err)
	}

	deltaZ := (vMax - vMin) / float64(atoms-1)
	support := make([]float64, atoms)
	for i := range support {
		support[i] = vMin + float64(i)*deltaZ
	}
	support[atoms-1] = vMax

	return &CategoricalMLP{
		mlp:     trunk,
		actions: actions,
		atoms:   atoms,
		vMin:    vMin,
		vMax:    vMax,
		deltaZ:  deltaZ,
		support: support,
	}, nil
}

// Forward predicts the per-action distributions of a batch of states,
// returning a (batch, actions, atoms) tensor of probabilities
func (c *CategoricalMLP) Forward(states *tensor.Dense) (*tensor.Dense,
	error) {
	out, err := c.forward(states)
	if err != nil {
		return nil, err
	}

	batch, _ := out.Dims()
	logits := out.RawMatrix().Data
	probs := make([]float64, len(logits))

	// Softmax over the atom axis, one distribution per (sample, action)
	for group := 0; group < batch*c.actions; group++ {
		start := group * c.atoms
		end := start + c.atoms

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

	c.lastProbs = probs
	return tensor.New(tensor.WithShape(batch, c.actions, c.atoms),
		tensor.WithBacking(probs)), nil
}

// Backward accumulates parameter gradients from the gradient of a
// scalar loss with respect to the probabilities returned by the last
// Forward. The softmax Jacobian is applied here, so callers
// differentiate with respect to probabilities, not logits.
func (c *CategoricalMLP) Backward(gradOut *tensor.Dense) error {
	shape := gradOut.Shape()
	if len(shape) != 3 || shape[1] != c.actions || shape[2] != c.atoms {
		return fmt.Errorf("backward: invalid gradient shape "+
			"\n\twant(batch, %v, %v)\n\thave(%v)", c.actions, c.atoms, shape)
	}
	if c.lastProbs == nil {
		return fmt.Errorf("backward: no cached forward pass")
	}

	batch := shape[0]
	gradProbs := gradOut.Data().([]float64)
	if len(gradProbs) != len(c.lastProbs) {
		return fmt.Errorf("backward: gradient does not match last forward "+
			"pass \n\twant(%v values)\n\thave(%v)", len(c.lastProbs),
			len(gradProbs))
	}

	gradLogits := make([]float64, len(gradProbs))
	for group := 0; group < batch*c.actions; group++ {
		start := group * c.atoms
		end := start + c.atoms

		dot := 0.0
		for i := start; i < end; i++ {
			dot += gradProbs[i] * c.lastProbs[i]
		}
		for i := start; i < end; i++ {
			gradLogits[i] = c.lastProbs[i] * (gradProbs[i] - dot)
		}
	}

	grad := mat.NewDense(batch, c.actions*c.atoms, gradLogits)
	return c.backward(grad)
}

// ZeroGrad clears the accumulated parameter gradients
func (c *CategoricalMLP) ZeroGrad() { c.zeroGrad() }

// Features returns the observation length the network consumes
func (c *CategoricalMLP) Features() int { return c.features }

// Outputs returns the number of discrete actions
func (c *CategoricalMLP) Outputs() int { return c.actions }

// Atoms returns the number of support atoms per action
func (c *CategoricalMLP) Atoms() int { return c.atoms }

// Support returns the fixed, uniformly spaced support values
func (c *CategoricalMLP) Support() []float64 { return c.support }

// VMin returns the smallest support value
func (c *CategoricalMLP) VMin() float64 { return c.vMin }

// VMax returns the largest support value
func (c *CategoricalMLP) VMax() float64 { return c.vMax }

// DeltaZ returns the spacing between neighboring support values
func (c *CategoricalMLP) DeltaZ() float64 { return c.deltaZ }

// Parameters returns the ordered learnable tensors
func (c *CategoricalMLP) Parameters() []*tensor.Dense { return c.parameters() }

// Gradients returns gradient tensors aligned with Parameters
func (c *CategoricalMLP) Gradients() []*tensor.Dense { return c.gradients() }

// Model returns the parameter-gradient pairs consumed by a gorgonia
// solver
func (c *CategoricalMLP) Model() []G.ValueGrad { return c.model() }

// ActionValues returns the expected value of each action's
// distribution for a single observation
func (c *CategoricalMLP) ActionValues(obs []float64) ([]float64, error) {
	if len(obs) != c.features {
		return nil, fmt.Errorf("actionvalues: invalid observation length"+
			"\n\twant(%v)\n\thave(%v)", c.features, len(obs))
	}

	states := tensor.New(tensor.WithShape(1, c.features),
		tensor.WithBacking(obs))
	out, err := c.Forward(states)
	if err != nil {
		return nil, err
	}

	data := out.Data().([]float64)
	values := make([]float64, c.actions)
	for a := 0; a < c.actions; a++ {
		ev := 0.0
		for i := 0; i < c.atoms; i++ {
			ev += data[a*c.atoms+i] * c.support[i]
		}
		values[a] = ev
	}
	return values, nil
}

// Clone returns an independent deep copy of the network
func (c *CategoricalMLP) Clone() (NeuralNet, error) {
	trunk, err := c.clone()
	if err != nil {
		return nil, err
	}

	support := make([]float64, len(c.support))
	copy(support, c.support)
	return &CategoricalMLP{
		mlp:     trunk,
		actions: c.actions,
		atoms:   c.atoms,
		vMin:    c.vMin,
		vMax:    c.vMax,
		deltaZ:  c.deltaZ,
		support: support,
	}, nil
}
