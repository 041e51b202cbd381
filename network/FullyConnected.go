package network

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// fcLayer implements one fully connected layer. Parameters and their
// gradients are stored as tensors so that gorgonia solvers can step
// them; the matrix algebra runs through gonum views over the same
// backing slices.
type fcLayer struct {
	weights *tensor.Dense // (in, out)
	bias    *tensor.Dense // (out), nil if the layer has no bias
	gradW   *tensor.Dense
	gradB   *tensor.Dense
	act     *Activation

	in  int
	out int

	// Caches from the last forward pass, consumed by backward
	input  *mat.Dense // (batch, in)
	preAct *mat.Dense // (batch, out)
}

// newFCLayer creates a fully connected layer with in inputs and out
// outputs. Weights are drawn from init; the bias, when present, starts
// at zero.
func newFCLayer(in, out int, withBias bool, act *Activation,
	init G.InitWFn) *fcLayer {
	backing := init(tensor.Float64, in, out).([]float64)
	weights := tensor.New(tensor.WithShape(in, out),
		tensor.WithBacking(backing))
	gradW := tensor.New(tensor.WithShape(in, out),
		tensor.WithBacking(make([]float64, in*out)))

	var bias, gradB *tensor.Dense
	if withBias {
		bias = tensor.New(tensor.WithShape(out),
			tensor.WithBacking(make([]float64, out)))
		gradB = tensor.New(tensor.WithShape(out),
			tensor.WithBacking(make([]float64, out)))
	}

	return &fcLayer{
		weights: weights,
		bias:    bias,
		gradW:   gradW,
		gradB:   gradB,
		act:     act,
		in:      in,
		out:     out,
	}
}

// weightsView returns a gonum view sharing the weights' backing slice
func (f *fcLayer) weightsView() *mat.Dense {
	return mat.NewDense(f.in, f.out, f.weights.Data().([]float64))
}

// fwd computes the layer's activation on a (batch, in) input, caching
// what backward needs
func (f *fcLayer) fwd(input *mat.Dense) (*mat.Dense, error) {
	batch, in := input.Dims()
	if in != f.in {
		return nil, fmt.Errorf("fwd: invalid input features "+
			"\n\twant(%v)\n\thave(%v)", f.in, in)
	}

	preAct := mat.NewDense(batch, f.out, nil)
	preAct.Mul(input, f.weightsView())

	if f.bias != nil {
		biasData := f.bias.Data().([]float64)
		for i := 0; i < batch; i++ {
			row := preAct.RawRowView(i)
			for j := range row {
				row[j] += biasData[j]
			}
		}
	}

	out := mat.NewDense(batch, f.out, nil)
	for i := 0; i < batch; i++ {
		src := preAct.RawRowView(i)
		dst := out.RawRowView(i)
		for j := range src {
			dst[j] = f.act.apply(src[j])
		}
	}

	f.input = input
	f.preAct = preAct
	return out, nil
}

// bwd accumulates parameter gradients given the gradient of the loss
// with respect to the layer's output, returning the gradient with
// respect to the layer's input
func (f *fcLayer) bwd(gradOut *mat.Dense) (*mat.Dense, error) {
	if f.input == nil {
		return nil, fmt.Errorf("bwd: no cached forward pass")
	}

	batch, out := gradOut.Dims()
	if out != f.out {
		return nil, fmt.Errorf("bwd: invalid gradient shape "+
			"\n\twant(%v)\n\thave(%v)", f.out, out)
	}

	// Gradient through the activation
	gradZ := mat.NewDense(batch, f.out, nil)
	for i := 0; i < batch; i++ {
		g := gradOut.RawRowView(i)
		z := f.preAct.RawRowView(i)
		dst := gradZ.RawRowView(i)
		for j := range g {
			dst[j] = g[j] * f.act.deriv(z[j])
		}
	}

	// Accumulate parameter gradients
	gradW := mat.NewDense(f.in, f.out, f.gradW.Data().([]float64))
	update := mat.NewDense(f.in, f.out, nil)
	update.Mul(f.input.T(), gradZ)
	gradW.Add(gradW, update)

	if f.gradB != nil {
		gradB := f.gradB.Data().([]float64)
		for i := 0; i < batch; i++ {
			row := gradZ.RawRowView(i)
			for j := range row {
				gradB[j] += row[j]
			}
		}
	}

	// Gradient with respect to the layer input
	gradIn := mat.NewDense(batch, f.in, nil)
	gradIn.Mul(gradZ, f.weightsView().T())
	return gradIn, nil
}

// zeroGrad clears the accumulated parameter gradients
func (f *fcLayer) zeroGrad() {
	zero(f.gradW.Data().([]float64))
	if f.gradB != nil {
		zero(f.gradB.Data().([]float64))
	}
}

func zero(data []float64) {
	for i := range data {
		data[i] = 0
	}
}
