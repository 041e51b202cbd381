package losses

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"gonum.org/v1/gonum/floats"
)

// catStub returns a categorical stub network over support {-1, 0, 1}
func catStub(out []float64) *stubNet {
	return &stubNet{
		features: 1,
		actions:  1,
		atoms:    3,
		support:  []float64{-1.0, 0.0, 1.0},
		out:      out,
	}
}

func TestProjectPreservesMass(t *testing.T) {
	net := catStub(nil)
	dist := []float64{0.3, 0.3, 0.4}

	cases := []struct {
		name   string
		reward float64
		scale  float64
	}{
		{"mid-bin shift", 0.5, 0.0},
		{"identity", 0.0, 1.0},
		{"clamped above", 10.0, 1.0},
		{"clamped below", -10.0, 0.5},
		{"fractional scale", 0.25, 0.9},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			proj := project(dist, c.reward, c.scale, net)
			require.InDelta(t, floats.Sum(dist), floats.Sum(proj), 1e-12)
			for _, p := range proj {
				require.GreaterOrEqual(t, p, 0.0)
			}
		})
	}
}

func TestProjectExactGridAlignment(t *testing.T) {
	net := catStub(nil)

	// A terminal shift of reward 0 lands every atom exactly on the
	// middle bin. The whole mass must arrive there once, not twice.
	proj := project([]float64{0.3, 0.3, 0.4}, 0.0, 0.0, net)
	require.InDelta(t, 0.0, proj[0], 1e-12)
	require.InDelta(t, 1.0, proj[1], 1e-12)
	require.InDelta(t, 0.0, proj[2], 1e-12)

	// An identity shift keeps every atom on its own bin
	dist := []float64{0.2, 0.5, 0.3}
	proj = project(dist, 0.0, 1.0, net)
	for i := range dist {
		require.InDelta(t, dist[i], proj[i], 1e-12)
	}
}

func TestProjectClampsAtSupportEdges(t *testing.T) {
	// Over a [-10, -9] support with 50 atoms, (vMax - vMin) / deltaZ
	// lands a hair above 49 in floating point, so a shift clamped to
	// vMax must not index past the last bin
	atoms := 50
	vMin, vMax := -10.0, -9.0
	support := make([]float64, atoms)
	for j := range support {
		support[j] = vMin + float64(j)*(vMax-vMin)/float64(atoms-1)
	}
	support[atoms-1] = vMax
	net := &stubNet{features: 1, actions: 1, atoms: atoms, support: support}

	dist := make([]float64, atoms)
	for j := range dist {
		dist[j] = 1.0 / float64(atoms)
	}

	// A terminal reward far above the support clamps every atom to vMax
	proj := project(dist, 100.0, 0.0, net)
	require.InDelta(t, 1.0, proj[atoms-1], 1e-12)
	require.InDelta(t, 1.0, floats.Sum(proj), 1e-12)

	// And one far below clamps every atom to vMin
	proj = project(dist, -100.0, 0.0, net)
	require.InDelta(t, 1.0, proj[0], 1e-12)
}

func TestProjectSplitsMassProportionally(t *testing.T) {
	net := catStub(nil)

	// All mass on the middle atom, shifted by 0.25: b = 1.25, so 75%
	// of the mass stays on bin 1 and 25% moves to bin 2
	proj := project([]float64{0.0, 1.0, 0.0}, 0.25, 1.0, net)
	require.InDelta(t, 0.0, proj[0], 1e-12)
	require.InDelta(t, 0.75, proj[1], 1e-12)
	require.InDelta(t, 0.25, proj[2], 1e-12)
}

func TestCategoricalCrossEntropy(t *testing.T) {
	loss, err := NewCategorical(0.9, 1)
	require.NoError(t, err)

	// A uniform live distribution has cross-entropy log(atoms) against
	// any projected target, since the projection sums to 1
	third := 1.0 / 3.0
	live := catStub([]float64{third, third, third})
	target := catStub([]float64{0.1, 0.6, 0.3})

	perSample, grad, err := loss.Compute(live, target,
		singleBatch(1, 0, 0.3, 0.0))
	require.NoError(t, err)
	require.InDelta(t, math.Log(3.0), perSample[0], 1e-12)

	// The gradient with respect to the probabilities is -proj/p at
	// the taken action, so it must sum to -atoms for a uniform live
	// distribution
	require.InDelta(t, -3.0, floats.Sum(grad.Data().([]float64)), 1e-12)
}

func TestCategoricalLossNonNegative(t *testing.T) {
	loss, err := NewCategorical(0.99, 3)
	require.NoError(t, err)

	live := catStub([]float64{0.2, 0.5, 0.3})
	target := catStub([]float64{0.6, 0.2, 0.2})

	perSample, _, err := loss.Compute(live, target,
		singleBatch(1, 0, -0.7, 0.0))
	require.NoError(t, err)
	require.GreaterOrEqual(t, perSample[0], 0.0)
}
