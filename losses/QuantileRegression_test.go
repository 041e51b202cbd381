package losses

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQuantileRegressionNonNegative(t *testing.T) {
	loss, err := NewQuantileRegression(0.9, 1)
	require.NoError(t, err)

	taus := []float64{0.25, 0.75}
	live := &stubNet{
		features: 1, actions: 2, atoms: 2, taus: taus,
		out: []float64{-1.5, 2.0, 0.3, 4.0},
	}
	target := &stubNet{
		features: 1, actions: 2, atoms: 2, taus: taus,
		out: []float64{1.0, -2.0, 0.5, 0.5},
	}

	perSample, _, err := loss.Compute(live, target,
		singleBatch(1, 0, 1.0, 0.0))
	require.NoError(t, err)
	for _, l := range perSample {
		require.GreaterOrEqual(t, l, 0.0)
	}
}

func TestQuantileRegressionQuadraticRegion(t *testing.T) {
	loss, err := NewQuantileRegression(1.0, 1)
	require.NoError(t, err)

	// One action, one quantile at tau = 0.5. A terminal transition
	// with reward 0 makes the target 0, so the distance is minus the
	// live quantile.
	taus := []float64{0.5}

	// |distance| < 1: the quantile Huber loss is tau * 0.5 * x^2
	live := &stubNet{
		features: 1, actions: 1, atoms: 1, taus: taus,
		out: []float64{-0.4},
	}
	target := &stubNet{
		features: 1, actions: 1, atoms: 1, taus: taus,
		out: []float64{0.0},
	}

	perSample, _, err := loss.Compute(live, target,
		singleBatch(1, 0, 0.0, 1.0))
	require.NoError(t, err)
	// distance = 0.4 > 0, weight = tau = 0.5, huber = 0.5 * 0.16
	require.InDelta(t, 0.5*0.5*0.16, perSample[0], 1e-12)

	// |distance| >= 1 leaves the quadratic region: huber = |x| - 0.5
	live = &stubNet{
		features: 1, actions: 1, atoms: 1, taus: taus,
		out: []float64{-2.0},
	}
	perSample, _, err = loss.Compute(live, target,
		singleBatch(1, 0, 0.0, 1.0))
	require.NoError(t, err)
	require.InDelta(t, 0.5*(2.0-0.5), perSample[0], 1e-12)
}

func TestQuantileRegressionAsymmetricWeighting(t *testing.T) {
	loss, err := NewQuantileRegression(1.0, 1)
	require.NoError(t, err)

	taus := []float64{0.25}
	target := &stubNet{
		features: 1, actions: 1, atoms: 1, taus: taus,
		out: []float64{0.0},
	}

	// Positive distance (underestimate) weighs by tau
	under := &stubNet{
		features: 1, actions: 1, atoms: 1, taus: taus,
		out: []float64{-0.5},
	}
	perUnder, _, err := loss.Compute(under, target,
		singleBatch(1, 0, 0.0, 1.0))
	require.NoError(t, err)

	// Negative distance (overestimate) weighs by |tau - 1|
	over := &stubNet{
		features: 1, actions: 1, atoms: 1, taus: taus,
		out: []float64{0.5},
	}
	perOver, _, err := loss.Compute(over, target,
		singleBatch(1, 0, 0.0, 1.0))
	require.NoError(t, err)

	// Same magnitude of error, but tau = 0.25 penalizes
	// overestimation three times as hard
	require.InDelta(t, 3.0, perOver[0]/perUnder[0], 1e-12)
}

func TestQuantileRegressionBatchMatchesElementwise(t *testing.T) {
	loss, err := NewQuantileRegression(0.9, 1)
	require.NoError(t, err)

	taus := []float64{0.25, 0.75}
	liveOuts := [][]float64{
		{0.1, 0.9, -0.5, 1.5},
		{2.0, -2.0, 0.0, 0.3},
	}
	targetOuts := [][]float64{
		{1.0, 1.0, 0.0, 0.0},
		{-0.5, 0.5, 2.0, 2.0},
	}
	actions := []int{1, 0}
	rewards := []float64{0.5, -1.0}
	dones := []float64{0.0, 0.0}

	var liveOut, targetOut []float64
	for i := range liveOuts {
		liveOut = append(liveOut, liveOuts[i]...)
		targetOut = append(targetOut, targetOuts[i]...)
	}
	live := &stubNet{features: 1, actions: 2, atoms: 2, taus: taus,
		out: liveOut}
	target := &stubNet{features: 1, actions: 2, atoms: 2, taus: taus,
		out: targetOut}

	stacked, _, err := loss.Compute(live, target,
		batchOf(1, actions, rewards, dones))
	require.NoError(t, err)

	for i := range liveOuts {
		live := &stubNet{features: 1, actions: 2, atoms: 2, taus: taus,
			out: liveOuts[i]}
		target := &stubNet{features: 1, actions: 2, atoms: 2, taus: taus,
			out: targetOuts[i]}

		single, _, err := loss.Compute(live, target,
			singleBatch(1, actions[i], rewards[i], dones[i]))
		require.NoError(t, err)
		require.InDelta(t, stacked[i], single[0], 1e-12)
	}
}
