package losses

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDoubleDQNZeroLossWhenEqual(t *testing.T) {
	live := &stubNet{features: 1, actions: 2, out: []float64{2.0, 5.0}}
	target := &stubNet{features: 1, actions: 2, out: []float64{3.0, 1.0}}

	loss, err := NewDoubleDQN(0.9, 1)
	require.NoError(t, err)

	// target = 2.3 + 0.9 * max(3, 1) = 5.0 = q at the taken action
	batch := singleBatch(1, 1, 2.3, 0.0)
	perSample, grad, err := loss.Compute(live, target, batch)
	require.NoError(t, err)

	require.Len(t, perSample, 1)
	require.Zero(t, perSample[0])
	for _, g := range grad.Data().([]float64) {
		require.Zero(t, g)
	}
}

func TestDoubleDQNHuberRegions(t *testing.T) {
	target := &stubNet{features: 1, actions: 2, out: []float64{0.0, 0.0}}
	loss, err := NewDoubleDQN(1.0, 1)
	require.NoError(t, err)

	// Terminal transition with reward 0, so target value is 0 and the
	// residual is the live network's output at the taken action
	batch := singleBatch(1, 0, 0.0, 1.0)

	// Quadratic region: residual 0.5
	live := &stubNet{features: 1, actions: 2, out: []float64{0.5, 9.0}}
	perSample, grad, err := loss.Compute(live, target, batch)
	require.NoError(t, err)
	require.InDelta(t, 0.125, perSample[0], 1e-12)
	require.InDelta(t, 0.5, grad.Data().([]float64)[0], 1e-12)

	// Linear region: residual 2
	live = &stubNet{features: 1, actions: 2, out: []float64{2.0, 9.0}}
	perSample, grad, err = loss.Compute(live, target, batch)
	require.NoError(t, err)
	require.InDelta(t, 1.5, perSample[0], 1e-12)
	require.InDelta(t, 1.0, grad.Data().([]float64)[0], 1e-12)

	// Linear region, negative residual
	live = &stubNet{features: 1, actions: 2, out: []float64{-3.0, 9.0}}
	perSample, grad, err = loss.Compute(live, target, batch)
	require.NoError(t, err)
	require.InDelta(t, 2.5, perSample[0], 1e-12)
	require.InDelta(t, -1.0, grad.Data().([]float64)[0], 1e-12)
}

func TestDoubleDQNTerminalZeroesBootstrap(t *testing.T) {
	live := &stubNet{features: 1, actions: 2, out: []float64{1.0, 0.0}}
	target := &stubNet{features: 1, actions: 2, out: []float64{100.0, 50.0}}

	loss, err := NewDoubleDQN(0.99, 3)
	require.NoError(t, err)

	// done = 1 removes the bootstrap term entirely, so the target is
	// the reward alone
	batch := singleBatch(1, 0, 1.0, 1.0)
	perSample, _, err := loss.Compute(live, target, batch)
	require.NoError(t, err)
	require.Zero(t, perSample[0])
}

func TestDoubleDQNBatchMatchesElementwise(t *testing.T) {
	loss, err := NewDoubleDQN(0.9, 2)
	require.NoError(t, err)

	liveOuts := [][]float64{{0.4, 1.2}, {-0.3, 2.0}, {5.0, 0.1}}
	targetOuts := [][]float64{{1.0, 0.0}, {0.5, 0.5}, {-1.0, 3.0}}
	actions := []int{0, 1, 0}
	rewards := []float64{1.0, -0.5, 2.0}
	dones := []float64{0.0, 0.0, 1.0}

	// Per-sample losses of the stacked batch
	var liveOut, targetOut []float64
	for i := range liveOuts {
		liveOut = append(liveOut, liveOuts[i]...)
		targetOut = append(targetOut, targetOuts[i]...)
	}
	live := &stubNet{features: 1, actions: 2, out: liveOut}
	target := &stubNet{features: 1, actions: 2, out: targetOut}

	stacked, _, err := loss.Compute(live, target,
		batchOf(1, actions, rewards, dones))
	require.NoError(t, err)

	// Against each transition evaluated alone
	for i := range liveOuts {
		live := &stubNet{features: 1, actions: 2, out: liveOuts[i]}
		target := &stubNet{features: 1, actions: 2, out: targetOuts[i]}

		single, _, err := loss.Compute(live, target,
			singleBatch(1, actions[i], rewards[i], dones[i]))
		require.NoError(t, err)
		require.InDelta(t, stacked[i], single[0], 1e-12)
	}
}
