package a2c

import (
	"testing"

	"github.com/stretchr/testify/require"

	"gonum.org/v1/gonum/stat"
)

func TestRewardsToGo(t *testing.T) {
	rewards := []float64{1.0, 2.0, 3.0}
	dones := []float64{0.0, 0.0, 1.0}

	returns := rewardsToGo(rewards, dones, 0.5)

	// Backward from the end: 3, then 2 + 0.5*3, then 1 + 0.5*3.5
	require.InDelta(t, 2.75, returns[0], 1e-12)
	require.InDelta(t, 3.5, returns[1], 1e-12)
	require.InDelta(t, 3.0, returns[2], 1e-12)
}

func TestRewardsToGoResetsAtTerminals(t *testing.T) {
	// Two episodes in one rollout: the second episode's rewards must not
	// leak into the first episode's returns
	rewards := []float64{1.0, 1.0, 100.0}
	dones := []float64{0.0, 1.0, 1.0}

	returns := rewardsToGo(rewards, dones, 0.9)

	require.InDelta(t, 1.0+0.9*1.0, returns[0], 1e-12)
	require.InDelta(t, 1.0, returns[1], 1e-12)
	require.InDelta(t, 100.0, returns[2], 1e-12)
}

func TestRewardsToGoUndiscounted(t *testing.T) {
	rewards := []float64{1.0, 1.0, 1.0, 1.0}
	dones := []float64{0.0, 0.0, 0.0, 1.0}

	returns := rewardsToGo(rewards, dones, 1.0)
	require.Equal(t, []float64{4.0, 3.0, 2.0, 1.0}, returns)
}

func TestGAEAdvantagesSingleStep(t *testing.T) {
	// A one-step rollout reduces to the plain TD residual with no
	// bootstrap
	advantages := gaeAdvantages([]float64{2.0}, []float64{0.5},
		[]float64{1.0}, 0.9, 0.95)
	require.InDelta(t, 1.5, advantages[0], 1e-12)
}

func TestGAEAdvantagesLambdaZeroIsTDResidual(t *testing.T) {
	rewards := []float64{1.0, 2.0, 3.0}
	values := []float64{0.5, 1.0, 1.5}
	dones := []float64{0.0, 0.0, 1.0}
	gamma := 0.9

	advantages := gaeAdvantages(rewards, values, dones, gamma, 0.0)

	// With lambda 0 every advantage is its own one-step residual
	require.InDelta(t, 1.0+gamma*1.0-0.5, advantages[0], 1e-12)
	require.InDelta(t, 2.0+gamma*1.5-1.0, advantages[1], 1e-12)
	require.InDelta(t, 3.0-1.5, advantages[2], 1e-12)
}

func TestGAEAdvantagesFoldsResiduals(t *testing.T) {
	rewards := []float64{1.0, 2.0}
	values := []float64{0.5, 1.0}
	dones := []float64{0.0, 1.0}
	gamma, lambda := 0.9, 0.95

	advantages := gaeAdvantages(rewards, values, dones, gamma, lambda)

	delta1 := 2.0 - 1.0
	delta0 := 1.0 + gamma*1.0 - 0.5
	require.InDelta(t, delta1, advantages[1], 1e-12)
	require.InDelta(t, delta0+gamma*lambda*delta1, advantages[0], 1e-12)
}

func TestGAEAdvantagesTerminalStopsFold(t *testing.T) {
	// A terminal mid-rollout cuts both the bootstrap and the residual
	// fold, so the earlier episode's advantages ignore the later one
	rewards := []float64{1.0, 50.0}
	values := []float64{0.5, 0.0}
	dones := []float64{1.0, 1.0}

	advantages := gaeAdvantages(rewards, values, dones, 0.9, 0.95)
	require.InDelta(t, 0.5, advantages[0], 1e-12)
	require.InDelta(t, 50.0, advantages[1], 1e-12)
}

func TestStandardize(t *testing.T) {
	advantages := []float64{1.0, 2.0, 3.0, 4.0, 5.0}
	standardize(advantages)

	require.InDelta(t, 0.0, stat.Mean(advantages, nil), 1e-12)
	require.InDelta(t, 1.0, stat.StdDev(advantages, nil), 1e-6)

	// Order is preserved
	for i := 1; i < len(advantages); i++ {
		require.Greater(t, advantages[i], advantages[i-1])
	}
}

func TestStandardizeZeroVariance(t *testing.T) {
	advantages := []float64{2.0, 2.0, 2.0}
	standardize(advantages)

	for _, a := range advantages {
		require.InDelta(t, 0.0, a, 1e-12)
	}
}
