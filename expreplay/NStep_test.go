package expreplay

import (
	"testing"

	"github.com/stretchr/testify/require"

	"gonum.org/v1/gonum/mat"

	"github.com/rlkit/valuerl/timestep"
)

// step builds a single-step transition whose state and next state are
// one-element vectors tagging the transition's position in an episode
func step(position int, action int, reward float64,
	done bool) timestep.Transition {
	return timestep.NewTransition(
		mat.NewVecDense(1, []float64{float64(position)}), action, reward,
		mat.NewVecDense(1, []float64{float64(position + 1)}), done)
}

func TestNStepWindowAggregatesDiscountedReturn(t *testing.T) {
	window, err := NewNStepWindow(3, 0.9)
	require.NoError(t, err)

	require.NoError(t, window.Push(step(0, 1, 1.0, false)))
	require.NoError(t, window.Push(step(1, 0, 2.0, false)))
	require.NoError(t, window.Push(step(2, 1, 3.0, false)))
	require.True(t, window.Full())

	aggregated, err := window.Aggregate()
	require.NoError(t, err)

	// 1 + 0.9*2 + 0.81*3: the oldest reward enters undiscounted
	require.InDelta(t, 5.23, aggregated.Reward, 1e-12)
}

func TestNStepWindowPairsOldestStateWithNewestBootstrap(t *testing.T) {
	window, err := NewNStepWindow(3, 0.99)
	require.NoError(t, err)

	require.NoError(t, window.Push(step(0, 1, 0.0, false)))
	require.NoError(t, window.Push(step(1, 0, 0.0, false)))
	require.NoError(t, window.Push(step(2, 0, 0.0, true)))

	aggregated, err := window.Aggregate()
	require.NoError(t, err)

	require.Equal(t, 0.0, aggregated.State.AtVec(0))
	require.Equal(t, 1, aggregated.Action)
	require.Equal(t, 3.0, aggregated.NextState.AtVec(0))
	require.True(t, aggregated.Done)
}

func TestNStepWindowConsumedWholesale(t *testing.T) {
	window, err := NewNStepWindow(2, 0.9)
	require.NoError(t, err)

	require.NoError(t, window.Push(step(0, 0, 1.0, false)))
	require.NoError(t, window.Push(step(1, 0, 1.0, false)))

	_, err = window.Aggregate()
	require.NoError(t, err)
	require.Zero(t, window.Len())

	// The next aggregation starts from scratch: no transition may feed
	// two aggregated transitions
	require.NoError(t, window.Push(step(2, 0, 7.0, false)))
	require.NoError(t, window.Push(step(3, 0, 5.0, false)))
	aggregated, err := window.Aggregate()
	require.NoError(t, err)
	require.InDelta(t, 7.0+0.9*5.0, aggregated.Reward, 1e-12)
	require.Equal(t, 2.0, aggregated.State.AtVec(0))
}

func TestNStepWindowPartialAggregation(t *testing.T) {
	window, err := NewNStepWindow(3, 0.5)
	require.NoError(t, err)

	// An episode tail shorter than n still aggregates
	require.NoError(t, window.Push(step(0, 1, 2.0, false)))
	require.NoError(t, window.Push(step(1, 0, 4.0, true)))
	require.False(t, window.Full())

	aggregated, err := window.Aggregate()
	require.NoError(t, err)
	require.InDelta(t, 2.0+0.5*4.0, aggregated.Reward, 1e-12)
	require.True(t, aggregated.Done)
	require.Zero(t, window.Len())
}

func TestNStepWindowPushWhenFullErrors(t *testing.T) {
	window, err := NewNStepWindow(1, 0.9)
	require.NoError(t, err)

	require.NoError(t, window.Push(step(0, 0, 1.0, false)))
	require.Error(t, window.Push(step(1, 0, 1.0, false)))
}

func TestNStepWindowAggregateWhenEmptyErrors(t *testing.T) {
	window, err := NewNStepWindow(3, 0.9)
	require.NoError(t, err)

	_, err = window.Aggregate()
	require.Error(t, err)
}

func TestNStepWindowSingleStepPassthrough(t *testing.T) {
	window, err := NewNStepWindow(1, 0.9)
	require.NoError(t, err)

	original := step(4, 1, -2.5, false)
	require.NoError(t, window.Push(original))
	require.True(t, window.Full())

	aggregated, err := window.Aggregate()
	require.NoError(t, err)
	require.Equal(t, original.State.AtVec(0), aggregated.State.AtVec(0))
	require.Equal(t, original.Action, aggregated.Action)
	require.Equal(t, original.Reward, aggregated.Reward)
	require.Equal(t, original.NextState.AtVec(0),
		aggregated.NextState.AtVec(0))
	require.Equal(t, original.Done, aggregated.Done)
}

func TestNStepWindowRejectsBadArguments(t *testing.T) {
	_, err := NewNStepWindow(0, 0.9)
	require.Error(t, err)

	_, err = NewNStepWindow(3, -0.1)
	require.Error(t, err)

	_, err = NewNStepWindow(3, 1.5)
	require.Error(t, err)
}
