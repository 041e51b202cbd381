package expreplay

import (
	"fmt"

	"github.com/gammazero/deque"

	"github.com/rlkit/valuerl/timestep"
)

// NStepWindow accumulates consecutive single-step transitions and
// collapses them into one n-step transition whose reward is the
// discounted sum of the window's rewards. The aggregated transition
// starts at the oldest transition's state and action and bootstraps
// from the newest transition's next state.
//
// The window holds at most n transitions and is consumed wholesale:
// Aggregate empties it, so each single-step transition contributes to
// exactly one aggregated transition.
type NStepWindow struct {
	window *deque.Deque[timestep.Transition]
	n      int
	gamma  float64
}

// NewNStepWindow returns a new n-step window. An n of 1 degenerates to
// passing single-step transitions through unchanged.
func NewNStepWindow(n int, gamma float64) (*NStepWindow, error) {
	if n < 1 {
		return nil, fmt.Errorf("newnstepwindow: n must be >= 1 "+
			"\n\thave(%v)", n)
	}
	if gamma < 0 || gamma > 1 {
		return nil, fmt.Errorf("newnstepwindow: gamma must be in [0, 1] "+
			"\n\thave(%v)", gamma)
	}

	return &NStepWindow{
		window: deque.New[timestep.Transition](n),
		n:      n,
		gamma:  gamma,
	}, nil
}

// Push appends a single-step transition to the window. Callers must
// drain a full window with Aggregate before pushing again.
func (w *NStepWindow) Push(t timestep.Transition) error {
	if w.Full() {
		return fmt.Errorf("push: window full, aggregate before pushing")
	}
	w.window.PushBack(t)
	return nil
}

// Full returns whether the window holds n transitions
func (w *NStepWindow) Full() bool {
	return w.window.Len() == w.n
}

// Len returns the number of transitions currently in the window
func (w *NStepWindow) Len() int {
	return w.window.Len()
}

// Aggregate collapses the window's contents into a single n-step
// transition and empties the window. The rewards fold into
//
//	R = r_0 + gamma*r_1 + ... + gamma^(k-1)*r_(k-1)
//
// for a window of k transitions indexed oldest first, so the oldest
// reward enters undiscounted and the learner can bootstrap from the
// newest next state with gamma^k. Aggregating a partially full window
// is allowed so that episode tails shorter than n are not dropped.
func (w *NStepWindow) Aggregate() (timestep.Transition, error) {
	k := w.window.Len()
	if k == 0 {
		return timestep.Transition{}, fmt.Errorf("aggregate: window empty")
	}

	newest := w.window.Back()
	ret := 0.0
	for i := k - 1; i >= 0; i-- {
		ret = w.window.At(i).Reward + w.gamma*ret
	}

	oldest := w.window.Front()
	w.window.Clear()

	return timestep.NewTransition(oldest.State, oldest.Action, ret,
		newest.NextState, newest.Done), nil
}

// Clear discards the window's contents without aggregating, for use at
// episode boundaries after the tail has been flushed
func (w *NStepWindow) Clear() {
	w.window.Clear()
}
