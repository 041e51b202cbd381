package timestep

import (
	"gonum.org/v1/gonum/mat"
	"gorgonia.org/tensor"
)

// Transition packages together a single environmental transition: the
// observation the agent acted in, the discrete action it took, the
// scalar reward it received, the observation it arrived in, and
// whether that observation was terminal. Transitions are immutable
// once created.
type Transition struct {
	State     mat.Vector
	Action    int
	Reward    float64
	NextState mat.Vector
	Done      bool
}

// NewTransition constructs a new Transition
func NewTransition(state mat.Vector, action int, reward float64,
	nextState mat.Vector, done bool) Transition {
	return Transition{
		State:     state,
		Action:    action,
		Reward:    reward,
		NextState: nextState,
		Done:      done,
	}
}

// Batch holds a fixed-size set of stacked transitions in the layout
// that loss functions consume. States and NextStates are row-major
// (batch, features) tensors; Actions, Rewards, and Dones are aligned
// by batch index. Dones holds {0, 1} so that terminal transitions zero
// out bootstrap terms.
//
// When prioritized replay is active, Indices holds the buffer position
// of each sample so that new priorities can be written back, and
// Weights holds the aligned importance-sampling corrections. Both are
// nil otherwise.
type Batch struct {
	States     *tensor.Dense
	Actions    []int
	Rewards    []float64
	NextStates *tensor.Dense
	Dones      []float64

	Indices []int
	Weights []float64
}

// Size returns the number of transitions in the batch
func (b Batch) Size() int {
	return len(b.Actions)
}

// Prioritized returns whether the batch was drawn from a prioritized
// replay buffer
func (b Batch) Prioritized() bool {
	return b.Indices != nil
}

// StackTransitions stacks a slice of transitions into a Batch. All
// transitions must share the same observation length.
func StackTransitions(transitions []Transition) Batch {
	n := len(transitions)
	features := transitions[0].State.Len()

	states := make([]float64, n*features)
	nextStates := make([]float64, n*features)
	actions := make([]int, n)
	rewards := make([]float64, n)
	dones := make([]float64, n)

	for i, t := range transitions {
		for j := 0; j < features; j++ {
			states[i*features+j] = t.State.AtVec(j)
			nextStates[i*features+j] = t.NextState.AtVec(j)
		}
		actions[i] = t.Action
		rewards[i] = t.Reward
		if t.Done {
			dones[i] = 1.0
		}
	}

	return Batch{
		States: tensor.New(tensor.WithShape(n, features),
			tensor.WithBacking(states)),
		Actions: actions,
		Rewards: rewards,
		NextStates: tensor.New(tensor.WithShape(n, features),
			tensor.WithBacking(nextStates)),
		Dones: dones,
	}
}
