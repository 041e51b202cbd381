package losses

import (
	"gorgonia.org/tensor"

	G "gorgonia.org/gorgonia"

	"github.com/rlkit/valuerl/network"
	"github.com/rlkit/valuerl/timestep"
)

// stubNet is a fixed-output network for exercising loss engines with
// known values. Forward ignores its input and returns the stored
// output data shaped for the requested batch.
type stubNet struct {
	features int
	actions  int
	atoms    int // 0 for scalar heads

	out []float64

	taus    []float64
	support []float64
}

func (s *stubNet) Forward(states *tensor.Dense) (*tensor.Dense, error) {
	batch := states.Shape()[0]
	data := make([]float64, len(s.out))
	copy(data, s.out)

	if s.atoms == 0 {
		return tensor.New(tensor.WithShape(batch, s.actions),
			tensor.WithBacking(data)), nil
	}
	return tensor.New(tensor.WithShape(batch, s.actions, s.atoms),
		tensor.WithBacking(data)), nil
}

func (s *stubNet) Backward(*tensor.Dense) error { return nil }
func (s *stubNet) ZeroGrad()                    {}
func (s *stubNet) Features() int                { return s.features }
func (s *stubNet) Outputs() int                 { return s.actions }
func (s *stubNet) Parameters() []*tensor.Dense  { return nil }
func (s *stubNet) Gradients() []*tensor.Dense   { return nil }
func (s *stubNet) Model() []G.ValueGrad         { return nil }

func (s *stubNet) ActionValues([]float64) ([]float64, error) {
	return nil, nil
}

func (s *stubNet) Clone() (network.NeuralNet, error) { return s, nil }

func (s *stubNet) Atoms() int      { return s.atoms }
func (s *stubNet) Taus() []float64 { return s.taus }

func (s *stubNet) Support() []float64 { return s.support }
func (s *stubNet) VMin() float64      { return s.support[0] }
func (s *stubNet) VMax() float64      { return s.support[len(s.support)-1] }

func (s *stubNet) DeltaZ() float64 {
	return (s.VMax() - s.VMin()) / float64(len(s.support)-1)
}

// singleBatch builds a batch of one transition with a zero observation
func singleBatch(features, action int, reward, done float64) timestep.Batch {
	return batchOf(features, []int{action}, []float64{reward},
		[]float64{done})
}

// batchOf builds a batch of zero observations with the given actions,
// rewards, and terminal flags
func batchOf(features int, actions []int, rewards,
	dones []float64) timestep.Batch {
	n := len(actions)
	return timestep.Batch{
		States: tensor.New(tensor.WithShape(n, features),
			tensor.WithBacking(make([]float64, n*features))),
		Actions: actions,
		Rewards: rewards,
		NextStates: tensor.New(tensor.WithShape(n, features),
			tensor.WithBacking(make([]float64, n*features))),
		Dones: dones,
	}
}
