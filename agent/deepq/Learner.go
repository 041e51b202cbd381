package deepq

import (
	"fmt"

	"github.com/rlkit/valuerl/agent"
	"github.com/rlkit/valuerl/experiment/checkpointer"
	"github.com/rlkit/valuerl/losses"
	"github.com/rlkit/valuerl/network"
	"github.com/rlkit/valuerl/solver"
	"github.com/rlkit/valuerl/timestep"
	"github.com/rlkit/valuerl/utils/floatutils"
)

// Learner owns the live and target value networks, the solver, and
// the loss engine, and performs single gradient updates on sampled
// batches. Target synchronization runs inside UpdateModel: a positive
// tau applies a Polyak soft update after every gradient step, and
// otherwise a hard update fires every syncInterval updates.
type Learner struct {
	live   network.NeuralNet
	target network.NeuralNet
	sol    *solver.Solver
	loss   losses.Loss

	clipNorm     float64 // <= 0 disables clipping
	tau          float64
	syncInterval int
	updates      int

	ckpt checkpointer.Checkpointer // nil disables persistence
	seed uint64
}

// NewLearner returns a new Learner over the given live network. The
// target network starts as an exact copy of the live network.
func NewLearner(live network.NeuralNet, sol *solver.Solver,
	loss losses.Loss, clipNorm, tau float64, syncInterval int,
	ckpt checkpointer.Checkpointer, seed uint64) (*Learner, error) {
	if tau < 0 || tau > 1 {
		return nil, fmt.Errorf("newlearner: tau must be in [0, 1] "+
			"\n\thave(%v)", tau)
	}
	if tau == 0 && syncInterval < 1 {
		return nil, fmt.Errorf("newlearner: hard sync interval must be "+
			">= 1 \n\thave(%v)", syncInterval)
	}

	target, err := live.Clone()
	if err != nil {
		return nil, fmt.Errorf("newlearner: could not create target "+
			"network: %v", err)
	}

	return &Learner{
		live:         live,
		target:       target,
		sol:          sol,
		loss:         loss,
		clipNorm:     clipNorm,
		tau:          tau,
		syncInterval: syncInterval,
		ckpt:         ckpt,
		seed:         seed,
	}, nil
}

// UpdateModel performs one gradient update on the batch: loss
// computation, backpropagation, gradient norm clipping, a solver step,
// and target synchronization. When the batch carries
// importance-sampling weights, each sample's gradient is scaled by its
// weight before the mean reduction.
func (l *Learner) UpdateModel(batch timestep.Batch) (agent.Update, error) {
	perSample, gradOut, err := l.loss.Compute(l.live, l.target, batch)
	if err != nil {
		return agent.Update{}, fmt.Errorf("updatemodel: %v", err)
	}

	// Reduce to the mean loss gradient, folding in the batch's
	// importance-sampling weights
	size := batch.Size()
	gradData := gradOut.Data().([]float64)
	rowSize := len(gradData) / size
	for i := 0; i < size; i++ {
		scale := 1.0 / float64(size)
		if batch.Prioritized() {
			scale *= batch.Weights[i]
		}
		for j := i * rowSize; j < (i+1)*rowSize; j++ {
			gradData[j] *= scale
		}
	}

	l.live.ZeroGrad()
	if err := l.live.Backward(gradOut); err != nil {
		return agent.Update{}, fmt.Errorf("updatemodel: could not "+
			"backpropagate: %v", err)
	}

	if _, err := solver.ClipGradNorm(l.live.Gradients(),
		l.clipNorm); err != nil {
		return agent.Update{}, fmt.Errorf("updatemodel: %v", err)
	}

	if err := l.sol.Step(l.live.Model()); err != nil {
		return agent.Update{}, fmt.Errorf("updatemodel: could not step "+
			"solver: %v", err)
	}

	l.updates++
	if err := l.syncTarget(); err != nil {
		return agent.Update{}, fmt.Errorf("updatemodel: %v", err)
	}

	update := agent.Update{Loss: floatutils.Mean(perSample)}
	if batch.Prioritized() {
		update.Indices = batch.Indices
		update.Priorities = perSample
	}
	return update, nil
}

// syncTarget moves the target network toward the live network on the
// configured schedule
func (l *Learner) syncTarget() error {
	if l.tau > 0 {
		return network.SoftUpdate(l.target, l.live, l.tau)
	}
	if l.updates%l.syncInterval == 0 {
		return network.HardUpdate(l.target, l.live)
	}
	return nil
}

// GetPolicy returns a greedy policy over an independent deep copy of
// the live network
func (l *Learner) GetPolicy() (agent.Policy, error) {
	snapshot, err := l.live.Clone()
	if err != nil {
		return nil, fmt.Errorf("getpolicy: could not snapshot live "+
			"network: %v", err)
	}
	return NewGreedy(snapshot, l.seed)
}

// SaveParams persists the live network's parameters under the given
// name. A nil checkpointer makes SaveParams a no-op.
func (l *Learner) SaveParams(name string) error {
	if l.ckpt == nil {
		return nil
	}

	params := l.live.Parameters()
	blobs := make([][]float64, len(params))
	for i, param := range params {
		data := param.Data().([]float64)
		blobs[i] = make([]float64, len(data))
		copy(blobs[i], data)
	}

	if err := l.ckpt.Checkpoint(name, blobs); err != nil {
		return fmt.Errorf("saveparams: %v", err)
	}
	return nil
}

// TargetNet returns the target network, read by tests and by loss
// bootstrap diagnostics
func (l *Learner) TargetNet() network.NeuralNet {
	return l.target
}

// Ensure the deepq learner and policy honor the agent contracts
var _ agent.Learner = (*Learner)(nil)
var _ agent.ExplorationPolicy = (*EpsGreedy)(nil)
