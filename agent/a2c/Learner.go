package a2c

import (
	"fmt"
	"math"

	"gorgonia.org/tensor"

	"github.com/rlkit/valuerl/agent"
	"github.com/rlkit/valuerl/experiment/checkpointer"
	"github.com/rlkit/valuerl/network"
	"github.com/rlkit/valuerl/solver"
	"github.com/rlkit/valuerl/timestep"
	"github.com/rlkit/valuerl/utils/floatutils"
)

// Learner owns the actor and critic networks and their solvers, and
// performs one update per on-policy rollout. The critic regresses its
// value predictions onto empirical discounted returns with a Huber
// loss; the actor follows the policy gradient weighted by standardized
// generalized advantage estimates. The critic steps first, the actor
// second, using advantages computed against the pre-update critic.
type Learner struct {
	actor  network.NeuralNet
	critic network.NeuralNet

	actorSol  *solver.Solver
	criticSol *solver.Solver

	gamma    float64
	lambda   float64
	clipNorm float64

	ckpt checkpointer.Checkpointer
	seed uint64
}

// NewLearner returns a new actor-critic Learner
func NewLearner(actor, critic network.NeuralNet, actorSol,
	criticSol *solver.Solver, gamma, lambda, clipNorm float64,
	ckpt checkpointer.Checkpointer, seed uint64) (*Learner, error) {
	if gamma < 0 || gamma > 1 {
		return nil, fmt.Errorf("newlearner: gamma must be in [0, 1] "+
			"\n\thave(%v)", gamma)
	}
	if lambda < 0 || lambda > 1 {
		return nil, fmt.Errorf("newlearner: lambda must be in [0, 1] "+
			"\n\thave(%v)", lambda)
	}
	if critic.Outputs() != 1 {
		return nil, fmt.Errorf("newlearner: critic must predict a single "+
			"value \n\thave(%v outputs)", critic.Outputs())
	}

	return &Learner{
		actor:     actor,
		critic:    critic,
		actorSol:  actorSol,
		criticSol: criticSol,
		gamma:     gamma,
		lambda:    lambda,
		clipNorm:  clipNorm,
		ckpt:      ckpt,
		seed:      seed,
	}, nil
}

// UpdateModel performs one actor-critic update. The batch is an
// ordered on-policy rollout, not a shuffled replay sample: rewards and
// terminal flags must appear in the order the environment produced
// them. The returned loss is the sum of the critic and actor mean
// losses.
func (l *Learner) UpdateModel(batch timestep.Batch) (agent.Update, error) {
	size := batch.Size()
	returns := rewardsToGo(batch.Rewards, batch.Dones, l.gamma)

	values, err := l.critic.Forward(batch.States)
	if err != nil {
		return agent.Update{}, fmt.Errorf("updatemodel: could not "+
			"evaluate critic: %v", err)
	}
	valueData := values.Data().([]float64)

	advantages := gaeAdvantages(batch.Rewards, valueData, batch.Dones,
		l.gamma, l.lambda)
	standardize(advantages)

	criticLoss, err := l.updateCritic(valueData, returns, size)
	if err != nil {
		return agent.Update{}, fmt.Errorf("updatemodel: %v", err)
	}

	actorLoss, err := l.updateActor(batch, advantages)
	if err != nil {
		return agent.Update{}, fmt.Errorf("updatemodel: %v", err)
	}

	return agent.Update{Loss: criticLoss + actorLoss}, nil
}

// updateCritic regresses the critic's value predictions onto the
// empirical returns with a Huber loss, returning the mean loss
func (l *Learner) updateCritic(values, returns []float64,
	size int) (float64, error) {
	perSample := make([]float64, size)
	gradData := make([]float64, size)
	for i := 0; i < size; i++ {
		residual := values[i] - returns[i]
		if residual < -1.0 {
			perSample[i] = -residual - 0.5
			gradData[i] = -1.0
		} else if residual > 1.0 {
			perSample[i] = residual - 0.5
			gradData[i] = 1.0
		} else {
			perSample[i] = 0.5 * residual * residual
			gradData[i] = residual
		}
		gradData[i] /= float64(size)
	}

	if !floatutils.AllFinite(perSample) {
		return 0, fmt.Errorf("updatecritic: non-finite loss "+
			"\n\thave(%v)", perSample)
	}

	grad := tensor.New(tensor.WithShape(size, 1),
		tensor.WithBacking(gradData))

	l.critic.ZeroGrad()
	if err := l.critic.Backward(grad); err != nil {
		return 0, fmt.Errorf("updatecritic: could not backpropagate: %v",
			err)
	}
	if _, err := solver.ClipGradNorm(l.critic.Gradients(),
		l.clipNorm); err != nil {
		return 0, fmt.Errorf("updatecritic: %v", err)
	}
	if err := l.criticSol.Step(l.critic.Model()); err != nil {
		return 0, fmt.Errorf("updatecritic: could not step solver: %v", err)
	}

	return floatutils.Mean(perSample), nil
}

// updateActor steps the actor along the policy gradient
// -advantage * log pi(action | state), returning the mean loss
func (l *Learner) updateActor(batch timestep.Batch,
	advantages []float64) (float64, error) {
	size := batch.Size()
	actions := l.actor.Outputs()

	probs, err := l.actor.Forward(batch.States)
	if err != nil {
		return 0, fmt.Errorf("updateactor: could not evaluate actor: %v",
			err)
	}
	probData := probs.Data().([]float64)

	perSample := make([]float64, size)
	gradData := make([]float64, size*actions)
	for i := 0; i < size; i++ {
		p := probData[i*actions+batch.Actions[i]]
		perSample[i] = -advantages[i] * math.Log(p)
		gradData[i*actions+batch.Actions[i]] =
			-advantages[i] / p / float64(size)
	}

	if !floatutils.AllFinite(perSample) {
		return 0, fmt.Errorf("updateactor: non-finite loss \n\thave(%v)",
			perSample)
	}

	grad := tensor.New(tensor.WithShape(size, actions),
		tensor.WithBacking(gradData))

	l.actor.ZeroGrad()
	if err := l.actor.Backward(grad); err != nil {
		return 0, fmt.Errorf("updateactor: could not backpropagate: %v",
			err)
	}
	if _, err := solver.ClipGradNorm(l.actor.Gradients(),
		l.clipNorm); err != nil {
		return 0, fmt.Errorf("updateactor: %v", err)
	}
	if err := l.actorSol.Step(l.actor.Model()); err != nil {
		return 0, fmt.Errorf("updateactor: could not step solver: %v", err)
	}

	return floatutils.Mean(perSample), nil
}

// GetPolicy returns a greedy policy over an independent deep copy of
// the actor network
func (l *Learner) GetPolicy() (agent.Policy, error) {
	snapshot, err := l.actor.Clone()
	if err != nil {
		return nil, fmt.Errorf("getpolicy: could not snapshot actor: %v",
			err)
	}
	return NewGreedySoftmax(snapshot, l.seed), nil
}

// SaveParams persists the actor's and critic's parameters under the
// given name. A nil checkpointer makes SaveParams a no-op.
func (l *Learner) SaveParams(name string) error {
	if l.ckpt == nil {
		return nil
	}

	save := func(suffix string, net network.NeuralNet) error {
		params := net.Parameters()
		blobs := make([][]float64, len(params))
		for i, param := range params {
			data := param.Data().([]float64)
			blobs[i] = make([]float64, len(data))
			copy(blobs[i], data)
		}
		return l.ckpt.Checkpoint(name+suffix, blobs)
	}

	if err := save("-actor", l.actor); err != nil {
		return fmt.Errorf("saveparams: %v", err)
	}
	if err := save("-critic", l.critic); err != nil {
		return fmt.Errorf("saveparams: %v", err)
	}
	return nil
}

var _ agent.Learner = (*Learner)(nil)
