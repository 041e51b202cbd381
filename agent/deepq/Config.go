package deepq

import (
	"fmt"

	"github.com/rlkit/valuerl/agent"
	"github.com/rlkit/valuerl/environment"
	"github.com/rlkit/valuerl/experiment/checkpointer"
	"github.com/rlkit/valuerl/experiment/tracker"
	"github.com/rlkit/valuerl/expreplay"
	"github.com/rlkit/valuerl/initwfn"
	"github.com/rlkit/valuerl/losses"
	"github.com/rlkit/valuerl/network"
	"github.com/rlkit/valuerl/solver"
)

// Variant selects the value representation and loss engine of a DeepQ
// agent
type Variant string

// Available DeepQ variants
const (
	// DoubleDQN learns one scalar value per action with a double-Q
	// Huber loss
	DoubleDQN Variant = "DoubleDQN"

	// QRDQN learns a fixed set of return quantiles per action with
	// the quantile Huber loss
	QRDQN Variant = "QRDQN"

	// Categorical learns a categorical return distribution per action
	// over a fixed support with the C51 projection loss
	Categorical Variant = "Categorical"
)

// Config implements a complete configuration of a DeepQ agent. The
// configuration is immutable after construction: environment-derived
// dimensions are read inside CreateAgent, never written back.
type Config struct {
	Variant Variant

	// Network architecture
	HiddenSizes []int
	Biases      []bool
	Activations []*network.Activation
	InitWFn     *initwfn.InitWFn
	Solver      *solver.Solver

	// Distributional heads
	Quantiles  int     // QRDQN only
	Atoms      int     // Categorical only
	VMin, VMax float64 // Categorical only

	// Return structure
	Gamma float64
	NStep int // 1 disables n-step aggregation

	Replay expreplay.Config

	// Exploration
	Epsilon      float64
	MinEpsilon   float64
	EpsilonDecay float64

	// Update schedule
	TrainFreq    int
	Tau          float64 // > 0 selects soft target updates
	SyncInterval int     // hard target update period when Tau == 0
	ClipNorm     float64 // <= 0 disables gradient clipping

	// Run structure
	Episodes      int
	TestInterval  int    // episodes between evaluations, 0 disables
	CheckpointDir string // "" disables checkpointing
}

// Validate returns an error describing whether or not the
// configuration is valid
func (c Config) Validate() error {
	switch c.Variant {
	case DoubleDQN:
	case QRDQN:
		if c.Quantiles < 1 {
			return fmt.Errorf("validate: quantiles must be >= 1 "+
				"\n\thave(%v)", c.Quantiles)
		}
	case Categorical:
		if c.Atoms < 2 {
			return fmt.Errorf("validate: atoms must be >= 2 \n\thave(%v)",
				c.Atoms)
		}
		if c.VMax <= c.VMin {
			return fmt.Errorf("validate: invalid support bounds "+
				"\n\twant(VMin < VMax)\n\thave(%v, %v)", c.VMin, c.VMax)
		}
	default:
		return fmt.Errorf("validate: no such variant: %v", c.Variant)
	}

	if c.InitWFn == nil || c.Solver == nil {
		return fmt.Errorf("validate: initializer and solver are required")
	}
	if c.Gamma < 0 || c.Gamma > 1 {
		return fmt.Errorf("validate: gamma must be in [0, 1] \n\thave(%v)",
			c.Gamma)
	}
	if c.NStep < 1 {
		return fmt.Errorf("validate: n-step must be >= 1 \n\thave(%v)",
			c.NStep)
	}
	if c.TrainFreq < 1 {
		return fmt.Errorf("validate: train frequency must be >= 1 "+
			"\n\thave(%v)", c.TrainFreq)
	}
	if c.Tau < 0 || c.Tau > 1 {
		return fmt.Errorf("validate: tau must be in [0, 1] \n\thave(%v)",
			c.Tau)
	}
	if c.Tau == 0 && c.SyncInterval < 1 {
		return fmt.Errorf("validate: hard sync interval must be >= 1 "+
			"\n\thave(%v)", c.SyncInterval)
	}
	if c.Episodes < 1 {
		return fmt.Errorf("validate: episodes must be >= 1 \n\thave(%v)",
			c.Episodes)
	}
	return nil
}

// ValidAgent returns whether the argument agent is valid for the
// Config
func (c Config) ValidAgent(a agent.Agent) bool {
	_, ok := a.(*DeepQ)
	return ok
}

// CreateAgent creates the DeepQ agent that the config describes
func (c Config) CreateAgent(env environment.Environment,
	seed uint64) (agent.Agent, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("createagent: %v", err)
	}

	features := env.ObservationSpec().Shape.Len()
	actions := env.ActionSpec().NumActions()

	live, loss, err := c.buildVariant(features, actions)
	if err != nil {
		return nil, fmt.Errorf("createagent: %v", err)
	}

	var ckpt checkpointer.Checkpointer
	if c.CheckpointDir != "" {
		file, err := checkpointer.NewFile(c.CheckpointDir)
		if err != nil {
			return nil, fmt.Errorf("createagent: %v", err)
		}
		ckpt = file
	}

	learner, err := NewLearner(live, c.Solver, loss, c.ClipNorm, c.Tau,
		c.SyncInterval, ckpt, seed)
	if err != nil {
		return nil, fmt.Errorf("createagent: %v", err)
	}

	policy, err := NewEpsGreedy(live, c.Epsilon, c.MinEpsilon,
		c.EpsilonDecay, seed)
	if err != nil {
		return nil, fmt.Errorf("createagent: %v", err)
	}

	buffer, err := c.Replay.Create(features, seed)
	if err != nil {
		return nil, fmt.Errorf("createagent: %v", err)
	}

	var window *expreplay.NStepWindow
	if c.NStep > 1 {
		window, err = expreplay.NewNStepWindow(c.NStep, c.Gamma)
		if err != nil {
			return nil, fmt.Errorf("createagent: %v", err)
		}
	}

	return New(env, learner, policy, buffer, window,
		tracker.NewConsole(), nil, c.Episodes, c.TrainFreq,
		c.TestInterval)
}

// buildVariant constructs the value network and loss engine of the
// configured variant
func (c Config) buildVariant(features, actions int) (network.NeuralNet,
	losses.Loss, error) {
	init := c.InitWFn.InitWFn()

	switch c.Variant {
	case DoubleDQN:
		net, err := network.NewQMLP(features, actions, c.HiddenSizes,
			c.Biases, c.Activations, init)
		if err != nil {
			return nil, nil, err
		}
		loss, err := losses.NewDoubleDQN(c.Gamma, c.NStep)
		if err != nil {
			return nil, nil, err
		}
		return net, loss, nil

	case QRDQN:
		net, err := network.NewQuantileMLP(features, actions, c.Quantiles,
			c.HiddenSizes, c.Biases, c.Activations, init)
		if err != nil {
			return nil, nil, err
		}
		loss, err := losses.NewQuantileRegression(c.Gamma, c.NStep)
		if err != nil {
			return nil, nil, err
		}
		return net, loss, nil

	case Categorical:
		net, err := network.NewCategoricalMLP(features, actions, c.Atoms,
			c.VMin, c.VMax, c.HiddenSizes, c.Biases, c.Activations, init)
		if err != nil {
			return nil, nil, err
		}
		loss, err := losses.NewCategorical(c.Gamma, c.NStep)
		if err != nil {
			return nil, nil, err
		}
		return net, loss, nil
	}

	return nil, nil, fmt.Errorf("no such variant: %v", c.Variant)
}
