package a2c

import (
	"fmt"

	"github.com/rlkit/valuerl/agent"
	"github.com/rlkit/valuerl/environment"
	"github.com/rlkit/valuerl/experiment/checkpointer"
	"github.com/rlkit/valuerl/experiment/tracker"
	"github.com/rlkit/valuerl/initwfn"
	"github.com/rlkit/valuerl/network"
	"github.com/rlkit/valuerl/solver"
)

// Config implements a complete configuration of an A2C agent
type Config struct {
	// Actor and critic share the same trunk architecture
	HiddenSizes []int
	Biases      []bool
	Activations []*network.Activation
	InitWFn     *initwfn.InitWFn

	ActorSolver  *solver.Solver
	CriticSolver *solver.Solver

	Gamma    float64
	Lambda   float64 // GAE mixing factor
	ClipNorm float64

	Episodes      int
	TestInterval  int
	CheckpointDir string
}

// Validate returns an error describing whether or not the
// configuration is valid
func (c Config) Validate() error {
	if c.InitWFn == nil {
		return fmt.Errorf("validate: initializer is required")
	}
	if c.ActorSolver == nil || c.CriticSolver == nil {
		return fmt.Errorf("validate: actor and critic solvers are required")
	}
	if c.Gamma < 0 || c.Gamma > 1 {
		return fmt.Errorf("validate: gamma must be in [0, 1] \n\thave(%v)",
			c.Gamma)
	}
	if c.Lambda < 0 || c.Lambda > 1 {
		return fmt.Errorf("validate: lambda must be in [0, 1] \n\thave(%v)",
			c.Lambda)
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
	_, ok := a.(*A2C)
	return ok
}

// CreateAgent creates the A2C agent that the config describes
func (c Config) CreateAgent(env environment.Environment,
	seed uint64) (agent.Agent, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("createagent: %v", err)
	}

	features := env.ObservationSpec().Shape.Len()
	actions := env.ActionSpec().NumActions()
	init := c.InitWFn.InitWFn()

	actor, err := network.NewPolicyMLP(features, actions, c.HiddenSizes,
		c.Biases, c.Activations, init)
	if err != nil {
		return nil, fmt.Errorf("createagent: %v", err)
	}

	critic, err := network.NewQMLP(features, 1, c.HiddenSizes, c.Biases,
		c.Activations, init)
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

	learner, err := NewLearner(actor, critic, c.ActorSolver,
		c.CriticSolver, c.Gamma, c.Lambda, c.ClipNorm, ckpt, seed)
	if err != nil {
		return nil, fmt.Errorf("createagent: %v", err)
	}

	return New(env, learner, NewSoftmax(actor, seed),
		tracker.NewConsole(), nil, c.Episodes, c.TestInterval)
}
