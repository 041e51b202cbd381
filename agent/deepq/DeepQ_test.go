package deepq

import (
	"testing"

	"github.com/stretchr/testify/require"

	"gonum.org/v1/gonum/mat"

	"github.com/rlkit/valuerl/environment"
	"github.com/rlkit/valuerl/expreplay"
	"github.com/rlkit/valuerl/initwfn"
	"github.com/rlkit/valuerl/losses"
	"github.com/rlkit/valuerl/network"
	"github.com/rlkit/valuerl/solver"
	"github.com/rlkit/valuerl/timestep"
)

// chainEnv is a deterministic single-feature environment for exercising
// the training loop. The agent walks a chain of episodeSteps positions,
// earning reward 1 for action 1 and 0 for action 0, and the episode
// ends at the end of the chain.
type chainEnv struct {
	position     int
	episodeSteps int
	lastStep     timestep.TimeStep
}

func newChainEnv(episodeSteps int) *chainEnv {
	return &chainEnv{episodeSteps: episodeSteps}
}

func (c *chainEnv) observation() mat.Vector {
	return mat.NewVecDense(1, []float64{float64(c.position) / 10.0})
}

func (c *chainEnv) Start() mat.Vector {
	return mat.NewVecDense(1, []float64{0.0})
}

func (c *chainEnv) End(t *timestep.TimeStep) bool {
	if t.Number >= c.episodeSteps {
		t.StepType = timestep.Last
		return true
	}
	return false
}

func (c *chainEnv) GetReward(_ mat.Vector, action int, _ mat.Vector) float64 {
	return float64(action)
}

func (c *chainEnv) Reset() timestep.TimeStep {
	c.position = 0
	c.lastStep = timestep.New(timestep.First, 0.0, c.observation(), 0)
	return c.lastStep
}

func (c *chainEnv) Step(action int) (timestep.TimeStep, bool) {
	c.position++
	reward := c.GetReward(nil, action, nil)

	next := timestep.New(timestep.Mid, reward, c.observation(),
		c.lastStep.Number+1)
	c.End(&next)

	c.lastStep = next
	return next, next.Last()
}

func (c *chainEnv) ObservationSpec() environment.Spec {
	shape := mat.NewVecDense(1, nil)
	lower := mat.NewVecDense(1, []float64{0.0})
	upper := mat.NewVecDense(1, []float64{1.0})
	return environment.NewSpec(shape, environment.Observation, lower,
		upper, environment.Continuous)
}

func (c *chainEnv) ActionSpec() environment.Spec {
	shape := mat.NewVecDense(1, nil)
	lower := mat.NewVecDense(1, []float64{0.0})
	upper := mat.NewVecDense(1, []float64{1.0})
	return environment.NewSpec(shape, environment.Action, lower, upper,
		environment.Discrete)
}

func testConfig(variant Variant, nStep int) Config {
	init, _ := initwfn.NewGlorotU(1.0)
	sol, _ := solver.NewDefaultAdam(0.001, 8)

	return Config{
		Variant:     variant,
		HiddenSizes: []int{8},
		Biases:      []bool{true},
		Activations: []*network.Activation{network.Tanh()},
		InitWFn:     init,
		Solver:      sol,

		Quantiles: 5,
		Atoms:     5,
		VMin:      -5.0,
		VMax:      5.0,

		Gamma: 0.9,
		NStep: nStep,

		Replay: expreplay.Config{
			Type:              expreplay.Uniform,
			MaxReplayCapacity: 256,
			MinReplayCapacity: 16,
			BatchSize:         8,
		},

		Epsilon:      1.0,
		MinEpsilon:   0.1,
		EpsilonDecay: 0.01,

		TrainFreq:    2,
		SyncInterval: 4,
		ClipNorm:     5.0,

		Episodes: 3,
	}
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, testConfig(DoubleDQN, 1).Validate())
	require.NoError(t, testConfig(QRDQN, 3).Validate())
	require.NoError(t, testConfig(Categorical, 3).Validate())

	bad := testConfig("Bogus", 1)
	require.Error(t, bad.Validate())

	bad = testConfig(QRDQN, 1)
	bad.Quantiles = 0
	require.Error(t, bad.Validate())

	bad = testConfig(Categorical, 1)
	bad.VMin, bad.VMax = 1.0, -1.0
	require.Error(t, bad.Validate())

	bad = testConfig(DoubleDQN, 1)
	bad.Gamma = 1.5
	require.Error(t, bad.Validate())

	bad = testConfig(DoubleDQN, 0)
	require.Error(t, bad.Validate())

	bad = testConfig(DoubleDQN, 1)
	bad.Tau = 0.0
	bad.SyncInterval = 0
	require.Error(t, bad.Validate())
}

func TestCreateAgentBuildsEveryVariant(t *testing.T) {
	for _, variant := range []Variant{DoubleDQN, QRDQN, Categorical} {
		created, err := testConfig(variant, 3).CreateAgent(newChainEnv(10), 7)
		require.NoError(t, err, "variant %v", variant)
		require.True(t, testConfig(variant, 3).ValidAgent(created))
	}
}

func TestTrainRunsToCompletion(t *testing.T) {
	for _, variant := range []Variant{DoubleDQN, QRDQN, Categorical} {
		config := testConfig(variant, 2)
		env := newChainEnv(12)

		live, loss, err := config.buildVariant(1, 2)
		require.NoError(t, err)

		learner, err := NewLearner(live, config.Solver, loss,
			config.ClipNorm, config.Tau, config.SyncInterval, nil, 7)
		require.NoError(t, err)

		policy, err := NewEpsGreedy(live, config.Epsilon, config.MinEpsilon,
			config.EpsilonDecay, 7)
		require.NoError(t, err)

		buffer, err := config.Replay.Create(1, 7)
		require.NoError(t, err)

		window, err := expreplay.NewNStepWindow(config.NStep, config.Gamma)
		require.NoError(t, err)

		deepQ, err := New(env, learner, policy, buffer, window, nil, nil,
			config.Episodes, config.TrainFreq, 0)
		require.NoError(t, err)

		require.NoError(t, deepQ.Train(), "variant %v", variant)
	}
}

func TestLearnerHardSyncSchedule(t *testing.T) {
	init, err := initwfn.NewGlorotU(1.0)
	require.NoError(t, err)
	sol, err := solver.NewVanilla(0.1, 2, 0.0)
	require.NoError(t, err)

	live, err := network.NewQMLP(1, 2, []int{4}, []bool{true},
		[]*network.Activation{network.Tanh()}, init.InitWFn())
	require.NoError(t, err)

	loss, err := losses.NewDoubleDQN(0.9, 1)
	require.NoError(t, err)

	learner, err := NewLearner(live, sol, loss, 0.0, 0.0, 2, nil, 3)
	require.NoError(t, err)

	batch := timestep.StackTransitions([]timestep.Transition{
		timestep.NewTransition(mat.NewVecDense(1, []float64{0.1}), 0, 1.0,
			mat.NewVecDense(1, []float64{0.2}), false),
		timestep.NewTransition(mat.NewVecDense(1, []float64{0.2}), 1, -1.0,
			mat.NewVecDense(1, []float64{0.3}), true),
	})

	distance := func() float64 {
		sum := 0.0
		targetParams := learner.TargetNet().Parameters()
		for i, param := range live.Parameters() {
			liveData := param.Data().([]float64)
			targetData := targetParams[i].Data().([]float64)
			for j := range liveData {
				diff := liveData[j] - targetData[j]
				sum += diff * diff
			}
		}
		return sum
	}

	// The target starts as an exact copy
	require.Zero(t, distance())

	// The first update moves the live network but not the target
	_, err = learner.UpdateModel(batch)
	require.NoError(t, err)
	require.Greater(t, distance(), 0.0)

	// The second update lands on the sync interval
	_, err = learner.UpdateModel(batch)
	require.NoError(t, err)
	require.Zero(t, distance())
}

func TestEpsGreedyDecaysToFloor(t *testing.T) {
	init, err := initwfn.NewGlorotU(1.0)
	require.NoError(t, err)

	net, err := network.NewQMLP(1, 2, []int{4}, []bool{true},
		[]*network.Activation{network.Tanh()}, init.InitWFn())
	require.NoError(t, err)

	policy, err := NewEpsGreedy(net, 0.5, 0.1, 0.15, 11)
	require.NoError(t, err)

	require.InDelta(t, 0.5, policy.Epsilon(), 1e-12)
	policy.DecayEpsilon()
	require.InDelta(t, 0.35, policy.Epsilon(), 1e-12)
	policy.DecayEpsilon()
	require.InDelta(t, 0.2, policy.Epsilon(), 1e-12)
	policy.DecayEpsilon()
	require.InDelta(t, 0.1, policy.Epsilon(), 1e-12)
	policy.DecayEpsilon()
	require.InDelta(t, 0.1, policy.Epsilon(), 1e-12)
}

func TestGreedySelectsArgmaxAction(t *testing.T) {
	init, err := initwfn.NewZeroes()
	require.NoError(t, err)

	// Zero weights make both action values equal; greedy argmax breaks
	// the tie toward the first action
	net, err := network.NewQMLP(1, 2, nil, nil, nil, init.InitWFn())
	require.NoError(t, err)

	policy, err := NewGreedy(net, 5)
	require.NoError(t, err)

	action, err := policy.SelectAction(mat.NewVecDense(1, []float64{0.4}))
	require.NoError(t, err)
	require.Equal(t, 0, action)
}
