// Package deepq implements value-based deep Q agents: the scalar
// double-Q variant and its distributional quantile regression and
// categorical variants. All three share one training loop, one
// learner, and one epsilon greedy exploration policy, differing only
// in the network head and loss engine selected at construction.
package deepq

import (
	"fmt"

	"github.com/aunum/log"

	"github.com/rlkit/valuerl/agent"
	"github.com/rlkit/valuerl/environment"
	"github.com/rlkit/valuerl/experiment/tracker"
	"github.com/rlkit/valuerl/expreplay"
	"github.com/rlkit/valuerl/timestep"
	"github.com/rlkit/valuerl/utils/floatutils"
)

// DeepQ runs the training loop of a value-based agent: environment
// stepping, n-step aggregation, replay storage, gated network updates
// with priority write-back, epsilon decay, and periodic greedy
// evaluation with checkpointing.
//
// Each episode the loop collects transitions until the environment
// reports termination, firing an update whenever the replay buffer
// holds enough experience and the step counter lands on the train
// frequency. Non-finite losses and shape mismatches abort the run;
// logging and checkpoint failures are reported and ignored.
type DeepQ struct {
	env     environment.Environment
	learner *Learner
	policy  agent.ExplorationPolicy
	buffer  expreplay.Buffer
	window  *expreplay.NStepWindow // nil when n-step is disabled

	logger   tracker.Logger
	trackers []tracker.Tracker

	episodes     int
	trainFreq    int
	testInterval int // episodes between evaluations, 0 disables

	steps   int
	updates int
}

// New returns a new DeepQ agent over the given collaborators. A nil
// window disables n-step aggregation and a nil logger disables metric
// logging.
func New(env environment.Environment, learner *Learner,
	policy agent.ExplorationPolicy, buffer expreplay.Buffer,
	window *expreplay.NStepWindow, logger tracker.Logger,
	trackers []tracker.Tracker, episodes, trainFreq,
	testInterval int) (*DeepQ, error) {
	if episodes < 1 {
		return nil, fmt.Errorf("new: episodes must be >= 1 \n\thave(%v)",
			episodes)
	}
	if trainFreq < 1 {
		return nil, fmt.Errorf("new: train frequency must be >= 1 "+
			"\n\thave(%v)", trainFreq)
	}
	if logger == nil {
		logger = tracker.NewNoOp()
	}

	return &DeepQ{
		env:          env,
		learner:      learner,
		policy:       policy,
		buffer:       buffer,
		window:       window,
		logger:       logger,
		trackers:     trackers,
		episodes:     episodes,
		trainFreq:    trainFreq,
		testInterval: testInterval,
	}, nil
}

// Train runs the training loop until the configured number of
// episodes has finished
func (d *DeepQ) Train() error {
	for episode := 1; episode <= d.episodes; episode++ {
		episodeReturn, episodeLoss, err := d.runEpisode()
		if err != nil {
			return fmt.Errorf("train: episode %v: %v", episode, err)
		}

		if err := d.logger.WriteLog(map[string]float64{
			"episode": float64(episode),
			"return":  episodeReturn,
			"loss":    episodeLoss,
			"epsilon": d.policy.Epsilon(),
		}); err != nil {
			log.Warningf("could not log episode %v: %v", episode, err)
		}

		if d.testInterval > 0 && episode%d.testInterval == 0 {
			if err := d.evaluate(episode); err != nil {
				return fmt.Errorf("train: episode %v: %v", episode, err)
			}
		}
	}

	for _, t := range d.trackers {
		if err := t.Save(); err != nil {
			log.Warningf("could not save tracked data: %v", err)
		}
	}
	return nil
}

// runEpisode steps the environment through one episode, storing
// transitions and firing gated updates, and returns the episodic
// return together with the mean update loss of the episode
func (d *DeepQ) runEpisode() (float64, float64, error) {
	step := d.env.Reset()
	d.track(step)
	obs := step.Observation

	episodeReturn := 0.0
	var updateLosses []float64

	done := false
	for !done {
		action, err := d.policy.SelectAction(obs)
		if err != nil {
			return 0, 0, err
		}

		var next timestep.TimeStep
		next, done = d.env.Step(action)
		d.track(next)
		episodeReturn += next.Reward

		transition := timestep.NewTransition(obs, action, next.Reward,
			next.Observation, done)
		if err := d.store(transition, done); err != nil {
			return 0, 0, err
		}

		d.steps++
		if d.shouldUpdate() {
			loss, updated, err := d.update()
			if err != nil {
				return 0, 0, err
			}
			if updated {
				updateLosses = append(updateLosses, loss)
			}
		}

		obs = next.Observation
	}

	meanLoss := 0.0
	if len(updateLosses) > 0 {
		meanLoss = floatutils.Mean(updateLosses)
	}
	return episodeReturn, meanLoss, nil
}

// store routes a single-step transition into the replay buffer,
// collapsing it through the n-step window when one is configured. At
// episode boundaries a partially full window is flushed so that the
// episode's tail transitions are not dropped.
func (d *DeepQ) store(t timestep.Transition, done bool) error {
	if d.window == nil {
		return d.buffer.Add(t)
	}

	if err := d.window.Push(t); err != nil {
		return err
	}
	if !d.window.Full() && !done {
		return nil
	}

	aggregated, err := d.window.Aggregate()
	if err != nil {
		return err
	}
	return d.buffer.Add(aggregated)
}

// shouldUpdate gates network updates on buffer warm-up and the train
// frequency
func (d *DeepQ) shouldUpdate() bool {
	return d.buffer.Len() >= d.buffer.MinCapacity() &&
		d.steps%d.trainFreq == 0
}

// update samples one batch and performs one gradient update, feeding
// new priorities back into a prioritized buffer and decaying epsilon.
// The boolean return reports whether an update actually fired.
func (d *DeepQ) update() (float64, bool, error) {
	batch, err := d.buffer.Sample()
	if expreplay.IsEmptyBuffer(err) || expreplay.IsInsufficientSamples(err) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	update, err := d.learner.UpdateModel(batch)
	if err != nil {
		return 0, false, err
	}
	d.updates++

	if batch.Prioritized() {
		if err := d.buffer.UpdatePriorities(update.Indices,
			update.Priorities); err != nil {
			return 0, false, err
		}
	}

	d.policy.DecayEpsilon()
	return update.Loss, true, nil
}

// evaluate snapshots the live network into a greedy policy, runs one
// evaluation episode without exploration or learning, logs the score,
// and persists the live network's parameters
func (d *DeepQ) evaluate(episode int) error {
	policy, err := d.learner.GetPolicy()
	if err != nil {
		return err
	}

	step := d.env.Reset()
	obs := step.Observation
	score := 0.0

	done := false
	for !done {
		action, err := policy.SelectAction(obs)
		if err != nil {
			return err
		}

		var next timestep.TimeStep
		next, done = d.env.Step(action)
		score += next.Reward
		obs = next.Observation
	}

	if err := d.logger.WriteLog(map[string]float64{
		"episode":    float64(episode),
		"test score": score,
	}); err != nil {
		log.Warningf("could not log evaluation at episode %v: %v",
			episode, err)
	}

	name := fmt.Sprintf("episode-%v", episode)
	if err := d.learner.SaveParams(name); err != nil {
		log.Warningf("could not checkpoint at episode %v: %v", episode, err)
	}
	return nil
}

// track forwards a timestep to every registered tracker
func (d *DeepQ) track(step timestep.TimeStep) {
	for _, t := range d.trackers {
		t.Track(step)
	}
}
