// Package a2c implements an advantage actor-critic agent over
// discrete action spaces. The agent collects one on-policy episode at
// a time and performs a single actor-critic update per episode, so no
// replay buffer is involved.
package a2c

import (
	"fmt"

	"github.com/aunum/log"

	"github.com/rlkit/valuerl/agent"
	"github.com/rlkit/valuerl/environment"
	"github.com/rlkit/valuerl/experiment/tracker"
	"github.com/rlkit/valuerl/timestep"
)

// A2C runs the actor-critic training loop: collect one episode with
// the stochastic policy, update both networks from the rollout, and
// periodically evaluate greedily and checkpoint.
type A2C struct {
	env     environment.Environment
	learner *Learner
	policy  agent.Policy

	logger   tracker.Logger
	trackers []tracker.Tracker

	episodes     int
	testInterval int
}

// New returns a new A2C agent over the given collaborators. A nil
// logger disables metric logging.
func New(env environment.Environment, learner *Learner,
	policy agent.Policy, logger tracker.Logger,
	trackers []tracker.Tracker, episodes, testInterval int) (*A2C, error) {
	if episodes < 1 {
		return nil, fmt.Errorf("new: episodes must be >= 1 \n\thave(%v)",
			episodes)
	}
	if logger == nil {
		logger = tracker.NewNoOp()
	}

	return &A2C{
		env:          env,
		learner:      learner,
		policy:       policy,
		logger:       logger,
		trackers:     trackers,
		episodes:     episodes,
		testInterval: testInterval,
	}, nil
}

// Train runs the training loop until the configured number of
// episodes has finished
func (a *A2C) Train() error {
	for episode := 1; episode <= a.episodes; episode++ {
		rollout, episodeReturn, err := a.collectEpisode()
		if err != nil {
			return fmt.Errorf("train: episode %v: %v", episode, err)
		}

		update, err := a.learner.UpdateModel(
			timestep.StackTransitions(rollout))
		if err != nil {
			return fmt.Errorf("train: episode %v: %v", episode, err)
		}

		if err := a.logger.WriteLog(map[string]float64{
			"episode": float64(episode),
			"return":  episodeReturn,
			"loss":    update.Loss,
		}); err != nil {
			log.Warningf("could not log episode %v: %v", episode, err)
		}

		if a.testInterval > 0 && episode%a.testInterval == 0 {
			if err := a.evaluate(episode); err != nil {
				return fmt.Errorf("train: episode %v: %v", episode, err)
			}
		}
	}

	for _, t := range a.trackers {
		if err := t.Save(); err != nil {
			log.Warningf("could not save tracked data: %v", err)
		}
	}
	return nil
}

// collectEpisode runs one episode with the stochastic policy and
// returns the ordered rollout together with the episodic return
func (a *A2C) collectEpisode() ([]timestep.Transition, float64, error) {
	step := a.env.Reset()
	a.track(step)
	obs := step.Observation

	var rollout []timestep.Transition
	episodeReturn := 0.0

	done := false
	for !done {
		action, err := a.policy.SelectAction(obs)
		if err != nil {
			return nil, 0, err
		}

		var next timestep.TimeStep
		next, done = a.env.Step(action)
		a.track(next)
		episodeReturn += next.Reward

		rollout = append(rollout, timestep.NewTransition(obs, action,
			next.Reward, next.Observation, done))
		obs = next.Observation
	}

	return rollout, episodeReturn, nil
}

// evaluate runs one greedy episode without learning, logs the score,
// and persists the network parameters
func (a *A2C) evaluate(episode int) error {
	policy, err := a.learner.GetPolicy()
	if err != nil {
		return err
	}

	step := a.env.Reset()
	obs := step.Observation
	score := 0.0

	done := false
	for !done {
		action, err := policy.SelectAction(obs)
		if err != nil {
			return err
		}

		var next timestep.TimeStep
		next, done = a.env.Step(action)
		score += next.Reward
		obs = next.Observation
	}

	if err := a.logger.WriteLog(map[string]float64{
		"episode":    float64(episode),
		"test score": score,
	}); err != nil {
		log.Warningf("could not log evaluation at episode %v: %v",
			episode, err)
	}

	name := fmt.Sprintf("episode-%v", episode)
	if err := a.learner.SaveParams(name); err != nil {
		log.Warningf("could not checkpoint at episode %v: %v", episode, err)
	}
	return nil
}

// track forwards a timestep to every registered tracker
func (a *A2C) track(step timestep.TimeStep) {
	for _, t := range a.trackers {
		t.Track(step)
	}
}
