package a2c

import (
	"gonum.org/v1/gonum/stat"
)

// advantageEpsilon keeps advantage standardization finite when a
// rollout's advantages have zero variance
const advantageEpsilon = 1e-8

// rewardsToGo computes the discounted cumulative return of every step
// of a rollout, resetting accumulation at terminal steps so that
// returns never leak across episode boundaries
func rewardsToGo(rewards, dones []float64, gamma float64) []float64 {
	returns := make([]float64, len(rewards))
	running := 0.0
	for t := len(rewards) - 1; t >= 0; t-- {
		running = rewards[t] + gamma*(1.0-dones[t])*running
		returns[t] = running
	}
	return returns
}

// gaeAdvantages computes generalized advantage estimates over a
// rollout from its rewards and value predictions. The temporal
// difference residual of each step bootstraps from the next step's
// value, zeroed at terminal steps, and the residuals are folded
// backward with the discount gamma*lambda.
func gaeAdvantages(rewards, values, dones []float64, gamma,
	lambda float64) []float64 {
	n := len(rewards)
	advantages := make([]float64, n)

	running := 0.0
	for t := n - 1; t >= 0; t-- {
		nextValue := 0.0
		if t < n-1 {
			nextValue = values[t+1]
		}

		notDone := 1.0 - dones[t]
		delta := rewards[t] + gamma*nextValue*notDone - values[t]
		running = delta + gamma*lambda*notDone*running
		advantages[t] = running
	}
	return advantages
}

// standardize rescales the advantages in place to mean 0 and standard
// deviation 1
func standardize(advantages []float64) {
	mean := stat.Mean(advantages, nil)
	std := stat.StdDev(advantages, nil) + advantageEpsilon
	for i := range advantages {
		advantages[i] = (advantages[i] - mean) / std
	}
}
