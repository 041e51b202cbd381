package environment

import (
	"gonum.org/v1/gonum/spatial/r1"
	"github.com/rlkit/valuerl/timestep"
)

// StepLimit implements the Ender interface to end episodes at specific
// timestep limits
type StepLimit struct {
	episodeSteps int
}

// NewStepLimit creates and returns a new step limit
func NewStepLimit(episodeSteps int) StepLimit {
	return StepLimit{episodeSteps}
}

// End determines whether or not the current episode should be ended,
// returning a boolean to indicate episode termination. If the episode
// should be ended, End will modify the timestep so that its StepType
// field is timestep.Last
func (s StepLimit) End(t *timestep.TimeStep) bool {
	if t.Number >= s.episodeSteps {
		t.StepType = timestep.Last
		return true
	}
	return false
}

// IntervalLimit implements the Ender interface to end episodes when
// monitored state features leave their legal intervals
type IntervalLimit struct {
	intervals      []r1.Interval
	featureIndices []int
}

// NewIntervalLimit creates and returns a new interval limit which ends
// episodes once the state feature at featureIndices[i] leaves
// intervals[i] for any i
func NewIntervalLimit(intervals []r1.Interval,
	featureIndices []int) IntervalLimit {
	if len(intervals) != len(featureIndices) {
		panic("newintervallimit: one interval needed per monitored feature")
	}
	return IntervalLimit{intervals, featureIndices}
}

// End determines whether or not the current episode should be ended,
// modifying the timestep's StepType field to timestep.Last if so
func (l IntervalLimit) End(t *timestep.TimeStep) bool {
	for i, index := range l.featureIndices {
		feature := t.Observation.AtVec(index)
		if feature < l.intervals[i].Min || feature > l.intervals[i].Max {
			t.StepType = timestep.Last
			return true
		}
	}
	return false
}
