// Package tracker implements Trackers, which record data generated by
// a training run, and Loggers, which sink per-episode metrics.
package tracker

import (
	"encoding/gob"
	"fmt"
	"os"

	ts "github.com/rlkit/valuerl/timestep"
)

// Tracker keeps track of training run data and saves the data after
// the run has finished
type Tracker interface {
	Track(t ts.TimeStep)
	Save() error
}

// LoadData loads and returns the data saved by a Tracker
func LoadData(filename string) ([]float64, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("loaddata: could not open data file: %v", err)
	}
	defer file.Close()

	dec := gob.NewDecoder(file)
	var data []float64
	if err := dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("loaddata: could not decode data: %v", err)
	}

	return data, nil
}
