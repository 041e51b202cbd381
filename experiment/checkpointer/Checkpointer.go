// Package checkpointer implements durable storage of network
// parameters, keyed by a per-run identity. Parameters are stored as an
// opaque gob blob of ordered parameter slices, so that any network
// whose parameter lists align can restore them.
package checkpointer

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Checkpointer persists network parameters under a name scoped to a
// single training run
type Checkpointer interface {
	// Checkpoint saves the ordered parameter slices under the given
	// name, overwriting any previous checkpoint of that name from the
	// same run
	Checkpoint(name string, params [][]float64) error

	// RunID returns the identity of the run whose checkpoints this
	// Checkpointer writes
	RunID() string
}

// File implements a Checkpointer writing one gob file per checkpoint
// name under a fixed directory
type File struct {
	dir   string
	runID string
}

// NewFile returns a Checkpointer writing checkpoints under dir with a
// fresh run identity. The directory is created if it does not exist.
func NewFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("newfile: could not create checkpoint "+
			"directory: %v", err)
	}

	return &File{
		dir:   dir,
		runID: uuid.NewString(),
	}, nil
}

// Checkpoint saves the ordered parameter slices under the given name
func (f *File) Checkpoint(name string, params [][]float64) error {
	file, err := os.Create(f.path(name))
	if err != nil {
		return fmt.Errorf("checkpoint: could not create checkpoint "+
			"file: %v", err)
	}
	defer file.Close()

	en := gob.NewEncoder(file)
	if err := en.Encode(params); err != nil {
		return fmt.Errorf("checkpoint: could not encode parameters: %v", err)
	}
	return nil
}

// RunID returns the identity of the run whose checkpoints this File
// writes
func (f *File) RunID() string {
	return f.runID
}

// Load restores the parameter slices saved under the given name by a
// run with the given identity
func Load(dir, runID, name string) ([][]float64, error) {
	file, err := os.Open(filepath.Join(dir,
		fmt.Sprintf("%v-%v.bin", runID, name)))
	if err != nil {
		return nil, fmt.Errorf("load: could not open checkpoint file: %v",
			err)
	}
	defer file.Close()

	dec := gob.NewDecoder(file)
	var params [][]float64
	if err := dec.Decode(&params); err != nil {
		return nil, fmt.Errorf("load: could not decode parameters: %v", err)
	}
	return params, nil
}

func (f *File) path(name string) string {
	return filepath.Join(f.dir, fmt.Sprintf("%v-%v.bin", f.runID, name))
}
