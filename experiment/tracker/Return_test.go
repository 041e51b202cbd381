package tracker

import (
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/mat"

	ts "github.com/rlkit/valuerl/timestep"
)

func obs() mat.Vector {
	return mat.NewVecDense(1, []float64{0.0})
}

func TestReturnTracksEpisodicReturns(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "returns.bin")
	returns := NewReturn(filename)

	// Episode one: rewards 1 and 2
	returns.Track(ts.New(ts.First, 0.0, obs(), 0))
	returns.Track(ts.New(ts.Mid, 1.0, obs(), 1))
	returns.Track(ts.New(ts.Last, 2.0, obs(), 2))

	// Episode two: a single reward of -1
	returns.Track(ts.New(ts.First, 0.0, obs(), 0))
	returns.Track(ts.New(ts.Last, -1.0, obs(), 1))

	// Episode three never finishes, so its return is not recorded
	returns.Track(ts.New(ts.First, 0.0, obs(), 0))
	returns.Track(ts.New(ts.Mid, 100.0, obs(), 1))

	if err := returns.Save(); err != nil {
		t.Fatalf("could not save tracked returns: %v", err)
	}

	data, err := LoadData(filename)
	if err != nil {
		t.Fatalf("could not load tracked returns: %v", err)
	}

	expected := []float64{3.0, -1.0}
	if len(data) != len(expected) {
		t.Fatalf("expected %v returns, got %v", len(expected), len(data))
	}
	for i := range expected {
		if data[i] != expected[i] {
			t.Errorf("episode %v return should be %v, got %v", i+1,
				expected[i], data[i])
		}
	}
}

func TestReturnPanicsOnNonSequentialTimesteps(t *testing.T) {
	returns := NewReturn(filepath.Join(t.TempDir(), "returns.bin"))
	returns.Track(ts.New(ts.First, 0.0, obs(), 0))

	defer func() {
		if recover() == nil {
			t.Error("tracking a skipped timestep should panic")
		}
	}()
	returns.Track(ts.New(ts.Mid, 1.0, obs(), 5))
}
