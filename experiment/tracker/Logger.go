package tracker

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aunum/log"
)

// Logger sinks per-episode training metrics. Logging is best effort:
// a failed write must never abort a training run, so callers report
// returned errors without acting on them.
type Logger interface {
	WriteLog(metrics map[string]float64) error
}

// NoOp is a Logger that discards every metric
type NoOp struct{}

// NewNoOp returns a Logger that discards every metric
func NewNoOp() Logger {
	return NoOp{}
}

// WriteLog discards the metrics
func (NoOp) WriteLog(map[string]float64) error {
	return nil
}

// Console logs metrics to standard output, one line per call with keys
// in sorted order so that runs are easy to scan and diff
type Console struct{}

// NewConsole returns a Logger writing to standard output
func NewConsole() Logger {
	return Console{}
}

// WriteLog writes the metrics to standard output
func (Console) WriteLog(metrics map[string]float64) error {
	keys := make([]string, 0, len(metrics))
	for key := range metrics {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	fields := make([]string, 0, len(metrics))
	for _, key := range keys {
		fields = append(fields, fmt.Sprintf("%v: %v", key, metrics[key]))
	}
	log.Infof("%v", strings.Join(fields, "  "))
	return nil
}
