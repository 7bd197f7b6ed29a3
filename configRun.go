package consensusmc

import (
	"io"
	"log"

	"consensusmc/checking"
	"consensusmc/config"
	"consensusmc/failureManager"
	"consensusmc/metrics"
	"consensusmc/model"
	"consensusmc/simulator"
	"consensusmc/state"
)

// Configures the initial snapshot of the system.
type SystemOption struct {
	sys *model.System
	err error
}

func (so SystemOption) system() *model.System {
	if so.err != nil {
		log.Panicf("Unable to create the initial snapshot: %v", so.err)
	}
	if so.sys == nil {
		log.Panicf("An initial snapshot must be provided")
	}
	return so.sys
}

// Create the initial snapshot with simulator.Initialize.
//
// nodeIds are the ids of the nodes, values the values that can be proposed and maxFailures the number of nodes that may crash in a run.
func InitSystem(nodeIds []int, values []model.Value, maxFailures int, opts ...simulator.InitOption) SystemOption {
	sys, err := simulator.Initialize(nodeIds, values, maxFailures, opts...)
	return SystemOption{sys: sys, err: err}
}

// Use the provided snapshot as the initial snapshot.
func WithSystem(sys *model.System) SystemOption {
	return SystemOption{sys: sys}
}

// Optional parameters used to configure a simulation or an exploration
type RunOptions interface {
	RunOpt()
}

// Specify the failure manager used
//
// Default value is a FailStopManager where every node may crash.
func WithFailureManager(fm failureManager.FailureManager) RunOptions {
	return config.FailureManagerOption{Fm: fm}
}

// Configure the run to use a FailStopManager.
//
// Only the failingNodes may crash. If none are provided every node may crash.
// The number of crashes is bounded by the maxFailures of the initial snapshot.
func WithFailStopManager(failingNodes ...int) RunOptions {
	return config.FailureManagerOption{Fm: failureManager.NewFailStopManager(failingNodes...)}
}

// Check the provided properties.
//
// Can be applied multiple times. Default value is checking.Default().
func WithProperties(properties ...checking.Property) RunOptions {
	return config.PropertyOption{Properties: properties}
}

// Export the discovered state space to the writer in Newick format.
//
// Can be applied multiple times.
func Export(w io.Writer) RunOptions {
	return config.ExportOption{W: w}
}

// Record the progress of the run in the provided metrics.
func WithMetrics(m *metrics.Metrics) RunOptions {
	return config.MetricsOption{Metrics: m}
}

type runConfig struct {
	fm         failureManager.FailureManager
	properties []checking.Property
	writers    []io.Writer
	metrics    *metrics.Metrics
}

func newRunConfig(opts ...RunOptions) runConfig {
	rc := runConfig{}
	for _, opt := range opts {
		switch t := opt.(type) {
		case config.FailureManagerOption:
			rc.fm = t.Fm
		case config.PropertyOption:
			rc.properties = append(rc.properties, t.Properties...)
		case config.ExportOption:
			rc.writers = append(rc.writers, t.W)
		case config.MetricsOption:
			rc.metrics = t.Metrics
		}
	}
	if rc.fm == nil {
		rc.fm = failureManager.NewFailStopManager()
	}
	if len(rc.properties) == 0 {
		rc.properties = checking.Default()
	}
	return rc
}

func (rc runConfig) export(space state.StateSpace) {
	if space == nil {
		return
	}
	for _, w := range rc.writers {
		space.Export(w)
	}
}
