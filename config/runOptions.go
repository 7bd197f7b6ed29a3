package config

import (
	"io"

	"consensusmc/checking"
	"consensusmc/failureManager"
	"consensusmc/metrics"
)

// Configures the Failure Manager that will be used during the simulation

// The Failure Manager controls which nodes may crash and which messages may be lost.
// The budgets are part of the initial snapshot.
// Default value is a FailStopManager where every node may crash.
type FailureManagerOption struct {
	Fm failureManager.FailureManager
}

func (fmo FailureManagerOption) RunOpt() {}

// Configures io.writers that the discovered state will be exported to

// Can be applied multiple times to add multiple io.writers.
// Default value is no writers.
type ExportOption struct {
	W io.Writer
}

func (eo ExportOption) RunOpt() {}

// Configures the properties that are checked

// Can be applied multiple times to add more properties.
// Default value is checking.Default().
type PropertyOption struct {
	Properties []checking.Property
}

func (po PropertyOption) RunOpt() {}

// Configures where the progress of the run is recorded

// Default value is no metrics.
type MetricsOption struct {
	Metrics *metrics.Metrics
}

func (mo MetricsOption) RunOpt() {}
