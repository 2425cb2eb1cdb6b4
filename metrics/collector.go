package metrics

// Collector wraps metrics and provides helper methods with pre-filled labels.
// A nil *Collector is valid and records nothing.
type Collector struct {
	database string
}

// NewCollector creates a new Collector for the given target database.
func NewCollector(database string) *Collector {
	return &Collector{database: database}
}

// IncFilesDeployed increments the deployed files counter for a directory.
func (c *Collector) IncFilesDeployed(directory string) {
	if c == nil {
		return
	}
	FilesDeployedTotal.WithLabelValues(c.database, directory).Inc()
}

// IncFilesSkipped increments the skipped entries counter for a directory.
func (c *Collector) IncFilesSkipped(directory string) {
	if c == nil {
		return
	}
	FilesSkippedTotal.WithLabelValues(c.database, directory).Inc()
}

// IncFailures increments the failures counter for the phase that failed.
func (c *Collector) IncFailures(phase string) {
	if c == nil {
		return
	}
	DeployFailuresTotal.WithLabelValues(c.database, phase).Inc()
}

// IncTagsApplied increments the tags applied counter.
func (c *Collector) IncTagsApplied() {
	if c == nil {
		return
	}
	TagsAppliedTotal.WithLabelValues(c.database).Inc()
}

// IncDirectoriesMissing increments the missing directories counter.
func (c *Collector) IncDirectoriesMissing() {
	if c == nil {
		return
	}
	DirectoriesMissingTotal.WithLabelValues(c.database).Inc()
}

// IncLockResets increments the lock resets counter.
func (c *Collector) IncLockResets() {
	if c == nil {
		return
	}
	LockResetsTotal.WithLabelValues(c.database).Inc()
}

// SetLastRunSuccess records the outcome of the run.
func (c *Collector) SetLastRunSuccess(success bool) {
	if c == nil {
		return
	}
	v := 0.0
	if success {
		v = 1
	}
	LastRunSuccess.WithLabelValues(c.database).Set(v)
}

// ObserveFileDeployDuration records a file deploy duration observation.
func (c *Collector) ObserveFileDeployDuration(seconds float64) {
	if c == nil {
		return
	}
	FileDeployDuration.WithLabelValues(c.database).Observe(seconds)
}

// ObserveRunDuration records a run duration observation.
func (c *Collector) ObserveRunDuration(seconds float64) {
	if c == nil {
		return
	}
	RunDuration.WithLabelValues(c.database).Observe(seconds)
}
