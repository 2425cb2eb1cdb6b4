package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// FilesDeployedTotal tracks changelog files applied successfully.
var FilesDeployedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "schemadeploy_files_deployed_total",
		Help: "Total changelog files deployed",
	},
	[]string{"database", "directory"},
)

// FilesSkippedTotal tracks directory entries that were not eligible changelog files.
var FilesSkippedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "schemadeploy_files_skipped_total",
		Help: "Total directory entries skipped as not eligible",
	},
	[]string{"database", "directory"},
)

// DeployFailuresTotal tracks failed deploys by phase.
var DeployFailuresTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "schemadeploy_failures_total",
		Help: "Total deploy failures",
	},
	[]string{"database", "phase"},
)

// TagsAppliedTotal tracks version tags recorded after each deployed file.
var TagsAppliedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "schemadeploy_tags_applied_total",
		Help: "Total version tags applied",
	},
	[]string{"database"},
)

// DirectoriesMissingTotal tracks configured schema directories that did not exist.
var DirectoriesMissingTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "schemadeploy_directories_missing_total",
		Help: "Total configured schema directories not found",
	},
	[]string{"database"},
)

// LockResetsTotal tracks tracking-lock resets.
var LockResetsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "schemadeploy_lock_resets_total",
		Help: "Total tracking lock resets",
	},
	[]string{"database"},
)

// LastRunSuccess is 1 when the last run succeeded and 0 otherwise.
var LastRunSuccess = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "schemadeploy_last_run_success",
		Help: "Whether the last deploy run succeeded (1) or failed (0)",
	},
	[]string{"database"},
)

// FileDeployDuration tracks migration tool wall time per changelog file.
var FileDeployDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "schemadeploy_file_deploy_duration_seconds",
		Help:    "Migration tool wall time per changelog file",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
	},
	[]string{"database"},
)

// RunDuration tracks total run wall time.
var RunDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "schemadeploy_run_duration_seconds",
		Help:    "Total deploy run wall time",
		Buckets: []float64{1, 5, 15, 30, 60, 300, 900, 1800, 3600},
	},
	[]string{"database"},
)
