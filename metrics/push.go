package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// DefaultJob is the Pushgateway job name for deploy runs.
const DefaultJob = "schemadeploy"

// Pusher sends the collected metrics to a Prometheus Pushgateway once a run
// finishes. A deploy run is a batch job and exits before it could be scraped.
type Pusher struct {
	pusher *push.Pusher
}

// NewPusher creates a Pusher for the Pushgateway at url.
// Metrics are gathered from gatherer; nil uses the default registry.
func NewPusher(url, job string, gatherer prometheus.Gatherer) *Pusher {
	if job == "" {
		job = DefaultJob
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Pusher{
		pusher: push.New(url, job).Gatherer(gatherer),
	}
}

// Grouping adds a grouping label to the pushed metrics.
func (p *Pusher) Grouping(name, value string) *Pusher {
	p.pusher = p.pusher.Grouping(name, value)
	return p
}

// Push replaces the metrics of this job on the Pushgateway.
func (p *Pusher) Push(ctx context.Context) error {
	if err := p.pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics: %w", err)
	}
	return nil
}
