package lifecycle

import (
	"sync"

	schemadeploy "github.com/getpup/schemadeploy"
	"github.com/hashicorp/go-hclog"
)

// Tracker records the phase transitions of a deploy run.
type Tracker struct {
	mu      sync.Mutex
	logger  hclog.Logger
	phase   schemadeploy.Phase
	history []schemadeploy.Phase
}

// New creates a Tracker in the idle phase.
func New(logger hclog.Logger) *Tracker {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Tracker{
		logger:  logger,
		phase:   schemadeploy.PhaseIdle,
		history: []schemadeploy.Phase{schemadeploy.PhaseIdle},
	}
}

// Transition moves to phase and logs the change. Re-entering the current
// phase is recorded too, since every file passes through deploying and tagging.
func (t *Tracker) Transition(phase schemadeploy.Phase, args ...interface{}) {
	t.mu.Lock()
	from := t.phase
	t.phase = phase
	t.history = append(t.history, phase)
	t.mu.Unlock()

	t.logger.Debug("phase changed", append([]interface{}{"from", from, "to", phase}, args...)...)
}

// Phase returns the current phase.
func (t *Tracker) Phase() schemadeploy.Phase {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.phase
}

// History returns every phase entered, starting with idle.
func (t *Tracker) History() []schemadeploy.Phase {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]schemadeploy.Phase(nil), t.history...)
}
