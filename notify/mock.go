package notify

import (
	"context"
	"sync"

	schemadeploy "github.com/getpup/schemadeploy"
)

// MockNotifier records every envelope it is given.
type MockNotifier struct {
	mu sync.Mutex

	// NotifyFunc is called by Notify if set.
	NotifyFunc func(ctx context.Context, envelope schemadeploy.NotificationEnvelope) error

	Envelopes []schemadeploy.NotificationEnvelope
}

// NewMockNotifier creates a new MockNotifier.
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

// Notify implements Notifier.
func (m *MockNotifier) Notify(ctx context.Context, envelope schemadeploy.NotificationEnvelope) error {
	m.mu.Lock()
	m.Envelopes = append(m.Envelopes, envelope)
	m.mu.Unlock()

	if m.NotifyFunc != nil {
		return m.NotifyFunc(ctx, envelope)
	}
	return nil
}

// Sent returns a copy of the recorded envelopes.
func (m *MockNotifier) Sent() []schemadeploy.NotificationEnvelope {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]schemadeploy.NotificationEnvelope(nil), m.Envelopes...)
}
