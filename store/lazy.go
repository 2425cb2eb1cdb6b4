package store

import (
	"context"
	"io"
	"sync"
)

// Opener connects to the tracking database. The returned Closer releases the
// connection.
type Opener func(ctx context.Context) (TrackingStore, io.Closer, error)

// Lazy is a TrackingStore that connects on first use, so a run that never
// reaches the lock reset never touches the database.
type Lazy struct {
	mu     sync.Mutex
	open   Opener
	store  TrackingStore
	closer io.Closer
}

// Compile-time check that Lazy implements TrackingStore.
var _ TrackingStore = (*Lazy)(nil)

// NewLazy creates a Lazy store. open is called at most once successfully.
func NewLazy(open Opener) *Lazy {
	return &Lazy{open: open}
}

func (l *Lazy) get(ctx context.Context) (TrackingStore, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.store != nil {
		return l.store, nil
	}
	s, closer, err := l.open(ctx)
	if err != nil {
		return nil, err
	}
	l.store, l.closer = s, closer
	return s, nil
}

// Opened reports whether the database has been connected.
func (l *Lazy) Opened() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store != nil
}

// EnsureSchema implements TrackingStore.
func (l *Lazy) EnsureSchema(ctx context.Context) error {
	s, err := l.get(ctx)
	if err != nil {
		return err
	}
	return s.EnsureSchema(ctx)
}

// LockTableExists implements TrackingStore.
func (l *Lazy) LockTableExists(ctx context.Context) (bool, error) {
	s, err := l.get(ctx)
	if err != nil {
		return false, err
	}
	return s.LockTableExists(ctx)
}

// ReleaseLock implements TrackingStore.
func (l *Lazy) ReleaseLock(ctx context.Context) error {
	s, err := l.get(ctx)
	if err != nil {
		return err
	}
	return s.ReleaseLock(ctx)
}

// Close releases the connection if one was opened.
func (l *Lazy) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closer == nil {
		return nil
	}
	err := l.closer.Close()
	l.store, l.closer = nil, nil
	return err
}
