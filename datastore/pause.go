package datastore

import (
	"context"
	"time"

	"go.uber.org/atomic"
)

// PauseSemaphore lets a snapshot briefly quiesce the background merger
// without aborting it. The merger polls it at safe points; this is a
// cooperative-poll design, not a hard preemption.
type PauseSemaphore struct {
	paused atomic.Bool
}

// NewPauseSemaphore returns a semaphore that starts unpaused.
func NewPauseSemaphore() *PauseSemaphore {
	return &PauseSemaphore{}
}

// Pause requests that the merger suspend at its next safe point.
func (s *PauseSemaphore) Pause() {
	s.paused.Store(true)
}

// Resume releases a prior Pause.
func (s *PauseSemaphore) Resume() {
	s.paused.Store(false)
}

const pausePollInterval = 5 * time.Millisecond

// Wait blocks while paused, or until ctx is cancelled.
func (s *PauseSemaphore) Wait(ctx context.Context) error {
	for s.paused.Load() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pausePollInterval):
		}
	}
	return nil
}
