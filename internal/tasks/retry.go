package tasks

import (
	"sync"
	"time"

	"github.com/desertthunder/spotigest/internal/shared"
)

type pendingRetry struct {
	timer  shared.Timer
	cancel chan struct{}
}

// RetryScheduler runs delayed functions off the caller's goroutine, at most one pending per key.
type RetryScheduler struct {
	clock   shared.Clock
	mu      sync.Mutex
	pending map[string]*pendingRetry
	stopped bool
	done    chan struct{}
	wg      sync.WaitGroup
}

func NewRetryScheduler(clock shared.Clock) *RetryScheduler {
	if clock == nil {
		clock = shared.RealClock{}
	}
	return &RetryScheduler{
		clock:   clock,
		pending: make(map[string]*pendingRetry),
		done:    make(chan struct{}),
	}
}

// Schedule arms fn to run once after delay. It returns false without scheduling when key
// already has a pending retry or the scheduler has been stopped.
func (s *RetryScheduler) Schedule(key string, delay time.Duration, fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return false
	}
	if _, ok := s.pending[key]; ok {
		return false
	}

	entry := &pendingRetry{timer: s.clock.NewTimer(delay), cancel: make(chan struct{})}
	s.pending[key] = entry
	s.wg.Add(1)

	go func() {
		defer s.wg.Done()
		select {
		case <-entry.timer.C():
		case <-entry.cancel:
			return
		case <-s.done:
			return
		}

		// The timer may fire alongside Stop or Cancel; the map decides who won.
		s.mu.Lock()
		if s.stopped || s.pending[key] != entry {
			s.mu.Unlock()
			return
		}
		delete(s.pending, key)
		s.mu.Unlock()

		fn()
	}()
	return true
}

// Cancel disarms the pending retry for key and reports whether one was pending.
func (s *RetryScheduler) Cancel(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.pending[key]
	if !ok {
		return false
	}
	entry.timer.Stop()
	close(entry.cancel)
	delete(s.pending, key)
	return true
}

// Pending reports whether key has an armed retry.
func (s *RetryScheduler) Pending(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[key]
	return ok
}

// Stop cancels every pending retry and refuses new ones. Retries already running finish.
func (s *RetryScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *RetryScheduler) stopLocked() {
	if s.stopped {
		return
	}
	s.stopped = true
	for key, entry := range s.pending {
		entry.timer.Stop()
		delete(s.pending, key)
	}
	close(s.done)
}

// Wait blocks until every scheduled goroutine has returned.
func (s *RetryScheduler) Wait() {
	s.wg.Wait()
}
