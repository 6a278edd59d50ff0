package tasks

import (
	"sync/atomic"
	"testing"
	"time"

	th "github.com/desertthunder/spotigest/internal/testing"
)

func TestRetryScheduler(t *testing.T) {
	t.Run("Runs After Delay", func(t *testing.T) {
		clock := th.NewFakeClock(epoch)
		s := NewRetryScheduler(clock)
		ran := make(chan struct{})

		if !s.Schedule("k", 3*time.Second, func() { close(ran) }) {
			t.Fatal("Schedule refused")
		}
		if !s.Pending("k") {
			t.Error("expected pending retry")
		}

		clock.Advance(2 * time.Second)
		select {
		case <-ran:
			t.Fatal("ran early")
		case <-time.After(20 * time.Millisecond):
		}

		clock.Advance(time.Second)
		select {
		case <-ran:
		case <-time.After(2 * time.Second):
			t.Fatal("did not run")
		}
		s.Wait()
		if s.Pending("k") {
			t.Error("key still pending after run")
		}
	})

	t.Run("One Pending Per Key", func(t *testing.T) {
		s := NewRetryScheduler(th.NewFakeClock(epoch))
		defer s.Stop()

		if !s.Schedule("k", time.Second, func() {}) {
			t.Fatal("first Schedule refused")
		}
		if s.Schedule("k", time.Second, func() {}) {
			t.Error("second Schedule for same key accepted")
		}
		if !s.Schedule("other", time.Second, func() {}) {
			t.Error("different key refused")
		}
	})

	t.Run("Reschedule From Callback", func(t *testing.T) {
		clock := th.NewFakeClock(epoch)
		s := NewRetryScheduler(clock)
		defer s.Stop()

		var runs atomic.Int32
		rescheduled := make(chan bool, 1)
		s.Schedule("k", time.Second, func() {
			runs.Add(1)
			rescheduled <- s.Schedule("k", time.Second, func() { runs.Add(1) })
		})
		clock.Advance(time.Second)

		select {
		case ok := <-rescheduled:
			if !ok {
				t.Error("callback could not reschedule its own key")
			}
		case <-time.After(2 * time.Second):
			t.Fatal("callback did not run")
		}
	})

	t.Run("Stop Cancels Pending", func(t *testing.T) {
		clock := th.NewFakeClock(epoch)
		s := NewRetryScheduler(clock)

		var runs atomic.Int32
		s.Schedule("k", time.Second, func() { runs.Add(1) })
		s.Stop()
		s.Wait()
		clock.Advance(time.Minute)

		if runs.Load() != 0 {
			t.Error("cancelled retry ran")
		}
		if s.Schedule("k", time.Second, func() {}) {
			t.Error("Schedule accepted after Stop")
		}
		s.Stop()
	})
	t.Run("Cancel Disarms Key", func(t *testing.T) {
		clock := th.NewFakeClock(epoch)
		s := NewRetryScheduler(clock)
		defer s.Stop()

		var runs atomic.Int32
		s.Schedule("k", time.Second, func() { runs.Add(1) })
		if !s.Cancel("k") {
			t.Fatal("Cancel found nothing pending")
		}
		if s.Cancel("k") {
			t.Error("second Cancel reported a pending retry")
		}
		clock.Advance(time.Minute)
		if !s.Schedule("k", time.Second, func() {}) {
			t.Error("key not free after Cancel")
		}

		s.Stop()
		s.Wait()
		if runs.Load() != 0 {
			t.Error("cancelled retry ran")
		}
	})

	t.Run("Stop Beats Fired Timer", func(t *testing.T) {
		clock := th.NewFakeClock(epoch)
		s := NewRetryScheduler(clock)

		var runs atomic.Int32
		s.Schedule("k", time.Second, func() { runs.Add(1) })

		s.mu.Lock()
		clock.Advance(time.Second)
		time.Sleep(20 * time.Millisecond)
		s.stopLocked()
		s.mu.Unlock()
		s.Wait()

		if runs.Load() != 0 {
			t.Error("retry ran after Stop")
		}
	})
}
