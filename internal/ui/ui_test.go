package ui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/spotigest/internal/app"
	"github.com/desertthunder/spotigest/internal/models"
	"github.com/desertthunder/spotigest/internal/tasks"
)

type stubController struct {
	status  app.Status
	toggles int
}

func (c *stubController) Toggle() bool {
	c.toggles++
	c.status.Enabled = !c.status.Enabled
	return c.status.Enabled
}

func (c *stubController) Status() app.Status { return c.status }

func keyPress(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestModel(t *testing.T) {
	ctx := context.Background()

	t.Run("seeds the list from history", func(t *testing.T) {
		history := []*models.DispatchRecord{
			models.NewDispatchRecord(models.NextTrack(), models.OutcomeOK),
			models.NewDispatchRecord(models.VolumeSet(40), models.OutcomeDropped),
		}
		m := NewModel(ctx, &stubController{}, nil, history)

		if got := len(m.recent.Items()); got != 2 {
			t.Fatalf("expected 2 items, got %d", got)
		}
	})

	t.Run("pause key toggles detection", func(t *testing.T) {
		ctrl := &stubController{status: app.Status{Enabled: true}}
		m := NewModel(ctx, ctrl, nil, nil)

		m.Update(keyPress('p'))

		if ctrl.toggles != 1 {
			t.Fatalf("expected one toggle, got %d", ctrl.toggles)
		}
		if m.status.Enabled {
			t.Error("expected status to show paused")
		}
		if !strings.Contains(m.View(), "paused") {
			t.Error("expected view to render paused state")
		}
	})

	t.Run("status updates prepend items and count outcomes", func(t *testing.T) {
		m := NewModel(ctx, &stubController{}, nil, nil)
		now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

		m.Update(statusUpdateMsg(tasks.StatusUpdate{Action: models.NextTrack(), Outcome: models.OutcomeOK, Attempt: 1, At: now}))
		_, cmd := m.Update(statusUpdateMsg(tasks.StatusUpdate{
			Action:    models.PlayPause(),
			Outcome:   models.OutcomeDropped,
			ErrorKind: "premium_required",
			Message:   "premium required",
			Attempt:   1,
			At:        now.Add(time.Second),
		}))

		if cmd == nil {
			t.Error("expected a command to keep reading updates")
		}
		items := m.recent.Items()
		if len(items) != 2 {
			t.Fatalf("expected 2 items, got %d", len(items))
		}
		if first := items[0].(dispatchItem); first.action.Kind() != models.ActionPlayPause {
			t.Errorf("expected newest item first, got %s", first.action)
		}
		if m.counts[models.OutcomeOK] != 1 || m.counts[models.OutcomeDropped] != 1 {
			t.Errorf("unexpected counts: %v", m.counts)
		}
		if !strings.Contains(m.View(), "premium required") {
			t.Error("expected last error in view")
		}
	})

	t.Run("clear key empties the list", func(t *testing.T) {
		m := NewModel(ctx, &stubController{}, nil, []*models.DispatchRecord{
			models.NewDispatchRecord(models.NextTrack(), models.OutcomeOK),
		})
		m.counts[models.OutcomeOK] = 3

		m.Update(keyPress('c'))

		if len(m.recent.Items()) != 0 {
			t.Error("expected list to be empty")
		}
		if m.counts[models.OutcomeOK] != 0 {
			t.Error("expected counters to reset")
		}
	})

	t.Run("quit key quits", func(t *testing.T) {
		m := NewModel(ctx, &stubController{}, nil, nil)
		_, cmd := m.Update(keyPress('q'))
		if cmd == nil {
			t.Fatal("expected quit command")
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Error("expected tea.QuitMsg")
		}
	})

	t.Run("tick refreshes status", func(t *testing.T) {
		ctrl := &stubController{}
		m := NewModel(ctx, ctrl, nil, nil)
		ctrl.status = app.Status{Enabled: true, Frames: 42, LastAction: "NEXT_TRACK"}

		_, cmd := m.Update(tickMsg(time.Now()))

		if cmd == nil {
			t.Error("expected the next tick to be scheduled")
		}
		if m.status.Frames != 42 {
			t.Errorf("expected refreshed frames, got %d", m.status.Frames)
		}
	})

	t.Run("waitForUpdate", func(t *testing.T) {
		t.Run("delivers updates", func(t *testing.T) {
			updates := make(chan tasks.StatusUpdate, 1)
			updates <- tasks.StatusUpdate{Action: models.NextTrack(), Outcome: models.OutcomeOK}
			m := NewModel(ctx, nil, updates, nil)

			msg, ok := m.waitForUpdate()().(Msg)
			if !ok || msg.kind != MsgStatusUpdate {
				t.Fatalf("expected status update msg, got %#v", msg)
			}
		})

		t.Run("reports a closed channel", func(t *testing.T) {
			updates := make(chan tasks.StatusUpdate)
			close(updates)
			m := NewModel(ctx, nil, updates, nil)

			msg := m.waitForUpdate()().(Msg)
			if msg.kind != MsgUpdatesClosed {
				t.Fatalf("expected closed msg, got %v", msg.kind)
			}
			m.Update(msg)
			if !m.closed || !strings.Contains(m.View(), "stopped") {
				t.Error("expected stopped state")
			}
		})

		t.Run("stops on context cancel", func(t *testing.T) {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			m := NewModel(cctx, nil, make(chan tasks.StatusUpdate), nil)

			msg := m.waitForUpdate()().(Msg)
			if msg.kind != MsgUpdatesClosed {
				t.Fatalf("expected closed msg, got %v", msg.kind)
			}
		})
	})

	t.Run("item descriptions include attempts and kinds", func(t *testing.T) {
		item := itemFromUpdate(tasks.StatusUpdate{
			Action:    models.VolumeSet(30),
			Outcome:   models.OutcomeRetryScheduled,
			ErrorKind: "rate_limited",
			Attempt:   2,
			At:        time.Now(),
		})
		desc := item.Description()
		if !strings.Contains(desc, "attempt 2") || !strings.Contains(desc, "rate_limited") {
			t.Errorf("unexpected description %q", desc)
		}
		if item.FilterValue() == "" {
			t.Error("expected filter value")
		}
	})
}
