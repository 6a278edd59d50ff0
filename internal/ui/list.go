package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"

	"github.com/desertthunder/spotigest/internal/models"
	"github.com/desertthunder/spotigest/internal/tasks"
)

var _ list.Item = dispatchItem{}

// dispatchItem wraps one dispatch attempt to implement [list.Item].
type dispatchItem struct {
	action  models.GestureAction
	outcome models.Outcome
	kind    string
	message string
	attempt int
	at      string
}

func itemFromUpdate(u tasks.StatusUpdate) dispatchItem {
	return dispatchItem{
		action:  u.Action,
		outcome: u.Outcome,
		kind:    u.ErrorKind,
		message: u.Message,
		attempt: u.Attempt,
		at:      u.At.Local().Format("15:04:05"),
	}
}

func itemFromRecord(r *models.DispatchRecord) dispatchItem {
	return dispatchItem{
		action:  r.GestureAction(),
		outcome: r.Outcome,
		kind:    r.ErrorKind,
		message: r.ErrorMessage,
		attempt: r.Attempt,
		at:      r.CreatedAt().Local().Format("15:04:05"),
	}
}

func (i dispatchItem) FilterValue() string { return i.action.String() }

func (i dispatchItem) Title() string {
	return fmt.Sprintf("%s  %s", i.at, i.action)
}

func (i dispatchItem) Description() string {
	desc := styles.outcome(i.outcome)
	if i.attempt > 1 {
		desc = fmt.Sprintf("%s • attempt %d", desc, i.attempt)
	}
	if i.kind != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.kind)
	}
	return desc
}
