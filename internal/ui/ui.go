package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/desertthunder/spotigest/internal/app"
	"github.com/desertthunder/spotigest/internal/models"
	"github.com/desertthunder/spotigest/internal/tasks"
)

// RefreshInterval is how often the status panel polls the capture loop.
const RefreshInterval = 500 * time.Millisecond

// MaxItems bounds the recent dispatch list.
const MaxItems = 200

// Controller is the part of the capture loop the monitor drives.
type Controller interface {
	Toggle() bool
	Status() app.Status
}

// Model is the monitor's state.
type Model struct {
	ctx        context.Context
	controller Controller
	updates    <-chan tasks.StatusUpdate
	status     app.Status
	last       *tasks.StatusUpdate
	counts     map[models.Outcome]int
	recent     list.Model
	closed     bool
	width      int
	height     int
	help       help.Model
	keys       keyMap
}

// NewModel creates a monitor reading updates until the channel closes. history seeds the
// recent list, newest first.
func NewModel(ctx context.Context, controller Controller, updates <-chan tasks.StatusUpdate, history []*models.DispatchRecord) *Model {
	items := make([]list.Item, 0, len(history))
	for _, r := range history {
		items = append(items, itemFromRecord(r))
	}

	recent := list.New(items, list.NewDefaultDelegate(), 0, 0)
	recent.Title = "Recent dispatches"
	recent.SetShowHelp(false)
	recent.SetFilteringEnabled(false)

	m := &Model{
		ctx:        ctx,
		controller: controller,
		updates:    updates,
		counts:     make(map[models.Outcome]int),
		recent:     recent,
		help:       help.New(),
		keys:       newKeyMap(),
	}
	if controller != nil {
		m.status = controller.Status()
	}
	return m
}

// Init starts listening for updates and the status refresh tick.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.waitForUpdate(), tick())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.recent.SetSize(msg.Width-4, max(msg.Height-14, 5))
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.pause):
			if m.controller != nil {
				m.controller.Toggle()
				m.status = m.controller.Status()
			}
			return m, nil
		case key.Matches(msg, m.keys.clear):
			m.recent.SetItems(nil)
			clear(m.counts)
			return m, nil
		}

	case Msg:
		return m.handleMsg(msg)
	}

	var cmd tea.Cmd
	m.recent, cmd = m.recent.Update(msg)
	return m, cmd
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgStatusUpdate:
		update := msg.data.(tasks.StatusUpdate)
		m.last = &update
		m.counts[update.Outcome]++

		items := append([]list.Item{itemFromUpdate(update)}, m.recent.Items()...)
		if len(items) > MaxItems {
			items = items[:MaxItems]
		}
		cmd := m.recent.SetItems(items)
		return m, tea.Batch(cmd, m.waitForUpdate())

	case MsgUpdatesClosed:
		m.closed = true
		return m, nil

	case MsgTick:
		if m.controller != nil {
			m.status = m.controller.Status()
		}
		return m, tick()
	}
	return m, nil
}

// View renders the status panel, the recent list and help.
func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(styles.title.Render("spotigest"))
	b.WriteString("\n")
	b.WriteString(styles.box.Render(m.renderStatus()))
	b.WriteString("\n\n")
	b.WriteString(m.recent.View())
	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView(m.keys.ShortHelp()))
	return b.String()
}

func (m *Model) renderStatus() string {
	state := styles.ok.Render("detecting")
	if !m.status.Enabled {
		state = styles.warn.Render("paused")
	}
	if m.closed {
		state = styles.err.Render("stopped")
	}

	nowPlaying := "unknown"
	if s := m.status.Snapshot; s != nil {
		nowPlaying = s.String()
		if len(s.Artists) > 0 {
			nowPlaying = fmt.Sprintf("%s by %s", nowPlaying, strings.Join(s.Artists, ", "))
		}
		if s.DeviceName != "" {
			nowPlaying = fmt.Sprintf("%s on %s", nowPlaying, s.DeviceName)
		}
	}

	device := m.status.FallbackDevice
	if device == "" {
		device = "none"
	}

	lastAction := m.status.LastAction
	if lastAction == "" {
		lastAction = models.NoAction().String()
	}

	rows := [][2]string{
		{"State", state},
		{"Gesture", lastAction},
		{"Playing", nowPlaying},
		{"Fallback", device},
		{"Frames", fmt.Sprintf("%d (%d with a hand)", m.status.Frames, m.status.HandFrames)},
		{"Dispatches", m.renderCounts()},
	}
	if m.last != nil && m.last.IsError() {
		rows = append(rows, [2]string{"Last error", styles.err.Render(m.last.Message)})
	}

	lines := make([]string, len(rows))
	for i, r := range rows {
		lines[i] = lipgloss.JoinHorizontal(lipgloss.Top, styles.label.Render(r[0]), r[1])
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderCounts() string {
	order := []models.Outcome{models.OutcomeOK, models.OutcomeRetryScheduled, models.OutcomeSkipped, models.OutcomeDropped}
	parts := make([]string, 0, len(order))
	for _, o := range order {
		parts = append(parts, fmt.Sprintf("%s %d", styles.outcome(o), m.counts[o]))
	}
	return strings.Join(parts, "  ")
}

func (m *Model) waitForUpdate() tea.Cmd {
	updates, ctx := m.updates, m.ctx
	return func() tea.Msg {
		if updates == nil {
			return nil
		}
		select {
		case update, ok := <-updates:
			if !ok {
				return updatesClosedMsg()
			}
			return statusUpdateMsg(update)
		case <-ctx.Done():
			return updatesClosedMsg()
		}
	}
}

func tick() tea.Cmd {
	return tea.Tick(RefreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}
