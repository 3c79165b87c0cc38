// Package tui is the terminal day preview: the same records, day
// assembly and overlap layout as the web calendar, drawn with lanes of
// text instead of positioned divs.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"timetracker-web/internal/format"
	"timetracker-web/internal/model"
)

// Loader fetches the records for one day. The CLI wires this to the
// calendar API client; tests supply a stub.
type Loader func(ctx context.Context, from, to time.Time) ([]model.Record, bool, error)

type Options struct {
	Load Loader
	Day  time.Time
	Loc  *time.Location
}

type dayLoadedMsg struct {
	day    time.Time
	allDay []*model.CalendarItem
	timed  []*model.CalendarItem
	stale  bool
}

type loadErrMsg struct{ err error }

type pulseMsg time.Time

type previewModel struct {
	load Loader
	loc  *time.Location
	day  time.Time

	allDay []*model.CalendarItem
	timed  []*model.CalendarItem
	stale  bool
	err    error

	loading  bool
	selected int
	width    int
	height   int
	pulse    bool

	keys    keyMap
	help    help.Model
	spinner spinner.Model
}

func newPreviewModel(opts Options) previewModel {
	if opts.Loc == nil {
		opts.Loc = time.Local
	}
	if opts.Day.IsZero() {
		now := time.Now().In(opts.Loc)
		y, m, d := now.Date()
		opts.Day = time.Date(y, m, d, 0, 0, 0, 0, opts.Loc)
	}
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return previewModel{
		load:    opts.Load,
		loc:     opts.Loc,
		day:     opts.Day,
		loading: true,
		width:   80,
		height:  24,
		keys:    defaultKeyMap(),
		help:    help.New(),
		spinner: sp,
	}
}

func (m previewModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.loadDay(m.day), pulseTick())
}

func (m previewModel) loadDay(day time.Time) tea.Cmd {
	load := m.load
	loc := m.loc
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		records, stale, err := load(ctx, day, day.AddDate(0, 0, 1))
		if err != nil {
			return loadErrMsg{err: err}
		}
		items := model.BuildDayItems(records, day, loc)
		allDay, timed := model.SplitAllDay(items)
		return dayLoadedMsg{day: day, allDay: allDay, timed: timed, stale: stale}
	}
}

// pulseTick drives the running-entry indicator blink.
func pulseTick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return pulseMsg(t) })
}

func (m previewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case dayLoadedMsg:
		if !msg.day.Equal(m.day) {
			return m, nil // stale load from a day we already left
		}
		m.allDay, m.timed, m.stale = msg.allDay, msg.timed, msg.stale
		m.err = nil
		m.loading = false
		if m.selected >= len(m.timed) {
			m.selected = len(m.timed) - 1
		}
		if m.selected < 0 {
			m.selected = 0
		}
		return m, nil

	case loadErrMsg:
		m.err = msg.err
		m.loading = false
		return m, nil

	case pulseMsg:
		m.pulse = !m.pulse
		return m, pulseTick()

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m previewModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	keys := m.keys
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, keys.PrevDay):
		return m.gotoDay(m.day.AddDate(0, 0, -1))
	case key.Matches(msg, keys.NextDay):
		return m.gotoDay(m.day.AddDate(0, 0, 1))
	case key.Matches(msg, keys.Today):
		now := time.Now().In(m.loc)
		y, mo, d := now.Date()
		return m.gotoDay(time.Date(y, mo, d, 0, 0, 0, 0, m.loc))
	case key.Matches(msg, keys.Reload):
		m.loading = true
		return m, tea.Batch(m.spinner.Tick, m.loadDay(m.day))
	case key.Matches(msg, keys.Up):
		if m.selected > 0 {
			m.selected--
		}
		return m, nil
	case key.Matches(msg, keys.Down):
		if m.selected < len(m.timed)-1 {
			m.selected++
		}
		return m, nil
	}
	return m, nil
}

func (m previewModel) gotoDay(day time.Time) (tea.Model, tea.Cmd) {
	m.day = day
	m.selected = 0
	m.loading = true
	return m, tea.Batch(m.spinner.Tick, m.loadDay(day))
}

func (m previewModel) View() string {
	title := titleStyle.Render(format.DayTitle(m.day, time.Now().In(m.loc)))
	if m.stale {
		title += "  " + staleStyle.Render("(offline data)")
	}
	if m.loading {
		title += "  " + m.spinner.View()
	}

	var body string
	switch {
	case m.err != nil:
		body = staleStyle.Render("Could not load the day: " + m.err.Error())
	default:
		if strip := renderAllDay(m.allDay, m.width); strip != "" {
			body = strip + "\n\n"
		}
		timed := m.timed
		if m.pulse {
			timed = dimRunning(timed)
		}
		body += renderTimeline(timed, m.width, m.selected)
	}

	detail := ""
	if m.selected >= 0 && m.selected < len(m.timed) {
		detail = "\n\n" + renderDetail(m.timed[m.selected], m.width)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		"",
		body+detail,
		"",
		m.help.View(m.keys),
	)
}

// dimRunning swaps the color of running entries on alternate pulses so
// they visibly tick in the terminal.
func dimRunning(timed []*model.CalendarItem) []*model.CalendarItem {
	out := make([]*model.CalendarItem, len(timed))
	for i, it := range timed {
		if !it.Running {
			out[i] = it
			continue
		}
		clone := *it
		clone.Color = "10"
		out[i] = &clone
	}
	return out
}

// Run starts the preview program and blocks until the user quits.
func Run(ctx context.Context, opts Options) error {
	p := tea.NewProgram(newPreviewModel(opts), tea.WithContext(ctx), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
