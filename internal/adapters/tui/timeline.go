package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/xvierd/kage-cli/internal/config"
	"github.com/xvierd/kage-cli/internal/domain"
	"github.com/xvierd/kage-cli/internal/ports"
	"github.com/xvierd/kage-cli/internal/services"
)

// inputMode is what the text input is collecting, if anything.
type inputMode int

const (
	modeBrowse inputMode = iota
	modeAdd
	modeEditTitle
	modeEditTime
	modeConfirmDelete
)

// loadedMsg reports the end of a list fetch.
type loadedMsg struct{ err error }

// typesLoadedMsg reports the end of an event-type fetch.
type typesLoadedMsg struct{ err error }

// actionMsg reports the end of a server mutation.
type actionMsg struct{ err error }

// TimelineModel is the day view: events grouped by day part, with
// quick-add presets and inline edit and delete.
type TimelineModel struct {
	ctx     context.Context
	svc     *services.TimelineService
	toasts  *ToastBuffer
	theme   config.ThemeConfig
	st      styles
	spinner spinner.Model
	input   textinput.Model
	now     func() time.Time

	date   string
	mode   inputMode
	cursor int
	toast  *Toast
	width  int
}

// NewTimelineModel creates the timeline view opened on date, or today
// when date is empty.
func NewTimelineModel(ctx context.Context, svc *services.TimelineService, toasts *ToastBuffer, theme *config.ThemeConfig, date string) TimelineModel {
	resolved := resolveTheme(theme)
	st := newStyles(resolved)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = st.accent

	ti := textinput.New()
	ti.CharLimit = 120
	ti.Width = 50

	m := TimelineModel{
		ctx:     ctx,
		svc:     svc,
		toasts:  toasts,
		theme:   resolved,
		st:      st,
		spinner: sp,
		input:   ti,
		now:     time.Now,
		date:    date,
		width:   80,
	}
	if m.date == "" {
		m.date = domain.FormatDate(m.now())
	}
	svc.ShowCached(ctx, m.date)
	return m
}

func (m TimelineModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.openCmd(m.date, false), m.typesCmd(false))
}

func (m TimelineModel) openCmd(date string, force bool) tea.Cmd {
	svc, ctx := m.svc, m.ctx
	return func() tea.Msg {
		return loadedMsg{err: svc.Open(ctx, date, force)}
	}
}

func (m TimelineModel) typesCmd(force bool) tea.Cmd {
	svc, ctx := m.svc, m.ctx
	return func() tea.Msg {
		return typesLoadedMsg{err: svc.LoadEventTypes(ctx, force)}
	}
}

func (m TimelineModel) actionCmd(fn func(ctx context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return actionMsg{err: fn(ctx)}
	}
}

// visible returns the events in display order, section by section.
func (m TimelineModel) visible() []domain.Event {
	var out []domain.Event
	for _, section := range m.svc.Sections() {
		out = append(out, section.Items...)
	}
	return out
}

func (m TimelineModel) selected() (domain.Event, bool) {
	events := m.visible()
	if m.cursor < 0 || m.cursor >= len(events) {
		return domain.Event{}, false
	}
	return events[m.cursor], true
}

func (m *TimelineModel) pullToast() {
	if m.toasts == nil {
		return
	}
	if t, ok := m.toasts.Take(); ok {
		m.toast = &t
	}
}

// settle surfaces an error that no toast explained.
func (m *TimelineModel) settle(err error) {
	m.pullToast()
	if err != nil && m.toast == nil {
		m.toast = &Toast{Level: ports.LevelError, Message: err.Error()}
	}
	if n := len(m.visible()); m.cursor >= n {
		m.cursor = max(n-1, 0)
	}
}

func (m TimelineModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.pullToast()
		return m, cmd
	case loadedMsg:
		m.settle(nil)
		return m, nil
	case typesLoadedMsg:
		m.settle(nil)
		return m, nil
	case actionMsg:
		m.settle(msg.err)
		return m, nil
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.mode {
		case modeAdd, modeEditTitle, modeEditTime:
			return m.updateInput(msg)
		case modeConfirmDelete:
			return m.updateConfirmDelete(msg)
		}
		return m.updateBrowse(msg)
	}
	return m, nil
}

func (m TimelineModel) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.toast = nil
	key := msg.String()

	switch key {
	case "q", "esc":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.visible())-1 {
			m.cursor++
		}
	case "left", "h", "[":
		return m.switchDate(domain.AddDays(m.date, -1))
	case "right", "l", "]":
		return m.switchDate(domain.AddDays(m.date, 1))
	case "t":
		return m.switchDate(domain.FormatDate(m.now()))
	case "r":
		return m, tea.Batch(m.openCmd(m.date, true), m.typesCmd(true))
	case "a":
		return m.startInput(modeAdd, "", "HH:MM title, time optional")
	case "e":
		ev, ok := m.editable()
		if !ok {
			return m, nil
		}
		return m.startInput(modeEditTitle, ev.Title, "new title")
	case "T":
		ev, ok := m.editable()
		if !ok {
			return m, nil
		}
		return m.startInput(modeEditTime, ev.Time, "HH:MM")
	case "d", "x":
		if _, ok := m.editable(); ok {
			m.mode = modeConfirmDelete
		}
	default:
		if i := digitIndex(key); i >= 0 {
			svc := m.svc
			return m, m.actionCmd(func(ctx context.Context) error {
				_, err := svc.QuickAdd(ctx, i)
				return err
			})
		}
	}
	return m, nil
}

// editable returns the selected event when it is saved on the server.
func (m *TimelineModel) editable() (domain.Event, bool) {
	ev, ok := m.selected()
	if !ok {
		return domain.Event{}, false
	}
	if ev.IsPending() {
		m.toast = &Toast{Level: ports.LevelInfo, Message: domain.ErrPending.Error()}
		return domain.Event{}, false
	}
	return ev, true
}

func (m TimelineModel) switchDate(date string) (tea.Model, tea.Cmd) {
	m.date = date
	m.cursor = 0
	m.svc.ShowCached(m.ctx, date)
	return m, m.openCmd(date, true)
}

func (m TimelineModel) startInput(mode inputMode, value, placeholder string) (tea.Model, tea.Cmd) {
	m.mode = mode
	m.input.Placeholder = placeholder
	m.input.SetValue(value)
	m.input.CursorEnd()
	cmd := m.input.Focus()
	return m, cmd
}

func (m TimelineModel) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = modeBrowse
		m.input.Blur()
		return m, nil
	case "enter":
		value := strings.TrimSpace(m.input.Value())
		mode := m.mode
		m.mode = modeBrowse
		m.input.Blur()
		return m, m.submit(mode, value)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m TimelineModel) submit(mode inputMode, value string) tea.Cmd {
	svc := m.svc
	switch mode {
	case modeAdd:
		clock, title := splitClock(value)
		return m.actionCmd(func(ctx context.Context) error {
			_, err := svc.Add(ctx, title, clock)
			return err
		})
	case modeEditTitle, modeEditTime:
		ev, ok := m.selected()
		if !ok {
			return nil
		}
		var patch domain.EventPatch
		if mode == modeEditTitle {
			if value == "" || value == ev.Title {
				return nil
			}
			patch.Title = &value
		} else {
			if value == ev.Time {
				return nil
			}
			patch.StartTime = &value
		}
		return m.actionCmd(func(ctx context.Context) error {
			_, err := svc.Update(ctx, ev.ID, patch)
			return err
		})
	}
	return nil
}

func (m TimelineModel) updateConfirmDelete(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.mode = modeBrowse
	if msg.String() != "y" {
		return m, nil
	}
	ev, ok := m.selected()
	if !ok {
		return m, nil
	}
	svc := m.svc
	return m, m.actionCmd(func(ctx context.Context) error {
		return svc.Delete(ctx, ev.ID)
	})
}

// splitClock separates a leading HH:MM from the title of a manual add.
func splitClock(input string) (clock, title string) {
	first, rest, found := strings.Cut(strings.TrimSpace(input), " ")
	if found && domain.ValidateClock(first) == nil {
		return first, strings.TrimSpace(rest)
	}
	return "", strings.TrimSpace(input)
}

func (m TimelineModel) View() string {
	var b strings.Builder

	header := fmt.Sprintf("  %s Timeline  %s", m.theme.IconApp, m.date)
	if t, err := time.Parse(domain.DateLayout, m.date); err == nil {
		header += " (" + t.Format("Mon") + ")"
	}
	if m.date == domain.FormatDate(m.now()) {
		header += " · today"
	}
	b.WriteString("\n" + m.st.title.Render(header))
	if m.svc.Loading() {
		b.WriteString(" " + m.spinner.View())
	}
	b.WriteString("\n\n")

	if msg := m.svc.ErrorMessage(); msg != "" {
		b.WriteString("  " + m.st.err.Render(msg) + "\n\n")
	}

	row := 0
	for _, section := range m.svc.Sections() {
		b.WriteString("  " + m.st.header.Render(section.Label) + "\n")
		if len(section.Items) == 0 {
			b.WriteString(m.st.muted.Render("    ·") + "\n")
		}
		for _, ev := range section.Items {
			b.WriteString(m.eventLine(ev, row == m.cursor))
			row++
		}
		b.WriteString("\n")
	}

	if presets := m.svc.Presets(); len(presets) > 0 {
		var parts []string
		for i, p := range presets {
			if i >= 9 {
				break
			}
			parts = append(parts, fmt.Sprintf("[%d] %s", i+1, p))
		}
		b.WriteString("  " + m.st.muted.Render(strings.Join(parts, "  ")) + "\n\n")
	}

	switch m.mode {
	case modeAdd:
		b.WriteString("  " + m.st.accent.Render("Add:") + " " + m.input.View() + "\n")
	case modeEditTitle:
		b.WriteString("  " + m.st.accent.Render("Title:") + " " + m.input.View() + "\n")
	case modeEditTime:
		b.WriteString("  " + m.st.accent.Render("Time:") + " " + m.input.View() + "\n")
	case modeConfirmDelete:
		b.WriteString("  " + m.st.err.Render("Delete this event? [y/N]") + "\n")
	}

	if m.toast != nil {
		b.WriteString("  " + renderToast(m.st, *m.toast) + "\n")
	}

	b.WriteString("\n" + m.st.muted.Render("  ↑/↓ move · ←/→ day · t today · 1-9 quick add · a add · e title · T time · d delete · r refresh · q quit") + "\n")
	return b.String()
}

func (m TimelineModel) eventLine(ev domain.Event, active bool) string {
	line := fmt.Sprintf("%s  %s %s", ev.Time, m.theme.IconEvent, ev.Title)
	if v := ev.ValueNumber(); v != "" {
		line += " (" + v + ")"
	}
	switch {
	case ev.IsPending():
		return "    " + m.st.muted.Render(line+"  saving…") + "\n"
	case active:
		return "  " + m.st.accent.Render("▸ "+line) + "\n"
	default:
		return "    " + line + "\n"
	}
}

func renderToast(st styles, t Toast) string {
	switch t.Level {
	case ports.LevelError:
		return st.err.Render(t.Message)
	case ports.LevelSuccess:
		return st.success.Render(t.Message)
	default:
		return st.muted.Render(t.Message)
	}
}
