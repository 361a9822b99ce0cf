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

// TodosModel is the tabbed todo list.
type TodosModel struct {
	ctx     context.Context
	svc     *services.TodoService
	toasts  *ToastBuffer
	theme   config.ThemeConfig
	st      styles
	spinner spinner.Model
	input   textinput.Model
	now     func() time.Time

	tab    domain.Tab
	mode   inputMode
	cursor int
	toast  *Toast
}

// NewTodosModel creates the todo view opened on tab.
func NewTodosModel(ctx context.Context, svc *services.TodoService, toasts *ToastBuffer, theme *config.ThemeConfig, tab domain.Tab) TodosModel {
	resolved := resolveTheme(theme)
	st := newStyles(resolved)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = st.accent

	ti := textinput.New()
	ti.CharLimit = 120
	ti.Width = 50
	ti.Placeholder = "title @tomorrow !3"

	if tab == "" {
		tab = domain.TabAll
	}
	return TodosModel{
		ctx:     ctx,
		svc:     svc,
		toasts:  toasts,
		theme:   resolved,
		st:      st,
		spinner: sp,
		input:   ti,
		now:     time.Now,
		tab:     tab,
	}
}

func (m TodosModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.openCmd(m.tab, false))
}

func (m TodosModel) openCmd(tab domain.Tab, force bool) tea.Cmd {
	svc, ctx := m.svc, m.ctx
	return func() tea.Msg {
		return loadedMsg{err: svc.Open(ctx, tab, force)}
	}
}

func (m TodosModel) actionCmd(fn func(ctx context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return actionMsg{err: fn(ctx)}
	}
}

func (m TodosModel) selected() (domain.Todo, bool) {
	items := m.svc.Items()
	if m.cursor < 0 || m.cursor >= len(items) {
		return domain.Todo{}, false
	}
	return items[m.cursor], true
}

func (m *TodosModel) settle(err error) {
	if m.toasts != nil {
		if t, ok := m.toasts.Take(); ok {
			m.toast = &t
		}
	}
	if err != nil && m.toast == nil {
		m.toast = &Toast{Level: ports.LevelError, Message: err.Error()}
	}
	if n := len(m.svc.Items()); m.cursor >= n {
		m.cursor = max(n-1, 0)
	}
}

func (m TodosModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.settle(nil)
		return m, cmd
	case loadedMsg:
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
		case modeAdd:
			return m.updateInput(msg)
		case modeConfirmDelete:
			return m.updateConfirmDelete(msg)
		}
		return m.updateBrowse(msg)
	}
	return m, nil
}

func (m TodosModel) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.toast = nil

	switch key := msg.String(); key {
	case "q", "esc":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.svc.Items())-1 {
			m.cursor++
		}
	case "tab", "right", "l":
		return m.switchTab(m.tabAt(1))
	case "shift+tab", "left", "h":
		return m.switchTab(m.tabAt(-1))
	case "1", "2", "3", "4":
		return m.switchTab(domain.Tabs[digitIndex(key)])
	case "r":
		return m, m.openCmd(m.tab, true)
	case "a":
		m.mode = modeAdd
		m.input.SetValue("")
		cmd := m.input.Focus()
		return m, cmd
	case " ", "enter", "x":
		todo, ok := m.actionable()
		if !ok {
			return m, nil
		}
		svc := m.svc
		return m, m.actionCmd(func(ctx context.Context) error {
			_, err := svc.SetDone(ctx, todo.ID, !todo.Done())
			return err
		})
	case "d":
		if _, ok := m.actionable(); ok {
			m.mode = modeConfirmDelete
		}
	}
	return m, nil
}

// actionable returns the selected todo when it is saved on the server.
func (m *TodosModel) actionable() (domain.Todo, bool) {
	todo, ok := m.selected()
	if !ok {
		return domain.Todo{}, false
	}
	if todo.IsPending() {
		m.toast = &Toast{Level: ports.LevelInfo, Message: domain.ErrPending.Error()}
		return domain.Todo{}, false
	}
	return todo, true
}

func (m TodosModel) tabAt(step int) domain.Tab {
	n := len(domain.Tabs)
	for i, t := range domain.Tabs {
		if t == m.tab {
			return domain.Tabs[((i+step)%n+n)%n]
		}
	}
	return domain.TabAll
}

func (m TodosModel) switchTab(tab domain.Tab) (tea.Model, tea.Cmd) {
	if tab == m.tab {
		return m, nil
	}
	m.tab = tab
	m.cursor = 0
	return m, m.openCmd(tab, false)
}

func (m TodosModel) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = modeBrowse
		m.input.Blur()
		return m, nil
	case "enter":
		m.mode = modeBrowse
		m.input.Blur()
		title, deadline, priority := ParseTodoInput(m.input.Value(), domain.FormatDate(m.now()))
		svc := m.svc
		return m, m.actionCmd(func(ctx context.Context) error {
			_, err := svc.Create(ctx, title, deadline, priority)
			return err
		})
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m TodosModel) updateConfirmDelete(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.mode = modeBrowse
	if msg.String() != "y" {
		return m, nil
	}
	todo, ok := m.selected()
	if !ok {
		return m, nil
	}
	svc := m.svc
	return m, m.actionCmd(func(ctx context.Context) error {
		return svc.Delete(ctx, todo.ID)
	})
}

// ParseTodoInput reads "@today", "@tomorrow" or "@YYYY-MM-DD" as the
// deadline and "!1".."!3" (a bare "!" is high) as the priority. The other
// words form the title.
func ParseTodoInput(input, today string) (title, deadline string, priority int) {
	var words []string
	for _, w := range strings.Fields(input) {
		switch {
		case w == "@today":
			deadline = today
		case w == "@tomorrow":
			deadline = domain.AddDays(today, 1)
		case strings.HasPrefix(w, "@") && domain.ValidateDate(w[1:]) == nil:
			deadline = w[1:]
		case w == "!":
			priority = domain.PriorityHigh
		case len(w) == 2 && w[0] == '!' && w[1] >= '1' && w[1] <= '3':
			priority = int(w[1] - '0')
		default:
			words = append(words, w)
		}
	}
	return strings.Join(words, " "), deadline, priority
}

func (m TodosModel) View() string {
	var b strings.Builder
	today := domain.FormatDate(m.now())

	b.WriteString("\n" + m.st.title.Render(fmt.Sprintf("  %s Todos", m.theme.IconApp)))
	if m.svc.Loading() {
		b.WriteString(" " + m.spinner.View())
	}
	b.WriteString("\n\n  ")

	for i, t := range domain.Tabs {
		label := fmt.Sprintf("%d %s", i+1, t.Label())
		if t == m.tab {
			b.WriteString(m.st.accent.Render("["+label+"]") + " ")
		} else {
			b.WriteString(m.st.muted.Render(" "+label+" ") + " ")
		}
	}
	b.WriteString("\n  " + m.st.muted.Render(m.svc.StatText()) + "\n\n")

	if msg := m.svc.ErrorMessage(); msg != "" {
		b.WriteString("  " + m.st.err.Render(msg) + "\n\n")
	}

	items := m.svc.Items()
	if len(items) == 0 {
		b.WriteString(m.st.muted.Render("    Nothing here") + "\n")
	}
	for i, todo := range items {
		b.WriteString(m.todoLine(todo, i == m.cursor, today))
	}

	switch m.mode {
	case modeAdd:
		b.WriteString("\n  " + m.st.accent.Render("New:") + " " + m.input.View() + "\n")
	case modeConfirmDelete:
		b.WriteString("\n  " + m.st.err.Render("Delete this todo? [y/N]") + "\n")
	}

	if m.toast != nil {
		b.WriteString("\n  " + renderToast(m.st, *m.toast) + "\n")
	}

	b.WriteString("\n" + m.st.muted.Render("  ↑/↓ move · tab/1-4 switch · space done/undo · a add · d delete · r refresh · q quit") + "\n")
	return b.String()
}

func (m TodosModel) todoLine(todo domain.Todo, active bool, today string) string {
	icon := m.theme.IconTodo
	if todo.Done() {
		icon = m.theme.IconDone
	}

	meta := domain.DeadlineLabel(todo, today)
	if todo.Priority != domain.PriorityNormal {
		meta += " · " + domain.PriorityLabel(todo.Priority)
	}

	title := todo.Title
	switch {
	case todo.IsPending():
		title = m.st.muted.Render(title + "  saving…")
	case todo.Done():
		title = m.st.done.Render(title)
	case todo.Priority == domain.PriorityHigh:
		title = m.st.high.Render(title)
	}

	prefix := "    "
	if active {
		prefix = "  " + m.st.accent.Render("▸") + " "
	}
	return fmt.Sprintf("%s%s %s  %s\n", prefix, icon, title, m.st.muted.Render(meta))
}
