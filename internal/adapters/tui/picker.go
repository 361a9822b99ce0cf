package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/xvierd/kage-cli/internal/config"
)

// PickerItem represents one option in the picker.
type PickerItem struct {
	Label string
	Desc  string
}

// PickerResult holds the outcome of a picker interaction.
type PickerResult struct {
	Index   int
	Aborted bool
}

type pickerModel struct {
	title   string
	items   []PickerItem
	footer  string
	cursor  int
	chosen  bool
	aborted bool
	theme   config.ThemeConfig
}

func (m pickerModel) Init() tea.Cmd { return nil }

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.items)-1 {
				m.cursor++
			}
		case "enter":
			m.chosen = true
			return m, tea.Quit
		case "ctrl+c", "esc", "q":
			m.aborted = true
			return m, tea.Quit
		default:
			if i := digitIndex(msg.String()); i >= 0 && i < len(m.items) {
				m.cursor = i
				m.chosen = true
				return m, tea.Quit
			}
		}
	}
	return m, nil
}

func (m pickerModel) View() string {
	var b strings.Builder

	st := newStyles(m.theme)

	b.WriteString("\n")
	b.WriteString(st.title.Render("  "+m.theme.IconApp+" "+m.title) + "\n\n")

	for i, item := range m.items {
		if i == m.cursor {
			b.WriteString("  " + st.accent.Render(fmt.Sprintf("▸ %-3s %s", item.Label, item.Desc)) + "\n")
		} else {
			b.WriteString(st.muted.Render(fmt.Sprintf("    %-3s %s", item.Label, item.Desc)) + "\n")
		}
	}

	if m.footer != "" {
		b.WriteString("\n")
		b.WriteString(st.muted.Render("  "+m.footer) + "\n")
	}

	b.WriteString("\n")
	b.WriteString(st.muted.Render("  ↑/↓ navigate · 1-9 pick · enter select · esc back") + "\n")

	return b.String()
}

// --- Horizontal picker (for inline / narrow terminals) ---

type hPickerModel struct {
	title   string
	items   []PickerItem
	footer  string
	cursor  int
	chosen  bool
	aborted bool
	theme   config.ThemeConfig
}

func (m hPickerModel) Init() tea.Cmd { return nil }

func (m hPickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "left", "h":
			if m.cursor > 0 {
				m.cursor--
			}
		case "right", "l":
			if m.cursor < len(m.items)-1 {
				m.cursor++
			}
		case "1", "2", "3", "4", "5", "6", "7", "8", "9":
			if i := digitIndex(msg.String()); i < len(m.items) {
				m.cursor = i
				m.chosen = true
				return m, tea.Quit
			}
		case "enter":
			m.chosen = true
			return m, tea.Quit
		case "ctrl+c", "esc":
			m.aborted = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m hPickerModel) View() string {
	var b strings.Builder

	st := newStyles(m.theme)

	b.WriteString(st.title.Render("  "+m.title) + "  ")

	for i, item := range m.items {
		label := fmt.Sprintf("%s %s", item.Label, item.Desc)
		if i == m.cursor {
			b.WriteString(st.accent.Render(" ▸ " + label + " "))
		} else {
			b.WriteString(st.muted.Render("   " + label + " "))
		}
	}
	b.WriteString("\n")

	if m.footer != "" {
		b.WriteString(st.muted.Render("  "+m.footer) + "\n")
	}

	b.WriteString(st.muted.Render("  ←/→ navigate · enter select · esc back") + "\n")

	return b.String()
}

// digitIndex maps "1".."9" to 0..8, and anything else to -1.
func digitIndex(key string) int {
	if len(key) != 1 || key[0] < '1' || key[0] > '9' {
		return -1
	}
	return int(key[0] - '1')
}

// PresetItems turns quick-add labels into picker rows numbered from 1.
func PresetItems(labels []string) []PickerItem {
	items := make([]PickerItem, len(labels))
	for i, label := range labels {
		items[i] = PickerItem{Label: fmt.Sprintf("%d", i+1), Desc: label}
	}
	return items
}

// PriorityItems are the rows of the priority picker, low to high.
func PriorityItems() []PickerItem {
	return []PickerItem{
		{Label: "1", Desc: "Low"},
		{Label: "2", Desc: "Normal"},
		{Label: "3", Desc: "High"},
	}
}

// RunHorizontalPicker launches a compact horizontal arrow-key picker.
func RunHorizontalPicker(title string, items []PickerItem, footer string, theme *config.ThemeConfig) PickerResult {
	resolved := resolveTheme(theme)
	m := hPickerModel{
		title:  title,
		items:  items,
		footer: footer,
		theme:  resolved,
	}

	p := tea.NewProgram(m)
	result, err := p.Run()
	if err != nil {
		return PickerResult{Aborted: true}
	}

	final := result.(hPickerModel)
	if final.aborted {
		return PickerResult{Aborted: true}
	}
	return PickerResult{Index: final.cursor}
}

// RunPicker launches an interactive arrow-key picker and returns the selected index.
func RunPicker(title string, items []PickerItem, footer string, theme *config.ThemeConfig) PickerResult {
	resolved := resolveTheme(theme)
	m := pickerModel{
		title:  title,
		items:  items,
		footer: footer,
		theme:  resolved,
	}

	p := tea.NewProgram(m)
	result, err := p.Run()
	if err != nil {
		return PickerResult{Aborted: true}
	}

	final := result.(pickerModel)
	if final.aborted {
		return PickerResult{Aborted: true}
	}
	return PickerResult{Index: final.cursor}
}

// --- Styled text prompt ---

// TextPromptResult holds the outcome of a text prompt.
type TextPromptResult struct {
	Value   string
	Aborted bool
}

type textPromptModel struct {
	title       string
	placeholder string
	input       textinput.Model
	aborted     bool
	theme       config.ThemeConfig
}

func (m textPromptModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m textPromptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			return m, tea.Quit
		case "ctrl+c", "esc":
			m.aborted = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m textPromptModel) View() string {
	var b strings.Builder

	st := newStyles(m.theme)

	b.WriteString("\n")
	b.WriteString(st.title.Render("  "+m.title) + " ")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")
	b.WriteString(st.muted.Render("  enter confirm · esc back") + "\n")

	return b.String()
}

// RunTextPrompt launches a styled text input prompt.
func RunTextPrompt(title string, placeholder string, theme *config.ThemeConfig) TextPromptResult {
	resolved := resolveTheme(theme)

	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = 120
	ti.Width = 50
	ti.Focus()

	m := textPromptModel{
		title:       title,
		placeholder: placeholder,
		input:       ti,
		theme:       resolved,
	}

	p := tea.NewProgram(m)
	result, err := p.Run()
	if err != nil {
		return TextPromptResult{Aborted: true}
	}

	final := result.(textPromptModel)
	if final.aborted {
		return TextPromptResult{Aborted: true}
	}
	return TextPromptResult{Value: strings.TrimSpace(final.input.Value())}
}
