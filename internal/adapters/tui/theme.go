// Package tui provides the terminal user interface implementation
// using the Bubbletea framework.
package tui

import (
	"os"
	"reflect"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/term"

	"github.com/xvierd/kage-cli/internal/config"
)

// resolveTheme fills any empty string fields in the given ThemeConfig with defaults.
// If theme is nil, returns the full default theme.
func resolveTheme(theme *config.ThemeConfig) config.ThemeConfig {
	defaults := config.DefaultThemeConfig()
	if theme == nil {
		return defaults
	}
	resolved := *theme
	rv := reflect.ValueOf(&resolved).Elem()
	dv := reflect.ValueOf(defaults)
	for i := 0; i < rv.NumField(); i++ {
		f := rv.Field(i)
		if f.Kind() == reflect.String && f.String() == "" {
			f.SetString(dv.Field(i).String())
		}
	}
	return resolved
}

// styles are the lipgloss styles derived from a theme.
type styles struct {
	title   lipgloss.Style
	accent  lipgloss.Style
	muted   lipgloss.Style
	done    lipgloss.Style
	high    lipgloss.Style
	err     lipgloss.Style
	success lipgloss.Style
	header  lipgloss.Style
}

func newStyles(theme config.ThemeConfig) styles {
	return styles{
		title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(theme.ColorTitle)),
		accent:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(theme.ColorAccent)),
		muted:   lipgloss.NewStyle().Foreground(lipgloss.Color(theme.ColorMuted)),
		done:    lipgloss.NewStyle().Strikethrough(true).Foreground(lipgloss.Color(theme.ColorDone)),
		high:    lipgloss.NewStyle().Foreground(lipgloss.Color(theme.ColorHigh)),
		err:     lipgloss.NewStyle().Foreground(lipgloss.Color(theme.ColorError)),
		success: lipgloss.NewStyle().Foreground(lipgloss.Color(theme.ColorSuccess)),
		header:  lipgloss.NewStyle().Bold(true).Underline(true).Foreground(lipgloss.Color(theme.ColorTitle)),
	}
}

// getTerminalWidth returns the current terminal width, defaulting to 80.
func getTerminalWidth() int {
	w, _, err := term.GetSize(os.Stdout.Fd())
	if err != nil || w < 40 {
		return 80
	}
	return w
}

// IsTerminal reports whether stdout is attached to a terminal.
func IsTerminal() bool {
	return term.IsTerminal(os.Stdout.Fd())
}
