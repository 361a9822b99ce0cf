package domain

import (
	"fmt"
	"sort"
	"strings"
)

// Tab selects a subset of the todo list.
type Tab string

const (
	TabAll       Tab = "all"
	TabToday     Tab = "today"
	TabImportant Tab = "important"
	TabDone      Tab = "done"
)

// Tabs lists the tabs in display order.
var Tabs = []Tab{TabAll, TabToday, TabImportant, TabDone}

// ParseTab validates a tab name. Empty means all.
func ParseTab(s string) (Tab, error) {
	if s == "" {
		return TabAll, nil
	}
	for _, t := range Tabs {
		if string(t) == strings.ToLower(s) {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidTab, s)
}

// Label returns the display name of the tab.
func (t Tab) Label() string {
	switch t {
	case TabToday:
		return "Due today"
	case TabImportant:
		return "Important"
	case TabDone:
		return "Done"
	default:
		return "All"
	}
}

// Matches reports whether a todo belongs to the tab. today is YYYY-MM-DD.
// A todo without a deadline is never due today.
func (t Tab) Matches(todo Todo, today string) bool {
	switch t {
	case TabToday:
		if todo.DeadlineDate == "" {
			return false
		}
		if todo.Done() {
			return todo.DeadlineDate == today
		}
		return todo.DeadlineDate <= today
	case TabImportant:
		return todo.Priority == PriorityHigh
	case TabDone:
		return todo.Done()
	default:
		return true
	}
}

// FilterTodos keeps the todos that belong to tab.
func FilterTodos(todos []Todo, tab Tab, today string) []Todo {
	out := make([]Todo, 0, len(todos))
	for _, todo := range todos {
		if tab.Matches(todo, today) {
			out = append(out, todo)
		}
	}
	return out
}

// CompareTodos orders open before done, then deadline date, then deadline
// time (missing values last for both), then higher priority first, then id.
func CompareTodos(a, b Todo) int {
	if a.IsDone != b.IsDone {
		if a.IsDone < b.IsDone {
			return -1
		}
		return 1
	}
	if c := compareOptional(a.DeadlineDate, b.DeadlineDate); c != 0 {
		return c
	}
	if c := compareOptional(a.DeadlineTime, b.DeadlineTime); c != 0 {
		return c
	}
	if a.Priority != b.Priority {
		if a.Priority > b.Priority {
			return -1
		}
		return 1
	}
	return compareIDs(a.ID, b.ID)
}

// SortTodos returns a sorted copy of todos.
func SortTodos(todos []Todo) []Todo {
	sorted := make([]Todo, len(todos))
	copy(sorted, todos)
	sort.SliceStable(sorted, func(i, j int) bool {
		return CompareTodos(sorted[i], sorted[j]) < 0
	})
	return sorted
}

// ComputeStats counts the todos.
func ComputeStats(todos []Todo) TodoStats {
	stats := TodoStats{Total: len(todos)}
	for _, t := range todos {
		if t.Done() {
			stats.Done++
		}
	}
	stats.Todo = stats.Total - stats.Done
	return stats
}

// StatText is the one-line summary shown above a tab.
func StatText(tab Tab, stats TodoStats) string {
	if tab == TabDone {
		return fmt.Sprintf("Done: %d", stats.Done)
	}
	return fmt.Sprintf("%s: %d to do · %d done", tab.Label(), stats.Todo, stats.Done)
}

// DeadlineLabel renders the deadline relative to today.
func DeadlineLabel(t Todo, today string) string {
	var label string
	switch t.DeadlineDate {
	case "":
		label = "Not set"
	case today:
		label = "Today"
	case AddDays(today, 1):
		label = "Tomorrow"
	default:
		label = t.DeadlineDate
	}
	if t.DeadlineTime != "" {
		return label + " " + t.DeadlineTime
	}
	return label
}

// PriorityLabel names a priority level.
func PriorityLabel(priority int) string {
	switch priority {
	case PriorityHigh:
		return "High"
	case PriorityLow:
		return "Low"
	default:
		return "Normal"
	}
}

func compareOptional(a, b string) int {
	switch {
	case a == b:
		return 0
	case a == "":
		return 1
	case b == "":
		return -1
	case a < b:
		return -1
	default:
		return 1
	}
}
