package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xvierd/kage-cli/internal/adapters/tui"
	"github.com/xvierd/kage-cli/internal/domain"
)

var (
	todosTab      string
	todosRefresh  bool
	todoDeadline  string
	todoPriority  int
	todoNoPrompts bool
)

var todosCmd = &cobra.Command{
	Use:     "todos",
	Aliases: []string{"todo", "td"},
	Short:   "Show the todo list",
	Long: `Show the todo list. In a terminal this opens the interactive view;
otherwise it prints the selected tab.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		tab, err := domain.ParseTab(todosTab)
		if err != nil {
			return err
		}
		if jsonOutput || !isTerminal() {
			return printTodos(cmd, tab)
		}
		return withTUI(cmd, func(ctx context.Context) error {
			return tui.RunTodos(ctx, app.todos, app.toasts, &app.config.Theme, tab)
		})
	},
}

var todosListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "Print the todos of a tab",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tab, err := domain.ParseTab(todosTab)
		if err != nil {
			return err
		}
		return printTodos(cmd, tab)
	},
}

var todosAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Create a todo",
	Example: `  kage todos add Renew passport --deadline 2026-11-01 --priority 3
  kage todos add "Call mom @tomorrow !"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		title, deadline, priority := tui.ParseTodoInput(joinArgs(args), today())
		if cmd.Flags().Changed("deadline") {
			deadline = todoDeadline
			if deadline == "today" || deadline == "tomorrow" {
				_, deadline, _ = tui.ParseTodoInput("@"+deadline, today())
			}
		}
		if cmd.Flags().Changed("priority") {
			priority = todoPriority
		}

		if priority == 0 && !todoNoPrompts && !jsonOutput && isTerminal() && title != "" {
			res := tui.RunHorizontalPicker("Priority", tui.PriorityItems(), "←/→ move · enter confirm · esc skip", &app.config.Theme)
			if !res.Aborted {
				priority = res.Index + domain.PriorityLow
			}
		}

		todo, err := app.todos.Create(cmd.Context(), title, deadline, priority)
		if err != nil {
			return err
		}
		return printTodo(cmd, todo)
	},
}

var todosDoneCmd = &cobra.Command{
	Use:   "done <id or title>",
	Short: "Mark a todo as done",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setTodoDone(cmd, joinArgs(args), true)
	},
}

var todosUndoCmd = &cobra.Command{
	Use:   "undo <id or title>",
	Short: "Mark a todo as not done",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setTodoDone(cmd, joinArgs(args), false)
	},
}

var todosDeleteCmd = &cobra.Command{
	Use:     "delete <id or title>",
	Aliases: []string{"rm"},
	Short:   "Delete a todo",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		todo, err := resolveTodo(ctx, joinArgs(args))
		if err != nil {
			return err
		}
		if err := app.todos.Delete(ctx, todo.ID); err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd, map[string]string{"deleted": todo.ID})
		}
		fmt.Fprintf(out(cmd), "Deleted %q\n", todo.Title)
		return nil
	},
}

func init() {
	todosCmd.PersistentFlags().StringVar(&todosTab, "tab", string(domain.TabAll), "Tab: all, today, important, done")
	todosListCmd.Flags().BoolVarP(&todosRefresh, "refresh", "r", false, "Skip the cache and fetch from the server")
	todosAddCmd.Flags().StringVar(&todoDeadline, "deadline", "", "Deadline as YYYY-MM-DD, today or tomorrow")
	todosAddCmd.Flags().IntVarP(&todoPriority, "priority", "p", 0, "Priority: 1 low, 2 normal, 3 high")
	todosAddCmd.Flags().BoolVar(&todoNoPrompts, "no-prompt", false, "Never ask for missing fields")

	todosCmd.AddCommand(todosListCmd, todosAddCmd, todosDoneCmd, todosUndoCmd, todosDeleteCmd)
	rootCmd.AddCommand(todosCmd)
}

// resolveTodo finds a todo by id or fuzzy title in the full list.
func resolveTodo(ctx context.Context, ref string) (domain.Todo, error) {
	if err := app.todos.Open(ctx, domain.TabAll, false); err != nil {
		return domain.Todo{}, err
	}
	todo, err := app.todos.Resolve(ref)
	if err != nil {
		return domain.Todo{}, err
	}
	if todo.IsPending() {
		return domain.Todo{}, domain.ErrPending
	}
	return todo, nil
}

func setTodoDone(cmd *cobra.Command, ref string, done bool) error {
	ctx := cmd.Context()
	todo, err := resolveTodo(ctx, ref)
	if err != nil {
		return err
	}
	updated, err := app.todos.SetDone(ctx, todo.ID, done)
	if err != nil {
		return err
	}
	return printTodo(cmd, updated)
}

func printTodos(cmd *cobra.Command, tab domain.Tab) error {
	if err := app.todos.Open(cmd.Context(), tab, todosRefresh); err != nil {
		return err
	}
	items := app.todos.Items()

	if jsonOutput {
		if items == nil {
			items = []domain.Todo{}
		}
		return printJSON(cmd, map[string]interface{}{
			"tab":   tab,
			"items": items,
			"stats": app.todos.Stats(),
		})
	}

	w := out(cmd)
	fmt.Fprintln(w, app.todos.StatText())
	if len(items) == 0 {
		fmt.Fprintln(w, "  Nothing here")
		return nil
	}
	day := today()
	for _, todo := range items {
		fmt.Fprintln(w, todoLine(todo, day))
	}
	return nil
}

func printTodo(cmd *cobra.Command, todo domain.Todo) error {
	if jsonOutput {
		return printJSON(cmd, todo)
	}
	fmt.Fprintln(out(cmd), todoLine(todo, today()))
	return nil
}

func todoLine(todo domain.Todo, day string) string {
	mark := "[ ]"
	if todo.Done() {
		mark = "[x]"
	}
	meta := []string{domain.DeadlineLabel(todo, day)}
	if todo.Priority != domain.PriorityNormal {
		meta = append(meta, domain.PriorityLabel(todo.Priority))
	}
	return fmt.Sprintf("  %s %s  (%s · %s)", mark, todo.Title, strings.Join(meta, " · "), todo.ID)
}
