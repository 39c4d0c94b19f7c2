package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"overseer.dev/internal/config"
	"overseer.dev/internal/task"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List enabled tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdList(cmd)
		},
	}
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [files...]",
		Short: "Validate task files (default: every file in the tasks directory)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdValidate(cmd, args)
		},
	}
}

// trigger describes what fires a task
func trigger(t task.Task) string {
	switch t := t.(type) {
	case *task.CronTask:
		return t.Schedule()
	case *task.FileEventTask:
		return strings.Join(t.Paths(), ",")
	}
	return ""
}

func cmdList(cmd *cobra.Command) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}

	registry, err := a.loadRegistry()
	if err != nil {
		return err
	}

	tasks := registry.Tasks()
	if len(tasks) == 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), "No tasks defined.")
		return nil
	}

	// Column widths come from the plain text so colored headers stay aligned
	col1, col2, col3, col4 := len("TASK"), len("TYPE"), len("TRIGGER"), len("HOST")
	for _, t := range tasks {
		col1 = max(col1, len(t.Name()))
		col2 = max(col2, len(t.Kind()))
		col3 = max(col3, len(trigger(t)))
		col4 = max(col4, len(t.Host().String()))
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%s%s  %s%s  %s%s  %s%s  %s\n",
		color(colorBold, "TASK"), strings.Repeat(" ", col1-len("TASK")),
		color(colorBold, "TYPE"), strings.Repeat(" ", col2-len("TYPE")),
		color(colorBold, "TRIGGER"), strings.Repeat(" ", col3-len("TRIGGER")),
		color(colorBold, "HOST"), strings.Repeat(" ", col4-len("HOST")),
		color(colorBold, "COMMANDS"))

	for _, t := range tasks {
		var names []string
		for _, c := range t.Commands() {
			names = append(names, c.Name)
		}
		fmt.Fprintf(w, "%-*s  %-*s  %-*s  %-*s  %s\n",
			col1, t.Name(), col2, t.Kind(), col3, trigger(t), col4, t.Host().String(),
			strings.Join(names, ", "))
	}

	return nil
}

func cmdValidate(cmd *cobra.Command, files []string) error {
	w := cmd.OutOrStdout()

	if len(files) == 0 {
		a, err := bootstrap()
		if err != nil {
			return err
		}
		if _, err := a.loadRegistry(); err != nil {
			fmt.Fprintf(w, "%s %v\n", color(colorRed+colorBold, "[FAIL]"), err)
			return &exitError{code: 1}
		}
		fmt.Fprintf(w, "%s %s\n", color(colorGreen+colorBold, "[OK]"), a.settings.TasksDir)
		return nil
	}

	fs := afero.NewOsFs()
	failed := 0
	for _, path := range files {
		def, err := config.LoadTaskFile(fs, path)
		if err == nil {
			_, err = task.FromDefinition(def, nil)
		}
		if err != nil {
			failed++
			fmt.Fprintf(w, "%s %s: %v\n", color(colorRed+colorBold, "[FAIL]"), path, err)
			continue
		}
		fmt.Fprintf(w, "%s %s (%s)\n", color(colorGreen+colorBold, "[OK]"), path, def.Name)
	}

	if failed > 0 {
		return &exitError{code: 1}
	}
	return nil
}
