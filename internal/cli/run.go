package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"overseer.dev/internal/logs"
	"overseer.dev/internal/task"
)

func newExecCmd() *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "exec <task>",
		Short: "Run a task once now, ignoring its trigger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdExec(cmd, args[0], quiet)
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Do not print command output")

	return cmd
}

// cmdExec runs taskName once. Command output goes to stdout, the per
// command summary to stderr.
func cmdExec(cmd *cobra.Command, taskName string, quiet bool) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}

	registry, err := a.loadRegistry()
	if err != nil {
		return err
	}

	t, ok := registry.Get(taskName)
	if !ok {
		printAvailable(cmd, registry)
		return fmt.Errorf("task '%s' not found", taskName)
	}

	result := task.Execute(cmd.Context(), t)

	if !quiet && result.SessionID != "" {
		lines, err := a.store.ReadLog(taskName, logs.ReadOptions{SessionID: result.SessionID})
		if err != nil {
			a.log.Error(err, "failed to read session output", "session", result.SessionID)
		}
		for _, line := range lines {
			fmt.Fprintln(cmd.OutOrStdout(), line)
		}
	}

	fmt.Fprintln(cmd.ErrOrStderr())
	printRunResult(cmd.ErrOrStderr(), result)

	if !result.Success {
		return &exitError{code: 1}
	}
	return nil
}

func printAvailable(cmd *cobra.Command, registry *task.Registry) {
	w := cmd.ErrOrStderr()
	fmt.Fprintln(w, "Available tasks:")
	for _, t := range registry.Tasks() {
		fmt.Fprintf(w, "  %s\n", t.Name())
	}
	fmt.Fprintln(w)
}
