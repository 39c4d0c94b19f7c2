package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"overseer.dev/internal/logs"
)

func newLogsCmd() *cobra.Command {
	var opts logs.ReadOptions

	cmd := &cobra.Command{
		Use:   "logs <task>",
		Short: "Show the output of a task's latest run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdLogs(cmd, args[0], opts)
		},
	}

	cmd.Flags().IntVar(&opts.Lines, "lines", 0, "Number of lines to tail (0 = all)")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "Regex pattern to filter lines")
	cmd.Flags().StringVar(&opts.SessionID, "session", "", "Session ID to read from (default: latest)")
	cmd.Flags().StringVar(&opts.Command, "command", "", "Only show this command's output")

	return cmd
}

// cmdLogs reads straight from the state dir; the task does not have to
// be defined any more
func cmdLogs(cmd *cobra.Command, taskName string, opts logs.ReadOptions) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}

	logLines, err := a.store.ReadLog(taskName, opts)
	if err != nil {
		return err
	}

	if len(logLines) == 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), "No log output found.")
		return nil
	}

	for _, line := range logLines {
		fmt.Fprintln(cmd.OutOrStdout(), line)
	}
	return nil
}
