package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"overseer.dev/internal/process"
	"overseer.dev/internal/schedule"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Activate every task and run until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdRun(cmd)
		},
	}
}

func newStatusCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show whether an orchestrator is running and its recent runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdStatus(cmd, limit)
		},
	}

	cmd.Flags().IntVar(&limit, "recent", 5, "Number of recent sessions to show")

	return cmd
}

// cmdRun activates the tasks and blocks until SIGINT or SIGTERM. Cron
// jobs still running at shutdown are waited for.
func cmdRun(cmd *cobra.Command) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	log := a.log.WithName("orchestrator")

	registry, err := a.loadRegistry()
	if err != nil {
		return err
	}
	if registry.Len() == 0 {
		log.Info("no enabled tasks found", "dir", a.settings.TasksDir)
	}

	// Signals are caught before the pidfile announces the orchestrator
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var names []string
	for _, t := range registry.Tasks() {
		names = append(names, t.Name())
	}
	stateDir := a.settings.StateDir
	if err := process.WritePIDFile(stateDir, process.PIDFileData{
		PID:       os.Getpid(),
		StartTime: time.Now(),
		TasksDir:  a.settings.TasksDir,
		Tasks:     names,
	}); err != nil {
		return err
	}
	defer process.RemovePIDFile(stateDir)

	if n, err := a.store.CleanupAllSessions(log, a.runtime.Retention); err != nil {
		log.Error(err, "failed to clean up old sessions")
	} else if n > 0 {
		log.Info("removed old sessions", "count", n)
	}

	scheduler := schedule.New(a.log)
	if err := registry.ActivateAll(ctx, scheduler); err != nil {
		_ = registry.Close()
		return fmt.Errorf("failed to activate tasks: %w", err)
	}
	scheduler.Start()
	log.Info("orchestrator started", "tasks", registry.Len(), "pid", os.Getpid())

	<-ctx.Done()
	log.Info("shutting down")

	<-scheduler.Stop().Done()
	if err := registry.Close(); err != nil {
		log.Error(err, "failed to close file watches")
	}
	log.Info("stopped")
	return nil
}

func cmdStatus(cmd *cobra.Command, limit int) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()

	if data, ok := process.Running(a.settings.StateDir); ok {
		fmt.Fprintf(w, "%s  PID %d  %s\n",
			color(colorGreen+colorBold, "[RUNNING]"),
			data.PID,
			color(colorDim, "since "+data.StartTime.Format(time.RFC3339)))
		fmt.Fprintf(w, "%s %s (%d tasks)\n", color(colorDim, "Tasks:"), data.TasksDir, len(data.Tasks))
	} else {
		fmt.Fprintf(w, "%s\n", color(colorYellow+colorBold, "[STOPPED]"))
	}

	if limit <= 0 {
		return nil
	}
	sessions, err := a.store.ListSessions("", limit)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		return nil
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, color(colorBold, "Recent runs:"))
	for _, s := range sessions {
		meta, err := a.store.ReadSessionMetadata(s.SessionID)
		if err != nil {
			continue
		}
		fmt.Fprintf(w, "  %s %-20s %-7s %s  %s\n",
			sessionState(meta.Success),
			meta.TaskName,
			meta.Trigger,
			meta.StartTime.Format(time.DateTime),
			color(colorDim, meta.SessionID))
	}
	return nil
}

// sessionState renders a session's outcome; nil means still running or
// interrupted
func sessionState(success *bool) string {
	switch {
	case success == nil:
		return color(colorYellow, "[....]")
	case *success:
		return color(colorGreen, "[OK]  ")
	default:
		return color(colorRed, "[FAIL]")
	}
}
