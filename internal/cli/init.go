package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

const exampleTask = `# Runs every five minutes. Use "paths" instead of "schedule" to run when
# files change.
name: example
schedule: "*/5 * * * *"
# host: deploy@build.example.com:22
commands:
  - name: hello
    run: echo "hello from overseer"
  - name: disk
    run: df -h
    env_vars:
      - LC_ALL=C
`

func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the tasks directory with an example task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}
			return writeExampleTask(cmd, settings.TasksDir, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing example task")

	return cmd
}

func writeExampleTask(cmd *cobra.Command, dir string, force bool) error {
	targetPath := filepath.Join(dir, "example.yaml")

	if _, err := os.Stat(targetPath); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", targetPath)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create tasks directory: %w", err)
	}
	if err := os.WriteFile(targetPath, []byte(exampleTask), 0644); err != nil {
		return fmt.Errorf("failed to create task file: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Successfully created %s\n", targetPath)
	fmt.Fprintln(cmd.OutOrStdout(), "Edit it, then start the orchestrator with 'overseer run'.")
	return nil
}
