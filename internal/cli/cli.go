// Package cli implements the overseer command tree.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-logr/logr"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"overseer.dev/internal/config"
	"overseer.dev/internal/dirs"
	"overseer.dev/internal/logs"
	"overseer.dev/internal/remote"
	"overseer.dev/internal/task"
)

var (
	globalConfig   string
	globalLogLevel string
)

// exitError carries a process exit code through cobra's error return
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// Execute runs the command tree on os.Args and returns the exit code
func Execute(version string) int {
	cmd := newRootCmd(version)
	if err := cmd.Execute(); err != nil {
		var ee *exitError
		if errors.As(err, &ee) {
			return ee.code
		}
		fmt.Fprintf(os.Stderr, "%s %v\n", color(colorRed, "Error:"), err)
		return 1
	}
	return 0
}

func newRootCmd(version string) *cobra.Command {
	root := &cobra.Command{
		Use:           "overseer",
		Short:         "Run commands on cron schedules and file changes, locally or over SSH",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&globalConfig, "config", "", "Path to settings file (default: ./overseer.yaml)")
	root.PersistentFlags().StringVar(&globalLogLevel, "log-level", "", "Log level: debug, info, warn, error")

	root.AddCommand(
		newRunCmd(),
		newExecCmd(),
		newListCmd(),
		newValidateCmd(),
		newLogsCmd(),
		newStatusCmd(),
		newMCPCmd(version),
		newInitCmd(),
	)

	return root
}

// app is everything a subcommand needs once settings are loaded
type app struct {
	settings *config.Settings
	log      logr.Logger
	fs       afero.Fs
	store    *logs.Store
	runtime  *task.Runtime
}

// loadSettings reads the settings file and environment, applying the
// global flags on top
func loadSettings() (*config.Settings, error) {
	settings, err := config.LoadSettings(viper.New(), globalConfig)
	if err != nil {
		return nil, err
	}
	if globalLogLevel != "" {
		settings.Log.Level = globalLogLevel
	}
	return settings, nil
}

// bootstrap loads settings, builds the logger and prepares the state dir
func bootstrap() (*app, error) {
	settings, err := loadSettings()
	if err != nil {
		return nil, err
	}

	log, err := logs.NewLogger(settings.Log.Level, settings.Log.Format)
	if err != nil {
		return nil, err
	}

	store, err := logs.Setup(settings.StateDir)
	if err != nil {
		return nil, fmt.Errorf("failed to setup state directory: %w", err)
	}

	dialer := remote.NewSSHDialer(remote.Config{
		User:                  settings.SSH.User,
		Port:                  settings.SSH.Port,
		KnownHosts:            settings.SSH.KnownHosts,
		InsecureIgnoreHostKey: settings.SSH.InsecureIgnoreHostKey,
		IdentityFiles:         settings.SSH.IdentityFiles,
		Timeout:               settings.SSH.Timeout,
	}, log)

	return &app{
		settings: settings,
		log:      log,
		fs:       afero.NewOsFs(),
		store:    store,
		runtime: &task.Runtime{
			Log:      log,
			Dialer:   dialer,
			Sessions: store,
			Retention: logs.Retention{
				MaxSessions: settings.Sessions.MaxSessions,
				MaxAge:      settings.Sessions.MaxAge,
			},
		},
	}, nil
}

// loadRegistry loads the task files with local overrides applied
func (a *app) loadRegistry() (*task.Registry, error) {
	overrides, err := config.LoadOverrides(a.fs, dirs.OverridesFile)
	if err != nil {
		return nil, err
	}
	return task.LoadRegistry(a.fs, a.settings.TasksDir, overrides, a.runtime)
}
