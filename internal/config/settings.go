package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"overseer.dev/internal/dirs"
)

// Settings is the application configuration, assembled by viper from
// defaults, an optional settings file and OVERSEER_* environment variables
type Settings struct {
	TasksDir string          `mapstructure:"tasks_dir" validate:"required"`
	StateDir string          `mapstructure:"state_dir" validate:"required"`
	Log      LogSettings     `mapstructure:"log"`
	SSH      SSHSettings     `mapstructure:"ssh"`
	Sessions SessionSettings `mapstructure:"sessions"`
}

// LogSettings configures the process logger
type LogSettings struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=console json"`
}

// SSHSettings configures remote command execution
type SSHSettings struct {
	User                  string        `mapstructure:"user"`
	Port                  int           `mapstructure:"port" validate:"min=1,max=65535"`
	KnownHosts            string        `mapstructure:"known_hosts"`
	InsecureIgnoreHostKey bool          `mapstructure:"insecure_ignore_host_key"`
	IdentityFiles         []string      `mapstructure:"identity_files"`
	Timeout               time.Duration `mapstructure:"timeout" validate:"min=0"`
}

// SessionSettings configures run session retention
type SessionSettings struct {
	MaxSessions int           `mapstructure:"max_sessions" validate:"min=0"`
	MaxAge      time.Duration `mapstructure:"max_age" validate:"min=0"`
}

// SetDefaults registers every setting's default on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault("tasks_dir", dirs.TasksDir)
	v.SetDefault("state_dir", dirs.StateDir)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("ssh.user", currentUser())
	v.SetDefault("ssh.port", 22)
	v.SetDefault("ssh.insecure_ignore_host_key", false)
	v.SetDefault("ssh.timeout", 30*time.Second)
	v.SetDefault("sessions.max_sessions", 100)
	v.SetDefault("sessions.max_age", 7*24*time.Hour)

	if home, err := os.UserHomeDir(); err == nil {
		v.SetDefault("ssh.known_hosts", filepath.Join(home, ".ssh", "known_hosts"))
		v.SetDefault("ssh.identity_files", []string{
			filepath.Join(home, ".ssh", "id_ed25519"),
			filepath.Join(home, ".ssh", "id_rsa"),
		})
	}
}

// LoadSettings reads settings into v. cfgFile, when non-empty, names the
// settings file explicitly and must exist; otherwise overseer.yaml is
// searched for in the working directory and $HOME/.config/overseer.
func LoadSettings(v *viper.Viper, cfgFile string) (*Settings, error) {
	// A missing .env file is fine
	_ = godotenv.Load()

	v.SetEnvPrefix(dirs.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(dirs.SettingsName)
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "overseer"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read settings: %w", err)
		}
	}

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}

	if err := validate.Struct(&settings); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	return &settings, nil
}

func currentUser() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return os.Getenv("USERNAME")
}
