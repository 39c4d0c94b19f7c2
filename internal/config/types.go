package config

// TriggerKind identifies which trigger a task definition selects
type TriggerKind string

const (
	// TriggerCron runs the task on a cron schedule
	TriggerCron TriggerKind = "cron"
	// TriggerFileEvent runs the task when watched paths change
	TriggerFileEvent TriggerKind = "file"
)

// Definition represents a single task file. Exactly one of Schedule or
// Paths must be set; it decides the trigger.
type Definition struct {
	Name string `yaml:"name" validate:"required"`
	// Dependencies is reserved for service health checks and must be empty
	Dependencies []any               `yaml:"dependencies" validate:"max=0"`
	Host         string              `yaml:"host"`
	Schedule     string              `yaml:"schedule" validate:"omitempty,schedule"`
	Paths        []string            `yaml:"paths" validate:"omitempty,dive,required"`
	Commands     []CommandDefinition `yaml:"commands" validate:"required,min=1,dive"`

	// Source is the file the definition was read from
	Source string `yaml:"-"`
	// Disabled is set by overrides; disabled tasks are loaded but never activated
	Disabled bool `yaml:"-"`
}

// Kind reports which trigger the definition selects
func (d *Definition) Kind() TriggerKind {
	if d.Schedule != "" {
		return TriggerCron
	}
	return TriggerFileEvent
}

// CommandDefinition represents one command entry of a task file
type CommandDefinition struct {
	Name       string   `yaml:"name" validate:"required"`
	WorkingDir string   `yaml:"working_dir"`
	EnvVars    []string `yaml:"env_vars"`
	Run        string   `yaml:"run" validate:"required"`
}

// Overrides holds local adjustments applied on top of the task files,
// keyed by task name or glob pattern
type Overrides struct {
	Tasks map[string]TaskOverride `yaml:"tasks"`
}

// TaskOverride describes what to change about matching tasks
type TaskOverride struct {
	Disabled bool `yaml:"disabled"`
}
