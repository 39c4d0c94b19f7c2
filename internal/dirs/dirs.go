package dirs

// StateDir is the default root directory for all overseer runtime state
// files (run sessions, pidfile), relative to the working directory.
const StateDir = "._overseer_state"

// TasksDir is the default directory task definition files are loaded from,
// relative to the working directory.
const TasksDir = ".overseer"

// SettingsName is the base name (without extension) of the optional
// application settings file.
const SettingsName = "overseer"

// EnvPrefix prefixes every environment variable that overrides a setting.
const EnvPrefix = "OVERSEER"

// OverridesFile is the path to the optional overrides file,
// relative to the working directory.
const OverridesFile = ".overseer.overrides.yaml"
