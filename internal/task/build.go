package task

import (
	"fmt"

	"github.com/spf13/afero"

	"overseer.dev/internal/config"
)

// FromDefinition builds the task a definition describes: a *CronTask when
// it has a schedule, a *FileEventTask when it has paths
func FromDefinition(def *config.Definition, rt *Runtime) (Task, error) {
	if rt == nil {
		rt = &Runtime{}
	}
	log := rt.Log.WithValues("task", def.Name)

	commands := make([]*Command, 0, len(def.Commands))
	for _, cd := range def.Commands {
		env, err := ParseEnvVars(log.WithValues("command", cd.Name), cd.EnvVars)
		if err != nil {
			return nil, fmt.Errorf("task '%s' command '%s': %w", def.Name, cd.Name, err)
		}
		commands = append(commands, &Command{
			Name:       cd.Name,
			WorkingDir: cd.WorkingDir,
			Env:        env,
			Spec:       ParseCommandSpec(cd.Run),
		})
	}

	host := ParseHost(def.Host)
	switch def.Kind() {
	case config.TriggerCron:
		return NewCronTask(def.Name, host, def.Schedule, commands, rt), nil
	case config.TriggerFileEvent:
		return NewFileEventTask(def.Name, host, def.Paths, commands, rt), nil
	}
	return nil, fmt.Errorf("task '%s' has no trigger", def.Name)
}

// LoadRegistry loads every task file in dir, applies overrides and builds
// a registry of the tasks that are not disabled
func LoadRegistry(fs afero.Fs, dir string, overrides *config.Overrides, rt *Runtime) (*Registry, error) {
	defs, err := config.LoadTaskDir(fs, dir)
	if err != nil {
		return nil, err
	}
	config.ApplyOverrides(defs, overrides)

	if rt == nil {
		rt = &Runtime{}
	}
	r := NewRegistry()
	for _, def := range defs {
		if def.Disabled {
			rt.Log.Info("skipping disabled task", "task", def.Name, "source", def.Source)
			continue
		}
		t, err := FromDefinition(def, rt)
		if err != nil {
			return nil, &config.LoadError{Path: def.Source, Err: err}
		}
		if err := r.Add(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}
