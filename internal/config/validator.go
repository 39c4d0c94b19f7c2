package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"overseer.dev/internal/schedule"
)

// validate caches struct info between calls
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// schedule accepts anything the scheduler can parse
	_ = v.RegisterValidation("schedule", func(fl validator.FieldLevel) bool {
		_, err := schedule.Parse(fl.Field().String())
		return err == nil
	})
	return v
}

// Validate performs validation on a decoded task definition
func Validate(def *Definition) error {
	var errs []string

	if err := validate.Struct(def); err != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) {
			return err
		}
		for _, e := range validationErrors {
			errs = append(errs, describeFieldError(e))
		}
	}

	switch {
	case def.Schedule != "" && len(def.Paths) > 0:
		errs = append(errs, "schedule and paths are mutually exclusive")
	case def.Schedule == "" && len(def.Paths) == 0:
		errs = append(errs, "either schedule or paths is required")
	}

	seen := make(map[string]bool, len(def.Commands))
	for i, cmd := range def.Commands {
		if cmd.Name == "" {
			continue
		}
		if seen[cmd.Name] {
			errs = append(errs, fmt.Sprintf("command %d: duplicate command name '%s'", i, cmd.Name))
		}
		seen[cmd.Name] = true
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// describeFieldError turns a validator failure into a message phrased in
// terms of the YAML fields
func describeFieldError(e validator.FieldError) string {
	field := yamlFieldPath(e.Namespace())
	switch {
	case e.Field() == "Dependencies" && e.Tag() == "max":
		return "dependencies are not supported yet and must be empty"
	case e.Tag() == "schedule":
		return fmt.Sprintf("schedule '%v' is not a valid cron expression", e.Value())
	case e.Tag() == "required":
		return fmt.Sprintf("%s is required", field)
	case e.Tag() == "min":
		return fmt.Sprintf("%s must contain at least %s entry", field, e.Param())
	default:
		return fmt.Sprintf("%s failed rule '%s' (value: '%v')", field, e.Tag(), e.Value())
	}
}

var yamlFieldNames = map[string]string{
	"Name":         "name",
	"Dependencies": "dependencies",
	"Schedule":     "schedule",
	"Paths":        "paths",
	"Commands":     "commands",
	"WorkingDir":   "working_dir",
	"EnvVars":      "env_vars",
	"Run":          "run",
}

// yamlFieldPath converts "Definition.Commands[0].Run" into "commands[0].run"
func yamlFieldPath(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, part := range parts {
		name, index, _ := strings.Cut(part, "[")
		if mapped, ok := yamlFieldNames[name]; ok {
			name = mapped
		}
		if index != "" {
			name += "[" + index
		}
		parts[i] = name
	}
	return strings.Join(parts, ".")
}
