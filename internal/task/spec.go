package task

import (
	"os"
	"strings"
)

// CommandSpec is how a command line is launched: either a program with
// arguments or, when the first word is not an executable file, the whole
// line handed to sh -c.
type CommandSpec struct {
	Program string
	Args    []string
	Shell   bool
	// Raw is the line as written in the definition
	Raw string
}

// ParseCommandSpec splits line on its first space. If the first word names
// an existing executable file on this machine it becomes the program and
// the rest is split on whitespace into arguments. Otherwise the line is
// run by sh -c without any escaping. The check is made locally even for
// commands that will run on a remote host.
func ParseCommandSpec(line string) CommandSpec {
	first, rest, _ := strings.Cut(line, " ")
	if isExecutable(first) {
		return CommandSpec{
			Program: first,
			Args:    strings.Fields(rest),
			Raw:     line,
		}
	}
	return CommandSpec{
		Program: "sh",
		Args:    []string{"-c", line},
		Shell:   true,
		Raw:     line,
	}
}

// Line renders the spec as a single shell line for remote execution
func (c CommandSpec) Line() string {
	if c.Shell {
		return c.Raw
	}
	return strings.Join(append([]string{c.Program}, c.Args...), " ")
}

func isExecutable(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular() && info.Mode().Perm()&0111 != 0
}
