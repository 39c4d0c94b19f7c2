package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"overseer.dev/internal/task"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
)

// isTerminal returns true if the given file is a terminal.
func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// color wraps text in ANSI color if stderr is a terminal.
func color(code, text string) string {
	if !isTerminal(os.Stderr) {
		return text
	}
	return code + text + colorReset
}

// printRunResult prints one line per command followed by a summary
func printRunResult(w io.Writer, r *task.Result) {
	for _, cmd := range r.Commands {
		if cmd.Success {
			fmt.Fprintf(w, "  %s %s\n", color(colorGreen, "[OK]"), cmd.Name)
			continue
		}
		detail := cmd.ErrorKind
		if cmd.ErrorKind == task.KindExitStatus.String() {
			detail = fmt.Sprintf("exit code %d", cmd.ExitCode)
		}
		fmt.Fprintf(w, "  %s %s  %s\n", color(colorRed, "[FAIL]"), cmd.Name, detail)
		if cmd.Error != "" && cmd.ErrorKind != task.KindExitStatus.String() {
			fmt.Fprintf(w, "         %s\n", color(colorDim, cmd.Error))
		}
	}

	fmt.Fprintln(w)
	failed := 0
	for _, cmd := range r.Commands {
		if !cmd.Success {
			failed++
		}
	}
	if r.Success {
		fmt.Fprintf(w, "%s  %d commands  %s\n",
			color(colorGreen+colorBold, "[OK]"),
			len(r.Commands),
			color(colorDim, formatDuration(r.Duration)))
	} else {
		fmt.Fprintf(w, "%s  %d/%d commands failed  %s\n",
			color(colorRed+colorBold, "[FAIL]"),
			failed, len(r.Commands),
			color(colorDim, formatDuration(r.Duration)))
	}
	if r.SessionID != "" {
		fmt.Fprintf(w, "%s %s\n", color(colorDim, "Session:"), r.SessionID)
	}
}

// formatDuration formats a duration for human display.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
}
