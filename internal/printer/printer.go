// Package printer writes colored status lines for the CLI. Status goes to
// Output (stderr by default) so stdout stays free for generated content.
package printer

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
)

// Output receives every status line.
var Output io.Writer = os.Stderr

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan)
)

// Success prints a green line with a checkmark prefix.
func Success(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	if !strings.HasPrefix(msg, "✓") {
		msg = "✓ " + msg
	}
	green.Fprintln(Output, msg)
}

// Warning prints a yellow line with a warning prefix.
func Warning(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	if !strings.HasPrefix(msg, "⚠") {
		msg = "⚠ " + msg
	}
	yellow.Fprintln(Output, msg)
}

// Step prints a progress line.
func Step(format string, a ...any) {
	cyan.Fprintf(Output, "→ %s\n", fmt.Sprintf(format, a...))
}

// Error prints title, explanation and suggestions, and returns an error
// carrying only the title for cobra (which runs with SilenceErrors).
func Error(title, explanation string, suggestions []string) error {
	red.Fprintf(Output, "%s\n", title)
	if explanation != "" {
		fmt.Fprintf(Output, "\n%s\n", explanation)
	}
	switch len(suggestions) {
	case 0:
	case 1:
		fmt.Fprintf(Output, "\n%s\n", suggestions[0])
	default:
		fmt.Fprintf(Output, "\nEither:\n")
		for i, s := range suggestions {
			fmt.Fprintf(Output, "  %d. %s\n", i+1, s)
		}
	}
	return fmt.Errorf("%s", title)
}
