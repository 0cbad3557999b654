// Package output provides formatted, human-facing CLI output helpers.
// Diagnostic logging goes through slog; this package is only for the lines a
// user reads on the terminal.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
)

var (
	// Colors and styles
	green  = color.New(color.FgGreen)
	red    = color.New(color.FgRed)
	yellow = color.New(color.FgYellow)
	cyan   = color.New(color.FgCyan)
	gray   = color.New(color.FgHiBlack)
	bold   = color.New(color.Bold)

	// Output writers (can be overridden for testing)
	Stdout io.Writer = os.Stdout
	Stderr io.Writer = os.Stderr

	// Disable colors if not TTY or NO_COLOR is set
	noColor = os.Getenv("NO_COLOR") != "" || !isTerminal(os.Stdout)
)

func init() {
	if noColor {
		color.NoColor = true
	}
}

// Success prints a success message with a checkmark
// Example: ✓ Subscribed notify to orders
func Success(format string, a ...interface{}) {
	fmt.Fprintf(Stdout, green.Sprint("✓")+" "+format+"\n", a...)
}

// Info prints an informational message with an arrow
// Example: → Resolving subscription state...
func Info(format string, a ...interface{}) {
	fmt.Fprintf(Stdout, cyan.Sprint("→")+" "+format+"\n", a...)
}

// Warning prints a warning message with a warning symbol
// Example: ⚠ Subscription pending confirmation
func Warning(format string, a ...interface{}) {
	fmt.Fprintf(Stdout, yellow.Sprint("⚠")+" "+format+"\n", a...)
}

// Error prints an error message with an X symbol
// Example: ✗ Failed to subscribe: access denied
func Error(format string, a ...interface{}) {
	fmt.Fprintf(Stdout, red.Sprint("✗")+" "+format+"\n", a...)
}

// Fatal prints an error message and exits with code 1
func Fatal(format string, a ...interface{}) {
	Error(format, a...)
	os.Exit(1)
}

// Step prints a step in a multi-step process
// Example: [1/3] Compiling permission template
func Step(step int, total int, message string) {
	gray.Fprintf(Stdout, "[%d/%d] ", step, total)
	fmt.Fprintln(Stdout, message)
}

// StepSuccess prints a successful step completion
// Example: [1/3] ✓ Template written
func StepSuccess(step int, total int, message string) {
	gray.Fprintf(Stdout, "[%d/%d] ", step, total)
	fmt.Fprintf(Stdout, "%s %s\n", green.Sprint("✓"), message)
}

// Header prints a section header with a separator line
func Header(text string) {
	fmt.Fprintln(Stdout)
	fmt.Fprintln(Stdout, bold.Sprint(text))
	fmt.Fprintln(Stdout, gray.Sprint(strings.Repeat("━", 50)))
}

// KeyValue prints a key-value pair with indentation
// Example:   Topic: orders
func KeyValue(key, value string) {
	fmt.Fprintf(Stdout, "  %s: %s\n", gray.Sprint(key), value)
}

// Blank prints a blank line
func Blank() {
	fmt.Fprintln(Stdout)
}

// Printf prints formatted text without decoration
func Printf(format string, a ...interface{}) {
	fmt.Fprintf(Stdout, format, a...)
}

// Bold returns bold text
func Bold(text string) string {
	return bold.Sprint(text)
}

// isTerminal checks if the writer is a terminal
func isTerminal(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		fileInfo, _ := f.Stat()
		return (fileInfo.Mode() & os.ModeCharDevice) != 0
	}
	return false
}
