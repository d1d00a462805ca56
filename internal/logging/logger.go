package logging

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/fatih/color"
)

// Logger provides leveled console logging with redaction support
type Logger struct {
	debug   bool
	noColor bool
	out     io.Writer
	mu      sync.Mutex
	secrets []string

	info  *color.Color
	warn  *color.Color
	err   *color.Color
	trace *color.Color
}

// New creates a new logger instance writing to stderr
func New(debug, noColor bool) *Logger {
	return NewWithWriter(os.Stderr, debug, noColor)
}

// NewWithWriter creates a logger that writes to w
func NewWithWriter(w io.Writer, debug, noColor bool) *Logger {
	l := &Logger{
		debug:   debug,
		noColor: noColor,
		out:     w,
		info:    color.New(color.FgGreen),
		warn:    color.New(color.FgYellow),
		err:     color.New(color.FgRed),
		trace:   color.New(color.FgCyan),
	}
	for _, c := range []*color.Color{l.info, l.warn, l.err, l.trace} {
		if noColor {
			c.DisableColor()
		} else {
			c.EnableColor()
		}
	}
	return l
}

// Nop returns a logger that discards everything
func Nop() *Logger {
	return NewWithWriter(io.Discard, false, true)
}

// DebugEnabled reports whether Debug messages are written
func (l *Logger) DebugEnabled() bool {
	return l.debug
}

// Info logs an informational message
func (l *Logger) Info(format string, args ...interface{}) {
	l.write(l.info, "✓", format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	l.write(l.warn, "⚠", format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.write(l.err, "✗", format, args...)
}

// Debug logs a debug message if debug mode is enabled
func (l *Logger) Debug(format string, args ...interface{}) {
	if !l.debug {
		return
	}
	l.write(l.trace, "[DEBUG]", format, args...)
}

// Protect registers credential values that leveled messages must never
// show. Print blocks are written as given.
func (l *Logger) Protect(values ...string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, v := range values {
		if len(v) <= 3 || slices.Contains(l.secrets, v) {
			continue
		}
		l.secrets = append(l.secrets, v)
	}
}

// Print writes a preformatted block without a level marker.
func (l *Logger) Print(block string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.out, strings.TrimRight(block, "\n"))
}

func (l *Logger) write(c *color.Color, marker, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l.mu.Lock()
	defer l.mu.Unlock()
	msg = Redact(msg, l.secrets)
	fmt.Fprintf(l.out, "%s %s\n", c.Sprint(marker), msg)
}

// Secret represents a value that should be redacted in logs
type Secret string

// String implements the Stringer interface, always returning a redacted value
func (s Secret) String() string {
	return "[REDACTED]"
}

// GoString implements the GoStringer interface for %#v formatting
func (s Secret) GoString() string {
	return "[REDACTED]"
}

// Redact replaces sensitive values in a string with [REDACTED]
func Redact(s string, secrets []string) string {
	result := s
	for _, secret := range secrets {
		if secret != "" && len(secret) > 3 { // Only redact non-trivial secrets
			result = strings.ReplaceAll(result, secret, "[REDACTED]")
		}
	}
	return result
}

// Mask keeps the first four characters of a credential and hides the rest.
func Mask(s string) string {
	if len(s) <= 4 {
		return "xxxx"
	}
	return s[:4] + "xxxx"
}
