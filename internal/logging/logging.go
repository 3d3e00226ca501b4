package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
)

// Logger prints leveled, colorized status lines prefixed with the wall-clock time.
type Logger struct {
	mu      sync.Mutex
	out     io.Writer
	verbose bool
	quiet   bool
}

// New returns a logger writing to out. Info and debug lines are only printed when verbose is set.
func New(out io.Writer, verbose bool) *Logger {
	if out == nil {
		out = os.Stderr
	}
	return &Logger{out: out, verbose: verbose}
}

// Discard returns a logger that prints nothing.
func Discard() *Logger {
	return &Logger{out: io.Discard, quiet: true}
}

func (l *Logger) Verbose() bool {
	return l != nil && l.verbose
}

func (l *Logger) Info(format string, args ...any) {
	if l == nil || !l.verbose {
		return
	}
	l.print(color.New(color.FgBlue), "INFO", format, args...)
}

func (l *Logger) Success(format string, args ...any) {
	l.print(color.New(color.FgGreen), "SUCCESS", format, args...)
}

func (l *Logger) Warn(format string, args ...any) {
	l.print(color.New(color.FgYellow), "WARNING", format, args...)
}

func (l *Logger) Error(format string, args ...any) {
	l.print(color.New(color.FgRed), "ERROR", format, args...)
}

// Debug prints when the logger is verbose or the DEBUG environment variable is set.
func (l *Logger) Debug(format string, args ...any) {
	if l == nil || (!l.verbose && os.Getenv("DEBUG") == "") {
		return
	}
	l.print(color.New(color.FgHiBlack), "DEBUG", format, args...)
}

func (l *Logger) print(c *color.Color, level, format string, args ...any) {
	if l == nil || l.quiet {
		return
	}
	msg := fmt.Sprintf(format, args...)

	l.mu.Lock()
	defer l.mu.Unlock()
	c.Fprintf(l.out, "%s - %s: %s\n", currentTime(), level, msg)
}

func currentTime() string {
	now := time.Now()
	return fmt.Sprintf("%02d:%02d", now.Hour(), now.Minute())
}
