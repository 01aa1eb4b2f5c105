// Package output provides the colored, spinner-capable logger used across
// the orchestrator CLI and its subsystems.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// Logger provides colored output functions for CLI and orchestrator feedback.
type Logger struct {
	out     io.Writer
	errOut  io.Writer
	noColor bool
	verbose bool

	spinnerMu      sync.Mutex
	spinnerActive  bool
	spinnerStop    chan struct{}
	spinnerDone    chan struct{}
	spinnerMessage string
}

// New creates a new Logger writing to stdout/stderr.
func New() *Logger {
	return &Logger{
		out:    os.Stdout,
		errOut: os.Stderr,
	}
}

// SetNoColor disables colored output.
func (l *Logger) SetNoColor(noColor bool) {
	l.noColor = noColor
	color.NoColor = noColor
}

// SetVerbose enables verbose (Debug-level) logging.
func (l *Logger) SetVerbose(verbose bool) {
	l.verbose = verbose
}

// IsVerbose reports whether verbose mode is enabled.
func (l *Logger) IsVerbose() bool { return l.verbose }

// Info prints an informational message in default color.
func (l *Logger) Info(format string, args ...interface{}) {
	l.StopSpinner()
	fmt.Fprintf(l.out, format+"\n", args...)
}

// Warn prints a warning message in yellow.
func (l *Logger) Warn(format string, args ...interface{}) {
	l.StopSpinner()
	color.New(color.FgYellow).Fprintf(l.errOut, "Warning: "+format+"\n", args...)
}

// Error prints an error message in red.
func (l *Logger) Error(format string, args ...interface{}) {
	l.StopSpinner()
	color.New(color.FgRed).Fprintf(l.errOut, "Error: "+format+"\n", args...)
}

// Success prints a success message in green with a checkmark.
func (l *Logger) Success(format string, args ...interface{}) {
	l.StopSpinner()
	color.New(color.FgGreen).Fprintf(l.out, "✓ "+format+"\n", args...)
}

// Debug prints a debug message only when verbose mode is enabled.
func (l *Logger) Debug(format string, args ...interface{}) {
	if !l.verbose {
		return
	}
	l.StopSpinner()
	color.New(color.FgHiBlack).Fprintf(l.out, "[debug] "+format+"\n", args...)
}

// Writer returns the underlying stdout writer, e.g. to pipe a child
// process's own output through without re-formatting it.
func (l *Logger) Writer() io.Writer { return l.out }

// ErrWriter returns the underlying stderr writer.
func (l *Logger) ErrWriter() io.Writer { return l.errOut }

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// StartSpinner starts an animated spinner with a message; it runs in a
// background goroutine until StopSpinner is called.
func (l *Logger) StartSpinner(message string) {
	l.spinnerMu.Lock()
	defer l.spinnerMu.Unlock()

	if l.spinnerActive {
		l.stopSpinnerLocked()
	}

	l.spinnerActive = true
	l.spinnerMessage = message
	l.spinnerStop = make(chan struct{})
	l.spinnerDone = make(chan struct{})

	go l.runSpinner()
}

func (l *Logger) runSpinner() {
	defer close(l.spinnerDone)

	cyan := color.New(color.FgCyan)
	frameIdx := 0
	ticker := time.NewTicker(80 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-l.spinnerStop:
			return
		case <-ticker.C:
			l.spinnerMu.Lock()
			if l.spinnerActive {
				frame := spinnerFrames[frameIdx%len(spinnerFrames)]
				cyan.Fprintf(l.out, "\r  %s %s", frame, l.spinnerMessage)
				frameIdx++
			}
			l.spinnerMu.Unlock()
		}
	}
}

// StopSpinner stops the spinner and clears its line, if active.
func (l *Logger) StopSpinner() {
	l.spinnerMu.Lock()
	defer l.spinnerMu.Unlock()
	l.stopSpinnerLocked()
}

func (l *Logger) stopSpinnerLocked() {
	if !l.spinnerActive {
		return
	}
	l.spinnerActive = false
	close(l.spinnerStop)
	<-l.spinnerDone
	l.clearLineLocked()
}

func (l *Logger) clearLineLocked() {
	width := 80
	if f, ok := l.out.(*os.File); ok {
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
			width = w
		}
	}
	fmt.Fprintf(l.out, "\r%s\r", strings.Repeat(" ", width))
}

// NodeErrorInfo carries the context printed by PrintNodeError.
type NodeErrorInfo struct {
	NodeName string
	LogPath  string
	LogLines []string
	Command  string
	WorkDir  string
	PID      int
}

// PrintNodeError prints formatted information about a node that failed its
// readiness check or crashed, including its recent log output.
func (l *Logger) PrintNodeError(info *NodeErrorInfo) {
	red := color.New(color.FgRed)
	cyan := color.New(color.FgCyan)
	gray := color.New(color.FgHiBlack)

	fmt.Fprintln(l.errOut)
	red.Fprintln(l.errOut, separator())
	red.Fprintf(l.errOut, "Node: %s\n", info.NodeName)
	cyan.Fprintf(l.errOut, "Log file: %s\n", info.LogPath)

	if l.verbose {
		if info.Command != "" {
			gray.Fprintf(l.errOut, "Command: %s\n", info.Command)
		}
		if info.WorkDir != "" {
			gray.Fprintf(l.errOut, "Work dir: %s\n", info.WorkDir)
		}
		if info.PID > 0 {
			gray.Fprintf(l.errOut, "PID: %d\n", info.PID)
		}
	}

	red.Fprintln(l.errOut, separator())
	if len(info.LogLines) == 0 {
		gray.Fprintln(l.errOut, "(no log content available)")
	} else {
		for _, line := range info.LogLines {
			fmt.Fprintln(l.errOut, line)
		}
	}
	red.Fprintln(l.errOut, separator())
	fmt.Fprintln(l.errOut)
}

func separator() string {
	return strings.Repeat("─", 60)
}
