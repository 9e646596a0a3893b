// Package console prints relkit's progress messages and asks the operator
// yes/no questions.
package console

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
)

var (
	infoTag    = color.New(color.FgBlue).Sprint("[INFO]")
	successTag = color.New(color.FgGreen).Sprint("[OK]")
	warningTag = color.New(color.FgYellow, color.Bold).Sprint("[WARN]")
	errorTag   = color.New(color.FgRed).Sprint("[ERROR]")
	headerFmt  = color.New(color.FgBlue)
)

// Logger writes tagged, colored lines. The zero value is not usable; use New.
type Logger struct {
	w io.Writer
}

// New returns a logger writing to w. A nil writer means stderr.
func New(w io.Writer) *Logger {
	if w == nil {
		w = os.Stderr
	}
	return &Logger{w: w}
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return &Logger{w: io.Discard}
}

// Writer returns the underlying writer, for tables and reports.
func (l *Logger) Writer() io.Writer {
	return l.w
}

func (l *Logger) Info(format string, args ...any) {
	fmt.Fprintf(l.w, infoTag+" "+format+"\n", args...)
}

func (l *Logger) Success(format string, args ...any) {
	fmt.Fprintf(l.w, successTag+" "+format+"\n", args...)
}

func (l *Logger) Warning(format string, args ...any) {
	fmt.Fprintf(l.w, warningTag+" "+format+"\n", args...)
}

func (l *Logger) Error(format string, args ...any) {
	fmt.Fprintf(l.w, errorTag+" "+format+"\n", args...)
}

// Header prints a section title followed by a rule.
func (l *Logger) Header(title string) {
	fmt.Fprintf(l.w, "\n%s\n", headerFmt.Sprint(title))
	fmt.Fprintln(l.w, strings.Repeat("─", 60))
}

// Prompter asks the operator whether to go on after a failure.
type Prompter interface {
	Continue(question string) bool
}

// StdinPrompter reads the answer from r and echoes the question to w.
type StdinPrompter struct {
	In  io.Reader
	Out io.Writer
}

// Continue returns true only for an explicit yes.
func (p StdinPrompter) Continue(question string) bool {
	in, out := p.In, p.Out
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stderr
	}
	fmt.Fprintf(out, "%s [y/N]: ", question)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

// Answer is a fixed Prompter, used for --yes and in tests.
type Answer bool

func (a Answer) Continue(string) bool { return bool(a) }
