// Package runner executes external tools from argument vectors. No shell is
// involved, so values coming from configuration are never interpreted.
package runner

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"

	"github.com/m-mizutani/goerr/v2"

	"github.com/minios-linux/relkit/release"
)

// Command describes one external invocation.
type Command struct {
	Name string
	Args []string
	// Dir is the working directory; empty means the current one.
	Dir string
}

// String renders the command for logs.
func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Result holds the captured output of a finished command.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Runner runs commands. Implementations block until the process exits.
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
}

// Exec runs commands with os/exec.
type Exec struct{}

// Run executes cmd. A missing binary or a non-zero exit returns an error
// tagged release.TagSubprocess; the Result is still returned when the
// process started so callers can inspect stderr.
func (Exec) Run(ctx context.Context, cmd Command) (*Result, error) {
	path, err := exec.LookPath(cmd.Name)
	if err != nil {
		return nil, goerr.Wrap(err, "command not found",
			goerr.V("command", cmd.Name), goerr.T(release.TagSubprocess))
	}

	c := exec.CommandContext(ctx, path, cmd.Args...)
	c.Dir = cmd.Dir
	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	err = c.Run()
	res := &Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		} else {
			res.ExitCode = -1
		}
		return res, goerr.Wrap(err, "command failed",
			goerr.V("command", cmd.String()),
			goerr.V("exit_code", res.ExitCode),
			goerr.V("stderr", strings.TrimSpace(stderr.String())),
			goerr.T(release.TagSubprocess))
	}
	return res, nil
}
