// Package system wraps the host tools the provisioners drive: dpkg/apt, debconf,
// snap, systemctl and the account utilities. Every call goes through a Runner so
// sequencing logic can be exercised without root.
package system

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/andreweick/hostprov/internal/logging"
)

const redacted = "****"

// Command is one invocation of an external tool.
type Command struct {
	Name  string
	Args  []string
	Stdin string
	Env   []string
	// Redact lists values masked when the command is printed.
	Redact []string
}

// Cmd builds a Command from a name and arguments.
func Cmd(name string, args ...string) Command {
	return Command{Name: name, Args: args}
}

// Line returns the unredacted command line.
func (c Command) Line() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// String returns the command line with secrets masked.
func (c Command) String() string {
	line := c.Line()
	for _, secret := range c.Redact {
		if secret != "" {
			line = strings.ReplaceAll(line, secret, redacted)
		}
	}
	return line
}

// Runner executes external commands and returns their combined output.
type Runner interface {
	Run(ctx context.Context, cmd Command) (string, error)
}

// CommandError describes an external command that exited unsuccessfully.
type CommandError struct {
	Command  string
	ExitCode int
	Output   string
	Err      error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("command '%s' failed", e.Command)
	if e.ExitCode > 0 {
		msg += fmt.Sprintf(" (exit %d)", e.ExitCode)
	}
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += ": " + out
	}
	return msg
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ExecCommandFunc matches exec.CommandContext.
type ExecCommandFunc func(ctx context.Context, name string, arg ...string) *exec.Cmd

// ExecRunner runs commands on the local host with os/exec.
type ExecRunner struct {
	logger      logging.Logger
	dryRun      bool
	execCommand ExecCommandFunc
}

// ExecRunnerOption configures an ExecRunner.
type ExecRunnerOption func(*ExecRunner)

// WithDryRun makes the runner log commands instead of executing them.
func WithDryRun(dryRun bool) ExecRunnerOption {
	return func(r *ExecRunner) {
		r.dryRun = dryRun
	}
}

// WithExecCommand overrides command construction, mainly for tests.
func WithExecCommand(fn ExecCommandFunc) ExecRunnerOption {
	return func(r *ExecRunner) {
		r.execCommand = fn
	}
}

func NewExecRunner(logger logging.Logger, opts ...ExecRunnerOption) *ExecRunner {
	r := &ExecRunner{
		logger:      logger,
		execCommand: exec.CommandContext,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *ExecRunner) Run(ctx context.Context, cmd Command) (string, error) {
	if r.dryRun {
		r.logger.Info("dry run", "command", cmd.String())
		return "", nil
	}

	r.logger.Debug("running", "command", cmd.String())

	c := r.execCommand(ctx, cmd.Name, cmd.Args...)
	if cmd.Stdin != "" {
		c.Stdin = strings.NewReader(cmd.Stdin)
	}
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}

	var out bytes.Buffer
	c.Stdout = &out
	c.Stderr = &out

	err := c.Run()
	output := maskSecrets(out.String(), cmd.Redact)
	if err != nil {
		cmdErr := &CommandError{
			Command: cmd.String(),
			Output:  output,
			Err:     err,
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			cmdErr.ExitCode = exitErr.ExitCode()
		}
		return output, cmdErr
	}

	return output, nil
}

func maskSecrets(s string, secrets []string) string {
	for _, secret := range secrets {
		if secret != "" {
			s = strings.ReplaceAll(s, secret, redacted)
		}
	}
	return s
}
