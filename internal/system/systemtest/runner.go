// Package systemtest provides a scripted system.Runner for tests.
package systemtest

import (
	"context"
	"strings"
	"sync"

	"github.com/andreweick/hostprov/internal/system"
)

type rule struct {
	match  func(system.Command) bool
	output string
	err    error
}

// Runner records every command and answers from rules registered with On,
// OnFunc and Fail. The first matching rule wins; unmatched commands succeed
// with empty output.
type Runner struct {
	mu    sync.Mutex
	calls []system.Command
	rules []rule
}

func NewRunner() *Runner {
	return &Runner{}
}

// On answers commands whose line starts with prefix.
func (r *Runner) On(prefix, output string, err error) *Runner {
	return r.OnFunc(func(cmd system.Command) bool {
		return strings.HasPrefix(cmd.Line(), prefix)
	}, output, err)
}

// OnFunc answers commands accepted by match.
func (r *Runner) OnFunc(match func(system.Command) bool, output string, err error) *Runner {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules = append(r.rules, rule{match: match, output: output, err: err})
	return r
}

// Fail makes commands starting with prefix exit 1 with output.
func (r *Runner) Fail(prefix, output string) *Runner {
	return r.On(prefix, output, &system.CommandError{Command: prefix, ExitCode: 1, Output: output})
}

func (r *Runner) Run(_ context.Context, cmd system.Command) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls = append(r.calls, cmd)
	for _, rl := range r.rules {
		if rl.match(cmd) {
			return rl.output, rl.err
		}
	}
	return "", nil
}

// Calls returns the recorded commands in order.
func (r *Runner) Calls() []system.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]system.Command(nil), r.calls...)
}

// Lines returns the recorded command lines in order.
func (r *Runner) Lines() []string {
	var lines []string
	for _, cmd := range r.Calls() {
		lines = append(lines, cmd.Line())
	}
	return lines
}

// Ran reports whether any recorded command line starts with prefix.
func (r *Runner) Ran(prefix string) bool {
	return r.Find(prefix) != nil
}

// Find returns the first recorded command starting with prefix, or nil.
func (r *Runner) Find(prefix string) *system.Command {
	for _, cmd := range r.Calls() {
		if strings.HasPrefix(cmd.Line(), prefix) {
			c := cmd
			return &c
		}
	}
	return nil
}
