package system

import (
	"context"
	"fmt"
	"strings"
)

// Selection is one debconf answer: "<package> <question> <type> <value>".
type Selection struct {
	Package  string
	Question string
	Type     string
	Value    string
}

func (s Selection) String() string {
	return fmt.Sprintf("%s %s %s %s", s.Package, s.Question, s.Type, s.Value)
}

// Debconf pre-seeds installer prompts so package installs run unattended.
type Debconf struct {
	runner Runner
}

func NewDebconf(runner Runner) *Debconf {
	return &Debconf{runner: runner}
}

// SetSelections feeds selections to debconf-set-selections on stdin. Values of
// type password are masked in any error output. A value containing a line break
// is rejected before anything runs.
func (d *Debconf) SetSelections(ctx context.Context, selections ...Selection) error {
	var lines []string
	var secrets []string
	for _, s := range selections {
		if strings.ContainsAny(s.Value, "\r\n") {
			return fmt.Errorf("debconf answer for %s spans multiple lines", s.Question)
		}
		lines = append(lines, s.String())
		if s.Type == "password" {
			secrets = append(secrets, s.Value)
		}
	}

	cmd := Command{
		Name:   "debconf-set-selections",
		Stdin:  strings.Join(lines, "\n") + "\n",
		Redact: secrets,
	}
	if _, err := d.runner.Run(ctx, cmd); err != nil {
		return fmt.Errorf("failed to pre-seed debconf: %w", err)
	}
	return nil
}
