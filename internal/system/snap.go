package system

import (
	"context"
	"errors"
	"fmt"
)

// Snap manages sandboxed packages through the snap CLI.
type Snap struct {
	runner  Runner
	channel string
}

// NewSnap returns a Snap installing from channel; an empty channel uses the store default.
func NewSnap(runner Runner, channel string) *Snap {
	return &Snap{runner: runner, channel: channel}
}

func (s *Snap) IsInstalled(ctx context.Context, name string) (bool, error) {
	_, err := s.runner.Run(ctx, Cmd("snap", "list", name))
	if err != nil {
		var cmdErr *CommandError
		if errors.As(err, &cmdErr) {
			return false, nil
		}
		return false, fmt.Errorf("failed to query snap %s: %w", name, err)
	}
	return true, nil
}

func (s *Snap) Install(ctx context.Context, names ...string) error {
	for _, name := range names {
		args := []string{"install", name}
		if s.channel != "" {
			args = append(args, "--channel="+s.channel)
		}
		if _, err := s.runner.Run(ctx, Cmd("snap", args...)); err != nil {
			return fmt.Errorf("failed to install snap %s: %w", name, err)
		}
	}
	return nil
}

func (s *Snap) Update(ctx context.Context, names ...string) error {
	for _, name := range names {
		if _, err := s.runner.Run(ctx, Cmd("snap", "refresh", name)); err != nil {
			return fmt.Errorf("failed to refresh snap %s: %w", name, err)
		}
	}
	return nil
}
