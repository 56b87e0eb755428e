package system

import (
	"context"
	"fmt"
)

// Systemd drives units through systemctl.
type Systemd struct {
	runner Runner
}

func NewSystemd(runner Runner) *Systemd {
	return &Systemd{runner: runner}
}

func (s *Systemd) Restart(ctx context.Context, unit string) error {
	if _, err := s.runner.Run(ctx, Cmd("systemctl", "restart", unit)); err != nil {
		return fmt.Errorf("failed to restart %s: %w", unit, err)
	}
	return nil
}

func (s *Systemd) Enable(ctx context.Context, unit string) error {
	if _, err := s.runner.Run(ctx, Cmd("systemctl", "enable", unit)); err != nil {
		return fmt.Errorf("failed to enable %s: %w", unit, err)
	}
	return nil
}

// IsActive reports whether systemd considers unit active.
func (s *Systemd) IsActive(ctx context.Context, unit string) bool {
	_, err := s.runner.Run(ctx, Cmd("systemctl", "is-active", "--quiet", unit))
	return err == nil
}
