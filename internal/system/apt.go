package system

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var aptEnv = []string{"DEBIAN_FRONTEND=noninteractive"}

// Apt manages Debian packages through dpkg-query and apt-get.
type Apt struct {
	runner  Runner
	updated bool
}

func NewApt(runner Runner) *Apt {
	return &Apt{runner: runner}
}

// IsInstalled reports whether dpkg considers pkg fully installed.
func (a *Apt) IsInstalled(ctx context.Context, pkg string) (bool, error) {
	out, err := a.runner.Run(ctx, Cmd("dpkg-query", "-W", "-f=${Status}", pkg))
	if err != nil {
		var cmdErr *CommandError
		if errors.As(err, &cmdErr) {
			// dpkg-query exits non-zero for packages it has never seen
			return false, nil
		}
		return false, fmt.Errorf("failed to query package %s: %w", pkg, err)
	}
	return strings.Contains(out, "install ok installed"), nil
}

// Install refreshes the package index once per Apt value, then installs pkgs.
func (a *Apt) Install(ctx context.Context, pkgs ...string) error {
	if len(pkgs) == 0 {
		return nil
	}
	if err := a.refreshIndex(ctx); err != nil {
		return err
	}

	args := append([]string{"install", "-y"}, pkgs...)
	if _, err := a.runner.Run(ctx, Command{Name: "apt-get", Args: args, Env: aptEnv}); err != nil {
		return fmt.Errorf("failed to install %s: %w", strings.Join(pkgs, ", "), err)
	}
	return nil
}

// Update upgrades pkgs in place without installing anything new.
func (a *Apt) Update(ctx context.Context, pkgs ...string) error {
	if len(pkgs) == 0 {
		return nil
	}
	if err := a.refreshIndex(ctx); err != nil {
		return err
	}

	args := append([]string{"install", "-y", "--only-upgrade"}, pkgs...)
	if _, err := a.runner.Run(ctx, Command{Name: "apt-get", Args: args, Env: aptEnv}); err != nil {
		return fmt.Errorf("failed to upgrade %s: %w", strings.Join(pkgs, ", "), err)
	}
	return nil
}

func (a *Apt) refreshIndex(ctx context.Context) error {
	if a.updated {
		return nil
	}
	if _, err := a.runner.Run(ctx, Command{Name: "apt-get", Args: []string{"update"}, Env: aptEnv}); err != nil {
		return fmt.Errorf("failed to update package index: %w", err)
	}
	a.updated = true
	return nil
}

// MissingPackages returns the subset of pkgs that are not installed, in order.
func MissingPackages(ctx context.Context, pm interface {
	IsInstalled(ctx context.Context, pkg string) (bool, error)
}, pkgs []string) ([]string, error) {
	var missing []string
	for _, pkg := range pkgs {
		installed, err := pm.IsInstalled(ctx, pkg)
		if err != nil {
			return nil, err
		}
		if !installed {
			missing = append(missing, pkg)
		}
	}
	return missing, nil
}
