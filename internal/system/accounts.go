package system

import (
	"context"
	"errors"
	"fmt"
	"os/user"
	"strings"
)

// Accounts reads and edits OS user and group membership.
type Accounts struct {
	runner Runner
}

func NewAccounts(runner Runner) *Accounts {
	return &Accounts{runner: runner}
}

// LoginName returns the name of the user logged in on the controlling terminal.
func (a *Accounts) LoginName(ctx context.Context) (string, error) {
	out, err := a.runner.Run(ctx, Cmd("logname"))
	if err != nil {
		return "", fmt.Errorf("failed to resolve login name: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// InGroup reports whether username is a member of group. A group that does not
// exist yet has no members.
func (a *Accounts) InGroup(ctx context.Context, username, group string) (bool, error) {
	u, err := user.Lookup(username)
	if err != nil {
		return false, fmt.Errorf("failed to look up user %s: %w", username, err)
	}

	g, err := user.LookupGroup(group)
	if err != nil {
		var unknown user.UnknownGroupError
		if errors.As(err, &unknown) {
			return false, nil
		}
		return false, fmt.Errorf("failed to look up group %s: %w", group, err)
	}

	gids, err := u.GroupIds()
	if err != nil {
		return false, fmt.Errorf("failed to list groups of %s: %w", username, err)
	}
	for _, gid := range gids {
		if gid == g.Gid {
			return true, nil
		}
	}
	return false, nil
}

// AddToGroup appends group to username's supplementary groups.
func (a *Accounts) AddToGroup(ctx context.Context, username, group string) error {
	if _, err := a.runner.Run(ctx, Cmd("usermod", "-aG", group, username)); err != nil {
		return fmt.Errorf("failed to add %s to group %s: %w", username, group, err)
	}
	return nil
}
