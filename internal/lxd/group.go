package lxd

import (
	"context"

	"github.com/andreweick/hostprov/internal/logging"
)

// EnvSudoUser is set by sudo to the name of the user who invoked it.
const EnvSudoUser = "SUDO_USER"

const rootUser = "root"

// GroupManager reads and edits group membership.
type GroupManager interface {
	LoginName(ctx context.Context) (string, error)
	InGroup(ctx context.Context, username, group string) (bool, error)
	AddToGroup(ctx context.Context, username, group string) error
}

// ResolveInvokingUser finds the non-root user behind the current run: SUDO_USER
// first, then the terminal login name. It reports false when only root is found.
func ResolveInvokingUser(ctx context.Context, getenv func(string) string, accounts GroupManager) (string, bool) {
	if name := getenv(EnvSudoUser); name != "" && name != rootUser {
		return name, true
	}

	name, err := accounts.LoginName(ctx)
	if err != nil || name == "" || name == rootUser {
		return "", false
	}
	return name, true
}

// EnsureGroup adds the invoking user to group unless they are already a member.
// Failing to identify the user is logged and skipped; only a failed add is an error.
func EnsureGroup(ctx context.Context, logger logging.Logger, getenv func(string) string, accounts GroupManager, group string) error {
	username, ok := ResolveInvokingUser(ctx, getenv, accounts)
	if !ok {
		logger.Warn("could not determine a non-root invoking user; skipping group membership", "group", group)
		return nil
	}

	member, err := accounts.InGroup(ctx, username, group)
	if err != nil {
		logger.Info("cannot check group membership; skipping", "user", username, "group", group, "err", err)
		return nil
	}
	if member {
		logger.Info("user already in group", "user", username, "group", group)
		return nil
	}

	if err := accounts.AddToGroup(ctx, username, group); err != nil {
		return err
	}
	logger.Info("added user to group; log out and back in for it to take effect", "user", username, "group", group)
	return nil
}
