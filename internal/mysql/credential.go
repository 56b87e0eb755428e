package mysql

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/andreweick/hostprov/internal/system"
)

// debconfSelections answers the server package's install-time password prompts.
func debconfSelections(pkg, password string) []system.Selection {
	return []system.Selection{
		{Package: pkg, Question: pkg + "/root_password", Type: "password", Value: password},
		{Package: pkg, Question: pkg + "/root_password_again", Type: "password", Value: password},
	}
}

// escapeSQLString quotes s for use inside a single-quoted SQL literal.
func escapeSQLString(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
}

// resetStatement sets the local root credential and reloads the grant tables.
func resetStatement(password string) string {
	return fmt.Sprintf("ALTER USER 'root'@'localhost' IDENTIFIED BY '%s';\nFLUSH PRIVILEGES;\n", escapeSQLString(password))
}

// resetRootPassword runs the reset statement through the mysql client. It first
// authenticates over the socket as the OS root user; if that is refused, a
// credential set at install time may already be in effect, so it retries with
// password authentication. The statement travels on stdin and the password in
// MYSQL_PWD, keeping both out of the process table.
func resetRootPassword(ctx context.Context, runner system.Runner, password string) (string, error) {
	statement := resetStatement(password)
	base := system.Command{
		Name:   "mysql",
		Args:   []string{"--user=root", "--batch"},
		Stdin:  statement,
		Redact: []string{password, escapeSQLString(password)},
	}

	_, socketErr := runner.Run(ctx, base)
	if socketErr == nil {
		return "socket", nil
	}

	withPassword := base
	withPassword.Env = []string{"MYSQL_PWD=" + password}
	if _, err := runner.Run(ctx, withPassword); err != nil {
		return "", fmt.Errorf("failed to reset root credential: %w", errors.Join(socketErr, err))
	}
	return "password", nil
}
