package lxd

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/andreweick/hostprov/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAccounts struct {
	login    string
	loginErr error
	groups   map[string][]string
	lookErr  error
	addErr   error
	added    []string
}

func (f *fakeAccounts) LoginName(context.Context) (string, error) {
	return f.login, f.loginErr
}

func (f *fakeAccounts) InGroup(_ context.Context, username, group string) (bool, error) {
	if f.lookErr != nil {
		return false, f.lookErr
	}
	for _, g := range f.groups[username] {
		if g == group {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeAccounts) AddToGroup(_ context.Context, username, group string) error {
	if f.addErr != nil {
		return f.addErr
	}
	f.added = append(f.added, username+":"+group)
	if f.groups == nil {
		f.groups = map[string][]string{}
	}
	f.groups[username] = append(f.groups[username], group)
	return nil
}

func env(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestResolveInvokingUser(t *testing.T) {
	tests := []struct {
		name     string
		sudoUser string
		accounts *fakeAccounts
		expected string
		ok       bool
	}{
		{"sudo user wins", "alice", &fakeAccounts{login: "bob"}, "alice", true},
		{"login name fallback", "", &fakeAccounts{login: "bob"}, "bob", true},
		{"sudo root falls back", "root", &fakeAccounts{login: "carol"}, "carol", true},
		{"only root", "", &fakeAccounts{login: "root"}, "", false},
		{"logname fails", "", &fakeAccounts{loginErr: errors.New("logname: no login name")}, "", false},
		{"empty login", "", &fakeAccounts{}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, ok := ResolveInvokingUser(context.Background(), env(map[string]string{EnvSudoUser: tt.sudoUser}), tt.accounts)
			assert.Equal(t, tt.expected, name)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestEnsureGroup_AddsOnce(t *testing.T) {
	ctx := context.Background()
	accounts := &fakeAccounts{}
	getenv := env(map[string]string{EnvSudoUser: "alice"})

	require.NoError(t, EnsureGroup(ctx, logging.Discard(), getenv, accounts, "lxd"))
	require.NoError(t, EnsureGroup(ctx, logging.Discard(), getenv, accounts, "lxd"))

	assert.Equal(t, []string{"alice:lxd"}, accounts.added)
}

func TestEnsureGroup_UnknownUserSkips(t *testing.T) {
	var logs bytes.Buffer
	accounts := &fakeAccounts{login: "root"}

	err := EnsureGroup(context.Background(), logging.New(&logs, "test", false), env(nil), accounts, "lxd")
	assert.NoError(t, err)
	assert.Empty(t, accounts.added)
	assert.Contains(t, logs.String(), "skipping group membership")
}

func TestEnsureGroup_LookupFailureSkips(t *testing.T) {
	accounts := &fakeAccounts{lookErr: errors.New("user: unknown user ghost")}
	err := EnsureGroup(context.Background(), logging.Discard(), env(map[string]string{EnvSudoUser: "ghost"}), accounts, "lxd")

	assert.NoError(t, err)
	assert.Empty(t, accounts.added)
}

func TestEnsureGroup_AddFailureIsFatal(t *testing.T) {
	accounts := &fakeAccounts{addErr: errors.New("usermod: group 'lxd' does not exist")}
	err := EnsureGroup(context.Background(), logging.Discard(), env(map[string]string{EnvSudoUser: "alice"}), accounts, "lxd")

	assert.ErrorContains(t, err, "does not exist")
}
