package lxd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/andreweick/hostprov/internal/system"
	"gopkg.in/yaml.v3"
)

// ErrDaemonNotReady is returned when the daemon does not come up within the wait timeout.
var ErrDaemonNotReady = errors.New("LXD daemon not ready")

// Client talks to the LXD daemon through the lxd and lxc command-line tools.
type Client struct {
	runner system.Runner
}

func NewClient(runner system.Runner) *Client {
	return &Client{runner: runner}
}

// WaitReady blocks until the daemon reports ready or timeout elapses.
func (c *Client) WaitReady(ctx context.Context, timeout time.Duration) error {
	seconds := int(timeout / time.Second)
	if seconds < 1 {
		seconds = 1
	}

	// lxd waitready enforces the timeout; the context deadline only guards a hung client.
	ctx, cancel := context.WithTimeout(ctx, timeout+10*time.Second)
	defer cancel()

	if _, err := c.runner.Run(ctx, system.Cmd("lxd", "waitready", fmt.Sprintf("--timeout=%d", seconds))); err != nil {
		return fmt.Errorf("%w after %s: %v", ErrDaemonNotReady, timeout, err)
	}
	return nil
}

type namedEntry struct {
	Name string `yaml:"name"`
}

func (c *Client) listNames(ctx context.Context, kind string) ([]string, error) {
	out, err := c.runner.Run(ctx, system.Cmd("lxc", kind, "list", "--format", "yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", kind, err)
	}

	var entries []namedEntry
	if err := yaml.Unmarshal([]byte(out), &entries); err != nil {
		return nil, fmt.Errorf("failed to parse %s list: %w", kind, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name)
	}
	return names, nil
}

// ListPools returns the names of the configured storage pools.
func (c *Client) ListPools(ctx context.Context) ([]string, error) {
	return c.listNames(ctx, "storage")
}

// ListNetworks returns the names of the networks the daemon knows about.
func (c *Client) ListNetworks(ctx context.Context) ([]string, error) {
	return c.listNames(ctx, "network")
}

// InitWithPreseed feeds doc to "lxd init --preseed".
func (c *Client) InitWithPreseed(ctx context.Context, doc []byte) error {
	cmd := system.Command{
		Name:  "lxd",
		Args:  []string{"init", "--preseed"},
		Stdin: string(doc),
	}
	if _, err := c.runner.Run(ctx, cmd); err != nil {
		return fmt.Errorf("failed to initialize LXD: %w", err)
	}
	return nil
}
