// Package lxd provisions an LXD host: snap install, lxd group membership, and a
// one-time preseeded initialization of networking, storage and the default profile.
package lxd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/andreweick/hostprov/internal/config"
	"github.com/andreweick/hostprov/internal/logging"
	"github.com/andreweick/hostprov/internal/system"
)

// PackageManager installs and upgrades packages.
type PackageManager interface {
	IsInstalled(ctx context.Context, pkg string) (bool, error)
	Install(ctx context.Context, pkgs ...string) error
	Update(ctx context.Context, pkgs ...string) error
}

// Daemon is the slice of the LXD daemon the provisioner drives.
type Daemon interface {
	WaitReady(ctx context.Context, timeout time.Duration) error
	ListPools(ctx context.Context) ([]string, error)
	ListNetworks(ctx context.Context) ([]string, error)
	InitWithPreseed(ctx context.Context, doc []byte) error
}

// AlreadyInitialized treats the daemon as initialized when a pool named pool and
// a network named network both exist. Only names are compared.
func AlreadyInitialized(ctx context.Context, daemon Daemon, pool, network string) (bool, error) {
	pools, err := daemon.ListPools(ctx)
	if err != nil {
		return false, err
	}
	networks, err := daemon.ListNetworks(ctx)
	if err != nil {
		return false, err
	}
	return contains(pools, pool) && contains(networks, network), nil
}

type Options struct {
	Config   config.LXDConfig
	Runner   system.Runner
	Apt      PackageManager
	Snap     PackageManager
	Daemon   Daemon
	Accounts GroupManager
	Getenv   func(string) string
	Logger   logging.Logger
	Euid     func() int
}

type Provisioner struct {
	cfg      config.LXDConfig
	apt      PackageManager
	snap     PackageManager
	daemon   Daemon
	accounts GroupManager
	getenv   func(string) string
	logger   logging.Logger
	euid     func() int
}

// NewProvisioner wires a Provisioner; unset collaborators default to the host
// implementations built on opts.Runner.
func NewProvisioner(opts Options) *Provisioner {
	p := &Provisioner{
		cfg:      opts.Config,
		apt:      opts.Apt,
		snap:     opts.Snap,
		daemon:   opts.Daemon,
		accounts: opts.Accounts,
		getenv:   opts.Getenv,
		logger:   opts.Logger,
		euid:     opts.Euid,
	}
	if p.logger == nil {
		p.logger = logging.Discard()
	}
	if p.apt == nil {
		p.apt = system.NewApt(opts.Runner)
	}
	if p.snap == nil {
		p.snap = system.NewSnap(opts.Runner, opts.Config.Channel)
	}
	if p.daemon == nil {
		p.daemon = NewClient(opts.Runner)
	}
	if p.accounts == nil {
		p.accounts = system.NewAccounts(opts.Runner)
	}
	if p.getenv == nil {
		p.getenv = os.Getenv
	}
	if p.euid == nil {
		p.euid = system.Geteuid
	}
	return p
}

// Run provisions the host. Any returned error is fatal.
func (p *Provisioner) Run(ctx context.Context) error {
	if err := system.RequireRoot(p.euid); err != nil {
		return err
	}

	if err := p.installPrerequisites(ctx); err != nil {
		return err
	}

	if err := p.installSnap(ctx); err != nil {
		return err
	}

	if err := EnsureGroup(ctx, p.logger, p.getenv, p.accounts, p.cfg.Group); err != nil {
		return err
	}

	timeout := time.Duration(p.cfg.WaitTimeout) * time.Second
	p.logger.Info("waiting for LXD daemon", "timeout", timeout)
	if err := p.daemon.WaitReady(ctx, timeout); err != nil {
		return err
	}
	p.logger.Info("LXD daemon ready")

	return p.initialize(ctx)
}

func (p *Provisioner) installPrerequisites(ctx context.Context) error {
	missing, err := system.MissingPackages(ctx, p.apt, p.cfg.Prerequisites)
	if err != nil {
		return err
	}
	if len(missing) == 0 {
		return nil
	}

	p.logger.Info("installing prerequisites", "packages", missing)
	return p.apt.Install(ctx, missing...)
}

func (p *Provisioner) installSnap(ctx context.Context) error {
	name := p.cfg.Snap

	installed, err := p.snap.IsInstalled(ctx, name)
	if err != nil {
		return err
	}

	if !installed {
		p.logger.Info("installing snap", "snap", name, "channel", p.cfg.Channel)
		return p.snap.Install(ctx, name)
	}

	p.logger.Info("snap already installed; refreshing", "snap", name)
	if err := p.snap.Update(ctx, name); err != nil {
		p.logger.Warn("snap refresh failed; continuing with installed revision", "err", err)
	}
	return nil
}

func (p *Provisioner) initialize(ctx context.Context) error {
	done, err := AlreadyInitialized(ctx, p.daemon, p.cfg.Storage.Name, p.cfg.Network.Name)
	if err != nil {
		return fmt.Errorf("failed to inspect LXD state: %w", err)
	}
	if done {
		p.logger.Info("LXD already initialized; skipping preseed", "pool", p.cfg.Storage.Name, "network", p.cfg.Network.Name)
		return nil
	}

	doc, err := BuildPreseed(p.cfg).Marshal()
	if err != nil {
		return err
	}

	p.logger.Info("initializing LXD", "network", p.cfg.Network.Name, "pool", p.cfg.Storage.Name)
	if err := p.daemon.InitWithPreseed(ctx, doc); err != nil {
		return err
	}
	p.logger.Info("LXD provisioned")
	return nil
}

func contains(items []string, want string) bool {
	for _, item := range items {
		if item == want {
			return true
		}
	}
	return false
}
