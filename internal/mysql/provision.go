// Package mysql provisions a MySQL server: it validates the bind parameters,
// installs the server packages, patches the [mysqld] section and resets the
// root credential.
package mysql

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/andreweick/hostprov/internal/config"
	"github.com/andreweick/hostprov/internal/logging"
	"github.com/andreweick/hostprov/internal/system"
)

// PackageManager installs and upgrades OS packages.
type PackageManager interface {
	IsInstalled(ctx context.Context, pkg string) (bool, error)
	Install(ctx context.Context, pkgs ...string) error
	Update(ctx context.Context, pkgs ...string) error
}

// ServiceManager controls init-system units.
type ServiceManager interface {
	Restart(ctx context.Context, unit string) error
	Enable(ctx context.Context, unit string) error
	IsActive(ctx context.Context, unit string) bool
}

// Preseeder answers package installer prompts ahead of time.
type Preseeder interface {
	SetSelections(ctx context.Context, selections ...system.Selection) error
}

type Options struct {
	Config   config.MySQLConfig
	Runner   system.Runner
	Packages PackageManager
	Services ServiceManager
	Debconf  Preseeder
	Logger   logging.Logger
	Euid     func() int
	Now      func() time.Time
	DryRun   bool
}

type Provisioner struct {
	cfg      config.MySQLConfig
	runner   system.Runner
	packages PackageManager
	services ServiceManager
	debconf  Preseeder
	logger   logging.Logger
	euid     func() int
	now      func() time.Time
	dryRun   bool
}

// NewProvisioner wires a Provisioner; unset collaborators default to the host
// implementations built on opts.Runner.
func NewProvisioner(opts Options) *Provisioner {
	p := &Provisioner{
		cfg:      opts.Config,
		runner:   opts.Runner,
		packages: opts.Packages,
		services: opts.Services,
		debconf:  opts.Debconf,
		logger:   opts.Logger,
		euid:     opts.Euid,
		now:      opts.Now,
		dryRun:   opts.DryRun,
	}
	if p.logger == nil {
		p.logger = logging.Discard()
	}
	if p.packages == nil {
		p.packages = system.NewApt(p.runner)
	}
	if p.services == nil {
		p.services = system.NewSystemd(p.runner)
	}
	if p.debconf == nil {
		p.debconf = system.NewDebconf(p.runner)
	}
	if p.euid == nil {
		p.euid = system.Geteuid
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p
}

// Run provisions the server for params. Any returned error is fatal; steps with
// a safe fallback log a warning and continue.
func (p *Provisioner) Run(ctx context.Context, params Params) error {
	if err := system.RequireRoot(p.euid); err != nil {
		return err
	}

	if len(p.cfg.Packages) == 0 {
		return fmt.Errorf("no server packages configured")
	}
	serverPkg := p.cfg.Packages[0]

	p.logger.Info("pre-seeding installer credentials", "package", serverPkg)
	if err := p.debconf.SetSelections(ctx, debconfSelections(serverPkg, params.RootPassword())...); err != nil {
		return err
	}

	if err := p.installPackages(ctx); err != nil {
		return err
	}

	p.checkReceipt(params)

	if err := p.patchConfig(params); err != nil {
		return err
	}

	p.logger.Info("resetting root credential")
	method, err := resetRootPassword(ctx, p.runner, params.RootPassword())
	if err != nil {
		p.logger.Warn("root credential reset failed; the install-time credential may already be in effect", "err", err)
	} else {
		p.logger.Info("root credential reset", "auth", method)
	}

	if err := p.restartService(ctx); err != nil {
		return err
	}

	p.saveReceipt(params)

	p.logger.Info("MySQL provisioned", "bind-address", params.BindAddress(), "port", params.Port())
	return nil
}

func (p *Provisioner) installPackages(ctx context.Context) error {
	missing, err := system.MissingPackages(ctx, p.packages, p.cfg.Packages)
	if err != nil {
		return err
	}

	if len(missing) > 0 {
		p.logger.Info("installing packages", "packages", missing)
		if err := p.packages.Install(ctx, missing...); err != nil {
			return err
		}
	}

	present := subtract(p.cfg.Packages, missing)
	if len(present) > 0 {
		p.logger.Info("upgrading installed packages", "packages", present)
		if err := p.packages.Update(ctx, present...); err != nil {
			p.logger.Warn("package upgrade failed; continuing with installed version", "err", err)
		}
	}
	return nil
}

func (p *Provisioner) patchConfig(params Params) error {
	settings := Settings(params)

	if p.dryRun {
		before, after, err := PlanConfig(p.cfg.ConfigFile, p.cfg.Section, settings...)
		if errors.Is(err, ErrConfigNotFound) {
			// The server package ships the file; a dry run never installs it.
			p.logger.Info("dry run: configuration file not present yet; it will be created by the package install", "file", p.cfg.ConfigFile)
			return nil
		}
		if err != nil {
			return err
		}
		p.logger.Info("dry run: configuration not written", "file", p.cfg.ConfigFile, "changes", !bytes.Equal(before, after))
		return nil
	}

	changed, err := PatchConfig(p.cfg.ConfigFile, p.cfg.Section, settings...)
	if err != nil {
		return err
	}
	if changed {
		p.logger.Info("configuration updated", "file", p.cfg.ConfigFile, "section", p.cfg.Section)
	} else {
		p.logger.Info("configuration already up to date", "file", p.cfg.ConfigFile)
	}
	return nil
}

func (p *Provisioner) restartService(ctx context.Context) error {
	unit := p.cfg.Service

	p.logger.Info("restarting service", "unit", unit)
	if err := p.services.Restart(ctx, unit); err != nil {
		return err
	}
	if err := p.services.Enable(ctx, unit); err != nil {
		return err
	}
	if !p.dryRun && !p.services.IsActive(ctx, unit) {
		return fmt.Errorf("service %s is not active after restart", unit)
	}
	return nil
}

func (p *Provisioner) checkReceipt(params Params) {
	if p.cfg.ReceiptFile == "" {
		return
	}
	receipt, err := LoadReceipt(p.cfg.ReceiptFile)
	if err != nil {
		p.logger.Warn("ignoring unreadable receipt", "err", err)
		return
	}
	if receipt == nil {
		return
	}
	if receipt.Matches(params) {
		p.logger.Info("bind settings and root credential unchanged since last run", "provisioned_at", receipt.ProvisionedAt.Format(time.RFC3339))
	} else {
		p.logger.Info("settings differ from last run", "provisioned_at", receipt.ProvisionedAt.Format(time.RFC3339))
	}
}

func (p *Provisioner) saveReceipt(params Params) {
	if p.cfg.ReceiptFile == "" || p.dryRun {
		return
	}
	receipt, err := NewReceipt(params, p.now())
	if err == nil {
		err = receipt.Save(p.cfg.ReceiptFile)
	}
	if err != nil {
		p.logger.Warn("could not record provisioning receipt", "err", err)
	}
}

func subtract(all, remove []string) []string {
	skip := make(map[string]bool, len(remove))
	for _, r := range remove {
		skip[r] = true
	}
	var out []string
	for _, a := range all {
		if !skip[a] {
			out = append(out, a)
		}
	}
	return out
}
