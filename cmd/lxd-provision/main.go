package main

import (
	"fmt"
	"io"
	"os"

	"github.com/andreweick/hostprov/internal/config"
	"github.com/andreweick/hostprov/internal/logging"
	"github.com/andreweick/hostprov/internal/lxd"
	"github.com/andreweick/hostprov/internal/system"
	"github.com/urfave/cli/v2"
)

// environment holds the process-level collaborators so tests can replace them.
type environment struct {
	stdout    io.Writer
	stderr    io.Writer
	euid      func() int
	getenv    func(string) string
	newRunner func(logger logging.Logger, dryRun bool) system.Runner
	// accounts overrides OS group lookups; nil uses the host.
	accounts lxd.GroupManager
}

func defaultEnvironment() environment {
	return environment{
		stdout: os.Stdout,
		stderr: os.Stderr,
		euid:   system.Geteuid,
		getenv: os.Getenv,
		newRunner: func(logger logging.Logger, dryRun bool) system.Runner {
			return system.NewExecRunner(logger, system.WithDryRun(dryRun))
		},
	}
}

func main() {
	os.Exit(run(os.Args, defaultEnvironment()))
}

func run(args []string, env environment) int {
	if err := newApp(env).Run(args); err != nil {
		// Errors are logged where they happen
		return 1
	}
	return 0
}

func newApp(env environment) *cli.App {
	return &cli.App{
		Name:  "lxd-provision",
		Usage: "Install LXD from snap, grant the invoking user access, and initialize networking and storage",
		Description: `Installs snapd and the LXD snap, adds the user who ran sudo to the lxd group,
   waits for the daemon and, unless a default pool and bridge already exist,
   initializes LXD from a generated preseed document. Safe to re-run.`,
		Version:         "1.0.0",
		Writer:          env.stdout,
		ErrWriter:       env.stderr,
		HideHelpCommand: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: fmt.Sprintf("defaults file (env %s, default %s)", config.EnvConfigPath, config.DefaultPath),
			},
			&cli.StringFlag{
				Name:  "channel",
				Usage: "snap channel to install LXD from (default: store default)",
			},
			&cli.IntFlag{
				Name:  "wait-timeout",
				Usage: "seconds to wait for the daemon (default 60)",
			},
			&cli.BoolFlag{
				Name:  "print-preseed",
				Usage: "print the preseed document and exit",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "log the commands that would run without changing the host",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "verbose logging",
			},
		},
		OnUsageError: func(ctx *cli.Context, err error, _ bool) error {
			fmt.Fprintln(env.stderr, "Error:", err)
			fmt.Fprintln(env.stderr, "Usage: lxd-provision [--config=<file>] [--channel=<channel>] [--wait-timeout=<seconds>]")
			return err
		},
		ExitErrHandler: func(*cli.Context, error) {},
		Action:         provisionCommand(env),
	}
}

func provisionCommand(env environment) cli.ActionFunc {
	return func(ctx *cli.Context) error {
		logger := logging.New(env.stderr, "lxd-provision", ctx.Bool("debug"))

		if ctx.NArg() > 0 {
			err := fmt.Errorf("unrecognized argument '%s'", ctx.Args().First())
			logger.Error(err)
			return err
		}

		loader := config.NewConfigLoader()
		if err := loader.LoadDefaults(config.ResolvePath(ctx.String("config"))); err != nil {
			logger.Error("failed to load defaults", "err", err)
			return err
		}
		logger.Debug("defaults loaded", "source", loader.Source())

		cfg := loader.GetDefaults().LXD
		if ctx.IsSet("channel") {
			cfg.Channel = ctx.String("channel")
		}
		if ctx.IsSet("wait-timeout") {
			if ctx.Int("wait-timeout") <= 0 {
				err := fmt.Errorf("--wait-timeout must be positive, got %d", ctx.Int("wait-timeout"))
				logger.Error(err)
				return err
			}
			cfg.WaitTimeout = ctx.Int("wait-timeout")
		}

		if ctx.Bool("print-preseed") {
			doc, err := lxd.BuildPreseed(cfg).Marshal()
			if err != nil {
				logger.Error("failed to render preseed", "err", err)
				return err
			}
			_, err = env.stdout.Write(doc)
			return err
		}

		provisioner := lxd.NewProvisioner(lxd.Options{
			Config:   cfg,
			Runner:   env.newRunner(logger, ctx.Bool("dry-run")),
			Accounts: env.accounts,
			Getenv:   env.getenv,
			Logger:   logger,
			Euid:     env.euid,
		})

		if err := provisioner.Run(ctx.Context); err != nil {
			logger.Error("provisioning failed", "err", err)
			return err
		}
		return nil
	}
}
