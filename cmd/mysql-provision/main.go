package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/andreweick/hostprov/internal/config"
	"github.com/andreweick/hostprov/internal/logging"
	"github.com/andreweick/hostprov/internal/mysql"
	"github.com/andreweick/hostprov/internal/secrets"
	"github.com/andreweick/hostprov/internal/system"
	"github.com/urfave/cli/v2"
)

const usageLine = "Usage: mysql-provision --bind-address-ip=<IPv4|0.0.0.0> --bind-port=<1-65535> --password-root=<password|op://vault/item/field>"

// environment holds the process-level collaborators so tests can replace them.
type environment struct {
	stdout    io.Writer
	stderr    io.Writer
	euid      func() int
	resolver  secrets.Resolver
	newRunner func(logger logging.Logger, dryRun bool) system.Runner
}

func defaultEnvironment() environment {
	return environment{
		stdout: os.Stdout,
		stderr: os.Stderr,
		euid:   system.Geteuid,
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
		Name:  "mysql-provision",
		Usage: "Install MySQL server, set its bind address and port, and reset the root credential",
		Description: `Installs the MySQL server packages non-interactively, enforces bind-address
   and port in the [mysqld] section of the server configuration, resets the root
   credential and restarts the service. Safe to re-run.`,
		Version:         "1.0.0",
		Writer:          env.stdout,
		ErrWriter:       env.stderr,
		HideHelpCommand: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  mysql.FlagBindAddress,
				Usage: "IPv4 address to bind, or 0.0.0.0 for all interfaces",
			},
			&cli.StringFlag{
				Name:  mysql.FlagBindPort,
				Usage: "TCP port to listen on (1-65535)",
			},
			&cli.StringFlag{
				Name:    mysql.FlagRootPassword,
				Usage:   "root credential, or an op:// 1Password reference",
				EnvVars: []string{"MYSQL_ROOT_PASSWORD"},
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: fmt.Sprintf("defaults file (env %s, default %s)", config.EnvConfigPath, config.DefaultPath),
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
			fmt.Fprintln(env.stderr, usageLine)
			return err
		},
		ExitErrHandler: func(*cli.Context, error) {},
		Action:         provisionCommand(env),
	}
}

func provisionCommand(env environment) cli.ActionFunc {
	return func(ctx *cli.Context) error {
		logger := logging.New(env.stderr, "mysql-provision", ctx.Bool("debug"))

		if ctx.NArg() > 0 {
			err := fmt.Errorf("unrecognized argument '%s'", ctx.Args().First())
			logger.Error(err)
			fmt.Fprintln(env.stderr, usageLine)
			return err
		}

		params, err := mysql.ParseParams(
			ctx.String(mysql.FlagBindAddress),
			ctx.String(mysql.FlagBindPort),
			ctx.String(mysql.FlagRootPassword),
		)
		if err != nil {
			logger.Error("invalid arguments", "err", err)
			fmt.Fprintln(env.stderr, usageLine)
			return err
		}

		loader := config.NewConfigLoader()
		if err := loader.LoadDefaults(config.ResolvePath(ctx.String("config"))); err != nil {
			logger.Error("failed to load defaults", "err", err)
			return err
		}
		logger.Debug("defaults loaded", "source", loader.Source())

		secret, err := secrets.Resolve(ctx.Context, params.RootPassword(), env.resolver)
		if err != nil {
			if errors.Is(err, secrets.ErrNoServiceAccount) {
				logger.Error("a 1Password reference needs OP_SERVICE_ACCOUNT_TOKEN", "err", err)
			} else {
				logger.Error("failed to resolve root credential", "err", err)
			}
			return err
		}
		if err := mysql.ValidateCredential(secret.Value); err != nil {
			logger.Error("resolved root credential is unusable", "err", err)
			return err
		}
		logger.Debug("root credential resolved", "source", secret.Source)
		params = params.WithRootPassword(secret.Value)

		dryRun := ctx.Bool("dry-run")
		provisioner := mysql.NewProvisioner(mysql.Options{
			Config: loader.GetDefaults().MySQL,
			Runner: env.newRunner(logger, dryRun),
			Logger: logger,
			Euid:   env.euid,
			DryRun: dryRun,
		})

		if err := provisioner.Run(ctx.Context, params); err != nil {
			logger.Error("provisioning failed", "err", err)
			return err
		}
		return nil
	}
}
