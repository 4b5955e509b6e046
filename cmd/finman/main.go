package main

import (
	"context"
	"fmt"
	"os"

	"finman/internal/cli"
	"finman/internal/log"
	"finman/internal/storage"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Load .env file for local development
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	logger := cli.SetupLogger(cfg, log.ComponentCLI, os.Stderr)

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	app := cli.NewApp(os.Stdin, os.Stdout, os.Stderr, logger)
	app.Currency = cfg.Currency
	app.ReadPassword = cli.TerminalPassword(os.Stdin, os.Stdout)
	app.OpenFinance = func(ctx context.Context) (cli.Finance, error) {
		return cli.BuildFinanceService(ctx, cfg, logger)
	}
	app.OpenMigrator = func() (cli.Migrator, error) {
		return storage.NewMigrator(cfg.DBPath)
	}

	return app.Run(ctx, os.Args[1:])
}
