package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/eaglebank/ledger/internal/config"
	"github.com/eaglebank/ledger/internal/repository"
	"github.com/eaglebank/ledger/shared/logger"
	"github.com/google/subcommands"
)

type migrateCmd struct {
	configPath *string
	down       int
}

func (*migrateCmd) Name() string     { return "migrate" }
func (*migrateCmd) Synopsis() string { return "apply or roll back database migrations" }
func (*migrateCmd) Usage() string {
	return `migrate [-down <steps>]

  Applies every pending migration to LEDGER_DATABASE_URL, or rolls back the
  given number of steps with -down.
`
}

func (c *migrateCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.down, "down", 0, "number of migrations to roll back")
}

func (c *migrateCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.down < 0 {
		fmt.Fprintln(os.Stderr, "Error: -down must not be negative")
		return subcommands.ExitUsageError
	}
	cfg, err := config.Load(*c.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	if cfg.Store != "postgres" {
		fmt.Fprintln(os.Stderr, "Error: migrations apply to the postgres store only")
		return subcommands.ExitUsageError
	}
	log, err := logger.New(cfg.Mode, cfg.LogOutput)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer func() { _ = log.Sync() }()

	if c.down > 0 {
		err = repository.RollbackMigrations(log, cfg.DatabaseURL, c.down)
	} else {
		err = repository.RunMigrations(log, cfg.DatabaseURL)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
