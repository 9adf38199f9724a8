package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (default ./config.yaml if present)")

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")
	commander.Register(&serveCmd{configPath: configPath}, "")
	commander.Register(&mcpCmd{configPath: configPath}, "")
	commander.Register(&migrateCmd{configPath: configPath}, "")
	commander.Register(&reconcileCmd{configPath: configPath}, "")
	commander.Register(&hashKeyCmd{}, "")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
