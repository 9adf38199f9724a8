package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/eaglebank/ledger/internal/tools"
	"github.com/google/subcommands"
	"go.uber.org/zap"
)

type mcpCmd struct {
	configPath *string
}

func (*mcpCmd) Name() string     { return "mcp" }
func (*mcpCmd) Synopsis() string { return "serve the ledger tools over stdio" }
func (*mcpCmd) Usage() string {
	return `mcp

  Reads MCP JSON-RPC requests from stdin, one per line, and writes responses
  to stdout. Logs go to stderr.
`
}

func (*mcpCmd) SetFlags(*flag.FlagSet) {}

func (c *mcpCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, *c.configPath, "stderr")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.close()

	dispatcher := tools.NewDispatcher(a.commands, a.queries, a.logger)
	srv := tools.NewServer(dispatcher, version, a.logger)
	if err := srv.Serve(ctx, os.Stdin, os.Stdout); err != nil && ctx.Err() == nil {
		a.logger.Error("tool server stopped", zap.Error(err))
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
