package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/eaglebank/ledger/shared/utils"
	"github.com/google/subcommands"
)

type hashKeyCmd struct{}

func (*hashKeyCmd) Name() string     { return "hash-key" }
func (*hashKeyCmd) Synopsis() string { return "print a bcrypt hash for LEDGER_API_KEY_HASH" }
func (*hashKeyCmd) Usage() string {
	return `hash-key [<key>]

  Hashes the given API key, or the first line of stdin when no key is given.
`
}

func (*hashKeyCmd) SetFlags(*flag.FlagSet) {}

func (*hashKeyCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	key := f.Arg(0)
	if key == "" {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			fmt.Fprintln(os.Stderr, "Error: no key given")
			return subcommands.ExitUsageError
		}
		key = strings.TrimSpace(line)
	}
	if key == "" {
		fmt.Fprintln(os.Stderr, "Error: key must not be empty")
		return subcommands.ExitUsageError
	}
	hash, err := utils.HashAPIKey(key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Println(hash)
	return subcommands.ExitSuccess
}
