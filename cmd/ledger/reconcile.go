package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/eaglebank/ledger/internal/reconcile"
	"github.com/google/subcommands"
)

type reconcileCmd struct {
	configPath *string
	accountID  int64
	asJSON     bool
}

func (*reconcileCmd) Name() string     { return "reconcile" }
func (*reconcileCmd) Synopsis() string { return "compare stored balances with the ledger" }
func (*reconcileCmd) Usage() string {
	return `reconcile [-account <id>] [-json]

  Recomputes deposits minus withdrawals for one account, or for all of them,
  and compares the result with the stored balance. Exits non-zero on drift.
`
}

func (c *reconcileCmd) SetFlags(f *flag.FlagSet) {
	f.Int64Var(&c.accountID, "account", 0, "only reconcile this account id")
	f.BoolVar(&c.asJSON, "json", false, "print reports as JSON")
}

func (c *reconcileCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := newApp(ctx, *c.configPath, "stderr")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.close()

	reconciler := reconcile.NewReconciler(a.reader, a.logger)
	var reports []reconcile.Report
	if c.accountID != 0 {
		report, err := reconciler.Check(ctx, c.accountID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
		reports = append(reports, report)
	} else {
		reports, err = reconciler.CheckAll(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
	}

	drifted := 0
	for _, r := range reports {
		if !r.Consistent() {
			drifted++
		}
	}

	if c.asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(reports); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
	} else {
		for _, r := range reports {
			status := "ok"
			if !r.Consistent() {
				status = "DRIFT " + r.Drift().Display(a.cfg.Currency)
			}
			fmt.Printf("%6d  %-30s  stored %14s  ledger %14s  %s\n",
				r.AccountID, r.OwnerName,
				r.Stored.Display(a.cfg.Currency), r.Expected().Display(a.cfg.Currency), status)
		}
		fmt.Printf("%d accounts checked, %d with drift\n", len(reports), drifted)
	}

	if drifted > 0 {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
