package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/satsledger/satsledger"
	"github.com/satsledger/satsledger/renderer"
)

type auditCmd struct {
	check bool
}

func (*auditCmd) Name() string     { return "audit" }
func (*auditCmd) Synopsis() string { return "display the ledger audit report" }
func (*auditCmd) Usage() string {
	return `slg audit [-check]

  Displays the audit counters of the tracked asset: total holdings, cost
  basis, lots without an acquisition rate, dust lots and lots whose origin
  entry is missing. With -check the command fails when the rate-less total
  exceeds the configured budget.
`
}

func (c *auditCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.check, "check", false, "fail when the audit exceeds the configured budget")
}

func (c *auditCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, portfolio, lookup, err := loadPortfolio(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	audit := satsledger.Audit(portfolio, satsledger.BTC, lookup)
	printMarkdown(renderer.AuditMarkdown(&renderer.AuditReport{Audit: audit}))

	if c.check {
		if err := audit.Check(cfg.AuditBudget); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitFailure
		}
	}
	return subcommands.ExitSuccess
}
