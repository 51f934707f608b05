package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/subcommands"

	"github.com/satsledger/satsledger"
	"github.com/satsledger/satsledger/renderer"
)

type historyCmd struct{}

func (*historyCmd) Name() string     { return "history" }
func (*historyCmd) Synopsis() string { return "display the daily portfolio history" }
func (*historyCmd) Usage() string {
	return `slg history

  Displays the total holdings, the interest earned so far and the cost basis
  of the tracked asset for every day since the first acquisition.
`
}

func (*historyCmd) SetFlags(*flag.FlagSet) {}

func (c *historyCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	_, portfolio, lookup, err := loadPortfolio(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	items := satsledger.BuildHistory(portfolio, satsledger.BTC, lookup, time.Now())
	printMarkdown(renderer.HistoryMarkdown(items))
	return subcommands.ExitSuccess
}
