package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/subcommands"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/satsledger/satsledger"
	"github.com/satsledger/satsledger/config"
	"github.com/satsledger/satsledger/prices"
	"github.com/satsledger/satsledger/renderer"
)

type balancesCmd struct {
	live bool
	wait time.Duration
}

func (*balancesCmd) Name() string     { return "balances" }
func (*balancesCmd) Synopsis() string { return "display the current per-wallet balances" }
func (*balancesCmd) Usage() string {
	return `slg balances [-live] [-wait <duration>]

  Displays the current amount, cost basis and lot count of every wallet and
  asset. The portfolio value is computed from today's historic price, or from
  the live ticker with -live.
`
}

func (c *balancesCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.live, "live", false, "value the portfolio at the live ticker price")
	f.DurationVar(&c.wait, "wait", 10*time.Second, "how long to wait for a live price")
}

func (c *balancesCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, portfolio, _, err := loadPortfolio(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	log := newLogger()
	defer log.Sync()

	price := c.price(ctx, cfg, log)
	printMarkdown(renderer.BalancesMarkdown(&renderer.BalancesReport{Portfolio: portfolio, Price: price}))
	return subcommands.ExitSuccess
}

// price values the portfolio. A failing price source degrades the report to
// amounts only, it never fails the command.
func (c *balancesCmd) price(ctx context.Context, cfg *config.Config, log *zap.Logger) decimal.Decimal {
	if c.live {
		return c.livePrice(ctx, cfg, log)
	}
	if cfg.PriceEndpoint == "" {
		return decimal.Zero
	}
	historic := prices.NewHistoric(cfg.PriceEndpoint, cfg.PricePath, log)
	price, err := historic.Price(satsledger.Today())
	if err != nil {
		log.Warn("no historic price for today", zap.Error(err))
		return decimal.Zero
	}
	return price
}

func (c *balancesCmd) livePrice(ctx context.Context, cfg *config.Config, log *zap.Logger) decimal.Decimal {
	url := cfg.LiveFeedURL
	if url == "" {
		url = prices.DefaultFeedURL
	}
	live := prices.NewLive(url, cfg.LivePair, log)

	ctx, cancel := context.WithTimeout(ctx, c.wait)
	defer cancel()
	go live.Run(ctx)

	tick := time.NewTicker(200 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Warn("no ticker price received", zap.Duration("waited", c.wait))
			return decimal.Zero
		case <-tick.C:
			if price, ok := live.Last(); ok {
				return price
			}
		}
	}
}
