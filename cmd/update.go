package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"go.uber.org/zap"

	"github.com/satsledger/satsledger"
	"github.com/satsledger/satsledger/config"
	"github.com/satsledger/satsledger/electrum"
	"github.com/satsledger/satsledger/onchain"
	"github.com/satsledger/satsledger/renderer"
	"github.com/satsledger/satsledger/txstore"
)

type updateCmd struct {
	partial   bool
	cacheOnly bool
}

func (*updateCmd) Name() string { return "update" }
func (*updateCmd) Synopsis() string {
	return "merge the source exports and the on-chain wallet into the ledger"
}
func (*updateCmd) Usage() string {
	return `slg update [-partial] [-cache-only]

  Reads all configured CSV exports, fetches and classifies the on-chain
  transactions of the cold wallet, merges everything into the ledger file,
  and audits the result. The run fails when the audit exceeds the configured
  budget of unaccounted lots.
`
}

func (c *updateCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.partial, "partial", false, "accept a partial ledger when a source fails to read")
	f.BoolVar(&c.cacheOnly, "cache-only", false, "classify from the transaction cache without contacting the Electrum server")
}

func (c *updateCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	log := newLogger()
	defer log.Sync()

	existing, err := DecodeLedger(cfg.LedgerPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	sources, err := sourcesOf(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	incoming, err := satsledger.ReadSources(ctx, sources)
	if err != nil {
		if !c.partial {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitFailure
		}
		log.Warn("continuing with a partial ledger", zap.Error(err))
	}

	var fetchReport *onchain.Report
	if len(cfg.Addresses) > 0 {
		entries, report, err := c.fetchOnchain(ctx, cfg, log)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitFailure
		}
		incoming = append(incoming, entries...)
		fetchReport = &report
	}

	merged := satsledger.MergeEntries(existing, incoming)
	if err := EncodeLedger(cfg.LedgerPath, merged); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	fmt.Fprintf(os.Stderr, "Merged %d entries into %s\n", len(merged), cfg.LedgerPath)

	portfolio, lookup, err := buildPortfolio(cfg, merged)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	audit := satsledger.Audit(portfolio, satsledger.BTC, lookup)
	printMarkdown(renderer.AuditMarkdown(&renderer.AuditReport{Audit: audit, Onchain: fetchReport}))

	if err := audit.Check(cfg.AuditBudget); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// fetchOnchain classifies the cold wallet's transactions. In cache-only mode
// no connection is made and the cached root txid set is replayed instead.
func (c *updateCmd) fetchOnchain(ctx context.Context, cfg *config.Config, log *zap.Logger) ([]satsledger.LedgerEntry, onchain.Report, error) {
	store, err := txstore.Open(cfg.CachePath, log)
	if err != nil {
		return nil, onchain.Report{}, err
	}
	defer store.Close()

	fetcher := &onchain.Fetcher{
		Store:     store,
		Log:       log,
		Wallet:    cfg.ColdWallet,
		Addresses: cfg.Addresses,
	}
	if !c.cacheOnly {
		if cfg.ElectrumAddr == "" {
			return nil, onchain.Report{}, errors.New("no 'electrum' server in config (use -cache-only to work offline)")
		}
		client, err := electrum.Dial(ctx, cfg.ElectrumAddr, log)
		if err != nil {
			return nil, onchain.Report{}, err
		}
		defer client.Close()
		fetcher.Client = client
	}
	return fetcher.Fetch(ctx, c.cacheOnly)
}
