// Package cmd implements the CLI application to reconcile the ledger.
package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"go.uber.org/zap"

	"github.com/satsledger/satsledger"
	"github.com/satsledger/satsledger/config"
	"github.com/satsledger/satsledger/kraken"
	"github.com/satsledger/satsledger/ledn"
)

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	c.Register(&updateCmd{}, "ledger")
	c.Register(&balancesCmd{}, "reports")
	c.Register(&historyCmd{}, "reports")
	c.Register(&auditCmd{}, "reports")
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var configFile = flag.String("config", "satsledger.yaml", "Path to the configuration file")

func loadConfig() (*config.Config, error) {
	return config.Load(*configFile)
}

func newLogger() *zap.Logger {
	log, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		return zap.NewNop()
	}
	return log
}

// readers maps the config source names to their CSV readers.
var readers = map[string]satsledger.Reader{
	"kraken": kraken.Reader{},
	"ledn":   ledn.Reader{},
}

func sourcesOf(cfg *config.Config) ([]satsledger.Source, error) {
	sources := make([]satsledger.Source, 0, len(cfg.Sources))
	for _, source := range cfg.Sources {
		reader, ok := readers[source.Reader]
		if !ok {
			return nil, fmt.Errorf("unknown reader %q in config (have kraken, ledn)", source.Reader)
		}
		sources = append(sources, satsledger.Source{Name: source.Reader, Path: source.Path, Reader: reader})
	}
	return sources, nil
}

// DecodeLedger loads the persisted ledger. A missing file is an empty ledger,
// not an error, so the first update run starts from scratch.
func DecodeLedger(path string) ([]satsledger.LedgerEntry, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not open ledger %s: %w", path, err)
	}
	defer f.Close()
	return satsledger.DecodeEntries(f)
}

// EncodeLedger writes the ledger back in its canonical JSONL form.
func EncodeLedger(path string, entries []satsledger.LedgerEntry) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("could not write ledger %s: %w", path, err)
	}
	defer f.Close()
	if err := satsledger.EncodeEntries(f, entries); err != nil {
		return fmt.Errorf("could not write ledger %s: %w", path, err)
	}
	return f.Close()
}

// buildPortfolio folds the ledger into per-wallet balances and returns the
// origin lookup for the report stages. The ignore list is applied before
// grouping so ignored entries never pair up with real ones.
func buildPortfolio(cfg *config.Config, entries []satsledger.LedgerEntry) (satsledger.Portfolio, func(globalID string) *satsledger.LedgerEntry, error) {
	kept, err := satsledger.ApplyIgnores(entries, cfg.Ignored)
	if err != nil {
		return nil, nil, err
	}
	lookup, err := satsledger.NewResolver(kept)
	if err != nil {
		return nil, nil, err
	}
	groups, err := satsledger.GroupLedgers(kept)
	if err != nil {
		return nil, nil, err
	}
	portfolio, err := satsledger.BuildBalances(groups, satsledger.BaseAsset)
	if err != nil {
		return nil, nil, err
	}
	return portfolio, lookup, nil
}

// loadPortfolio is the shared read path of the report commands.
func loadPortfolio(_ context.Context) (*config.Config, satsledger.Portfolio, func(globalID string) *satsledger.LedgerEntry, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	entries, err := DecodeLedger(cfg.LedgerPath)
	if err != nil {
		return nil, nil, nil, err
	}
	portfolio, lookup, err := buildPortfolio(cfg, entries)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, portfolio, lookup, nil
}
