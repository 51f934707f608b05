// Package config loads the satsledger YAML configuration.
package config

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/satsledger/satsledger/onchain"
)

// Source is one CSV export to read on update: which reader parses it and
// where the file lives.
type Source struct {
	Reader string `yaml:"reader"`
	Path   string `yaml:"path"`
}

// Config is the whole application configuration.
type Config struct {
	// LedgerPath is the JSONL file holding the merged ledger.
	LedgerPath string
	// CachePath is the SQLite transaction cache.
	CachePath string
	// Sources are the CSV exports to merge in.
	Sources []Source
	// ColdWallet is the wallet name booked on on-chain entries.
	ColdWallet string
	// Addresses are the wallet's own on-chain addresses.
	Addresses []onchain.Address
	// ElectrumAddr is the Electrum server, host:port.
	ElectrumAddr string
	// AuditBudget is the tolerated sum of rate-less lots before an update
	// run fails its audit.
	AuditBudget decimal.Decimal
	// Ignored lists global entry ids excluded before grouping.
	Ignored []string
	// PriceEndpoint is the historic price URL template (one %s for the day).
	PriceEndpoint string
	// PricePath is the jsonpath of the price inside the endpoint's response.
	PricePath string
	// LiveFeedURL and LivePair select the websocket ticker.
	LiveFeedURL string
	LivePair    string
}

type configYAML struct {
	LedgerPath    string            `yaml:"ledger"`
	CachePath     string            `yaml:"cache"`
	Sources       []Source          `yaml:"sources"`
	ColdWallet    string            `yaml:"cold_wallet"`
	Addresses     []onchain.Address `yaml:"addresses"`
	ElectrumAddr  string            `yaml:"electrum"`
	AuditBudget   string            `yaml:"audit_budget"`
	Ignored       []string          `yaml:"ignored"`
	PriceEndpoint string            `yaml:"price_endpoint"`
	PricePath     string            `yaml:"price_path"`
	LiveFeedURL   string            `yaml:"live_feed_url"`
	LivePair      string            `yaml:"live_pair"`
}

// Defaults that hold when the file leaves them out.
const (
	DefaultLedgerPath  = "ledger.jsonl"
	DefaultCachePath   = "txcache.db"
	DefaultColdWallet  = "cold"
	DefaultAuditBudget = "0.032"
	DefaultLivePair    = "XBT/EUR"
)

// Load reads and validates the configuration at path.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read config: %w", err)
	}
	var decoded configYAML
	if err := yaml.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("could not parse config %s: %w", path, err)
	}

	cfg := &Config{
		LedgerPath:    decoded.LedgerPath,
		CachePath:     decoded.CachePath,
		Sources:       decoded.Sources,
		ColdWallet:    decoded.ColdWallet,
		Addresses:     decoded.Addresses,
		ElectrumAddr:  decoded.ElectrumAddr,
		Ignored:       decoded.Ignored,
		PriceEndpoint: decoded.PriceEndpoint,
		PricePath:     decoded.PricePath,
		LiveFeedURL:   decoded.LiveFeedURL,
		LivePair:      decoded.LivePair,
	}
	if cfg.LedgerPath == "" {
		cfg.LedgerPath = DefaultLedgerPath
	}
	if cfg.CachePath == "" {
		cfg.CachePath = DefaultCachePath
	}
	if cfg.ColdWallet == "" {
		cfg.ColdWallet = DefaultColdWallet
	}
	if cfg.LivePair == "" {
		cfg.LivePair = DefaultLivePair
	}

	budget := decoded.AuditBudget
	if budget == "" {
		budget = DefaultAuditBudget
	}
	cfg.AuditBudget, err = decimal.NewFromString(budget)
	if err != nil {
		return nil, fmt.Errorf("incorrect 'audit_budget' in config (must be a decimal): %w", err)
	}

	for i, source := range cfg.Sources {
		if source.Reader == "" || source.Path == "" {
			return nil, fmt.Errorf("source %d needs both 'reader' and 'path'", i)
		}
	}
	for i, address := range cfg.Addresses {
		if address.ID == "" || address.ScriptHash == "" {
			return nil, fmt.Errorf("address %d needs both 'id' and 'scripthash'", i)
		}
	}
	return cfg, nil
}
