package onchain

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/satsledger/satsledger"
	"github.com/satsledger/satsledger/electrum"
)

// Client is the subset of the Electrum client the fetcher needs.
type Client interface {
	ScripthashHistory(ctx context.Context, scripthash string) ([]electrum.HistoryItem, error)
	Transactions(ctx context.Context, txids []string) ([]electrum.Transaction, error)
}

// Store is the transaction cache the fetcher reads through.
type Store interface {
	Get(txid string) (electrum.Transaction, bool, error)
	GetAll(txids []string) ([]electrum.Transaction, error)
	Missing(txids []string) ([]string, error)
	Put(transactions []electrum.Transaction) error
	PutRootTxIDs(txids []string) error
	RootTxIDs() ([]string, error)
}

// Report aggregates what a fetch run skipped or could not classify cleanly,
// so the discrepancies show up next to the computed totals instead of
// disappearing into them.
type Report struct {
	Transactions    int
	Ambiguous       int
	MissingVinTx    int
	SkippedVins     int
	SkippedVouts    int
	FailedAddresses int
}

// Fetcher drives the on-chain side of an update run: it discovers the
// transactions touching the wallet's addresses, caches their raw form, and
// classifies each one into ledger entries.
type Fetcher struct {
	Client    Client
	Store     Store
	Log       *zap.Logger
	Wallet    string
	Addresses []Address
}

// Fetch returns the ledger entries of all root transactions. With cacheOnly
// set it never talks to the server and works entirely from the cached root
// txid set and transaction cache.
func (f *Fetcher) Fetch(ctx context.Context, cacheOnly bool) ([]satsledger.LedgerEntry, Report, error) {
	var report Report

	txids, err := f.rootTxIDs(ctx, cacheOnly, &report)
	if err != nil {
		return nil, report, err
	}

	roots, err := f.retrieve(ctx, cacheOnly, txids)
	if err != nil {
		return nil, report, err
	}

	// Inputs of small transactions are resolved through their prior
	// transactions; fetch those too before classifying. Transactions with
	// many outputs are batching services, not ours, and their inputs never
	// matter for classification.
	var refIDs []string
	for _, root := range roots {
		if len(root.Vout) > 2 {
			continue
		}
		for _, vin := range root.Vin {
			if vin.TxID != "" {
				refIDs = append(refIDs, vin.TxID)
			}
		}
	}
	if _, err := f.retrieve(ctx, cacheOnly, refIDs); err != nil {
		return nil, report, err
	}

	known := NewAddressSet(f.Addresses)
	var entries []satsledger.LedgerEntry
	for _, raw := range roots {
		resolved, stats, err := Resolve(raw, f.Store)
		if err != nil {
			return nil, report, fmt.Errorf("could not resolve transaction %s: %w", raw.TxID, err)
		}
		report.MissingVinTx += stats.MissingVinTx
		report.SkippedVins += stats.SkippedVins
		report.SkippedVouts += stats.SkippedVouts

		classified, kind := Classify(resolved, known, f.Wallet)
		if kind == KindAmbiguous {
			report.Ambiguous++
			f.Log.Warn("ambiguous transaction needs review", zap.String("txid", raw.TxID))
		}
		entries = append(entries, classified...)
		report.Transactions++
	}
	return entries, report, nil
}

// rootTxIDs collects the txids touching the wallet's addresses. A failing
// address is logged and counted, not fatal; its transactions will be picked
// up on a later run.
func (f *Fetcher) rootTxIDs(ctx context.Context, cacheOnly bool, report *Report) ([]string, error) {
	if cacheOnly {
		txids, err := f.Store.RootTxIDs()
		if err != nil {
			return nil, err
		}
		f.Log.Info("using cached root txids", zap.Int("count", len(txids)))
		return txids, nil
	}

	var txids []string
	for _, address := range f.Addresses {
		items, err := f.Client.ScripthashHistory(ctx, address.ScriptHash)
		if err != nil {
			f.Log.Warn("history request failed", zap.String("address", address.ID), zap.Error(err))
			report.FailedAddresses++
			continue
		}
		for _, item := range items {
			txids = append(txids, item.TxHash)
		}
	}
	if err := f.Store.PutRootTxIDs(txids); err != nil {
		return nil, err
	}
	return txids, nil
}

// retrieve returns the cached form of txids, fetching and storing the ones
// the cache does not hold yet.
func (f *Fetcher) retrieve(ctx context.Context, cacheOnly bool, txids []string) ([]electrum.Transaction, error) {
	if len(txids) == 0 {
		return nil, nil
	}
	missing, err := f.Store.Missing(txids)
	if err != nil {
		return nil, err
	}
	if len(missing) > 0 && !cacheOnly {
		f.Log.Info("fetching transactions", zap.Int("count", len(missing)))
		fetched, err := f.Client.Transactions(ctx, missing)
		if err != nil {
			return nil, err
		}
		if err := f.Store.Put(fetched); err != nil {
			return nil, err
		}
	}
	return f.Store.GetAll(txids)
}
