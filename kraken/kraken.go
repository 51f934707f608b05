// Package kraken reads the "ledgers" CSV export of the Kraken exchange into
// ledger entries.
package kraken

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/satsledger/satsledger"
)

// Wallet is the wallet name booked on every Kraken entry.
const Wallet = "Kraken"

const timeFormat = "2006-01-02 15:04:05"

// Reader implements satsledger.Reader for Kraken ledger exports.
type Reader struct{}

// Read parses the CSV file at path.
//
// Expected header: txid,refid,time,type,subtype,aclass,asset,amount,fee,balance.
// The refid correlates the two legs of a trade, so it becomes the entry's
// group id. A non-zero fee is split into its own fee entry sharing the group.
func (Reader) Read(ctx context.Context, path string) ([]satsledger.LedgerEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	entries, err := parse(f)
	if err != nil {
		return nil, fmt.Errorf("kraken export %s: %w", path, err)
	}
	return entries, nil
}

func parse(r io.Reader) ([]satsledger.LedgerEntry, error) {
	reader := csv.NewReader(r)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("could not read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("empty export")
	}

	columns := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		columns[name] = i
	}
	for _, required := range []string{"txid", "refid", "time", "type", "asset", "amount", "fee"} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("missing column %q", required)
		}
	}
	field := func(record []string, name string) string { return record[columns[name]] }

	var entries []satsledger.LedgerEntry
	for i, record := range records[1:] {
		line := i + 2

		txid := field(record, "txid")
		if txid == "" {
			// Pending deposits/withdrawals appear with no txid; they show up
			// again as settled rows.
			continue
		}
		// Some exports carry fractional seconds, which never matter here.
		timestamp, _, _ := strings.Cut(field(record, "time"), ".")
		date, err := time.ParseInLocation(timeFormat, timestamp, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad time %q: %w", line, field(record, "time"), err)
		}
		entryType, err := parseType(field(record, "type"))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		amount, err := decimal.NewFromString(field(record, "amount"))
		if err != nil {
			return nil, fmt.Errorf("line %d: bad amount %q: %w", line, field(record, "amount"), err)
		}
		fee := decimal.Zero
		if s := field(record, "fee"); s != "" {
			fee, err = decimal.NewFromString(s)
			if err != nil {
				return nil, fmt.Errorf("line %d: bad fee %q: %w", line, s, err)
			}
		}

		asset := NormalizeTicker(field(record, "asset"))
		refid := field(record, "refid")
		entries = append(entries, satsledger.LedgerEntry{
			Wallet:  Wallet,
			ID:      txid,
			GroupID: refid,
			Date:    date,
			Type:    entryType,
			Amount:  amount,
			Asset:   asset,
		})
		if !fee.IsZero() {
			entries = append(entries, satsledger.LedgerEntry{
				Wallet:  Wallet,
				ID:      txid + "-fee",
				GroupID: refid,
				Date:    date,
				Type:    satsledger.TypeFee,
				Amount:  fee.Neg(),
				Asset:   asset,
			})
		}
	}
	return entries, nil
}

func parseType(s string) (satsledger.EntryType, error) {
	switch s {
	case "deposit":
		return satsledger.TypeDeposit, nil
	case "withdrawal":
		return satsledger.TypeWithdrawal, nil
	case "trade", "spend", "receive":
		return satsledger.TypeTrade, nil
	case "staking", "earn", "dividend":
		return satsledger.TypeInterest, nil
	case "transfer":
		return satsledger.TypeTransfer, nil
	default:
		return "", fmt.Errorf("unexpected kraken ledger type %q", s)
	}
}

// NormalizeTicker maps Kraken's asset codes to plain tickers: XXBT is BTC,
// XXDG is DOGE, an X prefix marks a crypto asset and a Z prefix a fiat one.
func NormalizeTicker(ticker string) satsledger.Asset {
	switch {
	case ticker == "XXBT":
		return satsledger.Asset{Name: "BTC", Class: satsledger.Crypto}
	case ticker == "XXDG":
		return satsledger.Asset{Name: "DOGE", Class: satsledger.Crypto}
	case strings.HasPrefix(ticker, "X") && len(ticker) > 1:
		return satsledger.Asset{Name: ticker[1:], Class: satsledger.Crypto}
	case strings.HasPrefix(ticker, "Z") && len(ticker) > 1:
		return satsledger.Asset{Name: ticker[1:], Class: satsledger.Fiat}
	default:
		return satsledger.Asset{Name: ticker, Class: satsledger.Crypto}
	}
}
