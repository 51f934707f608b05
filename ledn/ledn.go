// Package ledn reads the transaction CSV export of the Ledn platform into
// ledger entries.
//
// Ledn's export is not self-contained: some rows (the B2X loan product in
// particular) only make sense after manual correction. A companion
// "<name>.patch.csv" file next to the export holds corrected rows in the same
// format; patch rows replace export rows with the same transaction id.
package ledn

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/satsledger/satsledger"
)

// Wallet is the wallet name booked on every Ledn entry.
const Wallet = "Ledn"

const timeFormat = "2006-01-02T15:04:05"

// Reader implements satsledger.Reader for Ledn exports.
type Reader struct{}

// Read parses the export at path and, when present, overlays the companion
// patch file.
func (Reader) Read(ctx context.Context, path string) ([]satsledger.LedgerEntry, error) {
	byID := make(map[string]satsledger.LedgerEntry)

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := parseInto(byID, f); err != nil {
		return nil, fmt.Errorf("ledn export %s: %w", path, err)
	}

	patchPath := patchPathFor(path)
	patch, err := os.Open(patchPath)
	switch {
	case os.IsNotExist(err):
		// No corrections for this export.
	case err != nil:
		return nil, err
	default:
		defer patch.Close()
		if err := parseInto(byID, patch); err != nil {
			return nil, fmt.Errorf("ledn patch %s: %w", patchPath, err)
		}
	}

	entries := make([]satsledger.LedgerEntry, 0, len(byID))
	for _, entry := range byID {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].Date.Equal(entries[j].Date) {
			return entries[i].Date.Before(entries[j].Date)
		}
		return entries[i].ID < entries[j].ID
	})
	return entries, nil
}

func patchPathFor(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + ".patch" + ext
}

// parseInto reads rows into byID so patch rows override export rows.
//
// Expected header: Posted Date,Source,Amount,Type,Currency,Ledn Fee Amount,
// Fee Currency,Status,Blockchain,Txn ID,Txn Hash,Direction of funds.
func parseInto(byID map[string]satsledger.LedgerEntry, r io.Reader) error {
	reader := csv.NewReader(r)
	records, err := reader.ReadAll()
	if err != nil {
		return fmt.Errorf("could not read csv: %w", err)
	}
	if len(records) == 0 {
		return fmt.Errorf("empty export")
	}

	columns := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		columns[name] = i
	}
	for _, required := range []string{"Posted Date", "Source", "Amount", "Currency", "Ledn Fee Amount", "Txn ID", "Direction of funds"} {
		if _, ok := columns[required]; !ok {
			return fmt.Errorf("missing column %q", required)
		}
	}
	field := func(record []string, name string) string { return record[columns[name]] }

	for i, record := range records[1:] {
		line := i + 2

		id := field(record, "Txn ID")
		source := field(record, "Source")

		// Collateral rows are synthetic counterparts of B2X rows; a patch
		// uses them to cancel an export row entirely.
		if source == "Collateral" {
			delete(byID, id)
			continue
		}

		entryType, err := parseSource(source)
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		date, err := time.ParseInLocation(timeFormat, field(record, "Posted Date"), time.UTC)
		if err != nil {
			return fmt.Errorf("line %d: bad posted date %q: %w", line, field(record, "Posted Date"), err)
		}
		amount, err := decimal.NewFromString(field(record, "Amount"))
		if err != nil {
			return fmt.Errorf("line %d: bad amount %q: %w", line, field(record, "Amount"), err)
		}
		fee := decimal.Zero
		if s := field(record, "Ledn Fee Amount"); s != "" {
			fee, err = decimal.NewFromString(s)
			if err != nil {
				return fmt.Errorf("line %d: bad fee %q: %w", line, s, err)
			}
		}

		// Txn ids look like "Interest-BTC-123"; the prefix groups related
		// rows of one transaction.
		groupID := id
		if prefix, _, ok := strings.Cut(id, "-"); ok {
			groupID = prefix
		}
		asset := satsledger.Asset{Name: field(record, "Currency"), Class: satsledger.Crypto}
		sign := decimal.NewFromInt(1)
		if field(record, "Direction of funds") == "Sending" {
			sign = decimal.NewFromInt(-1)
		}

		byID[id] = satsledger.LedgerEntry{
			Wallet:  Wallet,
			ID:      id,
			GroupID: groupID,
			Date:    date,
			Type:    entryType,
			Amount:  amount.Sub(fee).Mul(sign),
			Asset:   asset,
		}
		if fee.IsPositive() {
			feeID := id + "-2"
			byID[feeID] = satsledger.LedgerEntry{
				Wallet:  Wallet,
				ID:      feeID,
				GroupID: id,
				Date:    date,
				Type:    satsledger.TypeFee,
				Amount:  fee.Neg(),
				Asset:   asset,
			}
		}
	}
	return nil
}

func parseSource(source string) (satsledger.EntryType, error) {
	switch source {
	case "Interest":
		return satsledger.TypeInterest, nil
	case "Withdrawal":
		return satsledger.TypeWithdrawal, nil
	case "Deposit":
		return satsledger.TypeDeposit, nil
	case "Trade":
		return satsledger.TypeTrade, nil
	case "Fee":
		return satsledger.TypeFee, nil
	case "B2X":
		// Only meaningful after patching; kept as a transfer so an unpatched
		// export still fails loudly in reconciliation instead of parsing.
		return satsledger.TypeTransfer, nil
	default:
		return "", fmt.Errorf("unexpected ledn source %q", source)
	}
}
