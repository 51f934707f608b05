package satsledger

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// entryJSON is the wire form of a LedgerEntry, one object per JSONL line.
// Amounts are persisted as strings to keep them exact.
type entryJSON struct {
	Wallet  string          `json:"wallet"`
	ID      string          `json:"id"`
	GroupID string          `json:"groupId,omitempty"`
	Date    time.Time       `json:"date"`
	Type    string          `json:"type"`
	Amount  decimal.Decimal `json:"amount"`
	Asset   string          `json:"asset"`
	Class   string          `json:"class"`
}

// EncodeEntries writes ledger entries as JSONL, one entry per line. Entries
// are keyed by their global (wallet, id) identity so an external store can do
// idempotent upsert-by-id.
func EncodeEntries(w io.Writer, entries []LedgerEntry) error {
	enc := json.NewEncoder(w)
	for _, entry := range entries {
		line := entryJSON{
			Wallet:  entry.Wallet,
			ID:      entry.ID,
			GroupID: entry.GroupID,
			Date:    entry.Date.UTC(),
			Type:    string(entry.Type),
			Amount:  entry.Amount,
			Asset:   entry.Asset.Name,
			Class:   entry.Asset.Class.String(),
		}
		if err := enc.Encode(line); err != nil {
			return fmt.Errorf("could not encode entry %q: %w", entry.GlobalID(), err)
		}
	}
	return nil
}

// DecodeEntries reads ledger entries from a stream of JSONL data. It fails on
// the first malformed line: a partially read ledger must never be mistaken
// for a complete one.
func DecodeEntries(r io.Reader) ([]LedgerEntry, error) {
	var entries []LedgerEntry
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for line := 1; scanner.Scan(); line++ {
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var decoded entryJSON
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return nil, fmt.Errorf("could not decode ledger line %d: %w", line, err)
		}
		entryType, err := ParseEntryType(decoded.Type)
		if err != nil {
			return nil, fmt.Errorf("ledger line %d: %w", line, err)
		}
		class, err := ParseAssetClass(decoded.Class)
		if err != nil {
			return nil, fmt.Errorf("ledger line %d: %w", line, err)
		}
		entries = append(entries, LedgerEntry{
			Wallet:  decoded.Wallet,
			ID:      decoded.ID,
			GroupID: decoded.GroupID,
			Date:    decoded.Date,
			Type:    entryType,
			Amount:  decoded.Amount,
			Asset:   Asset{Name: decoded.Asset, Class: class},
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("could not read ledger: %w", err)
	}
	return entries, nil
}

// MergeEntries upserts incoming entries into existing ones by global id:
// an incoming entry replaces the stored entry with the same identity. The
// result is sorted by date (ties broken by global id, for determinism).
func MergeEntries(existing, incoming []LedgerEntry) []LedgerEntry {
	merged := make(map[string]LedgerEntry, len(existing)+len(incoming))
	for _, entry := range existing {
		merged[entry.GlobalID()] = entry
	}
	for _, entry := range incoming {
		merged[entry.GlobalID()] = entry
	}

	out := make([]LedgerEntry, 0, len(merged))
	for _, entry := range merged {
		out = append(out, entry)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].GlobalID() < out[j].GlobalID()
	})
	return out
}

// IgnoredEntryError reports an ignore-list id that matched nothing in the
// ledger: most likely a typo in the configuration, worth failing loudly over.
type IgnoredEntryError struct {
	GlobalIDs []string
}

func (e *IgnoredEntryError) Error() string {
	return fmt.Sprintf("%d ignore-list entries were not found in the ledger: %v", len(e.GlobalIDs), e.GlobalIDs)
}

// ApplyIgnores drops the entries whose global id appears in the ignore list.
// Every listed id must match an entry.
func ApplyIgnores(entries []LedgerEntry, ignored []string) ([]LedgerEntry, error) {
	if len(ignored) == 0 {
		return entries, nil
	}
	drop := make(map[string]bool, len(ignored))
	for _, id := range ignored {
		drop[id] = false
	}
	out := make([]LedgerEntry, 0, len(entries))
	for _, entry := range entries {
		if _, ok := drop[entry.GlobalID()]; ok {
			drop[entry.GlobalID()] = true
			continue
		}
		out = append(out, entry)
	}

	var missing []string
	for _, id := range ignored {
		if !drop[id] {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, &IgnoredEntryError{GlobalIDs: missing}
	}
	return out, nil
}
