package satsledger

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// EntryType is a typed string identifying the kind of economic fact a ledger
// entry records.
type EntryType string

const (
	TypeDeposit    EntryType = "deposit"
	TypeWithdrawal EntryType = "withdrawal"
	TypeTrade      EntryType = "trade"
	TypeInterest   EntryType = "interest"
	TypeBonus      EntryType = "bonus"
	TypeFee        EntryType = "fee"
	// TypeTransfer is a fallback for movements that could not be classified
	// any better (e.g. an on-chain transaction with mixed ownership).
	TypeTransfer EntryType = "transfer"
)

// ParseEntryType parses a string into an EntryType.
func ParseEntryType(s string) (EntryType, error) {
	switch t := EntryType(s); t {
	case TypeDeposit, TypeWithdrawal, TypeTrade, TypeInterest, TypeBonus, TypeFee, TypeTransfer:
		return t, nil
	default:
		return "", fmt.Errorf("unknown entry type: %q", s)
	}
}

// LedgerEntry is an atomic economic fact reported by one source (an exchange
// CSV export or the on-chain wallet). A positive amount increases the wallet
// holdings, a negative amount decreases them.
type LedgerEntry struct {
	Wallet string
	// ID is unique within the wallet. The (wallet, id) pair is the global
	// identity of the entry across the whole ledger.
	ID string
	// GroupID correlates entries that the source reported as part of the same
	// transaction (e.g. the two legs of a trade).
	GroupID string
	Date    time.Time
	Type    EntryType
	Amount  decimal.Decimal
	Asset   Asset
}

// GlobalID returns the ledger-wide identity of the entry.
func (e LedgerEntry) GlobalID() string { return e.Wallet + "-" + e.ID }

func (e LedgerEntry) String() string {
	return fmt.Sprintf("%s %s %s %s %s", e.Date.Format(time.RFC3339), e.Wallet, e.Type, e.Asset.Name, e.Amount)
}

// DuplicateIDError reports a collision on the global (wallet, id) identity.
// It indicates a bug in an upstream reader, never a recoverable condition.
type DuplicateIDError struct {
	GlobalID string
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("duplicated global id %q in ledger", e.GlobalID)
}

// NewIndex builds a lookup from global id to entry. It fails with a
// *DuplicateIDError on the first identity collision.
func NewIndex(entries []LedgerEntry) (map[string]LedgerEntry, error) {
	index := make(map[string]LedgerEntry, len(entries))
	for _, entry := range entries {
		id := entry.GlobalID()
		if _, ok := index[id]; ok {
			return nil, &DuplicateIDError{GlobalID: id}
		}
		index[id] = entry
	}
	return index, nil
}

// NewResolver builds the origin lookup used by the history replay and the
// audit. A lot normally carries the id of the entry that created it, but lots
// created by a base-asset purchase carry the trade's group id instead, so ids
// that miss the entry index fall back to a wallet-scoped group id match. The
// receive leg wins the fallback: it is the side that created the lot.
func NewResolver(entries []LedgerEntry) (func(globalID string) *LedgerEntry, error) {
	index, err := NewIndex(entries)
	if err != nil {
		return nil, err
	}
	groups := make(map[string]LedgerEntry, len(entries))
	for _, entry := range entries {
		if entry.GroupID == "" {
			continue
		}
		key := entry.Wallet + "-" + entry.GroupID
		if prev, ok := groups[key]; ok && prev.Amount.Sign() > 0 {
			continue
		}
		groups[key] = entry
	}
	return func(globalID string) *LedgerEntry {
		if entry, ok := index[globalID]; ok {
			return &entry
		}
		if entry, ok := groups[globalID]; ok {
			return &entry
		}
		return nil
	}, nil
}
