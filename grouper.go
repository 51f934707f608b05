package satsledger

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Grouped is a reconciled economic event assembled from one or two raw ledger
// entries. It is a closed sum type: the only implementations are Single, Trade
// and Transfer, and the balance builder handles all of them exhaustively.
type Grouped interface {
	// Date returns the date of the event's earliest entry.
	Date() time.Time
	grouped()
}

// Single is a standalone event within a wallet (fee, interest, bonus, or an
// unmatched deposit/withdrawal).
type Single struct {
	Entry LedgerEntry
}

// Trade is an exchange of one asset for another within a single wallet.
// Spend carries the non-positive amount, Receive the positive one.
type Trade struct {
	Spend   LedgerEntry
	Receive LedgerEntry
}

// Transfer is a withdrawal in one wallet matched to a deposit in another.
type Transfer struct {
	From LedgerEntry
	To   LedgerEntry
}

func (g Single) Date() time.Time { return g.Entry.Date }
func (g Trade) Date() time.Time {
	if g.Spend.Date.Before(g.Receive.Date) {
		return g.Spend.Date
	}
	return g.Receive.Date
}
func (g Transfer) Date() time.Time {
	if g.From.Date.Before(g.To.Date) {
		return g.From.Date
	}
	return g.To.Date
}

func (Single) grouped()   {}
func (Trade) grouped()    {}
func (Transfer) grouped() {}

// ClassificationError reports a bucket the grouper could not resolve: trade
// legs with the same sign, an unexpected pairing, or more than two entries
// sharing one trade group id. A malformed export can trigger it.
type ClassificationError struct {
	Entries []LedgerEntry
	Reason  string
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("cannot classify group of %d entries: %s", len(e.Entries), e.Reason)
}

// bucket accumulates entries sharing a grouping key, in insertion order.
type bucket struct {
	entries []LedgerEntry
}

// GroupLedgers collapses raw ledger entries into grouped economic events,
// ordered by the date of each group's earliest entry.
//
// Trade entries are matched by the source-provided group id. Crypto deposits
// and withdrawals are matched by absolute amount, a deliberate heuristic to
// pair the two sides of a cross-wallet transfer: when a candidate bucket is
// already full, or already holds an entry of the same type, the key is
// extended and rebucketed until an open bucket is found, so several transfers
// of an identical amount form separate pairs instead of colliding. Everything
// else stays a singleton.
//
// The result is deterministic: the same entry set produces the same sequence
// regardless of input order.
func GroupLedgers(entries []LedgerEntry) ([]Grouped, error) {
	sorted := make([]LedgerEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Date.Equal(sorted[j].Date) {
			return sorted[i].Date.Before(sorted[j].Date)
		}
		return sorted[i].GlobalID() < sorted[j].GlobalID()
	})

	index := make(map[string]int)
	var buckets []*bucket
	put := func(key string, entry LedgerEntry) {
		i, ok := index[key]
		if !ok {
			i = len(buckets)
			index[key] = i
			buckets = append(buckets, &bucket{})
		}
		buckets[i].entries = append(buckets[i].entries, entry)
	}

	for _, entry := range sorted {
		switch {
		case entry.Type == TypeTrade:
			put(entry.Wallet+"-"+entry.GroupID, entry)
		case (entry.Type == TypeDeposit || entry.Type == TypeWithdrawal) && entry.Asset.Class == Crypto:
			key := entry.Asset.Name + "-" + entry.Amount.Abs().StringFixed(8)
			// Skip until we find a suitable bucket, greedy strategy.
			for {
				i, ok := index[key]
				if !ok {
					break
				}
				b := buckets[i]
				if len(b.entries) < 2 && b.entries[0].Type != entry.Type {
					break
				}
				key += "-"
			}
			put(key, entry)
		default:
			put(uuid.NewString(), entry)
		}
	}

	sort.SliceStable(buckets, func(i, j int) bool {
		return buckets[i].entries[0].Date.Before(buckets[j].entries[0].Date)
	})

	var groups []Grouped
	for _, b := range buckets {
		resolved, err := resolve(b.entries)
		if err != nil {
			return nil, err
		}
		groups = append(groups, resolved...)
	}
	return groups, nil
}

// resolve turns one bucket into grouped events.
func resolve(entries []LedgerEntry) ([]Grouped, error) {
	switch len(entries) {
	case 1:
		return []Grouped{Single{Entry: entries[0]}}, nil
	case 2:
		a, b := entries[0], entries[1]
		switch {
		case a.Type == TypeTrade && b.Type == TypeTrade:
			if a.Amount.Sign() <= 0 && b.Amount.Sign() > 0 {
				return []Grouped{Trade{Spend: a, Receive: b}}, nil
			}
			if b.Amount.Sign() <= 0 && a.Amount.Sign() > 0 {
				return []Grouped{Trade{Spend: b, Receive: a}}, nil
			}
			return nil, &ClassificationError{Entries: entries, Reason: "trade legs do not have opposite signs"}
		case a.Type == TypeWithdrawal && b.Type == TypeDeposit && a.Wallet != b.Wallet:
			return []Grouped{Transfer{From: a, To: b}}, nil
		case a.Type == TypeDeposit && b.Type == TypeWithdrawal && a.Wallet != b.Wallet:
			return []Grouped{Transfer{From: b, To: a}}, nil
		case a.Type == b.Type || a.Wallet == b.Wallet:
			// Wrongly matched by amount coincidence, ungroup.
			return []Grouped{Single{Entry: a}, Single{Entry: b}}, nil
		default:
			return nil, &ClassificationError{Entries: entries, Reason: "unexpected pairing"}
		}
	default:
		return nil, &ClassificationError{Entries: entries, Reason: "group has more than 2 elements"}
	}
}
