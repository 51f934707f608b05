package satsledger

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// HistoryItem is a snapshot of total holdings of the tracked asset, their cost
// basis and the cumulative bonus/interest income, either at a UTC day boundary
// or "now" for the last item.
type HistoryItem struct {
	Date  time.Time       `json:"date"`
	Total decimal.Decimal `json:"total"`
	Bonus decimal.Decimal `json:"bonus"`
	Spent decimal.Decimal `json:"spent"`
}

// BuildHistory reconstructs the daily history of the holdings of one asset
// across all wallets, oldest first, ending with a "now" snapshot.
//
// It starts from the current totals and walks lots backward in time, one UTC
// day at a time, removing every lot acquired on or after each day boundary.
// One sort plus a single backward pass; no re-scanning.
//
// lookup resolves a lot's global id to its originating entry and decides
// whether the lot counts as bonus income (interest or bonus entries). A nil
// result means the origin is unknown, which only excludes the lot from the
// bonus aggregate.
func BuildHistory(portfolio Portfolio, asset Asset, lookup func(globalID string) *LedgerEntry, now time.Time) []HistoryItem {
	refs := collectRefs(portfolio, asset)
	sort.SliceStable(refs, func(i, j int) bool { return refs[i].Date.Before(refs[j].Date) })

	isBonus := func(r Ref) bool {
		entry := lookup(r.GlobalID())
		return entry != nil && (entry.Type == TypeBonus || entry.Type == TypeInterest)
	}

	total, bonus, spent := decimal.Zero, decimal.Zero, decimal.Zero
	for _, r := range refs {
		total = total.Add(r.Amount)
		spent = spent.Add(r.Spent())
		if isBonus(r) {
			bonus = bonus.Add(r.Amount)
		}
	}

	items := []HistoryItem{{Date: now, Total: total, Bonus: bonus, Spent: spent}}

	day := DateOf(now)
	for len(refs) > 0 {
		boundary := day.Time()
		for len(refs) > 0 {
			last := refs[len(refs)-1]
			if last.Date.Before(boundary) {
				break
			}
			total = total.Sub(last.Amount)
			spent = spent.Sub(last.Spent())
			if isBonus(last) {
				bonus = bonus.Sub(last.Amount)
			}
			refs = refs[:len(refs)-1]
		}
		items = append(items, HistoryItem{Date: boundary, Total: total, Bonus: bonus, Spent: spent})
		day = day.Add(-1)
	}

	// Collected newest to oldest, reverse into chronological order.
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
	return items
}

// collectRefs flattens the lots of one asset across all wallets, in a
// deterministic wallet order.
func collectRefs(portfolio Portfolio, asset Asset) []Ref {
	wallets := make([]string, 0, len(portfolio))
	for wallet := range portfolio {
		wallets = append(wallets, wallet)
	}
	sort.Strings(wallets)

	var refs []Ref
	for _, wallet := range wallets {
		if queue, ok := portfolio[wallet][asset]; ok {
			refs = append(refs, queue.Refs()...)
		}
	}
	return refs
}
