package satsledger

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// oneSat is the smallest representable BTC amount; lots below it are dust left
// behind by repeated splits.
var oneSat = decimal.New(1, -8)

// AuditReport aggregates the sanity checks run after a balance build, so
// discrepancies introduced by the amount-matching heuristic are auditable
// instead of hidden in the totals.
type AuditReport struct {
	Asset Asset
	// Total holding of the asset across all wallets.
	Total decimal.Decimal
	// Spent is the cost basis: sum of rate*amount over lots with a known rate.
	Spent decimal.Decimal
	// WithoutRate sums lots that are neither bonus nor interest income and
	// still carry no acquisition rate. A growing value means the
	// deposit/withdrawal matching mismatched somewhere.
	WithoutRate decimal.Decimal
	// MissingOrigins counts lots whose originating entry could not be
	// resolved by the origin lookup, neither by id nor by group id.
	MissingOrigins int
	// DustRefs counts lots below one satoshi.
	DustRefs int
	// TotalRefs counts all lots of the asset.
	TotalRefs int
	// PerWallet holds the per-wallet totals, sorted by wallet name.
	PerWallet []WalletTotal
}

// WalletTotal is one wallet's holding of the audited asset.
type WalletTotal struct {
	Wallet string
	Total  decimal.Decimal
	Refs   int
}

// RateBudgetError reports an audited without-rate sum above the configured
// error budget. The amount-matching heuristic is a known, tolerated source of
// small systematic error; this error fires when it stops being small.
type RateBudgetError struct {
	WithoutRate decimal.Decimal
	Budget      decimal.Decimal
}

func (e *RateBudgetError) Error() string {
	return fmt.Sprintf("lots without acquisition rate sum to %s, above the error budget of %s: something broke in the grouping",
		e.WithoutRate, e.Budget)
}

// Audit inspects the lots of one asset across the whole portfolio.
func Audit(portfolio Portfolio, asset Asset, lookup func(globalID string) *LedgerEntry) AuditReport {
	report := AuditReport{Asset: asset}

	wallets := make([]string, 0, len(portfolio))
	for wallet := range portfolio {
		wallets = append(wallets, wallet)
	}
	sort.Strings(wallets)

	for _, wallet := range wallets {
		queue, ok := portfolio[wallet][asset]
		if !ok || queue.Len() == 0 {
			continue
		}
		report.PerWallet = append(report.PerWallet, WalletTotal{
			Wallet: wallet,
			Total:  queue.Sum(),
			Refs:   queue.Len(),
		})
		for _, ref := range queue.Refs() {
			report.Total = report.Total.Add(ref.Amount)
			report.Spent = report.Spent.Add(ref.Spent())
			report.TotalRefs++
			if ref.Amount.LessThan(oneSat) {
				report.DustRefs++
			}
			entry := lookup(ref.GlobalID())
			if entry == nil {
				report.MissingOrigins++
				continue
			}
			if entry.Type != TypeBonus && entry.Type != TypeInterest && !ref.Rate.Valid {
				report.WithoutRate = report.WithoutRate.Add(ref.Amount)
			}
		}
	}
	return report
}

// Check validates the report against the configured error budget for lots
// without an acquisition rate.
func (r AuditReport) Check(budget decimal.Decimal) error {
	if r.WithoutRate.GreaterThanOrEqual(budget) {
		return &RateBudgetError{WithoutRate: r.WithoutRate, Budget: budget}
	}
	return nil
}
