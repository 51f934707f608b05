package satsledger

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestAudit(t *testing.T) {
	deposit := entry("Kraken", "d1", day(1), TypeDeposit, "1", btcA)
	interest := entry("Ledn", "i1", day(2), TypeInterest, "0.002", btcA)
	index, err := NewIndex([]LedgerEntry{deposit, interest})
	if err != nil {
		t.Fatalf("NewIndex() error = %v", err)
	}
	lookup := func(id string) *LedgerEntry {
		if e, ok := index[id]; ok {
			return &e
		}
		return nil
	}

	portfolio := make(Portfolio)
	portfolio.Queue("Kraken", btcA).Append(
		// A bought lot with a known rate.
		Ref{Wallet: "Kraken", ID: "d1", Date: day(1), Amount: d("1"), Rate: rate("20000")},
		// An orphan lot: its origin is not in the index.
		Ref{Wallet: "Kraken", ID: "x9", Date: day(3), Amount: d("0.1")},
	)
	portfolio.Queue("Ledn", btcA).Append(
		// Interest income never needs a rate.
		Ref{Wallet: "Ledn", ID: "i1", Date: day(2), Amount: d("0.002")},
		// Sub-satoshi residue from a split.
		Ref{Wallet: "Ledn", ID: "i1", Date: day(2), Amount: d("0.000000001")},
	)

	report := Audit(portfolio, btcA, lookup)

	if !report.Total.Equal(d("1.102000001")) {
		t.Errorf("Total = %s, want 1.102000001", report.Total)
	}
	if !report.Spent.Equal(d("20000")) {
		t.Errorf("Spent = %s, want 20000", report.Spent)
	}
	if !report.WithoutRate.IsZero() {
		t.Errorf("WithoutRate = %s, want 0 (orphans and income are excused)", report.WithoutRate)
	}
	if report.MissingOrigins != 1 {
		t.Errorf("MissingOrigins = %d, want 1", report.MissingOrigins)
	}
	if report.DustRefs != 1 {
		t.Errorf("DustRefs = %d, want 1", report.DustRefs)
	}
	if report.TotalRefs != 4 {
		t.Errorf("TotalRefs = %d, want 4", report.TotalRefs)
	}
	if len(report.PerWallet) != 2 || report.PerWallet[0].Wallet != "Kraken" || report.PerWallet[1].Wallet != "Ledn" {
		t.Fatalf("PerWallet = %+v, want Kraken then Ledn", report.PerWallet)
	}
	if !report.PerWallet[0].Total.Equal(d("1.1")) {
		t.Errorf("Kraken total = %s, want 1.1", report.PerWallet[0].Total)
	}
}

func TestAudit_WithoutRate(t *testing.T) {
	deposit := entry("Kraken", "d1", day(1), TypeDeposit, "0.5", btcA)
	index, err := NewIndex([]LedgerEntry{deposit})
	if err != nil {
		t.Fatalf("NewIndex() error = %v", err)
	}
	lookup := func(id string) *LedgerEntry {
		if e, ok := index[id]; ok {
			return &e
		}
		return nil
	}

	portfolio := make(Portfolio)
	portfolio.Queue("Kraken", btcA).Append(Ref{Wallet: "Kraken", ID: "d1", Date: day(1), Amount: d("0.5")})

	report := Audit(portfolio, btcA, lookup)
	if !report.WithoutRate.Equal(d("0.5")) {
		t.Errorf("WithoutRate = %s, want 0.5", report.WithoutRate)
	}
}

func TestAuditReport_Check(t *testing.T) {
	report := AuditReport{WithoutRate: d("0.003")}

	if err := report.Check(d("0.01")); err != nil {
		t.Errorf("Check(0.01) = %v, want nil", err)
	}

	err := report.Check(d("0.003"))
	var budget *RateBudgetError
	if !errors.As(err, &budget) {
		t.Fatalf("Check(0.003) = %v, want *RateBudgetError", err)
	}
	if !budget.WithoutRate.Equal(d("0.003")) {
		t.Errorf("error carries WithoutRate %s, want 0.003", budget.WithoutRate)
	}
}

func TestAuditReport_CheckZeroIsClean(t *testing.T) {
	report := AuditReport{WithoutRate: decimal.Zero}
	if err := report.Check(d("0.01")); err != nil {
		t.Errorf("Check() = %v, want nil for a clean report", err)
	}
}

func TestAudit_PurchasedLotIsNotAnOrphan(t *testing.T) {
	// A direct purchase books its lot under the trade's group id, which must
	// resolve through the origin lookup instead of counting as an orphan.
	spend := entry("Kraken", "l1", day(1), TypeTrade, "-20000", BaseAsset)
	receive := entry("Kraken", "l2", day(1), TypeTrade, "1", btcA)
	spend.GroupID, receive.GroupID = "g1", "g1"
	entries := []LedgerEntry{spend, receive}

	lookup, err := NewResolver(entries)
	if err != nil {
		t.Fatalf("NewResolver() error = %v", err)
	}
	groups, err := GroupLedgers(entries)
	if err != nil {
		t.Fatalf("GroupLedgers() error = %v", err)
	}
	portfolio, err := BuildBalances(groups, BaseAsset)
	if err != nil {
		t.Fatalf("BuildBalances() error = %v", err)
	}

	report := Audit(portfolio, btcA, lookup)
	if report.MissingOrigins != 0 {
		t.Errorf("MissingOrigins = %d, want 0", report.MissingOrigins)
	}
	if !report.Spent.Equal(d("20000")) {
		t.Errorf("Spent = %s, want 20000", report.Spent)
	}
}
