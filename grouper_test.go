package satsledger

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"
)

var (
	eth  = Asset{Name: "ETH", Class: Crypto}
	usd  = Asset{Name: "USD", Class: Fiat}
	btcA = BTC
)

func entry(wallet, id string, date time.Time, entryType EntryType, amount string, asset Asset) LedgerEntry {
	return LedgerEntry{
		Wallet:  wallet,
		ID:      id,
		GroupID: id,
		Date:    date,
		Type:    entryType,
		Amount:  d(amount),
		Asset:   asset,
	}
}

func TestGroupLedgers_TradePair(t *testing.T) {
	spend := entry("Kraken", "t1", day(1), TypeTrade, "-1000", usd)
	receive := entry("Kraken", "t1", day(1), TypeTrade, "0.1", btcA)
	receive.ID = "t2"
	receive.GroupID = "t1"

	groups, err := GroupLedgers([]LedgerEntry{receive, spend})
	if err != nil {
		t.Fatalf("GroupLedgers() error = %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("got %d groups, want 1", len(groups))
	}
	trade, ok := groups[0].(Trade)
	if !ok {
		t.Fatalf("got %T, want Trade", groups[0])
	}
	if trade.Spend.ID != "t1" || trade.Receive.ID != "t2" {
		t.Errorf("spend=%s receive=%s, want spend=t1 receive=t2", trade.Spend.ID, trade.Receive.ID)
	}
}

func TestGroupLedgers_AmbiguousTrade(t *testing.T) {
	a := entry("Kraken", "t1", day(1), TypeTrade, "1", usd)
	b := entry("Kraken", "t2", day(1), TypeTrade, "0.1", btcA)
	b.GroupID = "t1"

	_, err := GroupLedgers([]LedgerEntry{a, b})
	var classification *ClassificationError
	if !errors.As(err, &classification) {
		t.Fatalf("GroupLedgers() error = %v, want *ClassificationError", err)
	}
}

func TestGroupLedgers_TransferByAmount(t *testing.T) {
	out := entry("Kraken", "w1", day(1), TypeWithdrawal, "-1.00000000", btcA)
	in := entry("cold", "d1", day(1), TypeDeposit, "1.00000000", btcA)

	groups, err := GroupLedgers([]LedgerEntry{in, out})
	if err != nil {
		t.Fatalf("GroupLedgers() error = %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("got %d groups, want 1", len(groups))
	}
	transfer, ok := groups[0].(Transfer)
	if !ok {
		t.Fatalf("got %T, want Transfer", groups[0])
	}
	if transfer.From.Wallet != "Kraken" || transfer.To.Wallet != "cold" {
		t.Errorf("transfer %s -> %s, want Kraken -> cold", transfer.From.Wallet, transfer.To.Wallet)
	}
}

func TestGroupLedgers_Disambiguation(t *testing.T) {
	// Three withdrawals of exactly 1 BTC on the same day, paired with three
	// deposits of 1 BTC into different wallets: each pair must form its own
	// transfer, no 3-way collision.
	var entries []LedgerEntry
	for i := 0; i < 3; i++ {
		from := fmt.Sprintf("exchange%d", i)
		entries = append(entries,
			entry(from, fmt.Sprintf("w%d", i), day(1).Add(time.Duration(i)*time.Minute), TypeWithdrawal, "-1", btcA),
			entry("cold", fmt.Sprintf("d%d", i), day(1).Add(time.Duration(i)*time.Minute+time.Second), TypeDeposit, "1", btcA),
		)
	}

	groups, err := GroupLedgers(entries)
	if err != nil {
		t.Fatalf("GroupLedgers() error = %v", err)
	}
	if len(groups) != 3 {
		t.Fatalf("got %d groups, want 3 transfers", len(groups))
	}
	for i, group := range groups {
		transfer, ok := group.(Transfer)
		if !ok {
			t.Fatalf("groups[%d] is %T, want Transfer", i, group)
		}
		wantFrom := fmt.Sprintf("exchange%d", i)
		if transfer.From.Wallet != wantFrom {
			t.Errorf("groups[%d] from %s, want %s", i, transfer.From.Wallet, wantFrom)
		}
	}
}

func TestGroupLedgers_SpuriousMatchUngroups(t *testing.T) {
	// Two deposits of the same amount must not pair with each other.
	a := entry("Kraken", "d1", day(1), TypeDeposit, "0.5", btcA)
	b := entry("cold", "d2", day(1), TypeDeposit, "0.5", btcA)

	groups, err := GroupLedgers([]LedgerEntry{a, b})
	if err != nil {
		t.Fatalf("GroupLedgers() error = %v", err)
	}
	// The greedy keying already keeps same-type entries apart, so both end up
	// in their own bucket.
	if len(groups) != 2 {
		t.Fatalf("got %d groups, want 2 singles", len(groups))
	}
	for i, group := range groups {
		if _, ok := group.(Single); !ok {
			t.Errorf("groups[%d] is %T, want Single", i, group)
		}
	}
}

func TestGroupLedgers_SameWalletPairUngroups(t *testing.T) {
	// A withdrawal and a deposit of the same amount in the same wallet were
	// matched by amount coincidence and must fall apart into singles.
	out := entry("Kraken", "w1", day(1), TypeWithdrawal, "-0.25", btcA)
	in := entry("Kraken", "d1", day(1), TypeDeposit, "0.25", btcA)

	groups, err := GroupLedgers([]LedgerEntry{out, in})
	if err != nil {
		t.Fatalf("GroupLedgers() error = %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("got %d groups, want 2 singles", len(groups))
	}
	for i, group := range groups {
		if _, ok := group.(Single); !ok {
			t.Errorf("groups[%d] is %T, want Single", i, group)
		}
	}
}

func TestGroupLedgers_FiatNeverAmountMatched(t *testing.T) {
	out := entry("Kraken", "w1", day(1), TypeWithdrawal, "-100", usd)
	in := entry("bank", "d1", day(1), TypeDeposit, "100", usd)

	groups, err := GroupLedgers([]LedgerEntry{out, in})
	if err != nil {
		t.Fatalf("GroupLedgers() error = %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("got %d groups, want 2 singles (fiat is never amount-matched)", len(groups))
	}
}

func TestGroupLedgers_Deterministic(t *testing.T) {
	entries := []LedgerEntry{
		entry("Kraken", "w1", day(1), TypeWithdrawal, "-1", btcA),
		entry("cold", "d1", day(1), TypeDeposit, "1", btcA),
		entry("Kraken", "f1", day(2), TypeFee, "-0.0001", btcA),
		entry("Ledn", "i1", day(3), TypeInterest, "0.001", btcA),
		entry("Kraken", "w2", day(4), TypeWithdrawal, "-1", btcA),
		entry("cold", "d2", day(4), TypeDeposit, "1", btcA),
	}
	first, err := GroupLedgers(entries)
	if err != nil {
		t.Fatalf("GroupLedgers() error = %v", err)
	}

	// Same set, reversed input order.
	reversed := make([]LedgerEntry, len(entries))
	for i, e := range entries {
		reversed[len(entries)-1-i] = e
	}
	second, err := GroupLedgers(reversed)
	if err != nil {
		t.Fatalf("GroupLedgers() error = %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("grouping is not deterministic:\n first = %#v\nsecond = %#v", first, second)
	}
}

func TestGroupLedgers_EventOrder(t *testing.T) {
	entries := []LedgerEntry{
		entry("Ledn", "i1", day(3), TypeInterest, "0.001", btcA),
		entry("Kraken", "d0", day(1), TypeDeposit, "2", btcA),
		entry("Kraken", "f1", day(2), TypeFee, "-0.0001", btcA),
	}
	groups, err := GroupLedgers(entries)
	if err != nil {
		t.Fatalf("GroupLedgers() error = %v", err)
	}
	if len(groups) != 3 {
		t.Fatalf("got %d groups, want 3", len(groups))
	}
	for i := 1; i < len(groups); i++ {
		if groups[i].Date().Before(groups[i-1].Date()) {
			t.Errorf("groups out of order at %d: %s before %s", i, groups[i].Date(), groups[i-1].Date())
		}
	}
}

func TestGroupLedgers_ThreeTradeLegsIsFatal(t *testing.T) {
	spend := entry("Kraken", "t1", day(1), TypeTrade, "-1000", usd)
	receive := entry("Kraken", "t2", day(1), TypeTrade, "0.05", btcA)
	extra := entry("Kraken", "t3", day(1), TypeTrade, "0.05", btcA)
	spend.GroupID, receive.GroupID, extra.GroupID = "g1", "g1", "g1"

	_, err := GroupLedgers([]LedgerEntry{spend, receive, extra})
	var cerr *ClassificationError
	if !errors.As(err, &cerr) {
		t.Fatalf("GroupLedgers() error = %v, want *ClassificationError", err)
	}
	if len(cerr.Entries) != 3 {
		t.Errorf("len(Entries) = %d, want 3", len(cerr.Entries))
	}
}
