package onchain

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/satsledger/satsledger"
)

// Kind is the classification of one on-chain transaction relative to the
// wallet's known addresses.
type Kind int

const (
	// KindInternal is a payment to self: every input and output is ours.
	KindInternal Kind = iota
	// KindWithdrawal spends our inputs to at least one foreign output.
	KindWithdrawal
	// KindDeposit receives to our outputs from only foreign inputs.
	KindDeposit
	// KindAmbiguous mixes known and unknown addresses on both sides and
	// needs manual review.
	KindAmbiguous
)

func (k Kind) String() string {
	switch k {
	case KindInternal:
		return "internal"
	case KindWithdrawal:
		return "withdrawal"
	case KindDeposit:
		return "deposit"
	case KindAmbiguous:
		return "ambiguous"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Classify emits the ledger entries of one resolved transaction, booked on
// the given wallet.
//
// Every input and output known: an internal movement. Each output gets a
// netting (withdrawal, deposit) pair to preserve per-output traceability, and
// the mining fee gets its own entry, so the pairs net to exactly the fee.
//
// All inputs known, some outputs unknown: a withdrawal of the foreign
// outputs' sum, plus the fee.
//
// No input known: a deposit per known output. Outputs are kept separate
// because splitting by output makes later transfer matching by amount work.
//
// Known and unknown on both sides: degraded information. A zero-amount
// transfer placeholder is emitted for manual review, never silently dropped.
//
// Entry ids are the txid, suffixed "-<i>" when a transaction emits more than
// one entry; the group id is always the txid so sibling entries can be
// re-associated.
func Classify(tx Transaction, known AddressSet, wallet string) ([]satsledger.LedgerEntry, Kind) {
	knownVin := 0
	for _, in := range tx.Vin {
		if known.Contains(in.Address) {
			knownVin++
		}
	}
	var knownVout, unknownVout []Output
	for _, out := range tx.Vout {
		if known.Contains(out.Address) {
			knownVout = append(knownVout, out)
		} else {
			unknownVout = append(unknownVout, out)
		}
	}

	fee := tx.Fee()

	type leg struct {
		entryType satsledger.EntryType
		amount    decimal.Decimal
	}
	var legs []leg
	var kind Kind
	switch {
	case knownVin == tx.VinCount && len(knownVout) == tx.VoutCount:
		kind = KindInternal
		for _, out := range tx.Vout {
			legs = append(legs,
				leg{satsledger.TypeWithdrawal, out.Amount.Neg()},
				leg{satsledger.TypeDeposit, out.Amount},
			)
		}
		legs = append(legs, leg{satsledger.TypeFee, fee.Neg()})
	case knownVin == tx.VinCount:
		kind = KindWithdrawal
		sum := decimal.Zero
		for _, out := range unknownVout {
			sum = sum.Add(out.Amount)
		}
		legs = append(legs,
			leg{satsledger.TypeWithdrawal, sum.Neg()},
			leg{satsledger.TypeFee, fee.Neg()},
		)
	case knownVin == 0:
		kind = KindDeposit
		for _, out := range knownVout {
			legs = append(legs, leg{satsledger.TypeDeposit, out.Amount})
		}
	default:
		kind = KindAmbiguous
		legs = append(legs, leg{satsledger.TypeTransfer, decimal.Zero})
	}

	entries := make([]satsledger.LedgerEntry, len(legs))
	for i, l := range legs {
		id := tx.TxID
		if len(legs) > 1 {
			id = fmt.Sprintf("%s-%d", tx.TxID, i)
		}
		entries[i] = satsledger.LedgerEntry{
			Wallet:  wallet,
			ID:      id,
			GroupID: tx.TxID,
			Date:    tx.Time,
			Type:    l.entryType,
			Amount:  l.amount,
			Asset:   satsledger.BTC,
		}
	}
	return entries, kind
}
