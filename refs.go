package satsledger

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Ref is a cost-basis lot: a discrete, dated unit of held asset. Wallet and ID
// point back to the originating ledger entry. Rate is the acquisition price in
// base-asset terms; it is invalid for lots acquired at unknown cost (e.g. a
// transfer-in that could not be matched).
//
// A Ref is exclusively owned by one queue at a time. Subtract transfers
// ownership of consumed refs to the caller; a split never mutates the original
// in place, both portions are fresh values inheriting the rate.
type Ref struct {
	Wallet string
	ID     string
	Date   time.Time
	Amount decimal.Decimal
	Rate   decimal.NullDecimal
}

// GlobalID returns the global id of the originating ledger entry.
func (r Ref) GlobalID() string { return r.Wallet + "-" + r.ID }

// Spent returns rate*amount when the rate is known, zero otherwise.
func (r Ref) Spent() decimal.Decimal {
	if !r.Rate.Valid {
		return decimal.Zero
	}
	return r.Rate.Decimal.Mul(r.Amount)
}

// InsufficientBalanceError reports a FIFO subtraction that requested more than
// the queue holds. The caller is expected to never do that, so this is a fatal
// invariant breach: it indicates wrong upstream classification, not a
// condition to retry.
type InsufficientBalanceError struct {
	Requested decimal.Decimal
	Held      decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("cannot subtract %s from a balance of %s", e.Requested, e.Held)
}

// RefQueue is a FIFO queue of lots, oldest first.
type RefQueue struct {
	refs []Ref
}

// Append adds lots to the back of the queue (most recently acquired).
func (q *RefQueue) Append(refs ...Ref) { q.refs = append(q.refs, refs...) }

// Len returns the number of lots in the queue.
func (q *RefQueue) Len() int { return len(q.refs) }

// Sum returns the total amount held across all lots.
func (q *RefQueue) Sum() decimal.Decimal {
	total := decimal.Zero
	for _, r := range q.refs {
		total = total.Add(r.Amount)
	}
	return total
}

// Refs returns a copy of the lots in FIFO order.
func (q *RefQueue) Refs() []Ref {
	out := make([]Ref, len(q.refs))
	copy(out, q.refs)
	return out
}

// Subtract removes amount from the queue using the FIFO strategy and returns
// the consumed lots in consumption order. When the last consumed lot
// overshoots, it is split: the residual goes back to the front of the queue
// and the consumed portion is shrunk to exactly cover the remainder, both
// inheriting the rate.
//
// Conservation holds exactly: sum(queue before) == sum(queue after) +
// sum(consumed), with no rounding.
//
// A negative amount is a programming fault and panics. Requesting more than
// the queue holds returns an *InsufficientBalanceError.
func (q *RefQueue) Subtract(amount decimal.Decimal) ([]Ref, error) {
	if amount.IsNegative() {
		panic("subtract amount must be positive")
	}

	var consumed []Ref
	totalRemoved := decimal.Zero
	for totalRemoved.LessThan(amount) {
		if len(q.refs) == 0 {
			// Undo: this queue must be left untouched on failure.
			q.refs = append(consumed, q.refs...)
			return nil, &InsufficientBalanceError{Requested: amount, Held: totalRemoved}
		}
		removed := q.refs[0]
		q.refs = q.refs[1:]
		totalRemoved = totalRemoved.Add(removed.Amount)
		consumed = append(consumed, removed)
	}

	if totalRemoved.GreaterThan(amount) {
		leftover := totalRemoved.Sub(amount)
		last := consumed[len(consumed)-1]
		residual := last
		residual.Amount = leftover
		q.refs = append([]Ref{residual}, q.refs...)
		last.Amount = last.Amount.Sub(leftover)
		consumed[len(consumed)-1] = last
	}

	return consumed, nil
}
