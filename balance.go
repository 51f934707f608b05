package satsledger

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Balance maps each asset held in a wallet to its FIFO queue of lots.
type Balance map[Asset]*RefQueue

// Portfolio maps wallet names to their balances. It is owned exclusively by a
// single BuildBalances fold for its whole lifetime; no concurrent mutation.
type Portfolio map[string]Balance

// Queue returns the lot queue for a wallet/asset pair, creating it if needed.
func (p Portfolio) Queue(wallet string, asset Asset) *RefQueue {
	balance, ok := p[wallet]
	if !ok {
		balance = make(Balance)
		p[wallet] = balance
	}
	queue, ok := balance[asset]
	if !ok {
		queue = &RefQueue{}
		balance[asset] = queue
	}
	return queue
}

// UnsupportedTransferError reports a cross-wallet transfer, which the balance
// builder does not reconcile yet. Surfacing it beats silently mishandling the
// move; reconciliation across wallets needs product-level design first.
type UnsupportedTransferError struct {
	From, To LedgerEntry
}

func (e *UnsupportedTransferError) Error() string {
	return fmt.Sprintf("cross-wallet transfer %s -> %s of %s %s is not supported",
		e.From.Wallet, e.To.Wallet, e.To.Asset.Name, e.To.Amount)
}

// InvalidTradeError reports a trade event whose legs cannot produce a rate.
type InvalidTradeError struct {
	Spend, Receive LedgerEntry
}

func (e *InvalidTradeError) Error() string {
	return fmt.Sprintf("trade in %s has a zero receive amount (%s %s for %s %s)",
		e.Spend.Wallet, e.Spend.Asset.Name, e.Spend.Amount, e.Receive.Asset.Name, e.Receive.Amount)
}

// BuildBalances folds grouped events, in order, into a portfolio of
// per-wallet, per-asset lot queues, starting from empty. The fold is a pure
// left fold: deterministic given the grouped sequence.
//
// The base asset is never tracked. Trades propagate acquisition rates from the
// spend side to the receive side, so cost basis survives a chain of trades
// (BTC bought for EUR then traded to ETH carries its EUR cost into the ETH
// lots). Any error aborts the fold: a wrong ledger is worse than no ledger.
func BuildBalances(groups []Grouped, base Asset) (Portfolio, error) {
	portfolio := make(Portfolio)
	for _, group := range groups {
		var err error
		switch g := group.(type) {
		case Single:
			err = applySingle(portfolio, base, g)
		case Transfer:
			if g.From.Wallet == g.To.Wallet {
				// Internal movement, already balanced.
				continue
			}
			err = &UnsupportedTransferError{From: g.From, To: g.To}
		case Trade:
			err = applyTrade(portfolio, base, g)
		default:
			err = fmt.Errorf("unhandled grouped event %T", group)
		}
		if err != nil {
			return nil, err
		}
	}
	return portfolio, nil
}

func applySingle(portfolio Portfolio, base Asset, g Single) error {
	entry := g.Entry
	if entry.Asset == base {
		return nil
	}
	queue := portfolio.Queue(entry.Wallet, entry.Asset)
	if entry.Amount.Sign() > 0 {
		queue.Append(Ref{Wallet: entry.Wallet, ID: entry.ID, Date: entry.Date, Amount: entry.Amount})
		return nil
	}
	// The consumed lots are discarded: their value has left the wallet.
	if _, err := queue.Subtract(entry.Amount.Neg()); err != nil {
		return fmt.Errorf("%s %s of %s %s: %w", entry.Wallet, entry.Type, entry.Asset.Name, entry.Amount, err)
	}
	return nil
}

func applyTrade(portfolio Portfolio, base Asset, g Trade) error {
	spend, receive := g.Spend, g.Receive
	if receive.Amount.IsZero() {
		return &InvalidTradeError{Spend: spend, Receive: receive}
	}
	// Units: spend-asset per receive-asset.
	rate := spend.Amount.Neg().Div(receive.Amount)

	if spend.Asset != base {
		// Move the consumed lots to the receive balance, converting amount and
		// rate so the original cost basis is preserved.
		spendQueue := portfolio.Queue(spend.Wallet, spend.Asset)
		consumed, err := spendQueue.Subtract(spend.Amount.Neg())
		if err != nil {
			return fmt.Errorf("%s trade spending %s %s: %w", spend.Wallet, spend.Asset.Name, spend.Amount, err)
		}
		receiveQueue := portfolio.Queue(receive.Wallet, receive.Asset)
		for _, ref := range consumed {
			moved := Ref{
				Wallet: ref.Wallet,
				ID:     ref.ID,
				Date:   ref.Date,
				Amount: ref.Amount.Div(rate),
			}
			if ref.Rate.Valid {
				moved.Rate = decimal.NullDecimal{Decimal: ref.Rate.Decimal.Mul(rate), Valid: true}
			}
			receiveQueue.Append(moved)
		}
		return nil
	}

	if receive.Asset != base {
		// Direct purchase with the base asset: one new lot at the trade rate.
		portfolio.Queue(receive.Wallet, receive.Asset).Append(Ref{
			Wallet: receive.Wallet,
			ID:     receive.GroupID,
			Date:   receive.Date,
			Amount: receive.Amount,
			Rate:   decimal.NullDecimal{Decimal: rate, Valid: true},
		})
	}
	return nil
}
