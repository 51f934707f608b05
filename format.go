package satsledger

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// FormatBTC formats a crypto amount with the full eight fractional digits.
func FormatBTC(d decimal.Decimal) string { return d.StringFixed(8) }

// FormatFiat formats a fiat amount with the currency's own symbol and
// fraction, e.g. "€1,234.56" for EUR.
func FormatFiat(d decimal.Decimal, currency string) string {
	// The go-money constructor is the only way to get a never-nil currency.
	cur := *money.New(0, currency).Currency()
	shifted := d.Shift(int32(cur.Fraction))
	return cur.Formatter().Format(shifted.IntPart())
}

// FormatAmount formats an entry's amount according to its asset class.
func FormatAmount(e LedgerEntry) string {
	if e.Asset.Class == Crypto {
		return e.Asset.Name + " " + FormatBTC(e.Amount)
	}
	return e.Asset.Name + " " + e.Amount.StringFixed(2)
}

// FormatRate formats an optional acquisition rate. The rate of a crypto-for-
// crypto trade needs more digits than a fiat purchase price.
func FormatRate(rate decimal.NullDecimal, spendClass AssetClass) string {
	if !rate.Valid {
		return "unknown"
	}
	if spendClass == Crypto {
		return rate.Decimal.RoundBank(6).String()
	}
	return rate.Decimal.StringFixed(2)
}
