// Package onchain turns raw on-chain transactions into ledger entries for the
// cold-storage wallet, classifying each transaction by which of its inputs
// and outputs belong to the wallet's own addresses.
package onchain

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/satsledger/satsledger/electrum"
)

// Address is one wallet-controlled on-chain address with its Electrum script
// hash (sha256 of the output script, byte-reversed, hex).
type Address struct {
	ID         string `yaml:"id"`
	ScriptHash string `yaml:"scripthash"`
}

// AddressSet is the set of addresses known to belong to the wallet.
type AddressSet map[string]bool

// NewAddressSet builds the set from the configured addresses.
func NewAddressSet(addresses []Address) AddressSet {
	set := make(AddressSet, len(addresses))
	for _, a := range addresses {
		set[a.ID] = true
	}
	return set
}

// Contains reports whether the address belongs to the wallet.
func (s AddressSet) Contains(address string) bool { return s[address] }

// Input is a transaction input resolved to the amount and address of the
// prior output it spends.
type Input struct {
	TxID    string
	Vout    int
	Amount  decimal.Decimal
	Address string
}

// Output is one transaction output with a decoded address.
type Output struct {
	Amount  decimal.Decimal
	Address string
}

// Transaction is a raw transaction with every input resolved and every
// addressless input/output already stripped. VinCount and VoutCount keep the
// raw counts so the classifier can tell "all inputs known" from "all
// resolvable inputs known".
type Transaction struct {
	TxID      string
	Time      time.Time
	Vin       []Input
	Vout      []Output
	VinCount  int
	VoutCount int
}

// TotalIn sums the resolved input amounts.
func (t Transaction) TotalIn() decimal.Decimal {
	total := decimal.Zero
	for _, in := range t.Vin {
		total = total.Add(in.Amount)
	}
	return total
}

// TotalOut sums the resolved output amounts.
func (t Transaction) TotalOut() decimal.Decimal {
	total := decimal.Zero
	for _, out := range t.Vout {
		total = total.Add(out.Amount)
	}
	return total
}

// Fee is the difference between resolved inputs and outputs.
func (t Transaction) Fee() decimal.Decimal { return t.TotalIn().Sub(t.TotalOut()) }

// TxGetter resolves a txid to a previously fetched raw transaction. It is
// satisfied by the txstore cache.
type TxGetter interface {
	Get(txid string) (electrum.Transaction, bool, error)
}

// ResolveStats counts the degraded-information cases hit while resolving one
// transaction. They are aggregated in the run report so discrepancies stay
// auditable.
type ResolveStats struct {
	// MissingVinTx counts inputs whose prior transaction is not in the store.
	MissingVinTx int
	// SkippedVins counts coinbase inputs and inputs whose prior output has no
	// decodable address.
	SkippedVins int
	// SkippedVouts counts outputs with no decodable address.
	SkippedVouts int
}

// Resolve looks up every input of a raw transaction in the store and builds
// the resolved form the classifier consumes. Unresolvable inputs and outputs
// are skipped, not fatal: exotic script types and missing prior transactions
// are expected.
func Resolve(raw electrum.Transaction, store TxGetter) (Transaction, ResolveStats, error) {
	resolved := Transaction{
		TxID:      raw.TxID,
		Time:      time.Unix(raw.Time, 0).UTC(),
		VinCount:  len(raw.Vin),
		VoutCount: len(raw.Vout),
	}
	var stats ResolveStats

	for _, vin := range raw.Vin {
		if vin.TxID == "" {
			stats.SkippedVins++
			continue
		}
		prior, ok, err := store.Get(vin.TxID)
		if err != nil {
			return Transaction{}, stats, err
		}
		if !ok {
			stats.MissingVinTx++
			continue
		}
		if vin.Vout < 0 || vin.Vout >= len(prior.Vout) {
			stats.SkippedVins++
			continue
		}
		vout := prior.Vout[vin.Vout]
		if vout.ScriptPubKey.Address == "" {
			stats.SkippedVins++
			continue
		}
		resolved.Vin = append(resolved.Vin, Input{
			TxID:    vin.TxID,
			Vout:    vin.Vout,
			Amount:  vout.Value,
			Address: vout.ScriptPubKey.Address,
		})
	}

	for _, vout := range raw.Vout {
		if vout.ScriptPubKey.Address == "" {
			stats.SkippedVouts++
			continue
		}
		resolved.Vout = append(resolved.Vout, Output{
			Amount:  vout.Value,
			Address: vout.ScriptPubKey.Address,
		})
	}

	return resolved, stats, nil
}
