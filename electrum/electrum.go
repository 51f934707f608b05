// Package electrum implements a minimal client for the Electrum server
// protocol: newline-delimited JSON-RPC 2.0 over TCP, with batched requests
// correlated by id.
package electrum

import (
	"github.com/shopspring/decimal"
)

// Transaction is the verbose form of blockchain.transaction.get.
type Transaction struct {
	TxID string `json:"txid"`
	Hash string `json:"hash"`
	// Time is the block timestamp in Unix seconds; zero for unconfirmed
	// transactions.
	Time int64  `json:"time"`
	Vin  []Vin  `json:"vin"`
	Vout []Vout `json:"vout"`
}

// Vin references an output of a prior transaction. A coinbase input has no
// TxID.
type Vin struct {
	TxID     string `json:"txid"`
	Vout     int    `json:"vout"`
	Coinbase string `json:"coinbase,omitempty"`
}

// Vout is one output of a transaction. Value is in BTC, exact.
type Vout struct {
	Value        decimal.Decimal `json:"value"`
	N            int             `json:"n"`
	ScriptPubKey ScriptPubKey    `json:"scriptPubKey"`
}

// ScriptPubKey carries the decoded script of an output. Address is empty for
// script types the server cannot decode to an address.
type ScriptPubKey struct {
	Address string `json:"address"`
	Type    string `json:"type"`
}

// HistoryItem is one confirmed or mempool transaction touching a script hash.
type HistoryItem struct {
	Height int64  `json:"height"`
	TxHash string `json:"tx_hash"`
}
