// Package satsledger reconciles heterogeneous transaction records (exchange
// CSV exports, on-chain transactions) into a single normalized ledger, and
// computes per-wallet, per-asset cost-basis lots using FIFO matching.
//
// The core pipeline is:
//   - Grouping: raw ledger entries are collapsed into economic events
//     (trade, transfer, singleton) by source group id or, for crypto
//     deposits/withdrawals, by an amount-matching heuristic.
//   - Balance building: grouped events are folded, in date order, into
//     per-wallet, per-asset FIFO queues of cost-basis lots. Trades propagate
//     acquisition rates so cost basis survives a chain of trades.
//   - History replay: the final lots are walked backward in time to
//     reconstruct a daily series of total holdings, cost basis and
//     bonus/interest income.
//   - Auditing: the residual error of the matching heuristic is measured and
//     checked against a configurable budget, so discrepancies stay visible.
//
// The core is purely sequential and performs no I/O. Collaborators feed it:
// CSV readers (see the kraken and ledn packages), the on-chain transaction
// classifier (package onchain) backed by an Electrum server (package
// electrum) and a local cache (package txstore). Entries persist as JSONL,
// keyed by their global (wallet, id) identity for idempotent merging.
//
// This package is the foundational logic for the `slg` command-line tool.
package satsledger
