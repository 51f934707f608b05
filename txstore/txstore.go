// Package txstore caches fetched on-chain transactions in a local SQLite
// database, so repeated update runs only hit the Electrum server for
// transactions they have never seen.
package txstore

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/satsledger/satsledger/electrum"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS transactions (
		txid TEXT PRIMARY KEY,
		raw  TEXT NOT NULL
	)`,
	// The txids found on the wallet's own addresses, kept so an update run
	// can work entirely from the cache when the server is unreachable.
	`CREATE TABLE IF NOT EXISTS root_txids (
		txid TEXT PRIMARY KEY
	)`,
}

// Store is a durable cache of raw transactions keyed by txid.
type Store struct {
	db  *sql.DB
	log *zap.Logger
}

// Open opens (and if needed creates) the cache database at path.
func Open(path string, log *zap.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("could not open transaction cache %s: %w", path, err)
	}
	for _, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("could not migrate transaction cache: %w", err)
		}
	}
	return &Store{db: db, log: log}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// Put stores transactions, replacing any existing row with the same txid.
func (s *Store) Put(transactions []electrum.Transaction) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO transactions (txid, raw) VALUES (?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, transaction := range transactions {
		raw, err := json.Marshal(transaction)
		if err != nil {
			return fmt.Errorf("could not encode transaction %s: %w", transaction.TxID, err)
		}
		if _, err := stmt.Exec(transaction.TxID, string(raw)); err != nil {
			return fmt.Errorf("could not store transaction %s: %w", transaction.TxID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.log.Debug("stored transactions", zap.Int("count", len(transactions)))
	return nil
}

// Missing returns the subset of txids not present in the cache, input order
// preserved, duplicates dropped.
func (s *Store) Missing(txids []string) ([]string, error) {
	var missing []string
	seen := make(map[string]bool, len(txids))
	for _, txid := range txids {
		if seen[txid] {
			continue
		}
		seen[txid] = true
		var one int
		err := s.db.QueryRow(`SELECT 1 FROM transactions WHERE txid = ?`, txid).Scan(&one)
		switch {
		case err == sql.ErrNoRows:
			missing = append(missing, txid)
		case err != nil:
			return nil, fmt.Errorf("could not probe transaction cache: %w", err)
		}
	}
	return missing, nil
}

// Get returns the cached transaction with the given txid, reporting whether
// it was found.
func (s *Store) Get(txid string) (electrum.Transaction, bool, error) {
	var raw string
	err := s.db.QueryRow(`SELECT raw FROM transactions WHERE txid = ?`, txid).Scan(&raw)
	switch {
	case err == sql.ErrNoRows:
		return electrum.Transaction{}, false, nil
	case err != nil:
		return electrum.Transaction{}, false, fmt.Errorf("could not read transaction cache: %w", err)
	}
	var transaction electrum.Transaction
	if err := json.Unmarshal([]byte(raw), &transaction); err != nil {
		return electrum.Transaction{}, false, fmt.Errorf("corrupt cache entry %s: %w", txid, err)
	}
	return transaction, true, nil
}

// GetAll returns the cached transactions among txids, silently skipping the
// ones not in the cache.
func (s *Store) GetAll(txids []string) ([]electrum.Transaction, error) {
	transactions := make([]electrum.Transaction, 0, len(txids))
	seen := make(map[string]bool, len(txids))
	for _, txid := range txids {
		if seen[txid] {
			continue
		}
		seen[txid] = true
		transaction, ok, err := s.Get(txid)
		if err != nil {
			return nil, err
		}
		if ok {
			transactions = append(transactions, transaction)
		}
	}
	return transactions, nil
}

// PutRootTxIDs replaces the stored set of root txids.
func (s *Store) PutRootTxIDs(txids []string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM root_txids`); err != nil {
		return err
	}
	for _, txid := range txids {
		if _, err := tx.Exec(`INSERT OR IGNORE INTO root_txids (txid) VALUES (?)`, txid); err != nil {
			return fmt.Errorf("could not store root txid %s: %w", txid, err)
		}
	}
	return tx.Commit()
}

// RootTxIDs returns the stored root txids.
func (s *Store) RootTxIDs() ([]string, error) {
	rows, err := s.db.Query(`SELECT txid FROM root_txids ORDER BY txid`)
	if err != nil {
		return nil, fmt.Errorf("could not read root txids: %w", err)
	}
	defer rows.Close()

	var txids []string
	for rows.Next() {
		var txid string
		if err := rows.Scan(&txid); err != nil {
			return nil, err
		}
		txids = append(txids, txid)
	}
	return txids, rows.Err()
}

// Count returns the number of cached transactions.
func (s *Store) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM transactions`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
