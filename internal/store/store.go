// Package store is the append-only event store backing the swap
// executor, grounded on the teacher's internal/storage/storage.go (WAL
// pragmas, single-writer connection pool, sync.RWMutex-guarded *sql.DB)
// and internal/storage/secrets.go's unique-constraint-to-sentinel-error
// translation. Unlike the teacher's internal/storage/swaps.go, which
// UPSERTs one row per swap, this store is INSERT-only: each event kind
// may be saved at most once per swap (invariant I1), enforced by a SQL
// UNIQUE constraint rather than application-level locking.
package store

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// Store wraps a SQLite database holding the swap event log, the swap
// identity and completion rows, orders and their swap links, and each
// swap's fixed parameters.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open opens (creating if needed) the SQLite database at path and applies
// the schema and pragmas the teacher's storage.New uses: WAL journaling,
// a busy timeout, and exactly one writer connection since sqlite3 permits
// only one writer at a time regardless of connection pool size.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// OpenMemory opens an in-memory database, useful for tests.
func OpenMemory() (*Store, error) {
	return Open("file::memory:?cache=shared")
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) initSchema() error {
	const schema = `
CREATE TABLE IF NOT EXISTS swap_events (
	swap_id    TEXT NOT NULL,
	kind       TEXT NOT NULL,
	payload    TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	UNIQUE(swap_id, kind)
);
CREATE INDEX IF NOT EXISTS idx_swap_events_swap_id ON swap_events(swap_id);

CREATE TABLE IF NOT EXISTS swaps (
	swap_id    TEXT PRIMARY KEY,
	role       TEXT NOT NULL,
	position   TEXT NOT NULL,
	order_id   TEXT,
	archived   INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS completed_swaps (
	swap_id      TEXT PRIMARY KEY,
	completed_on INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS orders (
	order_id    TEXT PRIMARY KEY,
	position    TEXT NOT NULL,
	btc_amount  TEXT NOT NULL,
	dai_amount  TEXT NOT NULL,
	state       TEXT NOT NULL,
	created_at  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS order_swaps (
	order_id TEXT NOT NULL,
	swap_id  TEXT NOT NULL,
	UNIQUE(order_id, swap_id)
);

CREATE TABLE IF NOT EXISTS swap_params (
	swap_id           TEXT PRIMARY KEY,
	secret_hash       TEXT NOT NULL,
	redeem_pubkey     TEXT NOT NULL,
	refund_pubkey     TEXT NOT NULL,
	redeem_addr       TEXT NOT NULL,
	refund_addr       TEXT NOT NULL,
	token_address     TEXT NOT NULL,
	hbit_amount_sats  INTEGER NOT NULL,
	herc20_amount_wei TEXT NOT NULL,
	hbit_expiry       INTEGER NOT NULL,
	herc20_expiry     INTEGER NOT NULL,
	bitcoin_network   TEXT NOT NULL,
	chain_id          INTEGER NOT NULL,
	gas_limit         TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS schema_migrations (
	id         INTEGER PRIMARY KEY,
	applied_at INTEGER NOT NULL
);
`
	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("store: init schema: %w", err)
	}
	return nil
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
