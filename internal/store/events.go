package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/klingon-exchange/swapmakerd/internal/swapid"
	"github.com/klingon-exchange/swapmakerd/internal/swaperr"
)

// Event is one append-only row of a swap's history: the kind names which
// observation or action it records (e.g. "hbit-funded", "herc20-deployed",
// "secret-revealed"), and payload is its JSON-encoded detail.
type Event struct {
	SwapID    swapid.ID
	Kind      string
	Payload   string
	CreatedAt time.Time
}

// SaveEvent appends an event to a swap's history. If an event of the same
// kind already exists for this swap, it returns swaperr.ErrAlreadyStored
// without modifying the existing row, per invariant I1.
func (s *Store) SaveEvent(ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	createdAt := ev.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := s.db.Exec(
		`INSERT INTO swap_events (swap_id, kind, payload, created_at) VALUES (?, ?, ?, ?)`,
		ev.SwapID.String(), ev.Kind, ev.Payload, createdAt.Unix(),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return swaperr.ErrAlreadyStored
		}
		return fmt.Errorf("store: save event: %w", err)
	}
	return nil
}

// Events returns every event recorded for a swap, oldest first.
func (s *Store) Events(id swapid.ID) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		`SELECT swap_id, kind, payload, created_at FROM swap_events WHERE swap_id = ? ORDER BY created_at ASC`,
		id.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("store: list events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var swapIDStr string
		var createdAt int64
		if err := rows.Scan(&swapIDStr, &e.Kind, &e.Payload, &createdAt); err != nil {
			return nil, fmt.Errorf("store: scan event: %w", err)
		}
		parsed, err := swapid.Parse(swapIDStr)
		if err != nil {
			return nil, fmt.Errorf("store: scan event: %w", err)
		}
		e.SwapID = parsed
		e.CreatedAt = time.Unix(createdAt, 0)
		events = append(events, e)
	}
	return events, rows.Err()
}

// HasEvent reports whether an event of the given kind has already been
// saved for a swap.
func (s *Store) HasEvent(id swapid.ID, kind string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM swap_events WHERE swap_id = ? AND kind = ?`,
		id.String(), kind,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("store: has event: %w", err)
	}
	return n > 0, nil
}

// CreateSwap registers a new swap's static identity row. It is separate
// from the event log because role/position/order association never
// change once a swap starts, unlike the event-sourced state.
func (s *Store) CreateSwap(id swapid.ID, role, position string, orderID *swapid.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var orderIDStr interface{}
	if orderID != nil {
		orderIDStr = orderID.String()
	}

	_, err := s.db.Exec(
		`INSERT INTO swaps (swap_id, role, position, order_id, created_at) VALUES (?, ?, ?, ?, ?)`,
		id.String(), role, position, orderIDStr, time.Now().Unix(),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("store: create swap: %w", swaperr.ErrAlreadyStored)
		}
		return fmt.Errorf("store: create swap: %w", err)
	}
	return nil
}

// SwapMeta is the static identity of a registered swap.
type SwapMeta struct {
	SwapID   swapid.ID
	Role     string
	Position string
	OrderID  *swapid.ID
	Archived bool
}

// SwapMeta fetches a swap's static identity row.
func (s *Store) SwapMeta(id swapid.ID) (*SwapMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var m SwapMeta
	var swapIDStr string
	var orderID sql.NullString
	var archived int
	err := s.db.QueryRow(
		`SELECT swap_id, role, position, order_id, archived FROM swaps WHERE swap_id = ?`,
		id.String(),
	).Scan(&swapIDStr, &m.Role, &m.Position, &orderID, &archived)
	if err == sql.ErrNoRows {
		return nil, swaperr.ErrSwapNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: swap meta: %w", err)
	}
	parsed, err := swapid.Parse(swapIDStr)
	if err != nil {
		return nil, fmt.Errorf("store: swap meta: %w", err)
	}
	m.SwapID = parsed
	m.Archived = archived != 0
	if orderID.Valid {
		oid, err := swapid.Parse(orderID.String)
		if err == nil {
			m.OrderID = &oid
		}
	}
	return &m, nil
}

// PendingSwapIDs returns every non-archived, non-completed swap, used on
// startup to resume in-flight swaps (spec section 4.4 crash recovery).
func (s *Store) PendingSwapIDs() ([]swapid.ID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT swap_id FROM swaps
		WHERE archived = 0 AND swap_id NOT IN (SELECT swap_id FROM completed_swaps)
	`)
	if err != nil {
		return nil, fmt.Errorf("store: pending swaps: %w", err)
	}
	defer rows.Close()

	var ids []swapid.ID
	for rows.Next() {
		var idStr string
		if err := rows.Scan(&idStr); err != nil {
			return nil, fmt.Errorf("store: pending swaps: %w", err)
		}
		parsed, err := swapid.Parse(idStr)
		if err != nil {
			return nil, fmt.Errorf("store: pending swaps: %w", err)
		}
		ids = append(ids, parsed)
	}
	return ids, rows.Err()
}

// MarkCompleted records that a swap finished (closed, failed, or
// refunded), removing it from PendingSwapIDs.
func (s *Store) MarkCompleted(id swapid.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO completed_swaps (swap_id, completed_on) VALUES (?, ?)`,
		id.String(), time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("store: mark completed: %w", err)
	}
	return nil
}

// Archive flags a completed swap so it is dropped from resume scans
// entirely, per the "archive-swap" CLI subcommand.
func (s *Store) Archive(id swapid.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.Exec(`UPDATE swaps SET archived = 1 WHERE swap_id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("store: archive: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return swaperr.ErrSwapNotFound
	}
	return nil
}
