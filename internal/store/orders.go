package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/klingon-exchange/swapmakerd/internal/swapid"
	"github.com/klingon-exchange/swapmakerd/internal/swaperr"
)

// OrderRow is the persisted form of an open or historical order.
type OrderRow struct {
	OrderID   swapid.ID
	Position  string // "buy" or "sell"
	BtcAmount string // decimal string, satoshi-precision
	DaiAmount string // decimal string, wei-precision
	State     string // "open", "settling", "closed", "cancelled", "failed"
	CreatedAt time.Time
}

// SaveOrder inserts a new order. Orders are replaced wholesale on
// republication (the maker cancels then recreates), so unlike swap events
// this is not append-only.
func (s *Store) SaveOrder(o OrderRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	createdAt := o.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := s.db.Exec(
		`INSERT INTO orders (order_id, position, btc_amount, dai_amount, state, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		o.OrderID.String(), o.Position, o.BtcAmount, o.DaiAmount, o.State, createdAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("store: save order: %w", err)
	}
	return nil
}

// UpdateOrderState transitions an order's state (invariant I4).
func (s *Store) UpdateOrderState(id swapid.ID, state string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.Exec(`UPDATE orders SET state = ? WHERE order_id = ?`, state, id.String())
	if err != nil {
		return fmt.Errorf("store: update order state: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return swaperr.ErrOrderNotFound
	}
	return nil
}

// Order fetches one order by id.
func (s *Store) Order(id swapid.ID) (*OrderRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var o OrderRow
	var orderIDStr string
	var createdAt int64
	err := s.db.QueryRow(
		`SELECT order_id, position, btc_amount, dai_amount, state, created_at FROM orders WHERE order_id = ?`,
		id.String(),
	).Scan(&orderIDStr, &o.Position, &o.BtcAmount, &o.DaiAmount, &o.State, &createdAt)
	if err == sql.ErrNoRows {
		return nil, swaperr.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: order: %w", err)
	}
	parsed, err := swapid.Parse(orderIDStr)
	if err != nil {
		return nil, fmt.Errorf("store: order: %w", err)
	}
	o.OrderID = parsed
	o.CreatedAt = time.Unix(createdAt, 0)
	return &o, nil
}

// OpenOrders returns every order currently in the "open" state.
func (s *Store) OpenOrders() ([]OrderRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		`SELECT order_id, position, btc_amount, dai_amount, state, created_at FROM orders WHERE state = 'open'`,
	)
	if err != nil {
		return nil, fmt.Errorf("store: open orders: %w", err)
	}
	defer rows.Close()

	var out []OrderRow
	for rows.Next() {
		var o OrderRow
		var orderIDStr string
		var createdAt int64
		if err := rows.Scan(&orderIDStr, &o.Position, &o.BtcAmount, &o.DaiAmount, &o.State, &createdAt); err != nil {
			return nil, fmt.Errorf("store: open orders: %w", err)
		}
		parsed, err := swapid.Parse(orderIDStr)
		if err != nil {
			return nil, fmt.Errorf("store: open orders: %w", err)
		}
		o.OrderID = parsed
		o.CreatedAt = time.Unix(createdAt, 0)
		out = append(out, o)
	}
	return out, rows.Err()
}

// LinkSwapToOrder records that a swap was spawned to settle an order
// (invariant on Order.TakenBy, 1:1 order-to-swap per take).
func (s *Store) LinkSwapToOrder(orderID, swapID swapid.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO order_swaps (order_id, swap_id) VALUES (?, ?)`,
		orderID.String(), swapID.String(),
	)
	if err != nil {
		return fmt.Errorf("store: link swap to order: %w", err)
	}
	return nil
}
