// Package order holds the Order type of spec section 3 and the order
// lifecycle state machine of invariant I4. The order-to-swap link is a
// store table (store.LinkSwapToOrder), not a type here.
package order

import (
	"fmt"
	"math/big"

	"github.com/klingon-exchange/swapmakerd/internal/rate"
	"github.com/klingon-exchange/swapmakerd/internal/secret"
	"github.com/klingon-exchange/swapmakerd/internal/swapid"
)

// State is an order's position in its lifecycle.
type State string

const (
	StateOpen      State = "open"
	StateSettling  State = "settling"
	StateClosed    State = "closed"
	StateCancelled State = "cancelled"
	StateFailed    State = "failed"
)

// transitions enumerates the only legal state moves (invariant I4):
// Open -> {Settling, Cancelled}, Settling -> {Closed, Failed}.
var transitions = map[State]map[State]bool{
	StateOpen:     {StateSettling: true, StateCancelled: true},
	StateSettling: {StateClosed: true, StateFailed: true},
}

// CanTransition reports whether moving from `from` to `to` is legal.
func CanTransition(from, to State) bool {
	return transitions[from][to]
}

// Order is a standing offer to trade BTC for DAI (or vice versa) at a
// given rate and size.
type Order struct {
	OrderID   swapid.ID
	Position  swapid.Position
	BtcAmount *big.Int // satoshis
	DaiAmount *big.Int // wei
	Rate      rate.Rate
	State     State
}

// Transition moves the order to a new state, returning an error if the
// move is not legal from the current state.
func (o *Order) Transition(to State) error {
	if !CanTransition(o.State, to) {
		return fmt.Errorf("order: illegal transition %s -> %s", o.State, to)
	}
	o.State = to
	return nil
}

// TakeRequest is a counterparty's request to take an open order, possibly
// at a partial size, carrying the key material needed to build the swap's
// HTLC parameters if the maker goes ahead with it.
type TakeRequest struct {
	OrderID   swapid.ID
	BtcAmount *big.Int
	DaiAmount *big.Int

	// SecretHash is the HTLC secret hash the taker (always Alice, the
	// secret-chooser) generated for this swap.
	SecretHash secret.Hash
	// CounterpartyHbitPubKey is the compressed secp256k1 key the
	// counterparty will redeem or refund the Bitcoin leg with, whichever
	// role swapid.AlphaBeta assigns them for this swap.
	CounterpartyHbitPubKey []byte
	// CounterpartyHerc20Addr is the 0x-prefixed EVM address the
	// counterparty will redeem or refund the Ethereum leg with.
	CounterpartyHerc20Addr string
	// CounterpartyPeerID identifies who is taking the order, for the
	// swap's in-memory swapctx.Context.
	CounterpartyPeerID string
}

// Decision is the maker's verdict on a take request.
type Decision string

const (
	DecisionGoForSwap           Decision = "go-for-swap"
	DecisionRateNotProfitable   Decision = "rate-not-profitable"
	DecisionInsufficientFunds   Decision = "insufficient-funds"
)
