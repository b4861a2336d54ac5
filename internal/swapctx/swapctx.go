// Package swapctx holds the small, immutable identity row created at a
// swap's birth (SwapContext in spec section 3): who the counterparty is,
// which protocol runs on each side, and when the swap started. It is kept
// separate from the event-sourced executor state because none of these
// fields ever change once the swap exists.
package swapctx

import (
	"time"

	"github.com/libp2p/go-libp2p/core/peer"

	"github.com/klingon-exchange/swapmakerd/internal/swapid"
)

// Context is the immutable row recorded when a swap is created. The
// counterparty's peer.ID is carried as a value type only — this daemon's
// Non-goals exclude a libp2p transport, so nothing in the tree ever
// dials or listens using it; it exists purely as a stable identity the
// operator and event log can reference.
type Context struct {
	SwapID        swapid.ID
	Role          swapid.Role
	AlphaProtocol string // "hbit"
	BetaProtocol  string // "herc20"
	StartedAt     time.Time
	Counterparty  peer.ID
}

// New builds a swap's identity row at the moment it is accepted.
func New(id swapid.ID, role swapid.Role, counterparty peer.ID) Context {
	return Context{
		SwapID:        id,
		Role:          role,
		AlphaProtocol: "hbit",
		BetaProtocol:  "herc20",
		StartedAt:     time.Now(),
		Counterparty:  counterparty,
	}
}
