// Package executor implements the swap state machine: a pure
// NextAction(state) function over the swap's event log and clocks, plus a
// thin Execute driver that polls observers and appends events, following
// the dispatch style of the teacher's internal/swap/coordinator.go (a
// struct holding the event log and a method per concern) generalized to
// the spec's event-sourced, resumable model.
package executor

import (
	"github.com/klingon-exchange/swapmakerd/internal/secret"
	"github.com/klingon-exchange/swapmakerd/internal/swapid"
)

// LedgerState is what the executor currently knows about one side (alpha
// or beta) of a swap.
type LedgerState struct {
	Funded   bool
	Redeemed bool
	Refunded bool
	Expired  bool // true once the ledger's clock has passed its expiry
	NearExpiry bool // true once the safety margin before expiry has been entered
}

// SwapState is the full state the executor's NextAction decides from. It
// is derived fresh from the event log on every call (invariant P6:
// resuming from the log must reach the same decision as running live).
type SwapState struct {
	Role         swapid.Role
	Position     swapid.Position
	Alpha        LedgerState // the ledger funded first; concretely hbit or herc20 depending on Role and Position (swapid.AlphaBeta)
	Beta         LedgerState // the ledger funded second
	SecretKnown  bool        // true for Alice always; true for Bob once observed
	Secret       secret.Secret
	WeFundAlpha  bool // true for Alice always: she must commit first, with the longer timelock
}

// WeFundBeta is the complement of WeFundAlpha: exactly one party funds
// each ledger.
func (s SwapState) WeFundBeta() bool { return !s.WeFundAlpha }

// Both parties redeem whichever ledger the *other* party funded, since
// that is the one locked in their favor; the only role-dependent
// difference is that Alice chooses the secret and may redeem as soon as
// both ledgers are funded, while Bob must first observe the secret
// revealed by Alice's redeem transaction before he can redeem his side.
