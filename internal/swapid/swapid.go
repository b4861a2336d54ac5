// Package swapid defines the identifiers and small enums shared by every
// other package that talks about a swap: its id, which party we are, which
// side of the trade we took, and which ledger funds first.
package swapid

import (
	"database/sql/driver"
	"fmt"

	"github.com/google/uuid"
)

// ID uniquely identifies one atomic swap for the lifetime of the daemon.
type ID uuid.UUID

// New generates a fresh random swap id.
func New() ID {
	return ID(uuid.New())
}

// Parse parses a swap id from its canonical string form.
func Parse(s string) (ID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return ID{}, fmt.Errorf("parse swap id %q: %w", s, err)
	}
	return ID(u), nil
}

func (id ID) String() string { return uuid.UUID(id).String() }

// Value implements driver.Valuer so an ID can be written directly with
// database/sql.
func (id ID) Value() (driver.Value, error) { return id.String(), nil }

// Scan implements sql.Scanner.
func (id *ID) Scan(src interface{}) error {
	s, ok := src.(string)
	if !ok {
		return fmt.Errorf("swapid: cannot scan %T", src)
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// Role is which party in the two-party protocol we are playing: the party
// that chooses the secret, or the party that doesn't.
type Role string

const (
	RoleAlice Role = "alice" // chooses the secret
	RoleBob   Role = "bob"   // learns it by observing the redeem
)

// Position is which side of the BTC/DAI trade this swap settles for us.
type Position string

const (
	PositionBuy  Position = "buy"  // we receive BTC, pay DAI
	PositionSell Position = "sell" // we receive DAI, pay BTC
)

// Ledger names one of the two chains a swap touches.
type Ledger string

const (
	LedgerBitcoin  Ledger = "bitcoin"
	LedgerEthereum Ledger = "ethereum"
)

// AlphaBeta resolves which ledger is funded first (alpha, longer expiry)
// and which is funded second (beta, shorter expiry), per invariant I3: the
// alpha expiry must exceed the beta expiry by at least the configured
// safety margin, so the second funder can always refund before the first
// funder's HTLC expires. Alice always funds alpha: she is the party who
// chose the secret, so she is the only one who can unilaterally redeem
// once both sides are funded, and the protocol requires the first funder
// to hold the longer timelock. Which concrete ledger that is follows
// whichever side of the trade Alice is taking: a swap where Alice sells
// BTC commits Bitcoin first (hbit is alpha); a swap where Alice buys BTC
// commits DAI first (herc20 is alpha). position is always the caller's own
// side of the trade, so it only tells us Alice's side directly when role
// is RoleAlice; when role is RoleBob, Alice is taking the other side of
// the same trade.
func AlphaBeta(role Role, position Position) (alpha, beta Ledger) {
	aliceSellsBTC := position == PositionSell
	if role == RoleBob {
		aliceSellsBTC = position == PositionBuy
	}
	if aliceSellsBTC {
		return LedgerBitcoin, LedgerEthereum
	}
	return LedgerEthereum, LedgerBitcoin
}
