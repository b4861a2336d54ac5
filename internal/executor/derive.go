package executor

import (
	"encoding/json"
	"fmt"

	"github.com/klingon-exchange/swapmakerd/internal/secret"
	"github.com/klingon-exchange/swapmakerd/internal/store"
	"github.com/klingon-exchange/swapmakerd/internal/swapid"
)

// Event kinds recorded in a swap's append-only log. Each names an
// observation (something the observer package saw on-chain), never an
// intent — the intent is re-derived by NextAction on every call.
const (
	EventHbitFunded     = "hbit-funded"
	EventHbitRedeemed   = "hbit-redeemed"
	EventHbitRefunded   = "hbit-refunded"
	EventHerc20Deployed = "herc20-deployed"
	EventHerc20Redeemed = "herc20-redeemed"
	EventHerc20Refunded = "herc20-refunded"
)

type redeemedPayload struct {
	Secret string `json:"secret"`
}

// Expiry carries the wall-clock facts NextAction needs but must never
// compute itself (invariant P6): whether each ledger's timelock has
// already passed, and whether it has entered the pre-expiry safety
// margin. The near-expiry facts are carried into SwapState; NextAction
// does not branch on them.
type Expiry struct {
	AlphaExpired    bool
	AlphaNearExpiry bool
	BetaExpired     bool
	BetaNearExpiry  bool
}

// Derive replays a swap's event log into the SwapState NextAction
// decides from, so that resuming a crashed daemon from the store reaches
// exactly the decision a continuously-running one would have (invariant
// P6). It never touches a clock itself; exp supplies every time-derived
// fact.
func Derive(meta store.SwapMeta, events []store.Event, exp Expiry) (SwapState, error) {
	s := SwapState{
		Role:     swapid.Role(meta.Role),
		Position: swapid.Position(meta.Position),
	}
	// Alice always funds alpha: she's the only party who can unilaterally
	// redeem once both ledgers are funded (she already knows the secret),
	// so she is the one who must commit first, with the longer timelock
	// (swapid.AlphaBeta, invariant I3).
	s.WeFundAlpha = s.Role == swapid.RoleAlice
	s.SecretKnown = s.Role == swapid.RoleAlice

	s.Alpha.Expired = exp.AlphaExpired
	s.Alpha.NearExpiry = exp.AlphaNearExpiry
	s.Beta.Expired = exp.BetaExpired
	s.Beta.NearExpiry = exp.BetaNearExpiry

	alphaLedger, _ := swapid.AlphaBeta(s.Role, s.Position)
	hbitIsAlpha := alphaLedger == swapid.LedgerBitcoin

	ledgerFor := func(hbitSide bool) *LedgerState {
		if hbitSide == hbitIsAlpha {
			return &s.Alpha
		}
		return &s.Beta
	}
	decodeRedeemed := func(hbitSide bool, raw string) error {
		ls := ledgerFor(hbitSide)
		ls.Redeemed = true
		s.SecretKnown = true
		var payload redeemedPayload
		if err := json.Unmarshal([]byte(raw), &payload); err != nil {
			return fmt.Errorf("executor: derive: decode redeemed payload: %w", err)
		}
		if payload.Secret != "" {
			sec, err := secret.ParseSecret(payload.Secret)
			if err != nil {
				return fmt.Errorf("executor: derive: decode revealed secret: %w", err)
			}
			s.Secret = sec
		}
		return nil
	}

	for _, ev := range events {
		switch ev.Kind {
		case EventHbitFunded:
			ledgerFor(true).Funded = true
		case EventHerc20Deployed:
			ledgerFor(false).Funded = true
		case EventHbitRefunded:
			ledgerFor(true).Refunded = true
		case EventHerc20Refunded:
			ledgerFor(false).Refunded = true
		case EventHbitRedeemed:
			if err := decodeRedeemed(true, ev.Payload); err != nil {
				return SwapState{}, err
			}
		case EventHerc20Redeemed:
			if err := decodeRedeemed(false, ev.Payload); err != nil {
				return SwapState{}, err
			}
		}
	}
	return s, nil
}
