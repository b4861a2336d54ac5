package executor

import (
	"testing"

	"github.com/klingon-exchange/swapmakerd/internal/swapid"
)

func TestNextActionFundsOurLedgerFirst(t *testing.T) {
	s := SwapState{Role: swapid.RoleAlice, WeFundAlpha: true}
	got := NextAction(s)
	if got.Kind != KindFundAlpha {
		t.Fatalf("NextAction: got %s, want %s", got.Kind, KindFundAlpha)
	}

	s.WeFundAlpha = false
	got = NextAction(s)
	if got.Kind != KindFundBeta {
		t.Fatalf("NextAction: got %s, want %s", got.Kind, KindFundBeta)
	}
}

func TestNextActionDoneIfOurLedgerExpiredBeforeWeFund(t *testing.T) {
	s := SwapState{Role: swapid.RoleAlice, WeFundAlpha: true, Alpha: LedgerState{Expired: true}}
	got := NextAction(s)
	if got.Kind != KindDone {
		t.Fatalf("NextAction: got %s, want %s", got.Kind, KindDone)
	}
}

func TestNextActionRefundsWhenCounterpartyNeverFunds(t *testing.T) {
	s := SwapState{
		Role:        swapid.RoleAlice,
		WeFundAlpha: true,
		Alpha:       LedgerState{Funded: true, Expired: true},
	}
	got := NextAction(s)
	if got.Kind != KindRefundAlpha {
		t.Fatalf("NextAction: got %s, want %s", got.Kind, KindRefundAlpha)
	}
}

func TestNextActionWaitsWhileWithinWindow(t *testing.T) {
	s := SwapState{
		Role:        swapid.RoleAlice,
		WeFundAlpha: true,
		Alpha:       LedgerState{Funded: true},
	}
	got := NextAction(s)
	if got.Kind != KindWait {
		t.Fatalf("NextAction: got %s, want %s", got.Kind, KindWait)
	}
}

func TestNextActionAliceRedeemsAssoonAsBothFunded(t *testing.T) {
	// Alice funds alpha (Bitcoin); she redeems beta, the ledger Bob funded.
	s := SwapState{
		Role:        swapid.RoleAlice,
		WeFundAlpha: true,
		Alpha:       LedgerState{Funded: true},
		Beta:        LedgerState{Funded: true},
	}
	got := NextAction(s)
	if got.Kind != KindRedeemBeta {
		t.Fatalf("NextAction: got %s, want %s", got.Kind, KindRedeemBeta)
	}
}

func TestNextActionBobWaitsUntilSecretKnown(t *testing.T) {
	// Bob funds beta (DAI); he redeems alpha, but only once he has
	// observed the secret from Alice's redeem.
	s := SwapState{
		Role:        swapid.RoleBob,
		WeFundAlpha: false,
		Alpha:       LedgerState{Funded: true},
		Beta:        LedgerState{Funded: true},
		SecretKnown: false,
	}
	got := NextAction(s)
	if got.Kind != KindWait {
		t.Fatalf("NextAction: got %s, want %s", got.Kind, KindWait)
	}

	s.SecretKnown = true
	got = NextAction(s)
	if got.Kind != KindRedeemAlpha {
		t.Fatalf("NextAction: got %s, want %s", got.Kind, KindRedeemAlpha)
	}
}

func TestNextActionBobRefundsOwnFundedLedgerIfSecretNeverArrives(t *testing.T) {
	s := SwapState{
		Role:        swapid.RoleBob,
		WeFundAlpha: false,
		Alpha:       LedgerState{Funded: true},
		Beta:        LedgerState{Funded: true, Expired: true},
		SecretKnown: false,
	}
	got := NextAction(s)
	if got.Kind != KindRefundBeta {
		t.Fatalf("NextAction: got %s, want %s", got.Kind, KindRefundBeta)
	}
}

func TestNextActionDoneOnceRedeemed(t *testing.T) {
	s := SwapState{
		Role:        swapid.RoleAlice,
		WeFundAlpha: true,
		Alpha:       LedgerState{Funded: true},
		Beta:        LedgerState{Funded: true, Redeemed: true},
	}
	got := NextAction(s)
	if got.Kind != KindDone {
		t.Fatalf("NextAction: got %s, want %s", got.Kind, KindDone)
	}
}

// Resumption must be idempotent: calling NextAction twice on the same
// derived state (as happens when the daemon restarts mid-swap and
// rebuilds SwapState from the event log) must return the same action.
func TestNextActionIsIdempotentOnRepeatedCalls(t *testing.T) {
	states := []SwapState{
		{Role: swapid.RoleAlice, WeFundAlpha: true},
		{Role: swapid.RoleBob, WeFundAlpha: false, Alpha: LedgerState{Funded: true}, Beta: LedgerState{Funded: true}},
		{Role: swapid.RoleBob, WeFundAlpha: true, Alpha: LedgerState{Funded: true, Expired: true}},
	}
	for i, s := range states {
		a := NextAction(s)
		b := NextAction(s)
		if a.Kind != b.Kind {
			t.Fatalf("case %d: NextAction not idempotent: %s != %s", i, a.Kind, b.Kind)
		}
	}
}

func TestAllRolePositionCombinationsTerminate(t *testing.T) {
	roles := []swapid.Role{swapid.RoleAlice, swapid.RoleBob}
	positions := []swapid.Position{swapid.PositionBuy, swapid.PositionSell}
	for _, r := range roles {
		for _, p := range positions {
			for _, weFundAlpha := range []bool{true, false} {
				s := SwapState{
					Role:        r,
					Position:    p,
					WeFundAlpha: weFundAlpha,
					Alpha:       LedgerState{Funded: true, Redeemed: true},
					Beta:        LedgerState{Funded: true, Redeemed: true},
					SecretKnown: true,
				}
				got := NextAction(s)
				if got.Kind != KindDone {
					t.Fatalf("role=%s position=%s weFundAlpha=%v: got %s, want done", r, p, weFundAlpha, got.Kind)
				}
			}
		}
	}
}
