package executor

import (
	"testing"

	"github.com/klingon-exchange/swapmakerd/internal/secret"
	"github.com/klingon-exchange/swapmakerd/internal/store"
	"github.com/klingon-exchange/swapmakerd/internal/swapid"
)

func TestDeriveAppliesEventsInOrder(t *testing.T) {
	meta := store.SwapMeta{Role: string(swapid.RoleBob), Position: string(swapid.PositionBuy)}
	events := []store.Event{
		{Kind: EventHbitFunded},
		{Kind: EventHerc20Deployed},
	}

	state, err := Derive(meta, events, Expiry{})
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	if !state.Alpha.Funded || !state.Beta.Funded {
		t.Fatalf("expected both ledgers funded, got %+v", state)
	}
	if state.SecretKnown {
		t.Fatalf("bob should not know the secret before observing redeem")
	}
	if state.WeFundAlpha {
		t.Fatalf("bob should fund beta, not alpha")
	}
}

func TestDeriveDecodesRevealedSecret(t *testing.T) {
	preimage, err := secret.Generate()
	if err != nil {
		t.Fatalf("generate secret: %v", err)
	}
	meta := store.SwapMeta{Role: string(swapid.RoleAlice), Position: string(swapid.PositionSell)}
	events := []store.Event{
		{Kind: EventHerc20Redeemed, Payload: `{"secret":"` + preimage.String() + `"}`},
	}

	state, err := Derive(meta, events, Expiry{})
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	if !state.SecretKnown {
		t.Fatalf("expected SecretKnown after observing herc20 redeem")
	}
	if state.Secret != preimage {
		t.Fatalf("expected decoded secret %s, got %s", preimage, state.Secret)
	}
	if !state.WeFundAlpha {
		t.Fatalf("alice should fund alpha")
	}
}

func TestDeriveAliceAlwaysKnowsSecret(t *testing.T) {
	meta := store.SwapMeta{Role: string(swapid.RoleAlice), Position: string(swapid.PositionSell)}

	state, err := Derive(meta, nil, Expiry{})
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	if !state.SecretKnown {
		t.Fatalf("alice should know the secret from the start")
	}
}

func TestDeriveAppliesExpiryInputsVerbatim(t *testing.T) {
	meta := store.SwapMeta{Role: string(swapid.RoleAlice), Position: string(swapid.PositionBuy)}
	exp := Expiry{AlphaExpired: true, BetaNearExpiry: true}

	state, err := Derive(meta, nil, exp)
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	if !state.Alpha.Expired || !state.Beta.NearExpiry {
		t.Fatalf("expected expiry facts passed through, got %+v", state)
	}
	if state.Alpha.NearExpiry || state.Beta.Expired {
		t.Fatalf("expected unset expiry facts to stay false, got %+v", state)
	}
}
