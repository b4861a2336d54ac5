package executor

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/ethereum/go-ethereum/common"

	"github.com/klingon-exchange/swapmakerd/internal/actionjson"
	"github.com/klingon-exchange/swapmakerd/internal/hbit"
	"github.com/klingon-exchange/swapmakerd/internal/herc20"
	"github.com/klingon-exchange/swapmakerd/internal/secret"
	"github.com/klingon-exchange/swapmakerd/internal/store"
	"github.com/klingon-exchange/swapmakerd/internal/swapid"
)

type fakeSubmitter struct {
	calls []actionjson.Type
	txRef string
	err   error
}

func (f *fakeSubmitter) Submit(ctx context.Context, resp *actionjson.Response) (string, error) {
	f.calls = append(f.calls, resp.Type)
	if f.err != nil {
		return "", f.err
	}
	return f.txRef, nil
}

// fakeConfirmer reports every fact as immediately confirmed, standing in
// for a real observer.Confirmer so Driver tests don't need a live chain.
type fakeConfirmer struct{}

func (fakeConfirmer) AwaitAlphaFunded(ctx context.Context, p SwapParams) error { return nil }
func (fakeConfirmer) AwaitAlphaRedeemed(ctx context.Context, p SwapParams) (secret.Secret, error) {
	return secret.Secret{}, nil
}
func (fakeConfirmer) AwaitAlphaRefunded(ctx context.Context, p SwapParams) error { return nil }
func (fakeConfirmer) AwaitBetaFunded(ctx context.Context, p SwapParams) error    { return nil }
func (fakeConfirmer) AwaitBetaRedeemed(ctx context.Context, p SwapParams) (secret.Secret, error) {
	return secret.Secret{}, nil
}
func (fakeConfirmer) AwaitBetaRefunded(ctx context.Context, p SwapParams) error { return nil }

// testParams builds SwapParams for an Alice/Sell swap (alpha is hbit),
// matching the Role/Position every test in this file passes to CreateSwap.
func testParams(t *testing.T, amount int64, expiry int64) SwapParams {
	t.Helper()
	redeemKey := make([]byte, 33)
	redeemKey[0] = 0x02
	refundKey := make([]byte, 33)
	refundKey[0] = 0x03
	secretHash := secret.HashOf(secret.Secret{})

	return SwapParams{
		Role:     swapid.RoleAlice,
		Position: swapid.PositionSell,
		Hbit: hbit.Params{
			SecretHash:   secretHash,
			RedeemPubKey: redeemKey,
			RefundPubKey: refundKey,
			Expiry:       expiry,
			Amount:       amount,
			Network:      &chaincfg.RegressionNetParams,
		},
		Herc20: herc20.Params{
			SecretHash:   secretHash,
			RedeemAddr:   common.HexToAddress("0x1111111111111111111111111111111111111111"),
			RefundAddr:   common.HexToAddress("0x2222222222222222222222222222222222222222"),
			TokenAddress: common.HexToAddress("0x3333333333333333333333333333333333333333"),
			Amount:       big.NewInt(1),
			Expiry:       expiry,
		},
		ChainID:  1337,
		GasLimit: "100000",
	}
}

func TestDriverStepDispatchesFundAlphaAndRecordsEvent(t *testing.T) {
	st, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer st.Close()

	id := swapid.New()
	if err := st.CreateSwap(id, string(swapid.RoleAlice), string(swapid.PositionSell), nil); err != nil {
		t.Fatalf("CreateSwap: %v", err)
	}

	sub := &fakeSubmitter{txRef: "0xabc"}
	drv := NewDriver(st, testParams(t, 100000, time.Now().Add(time.Hour).Unix()), sub, fakeConfirmer{})

	action, err := drv.Step(context.Background(), id, time.Now())
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if action.Kind != KindFundAlpha {
		t.Fatalf("Step: got action %s, want %s", action.Kind, KindFundAlpha)
	}
	if len(sub.calls) != 1 || sub.calls[0] != actionjson.TypeBitcoinSendAmountToAddress {
		t.Fatalf("Step: unexpected submitter calls %+v", sub.calls)
	}

	has, err := st.HasEvent(id, EventHbitFunded)
	if err != nil {
		t.Fatalf("HasEvent: %v", err)
	}
	if !has {
		t.Fatalf("expected %s event to be recorded", EventHbitFunded)
	}
}

func TestDriverStepIsIdempotentAcrossRepeatedCalls(t *testing.T) {
	st, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer st.Close()

	id := swapid.New()
	if err := st.CreateSwap(id, string(swapid.RoleAlice), string(swapid.PositionSell), nil); err != nil {
		t.Fatalf("CreateSwap: %v", err)
	}

	sub := &fakeSubmitter{txRef: "0xabc"}
	drv := NewDriver(st, testParams(t, 100000, time.Now().Add(time.Hour).Unix()), sub, fakeConfirmer{})

	now := time.Now()
	if _, err := drv.Step(context.Background(), id, now); err != nil {
		t.Fatalf("first Step: %v", err)
	}
	// The first Step already confirmed and recorded the fund; a second Step
	// should see the already-stored event and move on to waiting rather
	// than dispatching fund-alpha again.
	action, err := drv.Step(context.Background(), id, now)
	if err != nil {
		t.Fatalf("second Step: %v", err)
	}
	if action.Kind != KindWait {
		t.Fatalf("second Step: got %s, want %s now that alpha is funded", action.Kind, KindWait)
	}
}

func TestDriverExecuteMarksSwapCompletedOnDone(t *testing.T) {
	st, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer st.Close()

	id := swapid.New()
	if err := st.CreateSwap(id, string(swapid.RoleAlice), string(swapid.PositionSell), nil); err != nil {
		t.Fatalf("CreateSwap: %v", err)
	}
	// An already-expired, never-funded swap: NextAction reaches Done on the
	// very first Step since we never funded our own ledger in time.
	past := time.Now().Add(-time.Hour).Unix()
	drv := NewDriver(st, testParams(t, 100000, past), &fakeSubmitter{}, fakeConfirmer{})
	drv.PollInterval = time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := drv.Execute(ctx, id); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	pending, err := st.PendingSwapIDs()
	if err != nil {
		t.Fatalf("PendingSwapIDs: %v", err)
	}
	for _, p := range pending {
		if p == id {
			t.Fatalf("expected swap to be marked completed, still pending")
		}
	}
}
