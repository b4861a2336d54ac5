package maker

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/klingon-exchange/swapmakerd/internal/order"
	"github.com/klingon-exchange/swapmakerd/internal/swapid"
)

func TestLoopUpdateBitcoinBalancePublishesSellOrder(t *testing.T) {
	l := NewLoop(newMaker(t))
	l.Start()
	defer l.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	pub, err := l.UpdateBitcoinBalance(ctx, big.NewInt(100_000_000))
	if err != nil {
		t.Fatalf("UpdateBitcoinBalance: %v", err)
	}
	if pub.Sell == nil {
		t.Fatalf("expected a sell order")
	}
}

func TestLoopProcessTakenOrderSerializesAgainstBalanceUpdate(t *testing.T) {
	l := NewLoop(newMaker(t))
	l.Start()
	defer l.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if _, err := l.UpdateBitcoinBalance(ctx, big.NewInt(200_000_000)); err != nil {
		t.Fatalf("UpdateBitcoinBalance: %v", err)
	}

	req := order.TakeRequest{
		OrderID:   swapid.New(),
		BtcAmount: big.NewInt(100_000_000),
		DaiAmount: bigFromString(t, "42000000000000000000000"),
	}
	decision, err := l.ProcessTakenOrder(ctx, req, swapid.PositionSell)
	if err != nil {
		t.Fatalf("ProcessTakenOrder: %v", err)
	}
	if decision != order.DecisionGoForSwap {
		t.Fatalf("expected go-for-swap, got %s", decision)
	}
}

func TestLoopStopDrainsNoFurtherCommands(t *testing.T) {
	l := NewLoop(newMaker(t))
	l.Start()
	l.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := l.UpdateBitcoinBalance(ctx, big.NewInt(1)); err == nil {
		t.Fatalf("expected error submitting to a stopped loop")
	}
}
