package rate

import (
	"math/big"
	"testing"
)

func TestFromAmountsRoundTrip(t *testing.T) {
	sats := big.NewInt(100_000_000) // 1 BTC
	wei := new(big.Int)
	wei.SetString("42000000000000000000000", 10) // 42000 DAI in wei

	rt, err := FromAmounts(sats, wei)
	if err != nil {
		t.Fatalf("FromAmounts: %v", err)
	}

	want, _ := New("42000")
	if rt.Cmp(want) != 0 {
		t.Fatalf("FromAmounts: expected rate 42000, got %s", rt)
	}
}

func TestDaiForBtcAndBack(t *testing.T) {
	rt, err := New("42000")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	sats := big.NewInt(50_000_000) // 0.5 BTC
	dai := rt.DaiForBtc(sats)

	want := new(big.Int)
	want.SetString("21000000000000000000000", 10) // 21000 DAI in wei
	if dai.Cmp(want) != 0 {
		t.Fatalf("DaiForBtc: expected %s, got %s", want, dai)
	}

	back := rt.BtcForDai(dai)
	if back.Cmp(sats) != 0 {
		t.Fatalf("BtcForDai: expected %s, got %s", sats, back)
	}
}

func TestWorseThanForSellAndBuy(t *testing.T) {
	min, _ := New("40000")
	lower, _ := New("39000")
	higher, _ := New("41000")

	if !lower.WorseThan(min, true) {
		t.Fatalf("WorseThan(sell): expected lower rate to be worse for a seller")
	}
	if higher.WorseThan(min, true) {
		t.Fatalf("WorseThan(sell): expected higher rate to be better for a seller")
	}
	if !higher.WorseThan(min, false) {
		t.Fatalf("WorseThan(buy): expected higher rate to be worse for a buyer")
	}
	if lower.WorseThan(min, false) {
		t.Fatalf("WorseThan(buy): expected lower rate to be better for a buyer")
	}
}

func TestNewRejectsNonPositive(t *testing.T) {
	if _, err := New("0"); err == nil {
		t.Fatalf("New: expected error for zero rate")
	}
	if _, err := New("-1"); err == nil {
		t.Fatalf("New: expected error for negative rate")
	}
}
