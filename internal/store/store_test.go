package store

import (
	"errors"
	"testing"

	"github.com/klingon-exchange/swapmakerd/internal/swapid"
	"github.com/klingon-exchange/swapmakerd/internal/swaperr"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir() + "/swapmakerd_test.db")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveEventRejectsDuplicateKind(t *testing.T) {
	s := newTestStore(t)
	id := swapid.New()

	if err := s.CreateSwap(id, "alice", "sell", nil); err != nil {
		t.Fatalf("CreateSwap: %v", err)
	}
	if err := s.SaveEvent(Event{SwapID: id, Kind: "hbit-funded", Payload: "{}"}); err != nil {
		t.Fatalf("SaveEvent: %v", err)
	}
	err := s.SaveEvent(Event{SwapID: id, Kind: "hbit-funded", Payload: "{}"})
	if !errors.Is(err, swaperr.ErrAlreadyStored) {
		t.Fatalf("SaveEvent: expected ErrAlreadyStored, got %v", err)
	}
}

func TestSaveEventAllowsDifferentKinds(t *testing.T) {
	s := newTestStore(t)
	id := swapid.New()
	_ = s.CreateSwap(id, "bob", "buy", nil)

	if err := s.SaveEvent(Event{SwapID: id, Kind: "hbit-funded", Payload: "{}"}); err != nil {
		t.Fatalf("SaveEvent(hbit-funded): %v", err)
	}
	if err := s.SaveEvent(Event{SwapID: id, Kind: "herc20-deployed", Payload: "{}"}); err != nil {
		t.Fatalf("SaveEvent(herc20-deployed): %v", err)
	}

	events, err := s.Events(id)
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("Events: expected 2, got %d", len(events))
	}
}

func TestPendingSwapIDsExcludesCompletedAndArchived(t *testing.T) {
	s := newTestStore(t)
	pending := swapid.New()
	completed := swapid.New()
	archived := swapid.New()

	for _, id := range []swapid.ID{pending, completed, archived} {
		if err := s.CreateSwap(id, "alice", "sell", nil); err != nil {
			t.Fatalf("CreateSwap: %v", err)
		}
	}
	if err := s.MarkCompleted(completed); err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}
	if err := s.Archive(archived); err != nil {
		t.Fatalf("Archive: %v", err)
	}

	ids, err := s.PendingSwapIDs()
	if err != nil {
		t.Fatalf("PendingSwapIDs: %v", err)
	}
	if len(ids) != 1 || ids[0] != pending {
		t.Fatalf("PendingSwapIDs: expected only %s, got %v", pending, ids)
	}
}

func TestSwapMetaNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.SwapMeta(swapid.New())
	if !errors.Is(err, swaperr.ErrSwapNotFound) {
		t.Fatalf("SwapMeta: expected ErrSwapNotFound, got %v", err)
	}
}

func TestSwapParamsRoundTrips(t *testing.T) {
	s := newTestStore(t)
	id := swapid.New()

	row := SwapParamsRow{
		SwapID:          id,
		SecretHashHex:   "aa00000000000000000000000000000000000000000000000000000000000a",
		RedeemPubKey:    "02" + "00000000000000000000000000000000000000000000000000000000000001",
		RefundPubKey:    "03" + "00000000000000000000000000000000000000000000000000000000000002",
		RedeemAddr:      "0x1111111111111111111111111111111111111111",
		RefundAddr:      "0x2222222222222222222222222222222222222222",
		TokenAddress:    "0x3333333333333333333333333333333333333333",
		HbitAmountSats:  100000,
		Herc20AmountWei: "5000000000000000000",
		HbitExpiry:      1000,
		Herc20Expiry:    2000,
		BitcoinNetwork:  "regtest",
		ChainID:         1337,
		GasLimit:        "100000",
	}
	if err := s.SaveSwapParams(row); err != nil {
		t.Fatalf("SaveSwapParams: %v", err)
	}

	got, err := s.SwapParams(id)
	if err != nil {
		t.Fatalf("SwapParams: %v", err)
	}
	if got.HbitAmountSats != row.HbitAmountSats || got.Herc20AmountWei != row.Herc20AmountWei {
		t.Fatalf("SwapParams: amounts did not round-trip, got %+v", got)
	}
	if got.ChainID != row.ChainID || got.GasLimit != row.GasLimit {
		t.Fatalf("SwapParams: chain fields did not round-trip, got %+v", got)
	}
}

func TestSwapParamsNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.SwapParams(swapid.New())
	if !errors.Is(err, swaperr.ErrSwapNotFound) {
		t.Fatalf("SwapParams: expected ErrSwapNotFound, got %v", err)
	}
}

func TestOrderLifecycle(t *testing.T) {
	s := newTestStore(t)
	id := swapid.New()

	if err := s.SaveOrder(OrderRow{OrderID: id, Position: "sell", BtcAmount: "100000", DaiAmount: "5000000000000000000", State: "open"}); err != nil {
		t.Fatalf("SaveOrder: %v", err)
	}

	open, err := s.OpenOrders()
	if err != nil || len(open) != 1 {
		t.Fatalf("OpenOrders: expected 1 open order, got %d (err=%v)", len(open), err)
	}

	if err := s.UpdateOrderState(id, "settling"); err != nil {
		t.Fatalf("UpdateOrderState: %v", err)
	}
	open, err = s.OpenOrders()
	if err != nil || len(open) != 0 {
		t.Fatalf("OpenOrders: expected 0 after settling, got %d (err=%v)", len(open), err)
	}
}
