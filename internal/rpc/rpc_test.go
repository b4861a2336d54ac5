package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/klingon-exchange/swapmakerd/internal/maker"
	"github.com/klingon-exchange/swapmakerd/internal/order"
	"github.com/klingon-exchange/swapmakerd/internal/rate"
	"github.com/klingon-exchange/swapmakerd/internal/store"
	"github.com/klingon-exchange/swapmakerd/internal/swapid"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	st, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	min, _ := rate.New("40000")
	market, _ := rate.New("42000")
	mk := maker.New(maker.Config{MinSpread: min, CurrentMarket: market})

	return NewServer(st, mk)
}

func TestHandleRPCUnknownMethodReturnsMethodNotFound(t *testing.T) {
	s := newTestServer(t)

	req := Request{JSONRPC: "2.0", Method: "nonexistent", ID: 1}
	body, _ := json.Marshal(req)

	w := httptest.NewRecorder()
	r := httptest.NewRequest("POST", "/", bytes.NewReader(body))
	s.handleRPC(w, r)

	var resp Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Error == nil || resp.Error.Code != MethodNotFound {
		t.Fatalf("expected MethodNotFound, got %+v", resp.Error)
	}
}

func TestHandleRPCBalancesReturnsCurrentMakerBalances(t *testing.T) {
	s := newTestServer(t)

	req := Request{JSONRPC: "2.0", Method: "balances", ID: 1}
	body, _ := json.Marshal(req)

	w := httptest.NewRecorder()
	r := httptest.NewRequest("POST", "/", bytes.NewReader(body))
	s.handleRPC(w, r)

	var resp Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
}

func TestHandleRPCRejectsWrongJSONRPCVersion(t *testing.T) {
	s := newTestServer(t)

	req := Request{JSONRPC: "1.0", Method: "balances", ID: 1}
	body, _ := json.Marshal(req)

	w := httptest.NewRecorder()
	r := httptest.NewRequest("POST", "/", bytes.NewReader(body))
	s.handleRPC(w, r)

	var resp Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Error == nil || resp.Error.Code != InvalidRequest {
		t.Fatalf("expected InvalidRequest, got %+v", resp.Error)
	}
}

func TestHandleRPCTakeOrderRejectedWithoutHandler(t *testing.T) {
	s := newTestServer(t)

	req := Request{JSONRPC: "2.0", Method: "take_order", ID: 1, Params: json.RawMessage(`{"order_id":"x"}`)}
	body, _ := json.Marshal(req)

	w := httptest.NewRecorder()
	r := httptest.NewRequest("POST", "/", bytes.NewReader(body))
	s.handleRPC(w, r)

	var resp Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Error == nil {
		t.Fatalf("expected an error before SetTakeOrderHandler is called")
	}
}

func TestHandleRPCTakeOrderDispatchesToHandler(t *testing.T) {
	s := newTestServer(t)

	var gotOrderID string
	s.SetTakeOrderHandler(func(ctx context.Context, req order.TakeRequest) (*swapid.ID, order.Decision, error) {
		gotOrderID = req.OrderID.String()
		return nil, order.DecisionInsufficientFunds, nil
	})

	id := swapid.New()
	params, _ := json.Marshal(map[string]string{
		"order_id":   id.String(),
		"btc_amount": "100000000",
		"dai_amount": "4200000000000000000000",
		"secret_hash": "0000000000000000000000000000000000000000000000000000000000000000",
	})
	req := Request{JSONRPC: "2.0", Method: "take_order", ID: 1, Params: params}
	body, _ := json.Marshal(req)

	w := httptest.NewRecorder()
	r := httptest.NewRequest("POST", "/", bytes.NewReader(body))
	s.handleRPC(w, r)

	var resp Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
	if gotOrderID != id.String() {
		t.Fatalf("expected handler to see order id %s, got %s", id.String(), gotOrderID)
	}
}
