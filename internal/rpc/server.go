package rpc

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/klingon-exchange/swapmakerd/internal/maker"
	"github.com/klingon-exchange/swapmakerd/internal/order"
	"github.com/klingon-exchange/swapmakerd/internal/secret"
	"github.com/klingon-exchange/swapmakerd/internal/store"
	"github.com/klingon-exchange/swapmakerd/internal/swapid"
	"github.com/klingon-exchange/swapmakerd/pkg/logging"
)

// Server is the operator-facing JSON-RPC 2.0 + WebSocket surface named in
// spec section 6.4, narrowed from the teacher's internal/rpc/server.go
// (60+ peer/wallet/swap methods for a multi-asset P2P exchange) down to
// the handful of status and order-admission queries this daemon needs.
type Server struct {
	store *store.Store
	maker *maker.Maker
	log   *logging.Logger
	hub   *WSHub

	server   *http.Server
	listener net.Listener

	handlers  map[string]Handler
	takeOrder TakeOrderFunc
	mu        sync.RWMutex
}

// TakeOrderFunc admits or rejects a take request against an open order,
// handed to the server by the daemon after it enters trading mode. It is
// a callback rather than a direct dependency on internal/daemon to avoid
// daemon importing rpc importing daemon.
type TakeOrderFunc func(ctx context.Context, req order.TakeRequest) (*swapid.ID, order.Decision, error)

// SetTakeOrderHandler wires the take_order method to fn. Before this is
// called, take_order requests are rejected: a daemon running in
// "resume-only" mode never calls it, so the order book stays closed to
// new swaps.
func (s *Server) SetTakeOrderHandler(fn TakeOrderFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.takeOrder = fn
}

// Handler is a JSON-RPC method handler.
type Handler func(ctx context.Context, params json.RawMessage) (interface{}, error)

// Request is a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      interface{}     `json:"id,omitempty"`
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string      `json:"jsonrpc"`
	Result  interface{} `json:"result,omitempty"`
	Error   *Error      `json:"error,omitempty"`
	ID      interface{} `json:"id"`
}

// Error is a JSON-RPC 2.0 error object.
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

const (
	ParseError     = -32700
	InvalidRequest = -32600
	MethodNotFound = -32601
	InternalError  = -32603
)

// NewServer wires a Server to the swap store and order engine.
func NewServer(st *store.Store, mk *maker.Maker) *Server {
	s := &Server{
		store:    st,
		maker:    mk,
		log:      logging.GetDefault().Component("rpc"),
		handlers: make(map[string]Handler),
	}
	s.registerHandlers()
	return s
}

func (s *Server) registerHandlers() {
	s.handlers["orders_list"] = s.ordersList
	s.handlers["orders_get"] = s.ordersGet
	s.handlers["swap_status"] = s.swapStatus
	s.handlers["swap_events"] = s.swapEvents
	s.handlers["swaps_pending"] = s.swapsPending
	s.handlers["balances"] = s.balances
	s.handlers["take_order"] = s.takeOrderHandler
}

// Start listens on addr and begins serving both the JSON-RPC endpoint and
// the WebSocket status feed.
func (s *Server) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.listener = listener
	s.hub = NewWSHub()
	go s.hub.Run()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /", s.handleRPC)
	mux.HandleFunc("GET /ws", s.handleWS)

	s.server = &http.Server{
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.log.Error("rpc server error", "error", err)
		}
	}()

	s.log.Info("rpc server started", "addr", addr, "ws", "ws://"+addr+"/ws")
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// Hub returns the WebSocket status feed hub, used by the daemon wiring to
// broadcast executor and maker events as they occur.
func (s *Server) Hub() *WSHub { return s.hub }

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, nil, ParseError, "parse error")
		return
	}
	if req.JSONRPC != "2.0" {
		s.writeError(w, req.ID, InvalidRequest, "invalid request")
		return
	}

	s.mu.RLock()
	handler, ok := s.handlers[req.Method]
	s.mu.RUnlock()
	if !ok {
		s.writeError(w, req.ID, MethodNotFound, "method not found: "+req.Method)
		return
	}

	result, err := handler(r.Context(), req.Params)
	if err != nil {
		s.writeError(w, req.ID, InternalError, err.Error())
		return
	}
	s.writeResult(w, req.ID, result)
}

func (s *Server) writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(Response{JSONRPC: "2.0", Result: result, ID: id})
}

func (s *Server) writeError(w http.ResponseWriter, id interface{}, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(Response{JSONRPC: "2.0", Error: &Error{Code: code, Message: message}, ID: id})
}

func (s *Server) ordersList(ctx context.Context, params json.RawMessage) (interface{}, error) {
	return s.store.OpenOrders()
}

func (s *Server) ordersGet(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p struct {
		OrderID string `json:"order_id"`
	}
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, err
	}
	id, err := swapid.Parse(p.OrderID)
	if err != nil {
		return nil, err
	}
	return s.store.Order(id)
}

func (s *Server) swapStatus(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p struct {
		SwapID string `json:"swap_id"`
	}
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, err
	}
	id, err := swapid.Parse(p.SwapID)
	if err != nil {
		return nil, err
	}
	return s.store.SwapMeta(id)
}

func (s *Server) swapEvents(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p struct {
		SwapID string `json:"swap_id"`
	}
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, err
	}
	id, err := swapid.Parse(p.SwapID)
	if err != nil {
		return nil, err
	}
	return s.store.Events(id)
}

func (s *Server) swapsPending(ctx context.Context, params json.RawMessage) (interface{}, error) {
	return s.store.PendingSwapIDs()
}

func (s *Server) balances(ctx context.Context, params json.RawMessage) (interface{}, error) {
	return s.maker.CurrentBalances(), nil
}

func (s *Server) takeOrderHandler(ctx context.Context, params json.RawMessage) (interface{}, error) {
	s.mu.RLock()
	fn := s.takeOrder
	s.mu.RUnlock()
	if fn == nil {
		return nil, fmt.Errorf("rpc: take_order: daemon is not accepting new swaps")
	}

	var p struct {
		OrderID                string `json:"order_id"`
		BtcAmount              string `json:"btc_amount"`
		DaiAmount              string `json:"dai_amount"`
		SecretHash             string `json:"secret_hash"`
		CounterpartyHbitPubKey string `json:"counterparty_hbit_pubkey"`
		CounterpartyHerc20Addr string `json:"counterparty_herc20_addr"`
		CounterpartyPeerID     string `json:"counterparty_peer_id"`
	}
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, err
	}

	orderID, err := swapid.Parse(p.OrderID)
	if err != nil {
		return nil, fmt.Errorf("rpc: take_order: %w", err)
	}
	btcAmount, ok := new(big.Int).SetString(p.BtcAmount, 10)
	if !ok {
		return nil, fmt.Errorf("rpc: take_order: invalid btc_amount %q", p.BtcAmount)
	}
	daiAmount, ok := new(big.Int).SetString(p.DaiAmount, 10)
	if !ok {
		return nil, fmt.Errorf("rpc: take_order: invalid dai_amount %q", p.DaiAmount)
	}
	secretHash, err := secret.ParseHash(p.SecretHash)
	if err != nil {
		return nil, fmt.Errorf("rpc: take_order: %w", err)
	}
	hbitPubKey, err := hex.DecodeString(p.CounterpartyHbitPubKey)
	if err != nil {
		return nil, fmt.Errorf("rpc: take_order: counterparty_hbit_pubkey: %w", err)
	}

	swapID, decision, err := fn(ctx, order.TakeRequest{
		OrderID:                orderID,
		BtcAmount:              btcAmount,
		DaiAmount:              daiAmount,
		SecretHash:             secretHash,
		CounterpartyHbitPubKey: hbitPubKey,
		CounterpartyHerc20Addr: p.CounterpartyHerc20Addr,
		CounterpartyPeerID:     p.CounterpartyPeerID,
	})
	if err != nil {
		return nil, err
	}

	resp := struct {
		Decision order.Decision `json:"decision"`
		SwapID   *string        `json:"swap_id,omitempty"`
	}{Decision: decision}
	if swapID != nil {
		id := swapID.String()
		resp.SwapID = &id
	}
	return resp, nil
}
