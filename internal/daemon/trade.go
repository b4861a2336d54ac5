package daemon

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/libp2p/go-libp2p/core/peer"

	"github.com/klingon-exchange/swapmakerd/internal/maker"
	"github.com/klingon-exchange/swapmakerd/internal/order"
	"github.com/klingon-exchange/swapmakerd/internal/rpc"
	"github.com/klingon-exchange/swapmakerd/internal/store"
	"github.com/klingon-exchange/swapmakerd/internal/swapctx"
	"github.com/klingon-exchange/swapmakerd/internal/swapid"
	"github.com/klingon-exchange/swapmakerd/internal/wallet"
)

// defaultGasLimit is used for every herc20 call this daemon builds; the
// contract's redeem/refund/deploy paths are all cheap, fixed-shape calls,
// so there's no per-swap estimation to do (spec non-goal: no gas
// estimation against a live node).
const defaultGasLimit = "300000"

// StartTrading puts the daemon into "trade" mode: it accepts take_order
// RPC calls by wiring AdmitTakeRequest into the RPC server, starts the
// maker's command loop, and launches the periodic balance-poll/publish
// cycle that keeps standing orders sized to the daemon's current
// balances. ctx bounds both the publish loop and every swap admitted
// while trading is active.
func (d *Daemon) StartTrading(ctx context.Context) {
	d.tradeCtx = ctx
	d.MakerLoop.Start()
	d.RPC.SetTakeOrderHandler(d.AdmitTakeRequest)
	go d.runPublishLoop(ctx)
}

// StopTrading halts the maker loop started by StartTrading. It does not
// stop in-flight swap drivers: those keep running under ctx until it is
// cancelled, so a swap already taken completes even if trading stops.
func (d *Daemon) StopTrading() {
	d.MakerLoop.Stop()
}

func (d *Daemon) runPublishLoop(ctx context.Context) {
	interval := time.Duration(d.Config.Maker.PublishIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	d.pollAndPublish(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.pollAndPublish(ctx)
		}
	}
}

// pollAndPublish observes both ledger balances and pushes the resulting
// PublishOrders pair through the store and the operator WebSocket feed.
func (d *Daemon) pollAndPublish(ctx context.Context) {
	sats, err := d.BitcoinBalance(ctx)
	if err != nil {
		d.Log.Error("poll bitcoin balance", "error", err)
	} else if pub, err := d.MakerLoop.UpdateBitcoinBalance(ctx, sats); err != nil {
		d.Log.Error("update bitcoin balance", "error", err)
	} else {
		d.publishOrders(pub)
	}

	wei, err := d.DaiBalance(ctx)
	if err != nil {
		d.Log.Error("poll dai balance", "error", err)
		return
	}
	pub, err := d.MakerLoop.UpdateDaiBalance(ctx, wei)
	if err != nil {
		d.Log.Error("update dai balance", "error", err)
		return
	}
	d.publishOrders(pub)
}

func (d *Daemon) publishOrders(pub maker.PublishOrders) {
	for _, o := range [2]*order.Order{pub.Sell, pub.Buy} {
		if o == nil {
			continue
		}
		row := store.OrderRow{
			OrderID:   o.OrderID,
			Position:  string(o.Position),
			BtcAmount: o.BtcAmount.String(),
			DaiAmount: o.DaiAmount.String(),
			State:     string(o.State),
		}
		if err := d.Store.SaveOrder(row); err != nil {
			d.Log.Error("save order", "order_id", o.OrderID.String(), "error", err)
			continue
		}
		if hub := d.RPC.Hub(); hub != nil {
			hub.Broadcast(rpc.EventOrderUpdated, row)
		}
	}
}

// DaiBalance queries the daemon's spendable DAI balance: the ERC20
// balanceOf its own account-0 Ethereum address, evaluated against the
// configured DAI contract. Unlike BitcoinBalance, this is a real on-chain
// read rather than a placeholder, since an ERC20 balance is a single
// eth_call with no UTXO-set scan behind it.
func (d *Daemon) DaiBalance(ctx context.Context) (*big.Int, error) {
	owner, err := d.Wallet.DeriveEthereumAddress(0, 0)
	if err != nil {
		return nil, fmt.Errorf("daemon: dai balance: derive address: %w", err)
	}
	token := common.HexToAddress(d.Config.Ethereum.DaiAddress)
	return d.Ethereum.ERC20BalanceOf(ctx, token, common.HexToAddress(owner))
}

// AdmitTakeRequest decides whether to accept a take request and, if so,
// creates and launches the resulting swap. The maker is always Bob in
// every swap it enters (grounded on original_source/nectar/src/maker.rs's
// Maker fixture, the only Role::Bob/Role::Alice reference in the Rust
// original): the taker always supplies the secret hash and is always
// Alice, so our own Role is fixed and swapid.AlphaBeta(RoleBob, position)
// always resolves deterministically from the order's own position.
func (d *Daemon) AdmitTakeRequest(ctx context.Context, req order.TakeRequest) (*swapid.ID, order.Decision, error) {
	orderRow, err := d.Store.Order(req.OrderID)
	if err != nil {
		return nil, "", fmt.Errorf("daemon: admit take request: %w", err)
	}
	position := swapid.Position(orderRow.Position)

	decision, err := d.MakerLoop.ProcessTakenOrder(ctx, req, position)
	if err != nil {
		return nil, "", fmt.Errorf("daemon: admit take request: %w", err)
	}
	if decision != order.DecisionGoForSwap {
		return nil, decision, nil
	}

	id := swapid.New()
	alpha, _ := swapid.AlphaBeta(swapid.RoleBob, position)
	hbitIsAlpha := alpha == swapid.LedgerBitcoin

	ourHbitPub, err := d.Wallet.DerivePublicKey(wallet.ChainBitcoin, 0, 0, 0)
	if err != nil {
		return nil, "", fmt.Errorf("daemon: admit take request: derive hbit key: %w", err)
	}
	ourHerc20Addr, err := d.Wallet.DeriveEthereumAddress(0, 0)
	if err != nil {
		return nil, "", fmt.Errorf("daemon: admit take request: derive herc20 address: %w", err)
	}

	// Whichever party funds a ledger refunds it; the other party redeems
	// it. Alice always funds alpha, so we always fund beta.
	var hbitRedeem, hbitRefund []byte
	var herc20Redeem, herc20Refund common.Address
	if hbitIsAlpha {
		hbitRedeem = ourHbitPub.SerializeCompressed()
		hbitRefund = req.CounterpartyHbitPubKey
		herc20Redeem = common.HexToAddress(req.CounterpartyHerc20Addr)
		herc20Refund = common.HexToAddress(ourHerc20Addr)
	} else {
		hbitRedeem = req.CounterpartyHbitPubKey
		hbitRefund = ourHbitPub.SerializeCompressed()
		herc20Redeem = common.HexToAddress(ourHerc20Addr)
		herc20Refund = common.HexToAddress(req.CounterpartyHerc20Addr)
	}

	betaExpiry := time.Now().Add(time.Duration(d.Config.Maker.BetaExpirySeconds) * time.Second).Unix()
	alphaExpiry := betaExpiry + d.Config.Maker.SafetyMarginSeconds
	hbitExpiry, herc20Expiry := betaExpiry, alphaExpiry
	if hbitIsAlpha {
		hbitExpiry, herc20Expiry = alphaExpiry, betaExpiry
	}

	if err := d.Store.CreateSwap(id, string(swapid.RoleBob), string(position), &req.OrderID); err != nil {
		return nil, "", fmt.Errorf("daemon: admit take request: create swap: %w", err)
	}
	err = d.Store.SaveSwapParams(store.SwapParamsRow{
		SwapID:          id,
		SecretHashHex:   req.SecretHash.String(),
		RedeemPubKey:    hex.EncodeToString(hbitRedeem),
		RefundPubKey:    hex.EncodeToString(hbitRefund),
		RedeemAddr:      herc20Redeem.Hex(),
		RefundAddr:      herc20Refund.Hex(),
		TokenAddress:    d.Config.Ethereum.DaiAddress,
		HbitAmountSats:  req.BtcAmount.Int64(),
		Herc20AmountWei: req.DaiAmount.String(),
		HbitExpiry:      hbitExpiry,
		Herc20Expiry:    herc20Expiry,
		BitcoinNetwork:  d.Config.Bitcoin.Network,
		ChainID:         d.Config.Ethereum.ChainID,
		GasLimit:        defaultGasLimit,
	})
	if err != nil {
		return nil, "", fmt.Errorf("daemon: admit take request: save params: %w", err)
	}
	if err := d.Store.LinkSwapToOrder(req.OrderID, id); err != nil {
		return nil, "", fmt.Errorf("daemon: admit take request: link order: %w", err)
	}
	if err := d.Store.UpdateOrderState(req.OrderID, string(order.StateSettling)); err != nil {
		d.Log.Error("update order state", "order_id", req.OrderID.String(), "error", err)
	}

	counterparty, _ := peer.Decode(req.CounterpartyPeerID)
	swapCtx := swapctx.New(id, swapid.RoleBob, counterparty)
	d.Log.Info("admitted take request",
		"swap_id", id.String(), "counterparty", swapCtx.Counterparty.String(), "position", position)

	params, err := d.LoadSwapParams(id)
	if err != nil {
		return nil, "", fmt.Errorf("daemon: admit take request: reload params: %w", err)
	}
	drv := d.NewSwapDriver(params)
	runCtx := d.tradeCtx
	if runCtx == nil {
		runCtx = context.Background()
	}
	go func() {
		if err := drv.Execute(runCtx, id); err != nil && runCtx.Err() == nil {
			d.Log.Error("swap execution stopped", "swap_id", id.String(), "error", err)
		}
	}()
	go func() {
		if err := drv.Watch(runCtx, id); err != nil && runCtx.Err() == nil {
			d.Log.Error("swap watch stopped", "swap_id", id.String(), "error", err)
		}
	}()

	return &id, order.DecisionGoForSwap, nil
}
