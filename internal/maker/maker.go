// Package maker implements the order engine, grounded on
// original_source/nectar/src/maker.rs: it tracks the two balances
// (Bitcoin, DAI), republishes an order sized to whichever balance is
// currently known and nonzero, and decides whether to accept a take
// request by checking both profitability and solvency before admitting
// it, exactly mirroring Maker::new/update_bitcoin_balance/
// update_dai_balance/process_taken_order in the Rust original.
package maker

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/klingon-exchange/swapmakerd/internal/order"
	"github.com/klingon-exchange/swapmakerd/internal/rate"
	"github.com/klingon-exchange/swapmakerd/internal/swapid"
)

// Balances holds the maker's last-known, possibly-stale view of its two
// ledger balances. A nil amount means "not yet known" (invariant: no
// order is published for an asset whose balance hasn't been observed at
// least once).
type Balances struct {
	BitcoinSats *big.Int
	DaiWei      *big.Int
}

// Maker owns the daemon's standing orders and admits or rejects take
// requests against its current balances.
type Maker struct {
	mu sync.Mutex

	balances      Balances
	minSpread     rate.Rate // our minimum acceptable rate in our favor
	currentMarket rate.Rate // latest observed/estimated market rate

	bitcoinOrder *order.Order
	daiOrder     *order.Order
}

// Config seeds a new Maker with its starting spread and market rate.
type Config struct {
	MinSpread     rate.Rate
	CurrentMarket rate.Rate
}

// New builds a Maker with no known balances yet.
func New(cfg Config) *Maker {
	return &Maker{minSpread: cfg.MinSpread, currentMarket: cfg.CurrentMarket}
}

// PublishOrders is the pair of standing orders the maker wants published
// (or withdrawn, for a nil side) after a balance observation, mirroring
// nectar's maker.rs PublishOrders{new_sell_order, new_buy_order}: a
// change to either balance regenerates both orders, since the sell side
// is sized off the Bitcoin balance and the buy side off the DAI balance,
// and both must stay live as long as their backing balance is known.
type PublishOrders struct {
	Sell *order.Order
	Buy  *order.Order
}

// newSellOrderLocked rebuilds the sell order from the currently-known
// Bitcoin balance, or withdraws it if the balance is unknown or zero.
// Callers must hold m.mu.
func (m *Maker) newSellOrderLocked() *order.Order {
	sats := m.balances.BitcoinSats
	if sats == nil || sats.Sign() <= 0 {
		m.bitcoinOrder = nil
		return nil
	}
	m.bitcoinOrder = &order.Order{
		OrderID:   swapid.New(),
		Position:  swapid.PositionSell,
		BtcAmount: sats,
		DaiAmount: m.currentMarket.DaiForBtc(sats),
		Rate:      m.currentMarket,
		State:     order.StateOpen,
	}
	return m.bitcoinOrder
}

// newBuyOrderLocked rebuilds the buy order from the currently-known DAI
// balance, or withdraws it if the balance is unknown or zero. Callers
// must hold m.mu.
func (m *Maker) newBuyOrderLocked() *order.Order {
	wei := m.balances.DaiWei
	if wei == nil || wei.Sign() <= 0 {
		m.daiOrder = nil
		return nil
	}
	m.daiOrder = &order.Order{
		OrderID:   swapid.New(),
		Position:  swapid.PositionBuy,
		BtcAmount: m.currentMarket.BtcForDai(wei),
		DaiAmount: wei,
		Rate:      m.currentMarket,
		State:     order.StateOpen,
	}
	return m.daiOrder
}

// UpdateBitcoinBalance records a fresh Bitcoin balance observation and
// returns the orders that should now be published (or withdrawn),
// sized to the full balance, per the "all-in" sizing strategy. Both
// orders are rebuilt, not just the sell side: update_bitcoin_balance in
// the original always returns a full PublishOrders pair.
func (m *Maker) UpdateBitcoinBalance(sats *big.Int) PublishOrders {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.balances.BitcoinSats = sats
	return PublishOrders{Sell: m.newSellOrderLocked(), Buy: m.newBuyOrderLocked()}
}

// UpdateDaiBalance records a fresh DAI balance and returns the orders
// that should now be published (or withdrawn), sized to the full
// balance.
func (m *Maker) UpdateDaiBalance(wei *big.Int) PublishOrders {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.balances.DaiWei = wei
	return PublishOrders{Sell: m.newSellOrderLocked(), Buy: m.newBuyOrderLocked()}
}

// InvalidateBitcoinBalance marks the Bitcoin balance stale (e.g. after
// broadcasting a funding transaction), withdrawing the sell order until
// a fresh balance is observed.
func (m *Maker) InvalidateBitcoinBalance() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances.BitcoinSats = nil
	m.bitcoinOrder = nil
}

// InvalidateDaiBalance marks the DAI balance stale, withdrawing the buy
// order until a fresh balance is observed.
func (m *Maker) InvalidateDaiBalance() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances.DaiWei = nil
	m.daiOrder = nil
}

// ProcessTakenOrder decides whether to go ahead with a take request,
// checking profitability against minSpread and solvency against the
// currently-known balance for whichever asset we'd need to fund.
func (m *Maker) ProcessTakenOrder(req order.TakeRequest, position swapid.Position) (order.Decision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if req.BtcAmount == nil || req.DaiAmount == nil || req.BtcAmount.Sign() <= 0 || req.DaiAmount.Sign() <= 0 {
		return "", fmt.Errorf("maker: take request amounts must be positive")
	}

	impliedRate, err := rate.FromAmounts(req.BtcAmount, req.DaiAmount)
	if err != nil {
		return "", fmt.Errorf("maker: process taken order: %w", err)
	}

	sell := position == swapid.PositionSell
	if impliedRate.WorseThan(m.minSpread, sell) {
		return order.DecisionRateNotProfitable, nil
	}

	if sell {
		if m.balances.BitcoinSats == nil || m.balances.BitcoinSats.Cmp(req.BtcAmount) < 0 {
			return order.DecisionInsufficientFunds, nil
		}
	} else {
		if m.balances.DaiWei == nil || m.balances.DaiWei.Cmp(req.DaiAmount) < 0 {
			return order.DecisionInsufficientFunds, nil
		}
	}

	return order.DecisionGoForSwap, nil
}

// CurrentBalances returns a copy of the maker's last-known balances.
func (m *Maker) CurrentBalances() Balances {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances
}
