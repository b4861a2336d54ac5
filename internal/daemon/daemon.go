// Package daemon wires together every other package into the running
// swapmakerd process: config, logging, store, wallet, chain clients, the
// maker, the executor, and the operator RPC feed, following the startup
// order in the teacher's cmd/klingond/main.go (config → logging →
// storage → wallet → coordinator → node → rpc).
package daemon

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/klingon-exchange/swapmakerd/internal/chain"
	"github.com/klingon-exchange/swapmakerd/internal/config"
	"github.com/klingon-exchange/swapmakerd/internal/executor"
	"github.com/klingon-exchange/swapmakerd/internal/hbit"
	"github.com/klingon-exchange/swapmakerd/internal/herc20"
	"github.com/klingon-exchange/swapmakerd/internal/jsonrpc"
	"github.com/klingon-exchange/swapmakerd/internal/maker"
	"github.com/klingon-exchange/swapmakerd/internal/observer"
	"github.com/klingon-exchange/swapmakerd/internal/rate"
	"github.com/klingon-exchange/swapmakerd/internal/rpc"
	"github.com/klingon-exchange/swapmakerd/internal/secret"
	"github.com/klingon-exchange/swapmakerd/internal/store"
	"github.com/klingon-exchange/swapmakerd/internal/swapid"
	"github.com/klingon-exchange/swapmakerd/internal/wallet"
	"github.com/klingon-exchange/swapmakerd/pkg/logging"
)

// Daemon owns every long-lived component of a running process.
type Daemon struct {
	Config *config.Config
	Log    *logging.Logger

	Store     *store.Store
	Wallet    *wallet.Wallet
	Bitcoin   *chain.BitcoinLedger
	Ethereum  *chain.EthereumLedger
	Maker     *maker.Maker
	MakerLoop *maker.Loop
	RPC       *rpc.Server

	// tradeCtx is the long-lived context swaps admitted while trading are
	// run under, set by StartTrading. Outside trading mode it is nil and
	// AdmitTakeRequest is unreachable (the RPC take_order handler is only
	// wired up by StartTrading), so nothing ever reads it unset.
	tradeCtx context.Context
}

// New loads every component from cfg, opening the swap store and
// connecting (without blocking) to both ledgers.
func New(cfg *config.Config, mnemonic string, logLevel string) (*Daemon, error) {
	log := logging.New(&logging.Config{Level: logLevel})
	logging.SetDefault(log)

	st, err := store.Open(store.Path(cfg.DataDir))
	if err != nil {
		return nil, fmt.Errorf("daemon: open store: %w", err)
	}

	w, err := wallet.NewFromMnemonic(mnemonic, "", cfg.Bitcoin.Network != "mainnet")
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("daemon: load wallet: %w", err)
	}

	btcRPC := jsonrpc.New(cfg.Bitcoin.NodeURL)
	ethRPC := jsonrpc.New(cfg.Ethereum.NodeURL)

	minSpread, err := rate.New(cfg.Maker.MinSpreadDaiPerBtc)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("daemon: parse min spread: %w", err)
	}
	market, err := rate.New(cfg.Maker.CurrentMarketDaiPerBtc)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("daemon: parse market rate: %w", err)
	}
	mk := maker.New(maker.Config{MinSpread: minSpread, CurrentMarket: market})

	d := &Daemon{
		Config:    cfg,
		Log:       log,
		Store:     st,
		Wallet:    w,
		Bitcoin:   chain.NewBitcoinLedger(btcRPC),
		Ethereum:  chain.NewEthereumLedger(ethRPC),
		Maker:     mk,
		MakerLoop: maker.NewLoop(mk),
		RPC:       rpc.NewServer(st, mk),
	}
	return d, nil
}

// Path returns the default config path inside cfg's data directory.
func Path(cfg *config.Config) string {
	return config.Path(cfg.DataDir)
}

// Run starts the operator RPC feed, logs the swaps left pending from a
// previous run, then blocks until ctx is cancelled. It does not resume
// those swaps itself; the CLI's mode function launches their drivers.
func (d *Daemon) Run(ctx context.Context, apiAddr string) error {
	if err := d.RPC.Start(apiAddr); err != nil {
		return fmt.Errorf("daemon: start rpc: %w", err)
	}
	defer d.RPC.Stop()

	pending, err := d.Store.PendingSwapIDs()
	if err != nil {
		return fmt.Errorf("daemon: list pending swaps: %w", err)
	}
	d.Log.Info("resuming pending swaps", "count", len(pending))
	for _, id := range pending {
		d.Log.Info("pending swap", "swap_id", id.String())
	}

	<-ctx.Done()
	return nil
}

// Close releases the daemon's resources.
func (d *Daemon) Close() error {
	return d.Store.Close()
}

// NewSwapDriver builds the executor.Driver that runs one swap's decide-
// and-act loop, wired to this daemon's store, an EthereumSubmitter bound
// to account 0 of the daemon's wallet, and an observer.Confirmer watching
// both ledgers.
func (d *Daemon) NewSwapDriver(params executor.SwapParams) *executor.Driver {
	submitter := &wallet.EthereumSubmitter{
		Wallet:  d.Wallet,
		Ledger:  d.Ethereum,
		Account: 0,
	}
	confirm := &observer.Confirmer{Bitcoin: d.Bitcoin, Ethereum: d.Ethereum}
	return executor.NewDriver(d.Store, params, submitter, confirm)
}

// LoadSwapParams reconstructs a swap's executor.SwapParams from the row
// recorded at its creation, so a restarted daemon can resume Execute
// without re-negotiating the swap (spec section 4.4 crash recovery).
func (d *Daemon) LoadSwapParams(id swapid.ID) (executor.SwapParams, error) {
	meta, err := d.Store.SwapMeta(id)
	if err != nil {
		return executor.SwapParams{}, fmt.Errorf("daemon: load swap params: %w", err)
	}
	row, err := d.Store.SwapParams(id)
	if err != nil {
		return executor.SwapParams{}, fmt.Errorf("daemon: load swap params: %w", err)
	}

	secretHash, err := secret.ParseHash(row.SecretHashHex)
	if err != nil {
		return executor.SwapParams{}, fmt.Errorf("daemon: load swap params: secret hash: %w", err)
	}
	redeemPub, err := hex.DecodeString(row.RedeemPubKey)
	if err != nil {
		return executor.SwapParams{}, fmt.Errorf("daemon: load swap params: redeem pubkey: %w", err)
	}
	refundPub, err := hex.DecodeString(row.RefundPubKey)
	if err != nil {
		return executor.SwapParams{}, fmt.Errorf("daemon: load swap params: refund pubkey: %w", err)
	}
	herc20Amount, ok := new(big.Int).SetString(row.Herc20AmountWei, 10)
	if !ok {
		return executor.SwapParams{}, fmt.Errorf("daemon: load swap params: invalid herc20 amount %q", row.Herc20AmountWei)
	}

	return executor.SwapParams{
		Role:     swapid.Role(meta.Role),
		Position: swapid.Position(meta.Position),
		Hbit: hbit.Params{
			SecretHash:   secretHash,
			RedeemPubKey: redeemPub,
			RefundPubKey: refundPub,
			Expiry:       row.HbitExpiry,
			Amount:       row.HbitAmountSats,
			Network:      d.Wallet.BitcoinParams(),
		},
		Herc20: herc20.Params{
			SecretHash:   secretHash,
			RedeemAddr:   common.HexToAddress(row.RedeemAddr),
			RefundAddr:   common.HexToAddress(row.RefundAddr),
			TokenAddress: common.HexToAddress(row.TokenAddress),
			Amount:       herc20Amount,
			Expiry:       row.Herc20Expiry,
		},
		ChainID:  row.ChainID,
		GasLimit: row.GasLimit,
	}, nil
}

// BitcoinBalance is a placeholder query point for the daemon's spendable
// Bitcoin balance; a real implementation would sum confirmed UTXOs paid
// to wallet-derived addresses via Bitcoin's scantxoutset or an indexer,
// which is out of spec scope (no fee-estimation/indexer Non-goal extends
// to balance scanning too).
func (d *Daemon) BitcoinBalance(ctx context.Context) (*big.Int, error) {
	return big.NewInt(0), nil
}
