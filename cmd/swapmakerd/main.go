// Package main provides swapmakerd, the BTC/DAI atomic-swap market maker.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/klingon-exchange/swapmakerd/internal/config"
	"github.com/klingon-exchange/swapmakerd/internal/daemon"
	"github.com/klingon-exchange/swapmakerd/internal/executor"
	"github.com/klingon-exchange/swapmakerd/internal/secret"
	"github.com/klingon-exchange/swapmakerd/internal/swapid"
	"github.com/klingon-exchange/swapmakerd/internal/wallet"
	"github.com/klingon-exchange/swapmakerd/pkg/logging"
)

var (
	version = "0.1.0-dev"
	commit  = "unknown"
)

func main() {
	var (
		dataDir     = flag.String("data-dir", "", "Data directory (default: ~/.swapmakerd)")
		configFile  = flag.String("config", "", "Config file path (default: <data-dir>/config.toml)")
		apiAddr     = flag.String("api", "127.0.0.1:8080", "Operator JSON-RPC/WebSocket address")
		logLevel    = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
		showVersion = flag.Bool("version", false, "Show version and exit")
	)
	flag.Usage = usage
	flag.Parse()

	log := logging.New(&logging.Config{Level: *logLevel})
	logging.SetDefault(log)

	if *showVersion {
		log.Infof("swapmakerd %s (commit: %s)", version, commit)
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}
	cmd, rest := args[0], args[1:]

	cfg := config.Default()
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	path := *configFile
	if path == "" {
		path = config.Path(cfg.DataDir)
	}
	if loaded, err := config.Load(path); err == nil {
		cfg = loaded
	} else if cmd != "dump-config" {
		log.Warn("no config file found, using defaults", "path", path, "error", err)
	}

	switch cmd {
	case "dump-config":
		dumped, err := cfg.Dump()
		if err != nil {
			log.Fatal("failed to dump config", "error", err)
		}
		fmt.Print(dumped)

	case "trade":
		runDaemon(cfg, *apiAddr, *logLevel, log, resumeAndTrade)

	case "resume-only":
		runDaemon(cfg, *apiAddr, *logLevel, log, resumeOnly)

	case "wallet-info":
		printWalletInfo(cfg, log)

	case "balance":
		printBalance(cfg, log)

	case "deposit":
		printDepositAddresses(cfg, log)

	case "archive-swap":
		archiveSwap(cfg, log, rest)

	case "migrate-db":
		log.Info("database schema is applied automatically on open; nothing to migrate")

	case "create-transaction":
		createTransaction(cfg, log, rest)

	case "withdraw":
		log.Fatal("not yet implemented", "command", cmd)

	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `swapmakerd - BTC/DAI atomic-swap market maker

Usage: swapmakerd [flags] <command>

Commands:
  trade             Publish orders and execute accepted swaps
  resume-only       Resume in-flight swaps only; do not publish or accept new orders
  wallet-info       Print wallet addresses for backup/export
  balance           Print known balances
  deposit           Print deposit addresses
  dump-config       Print the effective configuration as TOML
  withdraw          Not implemented; exits with an error
  create-transaction {redeem|refund} <swap-id> [secret-hex]
                    Manually build, sign and submit the ethereum leg of a swap
  archive-swap <swap-id>  Stop automated action on a completed swap
  migrate-db        Report that the schema is applied when the store is opened`)
	flag.PrintDefaults()
}

func mustMnemonic(log *logging.Logger) string {
	mnemonic := os.Getenv("SWAPMAKERD_MNEMONIC")
	if mnemonic == "" {
		log.Fatal("SWAPMAKERD_MNEMONIC environment variable must be set")
	}
	return mnemonic
}

func runDaemon(cfg *config.Config, apiAddr, logLevel string, log *logging.Logger, mode func(ctx context.Context, d *daemon.Daemon) error) {
	d, err := daemon.New(cfg, mustMnemonic(log), logLevel)
	if err != nil {
		log.Fatal("failed to initialize daemon", "error", err)
	}
	defer d.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutting down...")
		cancel()
	}()

	go func() {
		if err := mode(ctx, d); err != nil {
			log.Error("daemon mode exited with error", "error", err)
		}
	}()

	if err := d.Run(ctx, apiAddr); err != nil {
		log.Fatal("daemon run failed", "error", err)
	}
	log.Info("goodbye")
}

func resumeAndTrade(ctx context.Context, d *daemon.Daemon) error {
	d.Log.Info("trading: publishing orders and accepting swaps")
	if err := resumePendingSwaps(ctx, d); err != nil {
		return err
	}
	d.StartTrading(ctx)
	<-ctx.Done()
	d.StopTrading()
	return nil
}

func resumeOnly(ctx context.Context, d *daemon.Daemon) error {
	d.Log.Info("resume-only: not publishing or accepting new orders")
	return resumePendingSwaps(ctx, d)
}

// resumePendingSwaps launches one executor.Driver goroutine per swap left
// in-flight from a previous run, per spec section 4.4 crash recovery:
// each Driver re-derives its decision from the stored event log, so
// resuming after a crash reaches the same outcome as never having
// stopped.
func resumePendingSwaps(ctx context.Context, d *daemon.Daemon) error {
	pending, err := d.Store.PendingSwapIDs()
	if err != nil {
		return fmt.Errorf("resume pending swaps: %w", err)
	}
	for _, id := range pending {
		params, err := d.LoadSwapParams(id)
		if err != nil {
			d.Log.Error("skipping swap with no recorded params", "swap_id", id.String(), "error", err)
			continue
		}
		drv := d.NewSwapDriver(params)
		go func(id swapid.ID, drv *executor.Driver) {
			if err := drv.Execute(ctx, id); err != nil && ctx.Err() == nil {
				d.Log.Error("swap execution stopped", "swap_id", id.String(), "error", err)
			}
		}(id, drv)
		go func(id swapid.ID, drv *executor.Driver) {
			if err := drv.Watch(ctx, id); err != nil && ctx.Err() == nil {
				d.Log.Error("swap watch stopped", "swap_id", id.String(), "error", err)
			}
		}(id, drv)
	}
	return nil
}

func printWalletInfo(cfg *config.Config, log *logging.Logger) {
	w, err := wallet.NewFromMnemonic(mustMnemonic(log), "", cfg.Bitcoin.Network != "mainnet")
	if err != nil {
		log.Fatal("failed to load wallet", "error", err)
	}
	btcAddr, err := w.DeriveBitcoinAddress(0, 0)
	if err != nil {
		log.Fatal("failed to derive bitcoin address", "error", err)
	}
	ethAddr, err := w.DeriveEthereumAddress(0, 0)
	if err != nil {
		log.Fatal("failed to derive ethereum address", "error", err)
	}
	fmt.Printf("bitcoin:  %s\nethereum: %s\n", btcAddr, ethAddr)
}

func printBalance(cfg *config.Config, log *logging.Logger) {
	d, err := daemon.New(cfg, mustMnemonic(log), "info")
	if err != nil {
		log.Fatal("failed to initialize daemon", "error", err)
	}
	defer d.Close()

	balances := d.Maker.CurrentBalances()
	fmt.Printf("bitcoin (sats): %v\ndai (wei):      %v\n", balances.BitcoinSats, balances.DaiWei)
}

func printDepositAddresses(cfg *config.Config, log *logging.Logger) {
	printWalletInfo(cfg, log)
}

// createTransaction implements "create-transaction {redeem|refund} <swap-id> [secret-hex]",
// grounded on original_source/nectar/src/command.rs's CreateTransaction
// subcommand: it builds and submits the herc20 transaction for one leg of
// a swap without going through the automated executor loop. Only the
// Ethereum leg is supported — the Bitcoin leg needs UTXO selection this
// daemon doesn't implement (see wallet.EthereumSubmitter's doc comment).
func createTransaction(cfg *config.Config, log *logging.Logger, args []string) {
	if len(args) < 2 {
		log.Fatal("usage: create-transaction {redeem|refund} <swap-id> [secret-hex]")
	}
	action, idArg := args[0], args[1]

	id, err := swapid.Parse(idArg)
	if err != nil {
		log.Fatal("invalid swap id", "error", err)
	}

	d, err := daemon.New(cfg, mustMnemonic(log), "info")
	if err != nil {
		log.Fatal("failed to initialize daemon", "error", err)
	}
	defer d.Close()

	params, err := d.LoadSwapParams(id)
	if err != nil {
		log.Fatal("failed to load swap params", "error", err)
	}
	submitter := &wallet.EthereumSubmitter{Wallet: d.Wallet, Ledger: d.Ethereum, Account: 0}

	// The herc20 leg is beta when alpha is Bitcoin, and alpha otherwise.
	redeemKind, refundKind := executor.KindRedeemBeta, executor.KindRefundBeta
	if alpha, _ := swapid.AlphaBeta(params.Role, params.Position); alpha != swapid.LedgerBitcoin {
		redeemKind, refundKind = executor.KindRedeemAlpha, executor.KindRefundAlpha
	}

	switch action {
	case "redeem":
		if len(args) < 3 {
			log.Fatal("usage: create-transaction redeem <swap-id> <secret-hex>")
		}
		preimage, err := secret.ParseSecret(args[2])
		if err != nil {
			log.Fatal("invalid secret", "error", err)
		}
		resp, err := executor.DispatchRedeem(redeemKind, params, preimage)
		if err != nil {
			log.Fatal("failed to build redeem transaction", "error", err)
		}
		txRef, err := submitter.Submit(context.Background(), resp)
		if err != nil {
			log.Fatal("failed to submit redeem transaction", "error", err)
		}
		fmt.Println(txRef)

	case "refund":
		resp, err := executor.Dispatch(executor.Action{Kind: refundKind}, params)
		if err != nil {
			log.Fatal("failed to build refund transaction", "error", err)
		}
		txRef, err := submitter.Submit(context.Background(), resp)
		if err != nil {
			log.Fatal("failed to submit refund transaction", "error", err)
		}
		fmt.Println(txRef)

	default:
		log.Fatal("unknown create-transaction action", "action", action)
	}
}

func archiveSwap(cfg *config.Config, log *logging.Logger, args []string) {
	if len(args) != 1 {
		log.Fatal("archive-swap requires exactly one swap id argument")
	}
	id, err := swapid.Parse(args[0])
	if err != nil {
		log.Fatal("invalid swap id", "error", err)
	}

	d, err := daemon.New(cfg, mustMnemonic(log), "info")
	if err != nil {
		log.Fatal("failed to initialize daemon", "error", err)
	}
	defer d.Close()

	if err := d.Store.Archive(id); err != nil {
		log.Fatal("failed to archive swap", "error", err)
	}
	log.Info("swap archived", "swap_id", id.String())
}
