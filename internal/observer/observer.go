// Package observer implements the suspendable polling functions that wait
// for on-chain events to confirm a swap's progress, generalizing the
// teacher's internal/swap/monitor.go and secret_monitor.go synchronous
// polling loops to accept a context.Context so callers can cancel a wait
// cleanly (invariant P6: suspension must be cancellation-safe).
package observer

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/klingon-exchange/swapmakerd/internal/chain"
	"github.com/klingon-exchange/swapmakerd/internal/herc20"
	"github.com/klingon-exchange/swapmakerd/internal/secret"
)

// Cadence is how often each ledger is polled, per spec section 4.2.
const (
	BitcoinPollInterval  = 10 * time.Second
	EthereumPollInterval = 5 * time.Second
)

// HbitFunded describes the on-chain outpoint that funded a Bitcoin HTLC.
type HbitFunded struct {
	TxID   string
	Vout   uint32
	Amount int64
}

// AwaitHbitFunded polls Bitcoin blocks, oldest-first from fromHeight up
// to the chain tip, looking for a transaction that findFunding recognizes
// as paying exactly wantAmount sats to the HTLC. htlcAddress is not
// consulted; findFunding does the output matching. It returns as soon as
// one is found, or when ctx is done.
func AwaitHbitFunded(ctx context.Context, ledger *chain.BitcoinLedger, htlcAddress string, wantAmount int64, fromHeight int64, findFunding func(txHex string) (vout uint32, amount int64, ok bool)) (*HbitFunded, error) {
	ticker := time.NewTicker(BitcoinPollInterval)
	defer ticker.Stop()

	for {
		tip, err := ledger.BlockCount(ctx)
		if err != nil {
			return nil, fmt.Errorf("observer: await hbit funded: %w", err)
		}
		for h := fromHeight; h <= tip; h++ {
			hash, err := ledger.BlockHash(ctx, h)
			if err != nil {
				return nil, fmt.Errorf("observer: await hbit funded: %w", err)
			}
			block, err := ledger.Block(ctx, hash)
			if err != nil {
				return nil, fmt.Errorf("observer: await hbit funded: %w", err)
			}
			for _, txid := range block.Tx {
				rawTx, err := ledger.RawTransaction(ctx, txid)
				if err != nil {
					continue
				}
				if vout, amount, ok := findFunding(rawTx); ok && amount == wantAmount {
					return &HbitFunded{TxID: txid, Vout: vout, Amount: amount}, nil
				}
			}
		}
		fromHeight = tip + 1

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// HbitSpend describes how a Bitcoin HTLC's funding outpoint was spent.
type HbitSpend struct {
	Redeemed bool
	Refunded bool
	Secret   secret.Secret // set only when Redeemed
}

// AwaitHbitSpent polls Bitcoin blocks, like AwaitHbitFunded, looking for a
// transaction that spends the HTLC's funding outpoint via either the
// redeem or refund path (findSpend, built by hbit.FindSpend, tells the
// two apart by witness shape). It works the same regardless of which
// party broadcasts the spend, which is what lets the non-redeeming party
// learn a revealed secret straight off the Bitcoin chain.
func AwaitHbitSpent(ctx context.Context, ledger *chain.BitcoinLedger, fromHeight int64, findSpend func(txHex string) (s secret.Secret, redeemed bool, refunded bool, ok bool)) (*HbitSpend, error) {
	ticker := time.NewTicker(BitcoinPollInterval)
	defer ticker.Stop()

	for {
		tip, err := ledger.BlockCount(ctx)
		if err != nil {
			return nil, fmt.Errorf("observer: await hbit spent: %w", err)
		}
		for h := fromHeight; h <= tip; h++ {
			hash, err := ledger.BlockHash(ctx, h)
			if err != nil {
				return nil, fmt.Errorf("observer: await hbit spent: %w", err)
			}
			block, err := ledger.Block(ctx, hash)
			if err != nil {
				return nil, fmt.Errorf("observer: await hbit spent: %w", err)
			}
			for _, txid := range block.Tx {
				rawTx, err := ledger.RawTransaction(ctx, txid)
				if err != nil {
					continue
				}
				if s, redeemed, refunded, ok := findSpend(rawTx); ok {
					return &HbitSpend{Redeemed: redeemed, Refunded: refunded, Secret: s}, nil
				}
			}
		}
		fromHeight = tip + 1

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// AwaitHerc20Deployed polls for contract bytecode at htlcAddress, the
// CREATE2 address herc20.ContractAddress predicts for a swap's
// parameters. Polling the address rather than a specific deployment
// transaction's receipt means this works identically whichever party
// actually broadcasts the factory call: the address is a pure function
// of the swap's agreed parameters, not of who deployed it.
func AwaitHerc20Deployed(ctx context.Context, ledger *chain.EthereumLedger, htlcAddress common.Address) error {
	ticker := time.NewTicker(EthereumPollInterval)
	defer ticker.Stop()

	for {
		code, err := ledger.CodeAt(ctx, htlcAddress)
		if err == nil && len(code) > 0 {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// AwaitHerc20Redeemed polls the HTLC contract's logs for a Redeemed event
// and returns the revealed secret once one is observed.
func AwaitHerc20Redeemed(ctx context.Context, ledger *chain.EthereumLedger, htlcAddress common.Address) (secret.Secret, error) {
	ticker := time.NewTicker(EthereumPollInterval)
	defer ticker.Stop()

	for {
		logs, err := ledger.GetLogs(ctx, htlcAddress, herc20.RedeemedEventTopic)
		if err != nil {
			return secret.Secret{}, fmt.Errorf("observer: await herc20 redeemed: %w", err)
		}
		if len(logs) > 0 && len(logs[0].Data) >= secret.Size {
			var s secret.Secret
			copy(s[:], logs[0].Data[:secret.Size])
			return s, nil
		}

		select {
		case <-ctx.Done():
			return secret.Secret{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

// AwaitHerc20Refunded polls the HTLC contract's logs for a Refunded event.
func AwaitHerc20Refunded(ctx context.Context, ledger *chain.EthereumLedger, htlcAddress common.Address) error {
	ticker := time.NewTicker(EthereumPollInterval)
	defer ticker.Stop()

	for {
		logs, err := ledger.GetLogs(ctx, htlcAddress, herc20.RefundedEventTopic)
		if err != nil {
			return fmt.Errorf("observer: await herc20 refunded: %w", err)
		}
		if len(logs) > 0 {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
