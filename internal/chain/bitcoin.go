// Package chain narrows the teacher's multi-asset internal/chain registry
// (which covered BTC/LTC/DOGE/XMR/SOL and a dozen EVM chains) down to the
// two ledgers this daemon actually drives: Bitcoin and one EVM chain
// carrying DAI. It wraps internal/jsonrpc with the Bitcoin Core and
// Ethereum JSON-RPC method sets named in spec section 6.3, adapted from
// the teacher's internal/backend/jsonrpc.go bitcoinCall/evmCall split.
package chain

import (
	"context"
	"fmt"

	"github.com/klingon-exchange/swapmakerd/internal/jsonrpc"
)

// BitcoinBlock is the subset of Bitcoin Core's getblock fields the
// observers need.
type BitcoinBlock struct {
	Hash   string `json:"hash"`
	Height int64  `json:"height"`
	Time   int64  `json:"time"`
	Tx     []string
}

// BitcoinLedger talks to a Bitcoin Core-compatible node.
type BitcoinLedger struct {
	rpc *jsonrpc.Client
}

// NewBitcoinLedger wraps an RPC client as a BitcoinLedger.
func NewBitcoinLedger(rpc *jsonrpc.Client) *BitcoinLedger {
	return &BitcoinLedger{rpc: rpc}
}

// BlockCount returns the height of the chain tip.
func (b *BitcoinLedger) BlockCount(ctx context.Context) (int64, error) {
	var height int64
	if err := b.rpc.Call(ctx, "getblockcount", []interface{}{}, &height); err != nil {
		return 0, fmt.Errorf("bitcoin getblockcount: %w", err)
	}
	return height, nil
}

// BlockHash returns the hash of the block at height.
func (b *BitcoinLedger) BlockHash(ctx context.Context, height int64) (string, error) {
	var hash string
	if err := b.rpc.Call(ctx, "getblockhash", []interface{}{height}, &hash); err != nil {
		return "", fmt.Errorf("bitcoin getblockhash: %w", err)
	}
	return hash, nil
}

// Block fetches a block's transaction id list (verbosity=1) by hash, used
// by the hbit observer to scan for a funding/redeem/refund outpoint.
func (b *BitcoinLedger) Block(ctx context.Context, hash string) (*BitcoinBlock, error) {
	var block BitcoinBlock
	if err := b.rpc.Call(ctx, "getblock", []interface{}{hash, 1}, &block); err != nil {
		return nil, fmt.Errorf("bitcoin getblock: %w", err)
	}
	return &block, nil
}

// RawTransaction fetches a transaction's hex encoding, used to inspect a
// candidate funding/redeem/refund transaction for an HTLC.
func (b *BitcoinLedger) RawTransaction(ctx context.Context, txid string) (string, error) {
	var hex string
	if err := b.rpc.Call(ctx, "getrawtransaction", []interface{}{txid, false}, &hex); err != nil {
		return "", fmt.Errorf("bitcoin getrawtransaction: %w", err)
	}
	return hex, nil
}

// Broadcast submits a signed raw transaction and returns its txid.
func (b *BitcoinLedger) Broadcast(ctx context.Context, rawTxHex string) (string, error) {
	var txid string
	if err := b.rpc.Call(ctx, "sendrawtransaction", []interface{}{rawTxHex}, &txid); err != nil {
		return "", fmt.Errorf("bitcoin sendrawtransaction: %w", err)
	}
	return txid, nil
}

// FeeRateSource supplies a Bitcoin fee rate in sat/vbyte. Spec section 9
// leaves the fee data source as an open question and the Non-goals
// explicitly exclude implementing a fee-estimation source, so the daemon
// only defines the interface and a static implementation backed by config.
type FeeRateSource interface {
	FeeRateSatPerVByte(ctx context.Context) (int64, error)
}

// StaticFeeRate implements FeeRateSource with a fixed, config-supplied
// value.
type StaticFeeRate int64

func (s StaticFeeRate) FeeRateSatPerVByte(context.Context) (int64, error) {
	return int64(s), nil
}
