package wallet

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
)

// BitcoinParams returns the chaincfg.Params matching this wallet's
// network.
func (w *Wallet) BitcoinParams() *chaincfg.Params {
	if w.testnet {
		return &chaincfg.TestNet3Params
	}
	return &chaincfg.MainNetParams
}

// DeriveBitcoinAddress derives a native SegWit (P2WPKH) receiving address
// at account/index, used for the daemon's own spendable balance rather
// than for the per-swap HTLC address (that one is built by internal/hbit
// from a redeem/refund pubkey pair, not from a plain wallet index).
func (w *Wallet) DeriveBitcoinAddress(account, index uint32) (string, error) {
	pubKey, err := w.DerivePublicKey(ChainBitcoin, account, 0, index)
	if err != nil {
		return "", err
	}
	pubKeyHash := btcutil.Hash160(pubKey.SerializeCompressed())
	addr, err := btcutil.NewAddressWitnessPubKeyHash(pubKeyHash, w.BitcoinParams())
	if err != nil {
		return "", fmt.Errorf("wallet: p2wpkh address: %w", err)
	}
	return addr.EncodeAddress(), nil
}

// PrivateKeyToWIF converts a Bitcoin private key to Wallet Import Format.
func (w *Wallet) PrivateKeyToWIF(privKey *btcec.PrivateKey) (string, error) {
	wif, err := btcutil.NewWIF(privKey, w.BitcoinParams(), true)
	if err != nil {
		return "", fmt.Errorf("wallet: wif encode: %w", err)
	}
	return wif.String(), nil
}
