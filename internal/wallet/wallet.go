// Package wallet provides HD key derivation for the two ledgers this
// daemon drives, narrowed from the teacher's multi-chain
// internal/wallet/wallet.go (which cached keys across a dozen coin types)
// down to exactly two BIP44 paths: Bitcoin (purpose 84', coin 0', or
// coin 1' on testnet) for native SegWit, and Ethereum (purpose 44',
// coin 60').
package wallet

import (
	"fmt"
	"sync"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/tyler-smith/go-bip39"
)

// Chain names one of the two BIP44 derivation paths this wallet knows.
type Chain int

const (
	ChainBitcoin Chain = iota
	ChainEthereum
)

const (
	purposeSegWit  = 84
	purposeLegacy  = 44
	coinTypeBTC    = 0
	coinTypeBTCTest = 1
	coinTypeETH    = 60
)

// Wallet derives Bitcoin and Ethereum keys from a single BIP39 seed,
// caching derived keys by (chain, account, change, index) since each
// redeem/refund path needs the same key repeatedly across observer polls.
// mu guards the cache, and EthereumSubmitter also holds it while it
// assigns a nonce and broadcasts.
type Wallet struct {
	masterKey *hdkeychain.ExtendedKey
	testnet   bool

	mu    sync.Mutex
	cache map[Chain]map[[3]uint32]*hdkeychain.ExtendedKey
}

// GenerateMnemonic generates a new 24-word BIP39 mnemonic.
func GenerateMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(256)
	if err != nil {
		return "", fmt.Errorf("wallet: generate entropy: %w", err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("wallet: generate mnemonic: %w", err)
	}
	return mnemonic, nil
}

// ValidateMnemonic checks if a mnemonic is valid.
func ValidateMnemonic(mnemonic string) bool {
	return bip39.IsMnemonicValid(mnemonic)
}

// NewFromMnemonic creates a wallet from a BIP39 mnemonic and optional
// passphrase.
func NewFromMnemonic(mnemonic, passphrase string, testnet bool) (*Wallet, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, fmt.Errorf("wallet: invalid mnemonic")
	}
	seed := bip39.NewSeed(mnemonic, passphrase)
	return NewFromSeed(seed, testnet)
}

// NewFromSeed creates a wallet from a raw 64-byte seed.
func NewFromSeed(seed []byte, testnet bool) (*Wallet, error) {
	params := &chaincfg.MainNetParams
	if testnet {
		params = &chaincfg.TestNet3Params
	}
	masterKey, err := hdkeychain.NewMaster(seed, params)
	if err != nil {
		return nil, fmt.Errorf("wallet: create master key: %w", err)
	}
	return &Wallet{
		masterKey: masterKey,
		testnet:   testnet,
		cache:     make(map[Chain]map[[3]uint32]*hdkeychain.ExtendedKey),
	}, nil
}

// deriveKey derives m/purpose'/coin'/account'/change/index, caching the
// result.
func (w *Wallet) deriveKey(c Chain, account, change, index uint32) (*hdkeychain.ExtendedKey, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	cacheKey := [3]uint32{account, change, index}
	if cached, ok := w.cache[c]; ok {
		if key, ok := cached[cacheKey]; ok {
			return key, nil
		}
	}

	var purpose, coinType uint32
	switch c {
	case ChainBitcoin:
		purpose = purposeSegWit
		coinType = coinTypeBTC
		if w.testnet {
			coinType = coinTypeBTCTest
		}
	case ChainEthereum:
		purpose = purposeLegacy
		coinType = coinTypeETH
	default:
		return nil, fmt.Errorf("wallet: unknown chain %d", c)
	}

	purposeKey, err := w.masterKey.Derive(hdkeychain.HardenedKeyStart + purpose)
	if err != nil {
		return nil, fmt.Errorf("wallet: derive purpose: %w", err)
	}
	coinKey, err := purposeKey.Derive(hdkeychain.HardenedKeyStart + coinType)
	if err != nil {
		return nil, fmt.Errorf("wallet: derive coin: %w", err)
	}
	accountKey, err := coinKey.Derive(hdkeychain.HardenedKeyStart + account)
	if err != nil {
		return nil, fmt.Errorf("wallet: derive account: %w", err)
	}
	changeKey, err := accountKey.Derive(change)
	if err != nil {
		return nil, fmt.Errorf("wallet: derive change: %w", err)
	}
	addressKey, err := changeKey.Derive(index)
	if err != nil {
		return nil, fmt.Errorf("wallet: derive index: %w", err)
	}

	if w.cache[c] == nil {
		w.cache[c] = make(map[[3]uint32]*hdkeychain.ExtendedKey)
	}
	w.cache[c][cacheKey] = addressKey
	return addressKey, nil
}

// DerivePrivateKey derives a chain's private key at account/change/index.
func (w *Wallet) DerivePrivateKey(c Chain, account, change, index uint32) (*btcec.PrivateKey, error) {
	key, err := w.deriveKey(c, account, change, index)
	if err != nil {
		return nil, err
	}
	priv, err := key.ECPrivKey()
	if err != nil {
		return nil, fmt.Errorf("wallet: ec priv key: %w", err)
	}
	return priv, nil
}

// DerivePublicKey derives a chain's public key at account/change/index.
func (w *Wallet) DerivePublicKey(c Chain, account, change, index uint32) (*btcec.PublicKey, error) {
	key, err := w.deriveKey(c, account, change, index)
	if err != nil {
		return nil, err
	}
	pub, err := key.ECPubKey()
	if err != nil {
		return nil, fmt.Errorf("wallet: ec pub key: %w", err)
	}
	return pub, nil
}

// Testnet reports whether this wallet was created for Bitcoin testnet.
func (w *Wallet) Testnet() bool { return w.testnet }
