package wallet

import (
	"encoding/hex"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"golang.org/x/crypto/sha3"
)

// keccak256 computes the Keccak-256 hash, used for both EVM address
// derivation and the EIP-55 checksum, matching the teacher's
// internal/wallet/evm.go.
func keccak256(data []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	return h.Sum(nil)
}

// publicKeyToEVMAddress converts a secp256k1 public key to a
// checksummed EVM address: the last 20 bytes of Keccak256 of the
// uncompressed public key, minus its 0x04 prefix byte.
func publicKeyToEVMAddress(pubKey *btcec.PublicKey) string {
	uncompressed := pubKey.SerializeUncompressed()
	hash := keccak256(uncompressed[1:])
	return checksumAddress(hex.EncodeToString(hash[12:]))
}

// checksumAddress applies EIP-55 mixed-case checksumming to a hex
// address (without 0x prefix).
func checksumAddress(addr string) string {
	addr = strings.ToLower(strings.TrimPrefix(addr, "0x"))
	hash := hex.EncodeToString(keccak256([]byte(addr)))

	var b strings.Builder
	b.WriteString("0x")
	for i, c := range addr {
		if c >= '0' && c <= '9' {
			b.WriteRune(c)
			continue
		}
		if hash[i] >= '8' {
			b.WriteRune(c - 32) // uppercase
		} else {
			b.WriteRune(c)
		}
	}
	return b.String()
}

// DeriveEthereumAddress derives an Ethereum address at account/index.
func (w *Wallet) DeriveEthereumAddress(account, index uint32) (string, error) {
	pub, err := w.DerivePublicKey(ChainEthereum, account, 0, index)
	if err != nil {
		return "", err
	}
	return publicKeyToEVMAddress(pub), nil
}
