// Package hbit implements the Bitcoin side of the atomic-swap HTLC: a
// P2WSH script redeemable either by the secret plus the redeem key (the
// script sets no time bound on this path) or by the sender's refund key
// (at or after expiry), following the construction
// in the teacher's internal/swap/htlc_script.go generalized from a
// relative CSV timeout to an absolute CLTV expiry, per the daemon's
// HbitParams.Expiry being a unix-second timestamp rather than a block
// count.
package hbit

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/klingon-exchange/swapmakerd/internal/secret"
)

// Params describes one Bitcoin HTLC instance. Amount is denominated in
// satoshis.
type Params struct {
	SecretHash   secret.Hash
	RedeemPubKey []byte // 33-byte compressed pubkey of the party who can redeem with the secret
	RefundPubKey []byte // 33-byte compressed pubkey of the party who can refund after expiry
	Expiry       int64  // unix seconds; absolute CLTV locktime
	Amount       int64  // satoshis
	Network      *chaincfg.Params
}

// BuildScript constructs the HTLC witness script:
//
//	OP_IF
//	    OP_SHA256 <secret_hash> OP_EQUALVERIFY
//	    <redeem_pubkey> OP_CHECKSIG
//	OP_ELSE
//	    <expiry> OP_CHECKLOCKTIMEVERIFY OP_DROP
//	    <refund_pubkey> OP_CHECKSIG
//	OP_ENDIF
func BuildScript(p Params) ([]byte, error) {
	if len(p.RedeemPubKey) != 33 {
		return nil, fmt.Errorf("hbit: redeem pubkey must be 33 bytes, got %d", len(p.RedeemPubKey))
	}
	if len(p.RefundPubKey) != 33 {
		return nil, fmt.Errorf("hbit: refund pubkey must be 33 bytes, got %d", len(p.RefundPubKey))
	}
	if p.Expiry <= 0 {
		return nil, fmt.Errorf("hbit: expiry must be a positive unix timestamp")
	}

	b := txscript.NewScriptBuilder()
	b.AddOp(txscript.OP_IF)
	b.AddOp(txscript.OP_SHA256)
	b.AddData(p.SecretHash.Bytes())
	b.AddOp(txscript.OP_EQUALVERIFY)
	b.AddData(p.RedeemPubKey)
	b.AddOp(txscript.OP_CHECKSIG)
	b.AddOp(txscript.OP_ELSE)
	b.AddInt64(p.Expiry)
	b.AddOp(txscript.OP_CHECKLOCKTIMEVERIFY)
	b.AddOp(txscript.OP_DROP)
	b.AddData(p.RefundPubKey)
	b.AddOp(txscript.OP_CHECKSIG)
	b.AddOp(txscript.OP_ENDIF)

	return b.Script()
}

// P2WSHScriptPubKey wraps a witness script in a P2WSH output script
// (OP_0 <sha256(script)>).
func P2WSHScriptPubKey(witnessScript []byte) ([]byte, error) {
	scriptHash := chainhash.HashB(witnessScript)
	b := txscript.NewScriptBuilder()
	b.AddOp(txscript.OP_0)
	b.AddData(scriptHash)
	return b.Script()
}

// Address derives the bech32 P2WSH funding address a counterparty must pay
// to fund this HTLC.
func Address(p Params) (btcutil.Address, []byte, error) {
	witnessScript, err := BuildScript(p)
	if err != nil {
		return nil, nil, err
	}
	scriptHash := chainhash.HashB(witnessScript)
	addr, err := btcutil.NewAddressWitnessScriptHash(scriptHash, p.Network)
	if err != nil {
		return nil, nil, fmt.Errorf("hbit: derive p2wsh address: %w", err)
	}
	return addr, witnessScript, nil
}

// FindFunding builds the matcher AwaitHbitFunded needs to recognize this
// HTLC's funding output in a candidate transaction's raw hex: it decodes
// the transaction and looks for an output paying p's P2WSH script.
func FindFunding(p Params) (func(txHex string) (vout uint32, amount int64, ok bool), error) {
	_, witnessScript, err := Address(p)
	if err != nil {
		return nil, err
	}
	pkScript, err := P2WSHScriptPubKey(witnessScript)
	if err != nil {
		return nil, err
	}
	return func(txHex string) (uint32, int64, bool) {
		raw, err := hex.DecodeString(txHex)
		if err != nil {
			return 0, 0, false
		}
		var tx wire.MsgTx
		if err := tx.Deserialize(bytes.NewReader(raw)); err != nil {
			return 0, 0, false
		}
		for i, out := range tx.TxOut {
			if bytes.Equal(out.PkScript, pkScript) {
				return uint32(i), out.Value, true
			}
		}
		return 0, 0, false
	}, nil
}

// FindSpend builds a matcher for a transaction spending this HTLC's
// funding outpoint, reporting whether the witness took the redeem path
// (and, if so, the revealed preimage) or the refund path. It inspects the
// witness shape RedeemWitness/RefundWitness produce: four items means
// redeem (the second item is taken as the preimage), three items means
// refund. The length of the preimage item is not checked.
func FindSpend(fundingTxID string, fundingVout uint32) func(txHex string) (preimage secret.Secret, redeemed bool, refunded bool, ok bool) {
	return func(txHex string) (secret.Secret, bool, bool, bool) {
		raw, err := hex.DecodeString(txHex)
		if err != nil {
			return secret.Secret{}, false, false, false
		}
		var tx wire.MsgTx
		if err := tx.Deserialize(bytes.NewReader(raw)); err != nil {
			return secret.Secret{}, false, false, false
		}
		for _, in := range tx.TxIn {
			if in.PreviousOutPoint.Hash.String() != fundingTxID || in.PreviousOutPoint.Index != fundingVout {
				continue
			}
			switch len(in.Witness) {
			case 4:
				var s secret.Secret
				copy(s[:], in.Witness[1])
				return s, true, false, true
			case 3:
				return secret.Secret{}, false, true, true
			}
		}
		return secret.Secret{}, false, false, false
	}
}

// RedeemWitness builds the witness stack that spends the HTLC via the
// secret path: <sig> <preimage> <OP_1> <witnessScript>.
func RedeemWitness(sig []byte, preimage secret.Secret, witnessScript []byte) wire.TxWitness {
	return wire.TxWitness{
		sig,
		preimage.Bytes(),
		[]byte{1},
		witnessScript,
	}
}

// RefundWitness builds the witness stack that spends the HTLC via the
// timeout path: <sig> <OP_0> <witnessScript>.
func RefundWitness(sig []byte, witnessScript []byte) wire.TxWitness {
	return wire.TxWitness{
		sig,
		nil,
		witnessScript,
	}
}
