package hbit

import (
	"bytes"
	"testing"

	"github.com/btcsuite/btcd/chaincfg"

	"github.com/klingon-exchange/swapmakerd/internal/secret"
)

func testParams(t *testing.T) Params {
	t.Helper()
	s, err := secret.Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return Params{
		SecretHash:   secret.HashOf(s),
		RedeemPubKey: bytes.Repeat([]byte{0x02}, 33),
		RefundPubKey: bytes.Repeat([]byte{0x03}, 33),
		Expiry:       1893456000,
		Amount:       100000,
		Network:      &chaincfg.RegressionNetParams,
	}
}

func TestBuildScriptDeterministic(t *testing.T) {
	p := testParams(t)
	a, err := BuildScript(p)
	if err != nil {
		t.Fatalf("BuildScript: %v", err)
	}
	b, err := BuildScript(p)
	if err != nil {
		t.Fatalf("BuildScript: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatalf("BuildScript: expected identical output for identical params")
	}
}

func TestBuildScriptRejectsBadPubKeyLength(t *testing.T) {
	p := testParams(t)
	p.RedeemPubKey = []byte{0x02, 0x03}
	if _, err := BuildScript(p); err == nil {
		t.Fatalf("BuildScript: expected error for short redeem pubkey")
	}
}

func TestAddressIsP2WSH(t *testing.T) {
	p := testParams(t)
	addr, script, err := Address(p)
	if err != nil {
		t.Fatalf("Address: %v", err)
	}
	if addr.EncodeAddress() == "" {
		t.Fatalf("Address: empty encoded address")
	}
	if len(script) == 0 {
		t.Fatalf("Address: empty witness script")
	}
}
