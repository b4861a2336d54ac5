package wallet

import (
	"strings"
	"testing"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func TestGenerateMnemonic(t *testing.T) {
	mnemonic, err := GenerateMnemonic()
	if err != nil {
		t.Fatalf("GenerateMnemonic() error = %v", err)
	}
	if words := strings.Fields(mnemonic); len(words) != 24 {
		t.Errorf("expected 24 words, got %d", len(words))
	}
	if !ValidateMnemonic(mnemonic) {
		t.Error("generated mnemonic should be valid")
	}
}

func TestValidateMnemonic(t *testing.T) {
	tests := []struct {
		mnemonic string
		valid    bool
	}{
		{testMnemonic, true},
		{"invalid mnemonic words", false},
		{"", false},
	}
	for _, tc := range tests {
		if got := ValidateMnemonic(tc.mnemonic); got != tc.valid {
			t.Errorf("ValidateMnemonic(%q) = %v, want %v", tc.mnemonic, got, tc.valid)
		}
	}
}

func TestDeriveBitcoinAndEthereumAddressesAreStableAndDistinct(t *testing.T) {
	w, err := NewFromMnemonic(testMnemonic, "", false)
	if err != nil {
		t.Fatalf("NewFromMnemonic: %v", err)
	}

	btcAddr1, err := w.DeriveBitcoinAddress(0, 0)
	if err != nil {
		t.Fatalf("DeriveBitcoinAddress: %v", err)
	}
	btcAddr2, err := w.DeriveBitcoinAddress(0, 0)
	if err != nil {
		t.Fatalf("DeriveBitcoinAddress: %v", err)
	}
	if btcAddr1 != btcAddr2 {
		t.Errorf("DeriveBitcoinAddress not stable: %s != %s", btcAddr1, btcAddr2)
	}
	if !strings.HasPrefix(btcAddr1, "bc1") {
		t.Errorf("DeriveBitcoinAddress: expected bc1 prefix, got %s", btcAddr1)
	}

	ethAddr, err := w.DeriveEthereumAddress(0, 0)
	if err != nil {
		t.Fatalf("DeriveEthereumAddress: %v", err)
	}
	if !strings.HasPrefix(ethAddr, "0x") || len(ethAddr) != 42 {
		t.Errorf("DeriveEthereumAddress: malformed address %s", ethAddr)
	}
	if ethAddr == btcAddr1 {
		t.Errorf("bitcoin and ethereum addresses should differ")
	}
}

func TestDeriveBitcoinAddressTestnetPrefix(t *testing.T) {
	w, err := NewFromMnemonic(testMnemonic, "", true)
	if err != nil {
		t.Fatalf("NewFromMnemonic: %v", err)
	}
	addr, err := w.DeriveBitcoinAddress(0, 0)
	if err != nil {
		t.Fatalf("DeriveBitcoinAddress: %v", err)
	}
	if !strings.HasPrefix(addr, "tb1") {
		t.Errorf("testnet address should have tb1 prefix, got %s", addr)
	}
}
