package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadRoundTripsThroughDump(t *testing.T) {
	cfg := Default()
	cfg.Bitcoin.Network = "testnet"
	cfg.Maker.CurrentMarketDaiPerBtc = "42000"

	dumped, err := cfg.Dump()
	if err != nil {
		t.Fatalf("Dump: %v", err)
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(dumped), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Bitcoin.Network != "testnet" {
		t.Errorf("Bitcoin.Network = %q, want testnet", loaded.Bitcoin.Network)
	}
	if loaded.Maker.CurrentMarketDaiPerBtc != "42000" {
		t.Errorf("Maker.CurrentMarketDaiPerBtc = %q, want 42000", loaded.Maker.CurrentMarketDaiPerBtc)
	}
}

func TestPathJoinsDataDir(t *testing.T) {
	if got, want := Path("/tmp/swapmakerd"), "/tmp/swapmakerd/config.toml"; got != want {
		t.Errorf("Path() = %q, want %q", got, want)
	}
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if cfg.Bitcoin.NodeURL == "" || cfg.Ethereum.NodeURL == "" {
		t.Error("Default() should set node URLs")
	}
	if cfg.DataDir == "" {
		t.Error("Default() should set a data directory")
	}
}
