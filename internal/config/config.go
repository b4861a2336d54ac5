// Package config loads the daemon's TOML settings file, generalizing the
// teacher's internal/config (a Go-literal table of per-chain backend
// defaults) into a file-driven struct, since spec section 6.5 requires a
// TOML configuration file rather than compiled-in tables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config is the top-level shape of the daemon's TOML settings file.
type Config struct {
	DataDir string `toml:"data_dir"`

	Bitcoin  BitcoinConfig  `toml:"bitcoin"`
	Ethereum EthereumConfig `toml:"ethereum"`
	Logging  LoggingConfig  `toml:"logging"`
	Maker    MakerConfig    `toml:"maker"`

	// SentryDSN is accepted in the file and round-trips through Dump, but
	// nothing in the daemon reads it; no error reporter is wired up.
	SentryDSN string `toml:"sentry_dsn,omitempty"`
}

// BitcoinConfig points at a Bitcoin Core-compatible node and names which
// network it serves.
type BitcoinConfig struct {
	NodeURL       string `toml:"node_url"`
	Network       string `toml:"network"` // "mainnet", "testnet", "regtest"
	FeeRateSatVB  int64  `toml:"fee_rate_sat_per_vbyte"`
}

// EthereumConfig points at an Ethereum JSON-RPC endpoint carrying DAI.
type EthereumConfig struct {
	NodeURL      string `toml:"node_url"`
	ChainID      uint64 `toml:"chain_id"`
	DaiAddress   string `toml:"dai_address"`
	GasPriceGwei int64  `toml:"gas_price_gwei,omitempty"` // 0 means "ask the node"
}

// LoggingConfig controls the ambient logger.
type LoggingConfig struct {
	Level string `toml:"level"`
}

// MakerConfig seeds the order engine's starting spread and rate, and the
// timing parameters governing newly admitted swaps.
type MakerConfig struct {
	MinSpreadDaiPerBtc     string `toml:"min_spread_dai_per_btc"`
	CurrentMarketDaiPerBtc string `toml:"current_market_dai_per_btc"`
	MaxBtcExposure         string `toml:"max_btc_exposure,omitempty"`
	MaxDaiExposure         string `toml:"max_dai_exposure,omitempty"`

	// BetaExpirySeconds sets the beta ledger's HTLC expiry, measured from
	// swap creation. AlphaExpirySeconds (beta + SafetyMarginSeconds) is
	// derived from it rather than configured separately, so invariant I3
	// (alpha expiry exceeds beta expiry by at least the safety margin)
	// can't be violated by a bad config file.
	BetaExpirySeconds   int64 `toml:"beta_expiry_seconds"`
	SafetyMarginSeconds int64 `toml:"safety_margin_seconds"`

	// PublishIntervalSeconds is how often "trade" mode polls both ledger
	// balances and republishes orders sized to them.
	PublishIntervalSeconds int64 `toml:"publish_interval_seconds"`
}

// Default returns a config with sane, documentable placeholder values, the
// same role the teacher's backend.DefaultConfigs() plays: a starting point
// a fresh install can dump and edit, not something meant to run unedited.
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		DataDir: filepath.Join(home, ".swapmakerd"),
		Bitcoin: BitcoinConfig{
			NodeURL:      "http://127.0.0.1:8332",
			Network:      "mainnet",
			FeeRateSatVB: 10,
		},
		Ethereum: EthereumConfig{
			NodeURL:    "http://127.0.0.1:8545",
			ChainID:    1,
			DaiAddress: "0x6B175474E89094C44Da98b954EedeAC495271d0F",
		},
		Logging: LoggingConfig{Level: "info"},
		Maker: MakerConfig{
			MinSpreadDaiPerBtc:     "0",
			CurrentMarketDaiPerBtc: "40000",
			BetaExpirySeconds:      3600,
			SafetyMarginSeconds:    1800,
			PublishIntervalSeconds: 30,
		},
	}
}

// Load reads and parses the TOML file at path.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("config: load %s: %w", path, err)
	}
	return cfg, nil
}

// Path returns the default config file location inside a data directory.
func Path(dataDir string) string {
	return filepath.Join(dataDir, "config.toml")
}

// Dump encodes the config as TOML text, used by the dump-config CLI
// subcommand (spec section 6.1) so an operator can inspect or seed a
// config file from defaults.
func (c *Config) Dump() (string, error) {
	var b strings.Builder
	if err := toml.NewEncoder(&b).Encode(c); err != nil {
		return "", fmt.Errorf("config: dump: %w", err)
	}
	return b.String(), nil
}
