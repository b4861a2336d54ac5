package store

import (
	"database/sql"
	"fmt"

	"github.com/klingon-exchange/swapmakerd/internal/swapid"
	"github.com/klingon-exchange/swapmakerd/internal/swaperr"
)

// SwapParamsRow persists the fixed HTLC parameters a swap is built with,
// so that a restarted daemon can reconstruct executor.SwapParams for
// Driver.Execute without re-negotiating the swap (spec section 4.4 crash
// recovery). Fields are kept as primitive hex/decimal strings rather than
// importing internal/hbit or internal/herc20's types, since those
// packages sit above internal/store in the dependency graph.
type SwapParamsRow struct {
	SwapID         swapid.ID
	SecretHashHex  string
	RedeemPubKey   string // hex, 33-byte compressed secp256k1 key (hbit side)
	RefundPubKey   string // hex, 33-byte compressed secp256k1 key (hbit side)
	RedeemAddr     string // 0x-prefixed EVM address (herc20 side)
	RefundAddr     string // 0x-prefixed EVM address (herc20 side)
	TokenAddress   string // 0x-prefixed ERC20 contract address (DAI)
	HbitAmountSats int64
	Herc20AmountWei string // decimal string; too large for int64 in general
	HbitExpiry     int64  // unix seconds
	Herc20Expiry   int64  // unix seconds
	BitcoinNetwork string // "mainnet", "testnet3", "regtest"
	ChainID        uint64
	GasLimit       string
}

// SaveSwapParams records a swap's fixed parameters once, at creation.
func (s *Store) SaveSwapParams(p SwapParamsRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO swap_params (
			swap_id, secret_hash, redeem_pubkey, refund_pubkey,
			redeem_addr, refund_addr, token_address,
			hbit_amount_sats, herc20_amount_wei, hbit_expiry, herc20_expiry,
			bitcoin_network, chain_id, gas_limit
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.SwapID.String(), p.SecretHashHex, p.RedeemPubKey, p.RefundPubKey,
		p.RedeemAddr, p.RefundAddr, p.TokenAddress,
		p.HbitAmountSats, p.Herc20AmountWei, p.HbitExpiry, p.Herc20Expiry,
		p.BitcoinNetwork, p.ChainID, p.GasLimit,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("store: save swap params: %w", swaperr.ErrAlreadyStored)
		}
		return fmt.Errorf("store: save swap params: %w", err)
	}
	return nil
}

// SwapParams fetches a swap's fixed parameters.
func (s *Store) SwapParams(id swapid.ID) (*SwapParamsRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var p SwapParamsRow
	var swapIDStr string
	err := s.db.QueryRow(`
		SELECT swap_id, secret_hash, redeem_pubkey, refund_pubkey,
		       redeem_addr, refund_addr, token_address,
		       hbit_amount_sats, herc20_amount_wei, hbit_expiry, herc20_expiry,
		       bitcoin_network, chain_id, gas_limit
		FROM swap_params WHERE swap_id = ?`, id.String(),
	).Scan(
		&swapIDStr, &p.SecretHashHex, &p.RedeemPubKey, &p.RefundPubKey,
		&p.RedeemAddr, &p.RefundAddr, &p.TokenAddress,
		&p.HbitAmountSats, &p.Herc20AmountWei, &p.HbitExpiry, &p.Herc20Expiry,
		&p.BitcoinNetwork, &p.ChainID, &p.GasLimit,
	)
	if err == sql.ErrNoRows {
		return nil, swaperr.ErrSwapNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: swap params: %w", err)
	}
	parsed, err := swapid.Parse(swapIDStr)
	if err != nil {
		return nil, fmt.Errorf("store: swap params: %w", err)
	}
	p.SwapID = parsed
	return &p, nil
}
