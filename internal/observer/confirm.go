package observer

import (
	"context"
	"fmt"

	"github.com/klingon-exchange/swapmakerd/internal/chain"
	"github.com/klingon-exchange/swapmakerd/internal/executor"
	"github.com/klingon-exchange/swapmakerd/internal/hbit"
	"github.com/klingon-exchange/swapmakerd/internal/herc20"
	"github.com/klingon-exchange/swapmakerd/internal/secret"
	"github.com/klingon-exchange/swapmakerd/internal/swapid"
)

// bitcoinScanFromHeight starts every Bitcoin scan at genesis rather than
// tracking a per-swap starting height, the same documented scope cut
// chain.EthereumLedger.GetLogs makes for eth_getLogs.
const bitcoinScanFromHeight = 0

// Confirmer implements executor.Confirmer against real Bitcoin and
// Ethereum JSON-RPC-backed ledgers, wiring this package's Await* polling
// functions to the small per-ledger interface Driver.Step and Driver.Watch
// need, without the executor package depending on chain, hbit or herc20.
type Confirmer struct {
	Bitcoin  *chain.BitcoinLedger
	Ethereum *chain.EthereumLedger
}

// alphaIsHbit reports which concrete ledger p's alpha side is, per
// swapid.AlphaBeta: alpha and beta name the swap's two sides abstractly,
// and which one is Bitcoin depends on role and position, not a fixed
// assignment.
func alphaIsHbit(p executor.SwapParams) bool {
	alpha, _ := swapid.AlphaBeta(p.Role, p.Position)
	return alpha == swapid.LedgerBitcoin
}

func (c *Confirmer) awaitHbitFunded(ctx context.Context, p executor.SwapParams) error {
	addr, _, err := hbit.Address(p.Hbit)
	if err != nil {
		return fmt.Errorf("confirm hbit funded: %w", err)
	}
	findFunding, err := hbit.FindFunding(p.Hbit)
	if err != nil {
		return fmt.Errorf("confirm hbit funded: %w", err)
	}
	_, err = AwaitHbitFunded(ctx, c.Bitcoin, addr.EncodeAddress(), p.Hbit.Amount, bitcoinScanFromHeight, findFunding)
	return err
}

func (c *Confirmer) awaitHerc20Deployed(ctx context.Context, p executor.SwapParams) error {
	addr, err := herc20.ContractAddress(p.Herc20)
	if err != nil {
		return fmt.Errorf("confirm herc20 deployed: %w", err)
	}
	return AwaitHerc20Deployed(ctx, c.Ethereum, addr)
}

func (c *Confirmer) awaitHerc20Redeemed(ctx context.Context, p executor.SwapParams) (secret.Secret, error) {
	addr, err := herc20.ContractAddress(p.Herc20)
	if err != nil {
		return secret.Secret{}, fmt.Errorf("confirm herc20 redeemed: %w", err)
	}
	return AwaitHerc20Redeemed(ctx, c.Ethereum, addr)
}

func (c *Confirmer) awaitHerc20Refunded(ctx context.Context, p executor.SwapParams) error {
	addr, err := herc20.ContractAddress(p.Herc20)
	if err != nil {
		return fmt.Errorf("confirm herc20 refunded: %w", err)
	}
	return AwaitHerc20Refunded(ctx, c.Ethereum, addr)
}

// awaitHbitSpend locates the Bitcoin HTLC's funding outpoint (expected to
// already be confirmed by the time anyone asks about a spend) and then
// watches for whichever transaction spends it.
func (c *Confirmer) awaitHbitSpend(ctx context.Context, p executor.SwapParams) (*HbitSpend, error) {
	findFunding, err := hbit.FindFunding(p.Hbit)
	if err != nil {
		return nil, fmt.Errorf("confirm hbit spend: %w", err)
	}
	funding, err := AwaitHbitFunded(ctx, c.Bitcoin, "", p.Hbit.Amount, bitcoinScanFromHeight, findFunding)
	if err != nil {
		return nil, fmt.Errorf("confirm hbit spend: %w", err)
	}
	findSpend := hbit.FindSpend(funding.TxID, funding.Vout)
	return AwaitHbitSpent(ctx, c.Bitcoin, bitcoinScanFromHeight, findSpend)
}

func (c *Confirmer) awaitHbitRedeemed(ctx context.Context, p executor.SwapParams) (secret.Secret, error) {
	spend, err := c.awaitHbitSpend(ctx, p)
	if err != nil {
		return secret.Secret{}, fmt.Errorf("confirm hbit redeemed: %w", err)
	}
	if !spend.Redeemed {
		return secret.Secret{}, fmt.Errorf("confirm hbit redeemed: htlc spend took the refund path")
	}
	return spend.Secret, nil
}

func (c *Confirmer) awaitHbitRefunded(ctx context.Context, p executor.SwapParams) error {
	spend, err := c.awaitHbitSpend(ctx, p)
	if err != nil {
		return fmt.Errorf("confirm hbit refunded: %w", err)
	}
	if !spend.Refunded {
		return fmt.Errorf("confirm hbit refunded: htlc spend took the redeem path")
	}
	return nil
}

func (c *Confirmer) AwaitAlphaFunded(ctx context.Context, p executor.SwapParams) error {
	if alphaIsHbit(p) {
		return c.awaitHbitFunded(ctx, p)
	}
	return c.awaitHerc20Deployed(ctx, p)
}

func (c *Confirmer) AwaitBetaFunded(ctx context.Context, p executor.SwapParams) error {
	if alphaIsHbit(p) {
		return c.awaitHerc20Deployed(ctx, p)
	}
	return c.awaitHbitFunded(ctx, p)
}

func (c *Confirmer) AwaitAlphaRedeemed(ctx context.Context, p executor.SwapParams) (secret.Secret, error) {
	if alphaIsHbit(p) {
		return c.awaitHbitRedeemed(ctx, p)
	}
	return c.awaitHerc20Redeemed(ctx, p)
}

func (c *Confirmer) AwaitBetaRedeemed(ctx context.Context, p executor.SwapParams) (secret.Secret, error) {
	if alphaIsHbit(p) {
		return c.awaitHerc20Redeemed(ctx, p)
	}
	return c.awaitHbitRedeemed(ctx, p)
}

func (c *Confirmer) AwaitAlphaRefunded(ctx context.Context, p executor.SwapParams) error {
	if alphaIsHbit(p) {
		return c.awaitHbitRefunded(ctx, p)
	}
	return c.awaitHerc20Refunded(ctx, p)
}

func (c *Confirmer) AwaitBetaRefunded(ctx context.Context, p executor.SwapParams) error {
	if alphaIsHbit(p) {
		return c.awaitHerc20Refunded(ctx, p)
	}
	return c.awaitHbitRefunded(ctx, p)
}
