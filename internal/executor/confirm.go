package executor

import (
	"context"

	"github.com/klingon-exchange/swapmakerd/internal/secret"
)

// Confirmer tells a Driver what is actually true on-chain, independent of
// who broadcast the underlying transaction. It is the boundary
// SPEC_FULL.md section 4.2 calls the Observer role, and it's what turns
// "we broadcast a transaction" into "the fact is confirmed": Step calls it
// after submitting our own action, and Watch calls it on a separate
// schedule to catch a fact the counterparty produced — most importantly
// the redeem that reveals the secret, whichever ledger it lands on, which
// is the only way the non-redeeming party ever learns it. Alpha and beta
// name the swap's two sides abstractly; which concrete ledger (hbit or
// herc20) each one is depends on the swap's role and position
// (swapid.AlphaBeta) and is an implementation's concern, not this
// interface's.
type Confirmer interface {
	AwaitAlphaFunded(ctx context.Context, p SwapParams) error
	// AwaitAlphaRedeemed returns the secret revealed by the redeem,
	// regardless of whether we or the counterparty broadcast it.
	AwaitAlphaRedeemed(ctx context.Context, p SwapParams) (secret.Secret, error)
	AwaitAlphaRefunded(ctx context.Context, p SwapParams) error
	AwaitBetaFunded(ctx context.Context, p SwapParams) error
	// AwaitBetaRedeemed returns the secret revealed by the redeem,
	// regardless of whether we or the counterparty broadcast it.
	AwaitBetaRedeemed(ctx context.Context, p SwapParams) (secret.Secret, error)
	AwaitBetaRefunded(ctx context.Context, p SwapParams) error
}
