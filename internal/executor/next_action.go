package executor

import "github.com/klingon-exchange/swapmakerd/internal/swapid"

// NextAction is the pure heart of the executor: given everything known
// so far about a swap, it returns exactly one next step. It never reads
// a clock or calls out to a ledger itself — LedgerState.Expired/NearExpiry
// are computed by the caller from the current time before calling this,
// which is what makes the function safe to call identically whether the
// daemon has been running continuously or is resuming after a crash
// (invariant P6).
func NextAction(s SwapState) Action {
	alphaFundedByUs := s.WeFundAlpha
	betaFundedByUs := s.WeFundBeta()

	// Step 1: fund whichever ledger is ours to fund, unless it already
	// expired (in which case nothing of ours was committed and the swap is
	// done).
	if alphaFundedByUs && !s.Alpha.Funded {
		if s.Alpha.Expired {
			return done()
		}
		return Action{Kind: KindFundAlpha}
	}
	if betaFundedByUs && !s.Beta.Funded {
		if s.Beta.Expired {
			return done()
		}
		return Action{Kind: KindFundBeta}
	}

	// Step 2: if we funded our ledger but the counterparty never funded
	// theirs, reclaim our funds once our ledger's own expiry is reached.
	if alphaFundedByUs && !s.Beta.Funded {
		if s.Alpha.Expired && !s.Alpha.Refunded {
			return Action{Kind: KindRefundAlpha}
		}
		return wait()
	}
	if betaFundedByUs && !s.Alpha.Funded {
		if s.Beta.Expired && !s.Beta.Refunded {
			return Action{Kind: KindRefundBeta}
		}
		return wait()
	}

	// Step 3: both ledgers are funded. Each party redeems the ledger the
	// other party funded — that is the one locked in their favor.
	ourClaim, ourClaimIsAlpha := claimLedger(s, alphaFundedByUs)

	if !ourClaim.Redeemed {
		canRedeemNow := s.Role == swapid.RoleAlice || s.SecretKnown
		if canRedeemNow {
			if ourClaimIsAlpha {
				return Action{Kind: KindRedeemAlpha}
			}
			return Action{Kind: KindRedeemBeta}
		}

		// We are Bob and the secret has not appeared yet. If our own
		// funded ledger is about to expire without the counterparty
		// redeeming it (which is how we'd learn the secret), refund it
		// instead of losing the funds to an expiry we can no longer act
		// on later.
		ourFundedLedger := s.Alpha
		if !alphaFundedByUs {
			ourFundedLedger = s.Beta
		}
		if ourFundedLedger.Expired && !ourFundedLedger.Refunded {
			if alphaFundedByUs {
				return Action{Kind: KindRefundAlpha}
			}
			return Action{Kind: KindRefundBeta}
		}
		return wait()
	}

	return done()
}

// claimLedger returns the ledger state we redeem from (the one the
// counterparty funded) and whether that is the alpha ledger.
func claimLedger(s SwapState, alphaFundedByUs bool) (LedgerState, bool) {
	if alphaFundedByUs {
		return s.Beta, false
	}
	return s.Alpha, true
}
