package executor

// Kind names what the executor wants done next.
type Kind string

const (
	KindFundAlpha   Kind = "fund-alpha"
	KindFundBeta    Kind = "fund-beta"
	KindRedeemAlpha Kind = "redeem-alpha"
	KindRedeemBeta  Kind = "redeem-beta"
	KindRefundAlpha Kind = "refund-alpha"
	KindRefundBeta  Kind = "refund-beta"
	KindWait        Kind = "wait"
	KindDone        Kind = "done"
)

// Action is the tagged-union result of NextAction: callers switch on Kind
// and use the ledger-specific fields that apply to it.
type Action struct {
	Kind Kind
}

func wait() Action { return Action{Kind: KindWait} }
func done() Action { return Action{Kind: KindDone} }
