package executor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/klingon-exchange/swapmakerd/internal/actionjson"
	"github.com/klingon-exchange/swapmakerd/internal/secret"
	"github.com/klingon-exchange/swapmakerd/internal/store"
	"github.com/klingon-exchange/swapmakerd/internal/swapid"
	"github.com/klingon-exchange/swapmakerd/internal/swaperr"
	"github.com/klingon-exchange/swapmakerd/pkg/logging"
)

// Submitter signs and broadcasts the wire action Dispatch produces,
// returning the broadcast transaction's reference (txid or tx hash). It is
// the wallet-layer boundary named in SPEC_FULL.md section 4.1: Execute
// decides WHAT to do, a Submitter decides HOW to get it on-chain, and this
// package never holds a private key. Unlike a plain EOA deployment, the
// herc20 contract's address never needs to come back from a Submitter: it's
// a pure function of SwapParams.Herc20 (see herc20.ContractAddress).
type Submitter interface {
	Submit(ctx context.Context, resp *actionjson.Response) (txRef string, err error)
}

// Driver runs one swap's Execute loop: derive state from the store,
// decide the next action, submit it, and record what happened, following
// the struct-holding-the-event-log dispatch style of the teacher's
// swap.Coordinator, narrowed to a single swap per Driver instance.
type Driver struct {
	Store            *store.Store
	Params           SwapParams
	Submit           Submitter
	Confirm          Confirmer
	NearExpiryMargin time.Duration
	PollInterval     time.Duration
	WatchPollInterval time.Duration
	log              *logging.Logger
}

// NewDriver builds a Driver for one swap's parameters.
func NewDriver(st *store.Store, params SwapParams, submit Submitter, confirm Confirmer) *Driver {
	return &Driver{
		Store:             st,
		Params:            params,
		Submit:            submit,
		Confirm:           confirm,
		NearExpiryMargin:  30 * time.Minute,
		PollInterval:      15 * time.Second,
		WatchPollInterval: 20 * time.Second,
		log:               logging.GetDefault().Component("executor"),
	}
}

func (d *Driver) expiry(now time.Time) Expiry {
	alphaExpiry := time.Unix(d.Params.Hbit.Expiry, 0)
	betaExpiry := time.Unix(d.Params.Herc20.Expiry, 0)
	if !d.Params.alphaIsHbit() {
		alphaExpiry, betaExpiry = betaExpiry, alphaExpiry
	}
	return Expiry{
		AlphaExpired:    !now.Before(alphaExpiry),
		AlphaNearExpiry: !now.Before(alphaExpiry.Add(-d.NearExpiryMargin)),
		BetaExpired:     !now.Before(betaExpiry),
		BetaNearExpiry:  !now.Before(betaExpiry.Add(-d.NearExpiryMargin)),
	}
}

// eventKindForAction names the event a confirmed submission of action
// should record, resolving which concrete ledger the abstract side names
// for p (swapid.AlphaBeta). Watch independently records the same event
// kinds when the counterparty produces the underlying fact first, so
// whichever of Step or Watch observes confirmation first wins;
// Store.SaveEvent's per-(swap,kind) uniqueness makes the other a harmless
// no-op.
func eventKindForAction(kind Kind, p SwapParams) string {
	hbitSide := sideIsHbit(kind, p)
	switch kind {
	case KindFundAlpha, KindFundBeta:
		if hbitSide {
			return EventHbitFunded
		}
		return EventHerc20Deployed
	case KindRedeemAlpha, KindRedeemBeta:
		if hbitSide {
			return EventHbitRedeemed
		}
		return EventHerc20Redeemed
	case KindRefundAlpha, KindRefundBeta:
		if hbitSide {
			return EventHbitRefunded
		}
		return EventHerc20Refunded
	default:
		return ""
	}
}

// confirm blocks until the on-chain fact that kind represents is true,
// using Confirm rather than trusting that a successful Submit is itself
// the fact (invariant P6 is about decisions, not about when an event may
// be recorded: broadcasting is not confirming). For a redeem kind it
// returns the secret the confirmed redeem revealed, which is ours when we
// did the redeeming and the counterparty's otherwise.
func (d *Driver) confirm(ctx context.Context, kind Kind) (secret.Secret, error) {
	switch kind {
	case KindFundAlpha:
		return secret.Secret{}, d.Confirm.AwaitAlphaFunded(ctx, d.Params)
	case KindFundBeta:
		return secret.Secret{}, d.Confirm.AwaitBetaFunded(ctx, d.Params)
	case KindRedeemAlpha:
		return d.Confirm.AwaitAlphaRedeemed(ctx, d.Params)
	case KindRedeemBeta:
		return d.Confirm.AwaitBetaRedeemed(ctx, d.Params)
	case KindRefundAlpha:
		return secret.Secret{}, d.Confirm.AwaitAlphaRefunded(ctx, d.Params)
	case KindRefundBeta:
		return secret.Secret{}, d.Confirm.AwaitBetaRefunded(ctx, d.Params)
	default:
		return secret.Secret{}, nil
	}
}

// eventPayload builds the JSON stored alongside kind: every confirmed
// fact carries the broadcast tx reference, and a confirmed redeem
// additionally carries the secret it revealed, on whichever ledger it
// happened, which is how the non-redeeming party learns it (Derive reads
// it back via redeemedPayload).
func eventPayload(kind string, txRef string, revealed secret.Secret) ([]byte, error) {
	if kind == EventHerc20Redeemed || kind == EventHbitRedeemed {
		return json.Marshal(struct {
			TxRef  string `json:"tx_ref"`
			Secret string `json:"secret"`
		}{TxRef: txRef, Secret: revealed.String()})
	}
	return json.Marshal(struct {
		TxRef string `json:"tx_ref"`
	}{TxRef: txRef})
}

// Step runs exactly one decide-and-act iteration for id, at wall-clock
// time now: it replays the stored event log into a SwapState, asks
// NextAction what to do, and — if that's an actionable step rather than
// Wait/Done — dispatches it, submits it, blocks until Confirm reports the
// resulting fact is true on-chain, and only then records the event.
// Broadcasting alone is never treated as confirmation (SPEC_FULL.md
// section 4.2's Observer role): a crash between submit and confirmation
// just means the next Step re-dispatches, which NextAction already
// tolerates by being idempotent over the event log. It returns the Action
// taken so callers can observe progress.
func (d *Driver) Step(ctx context.Context, id swapid.ID, now time.Time) (Action, error) {
	meta, err := d.Store.SwapMeta(id)
	if err != nil {
		return Action{}, fmt.Errorf("executor: step: %w", err)
	}
	events, err := d.Store.Events(id)
	if err != nil {
		return Action{}, fmt.Errorf("executor: step: %w", err)
	}
	state, err := Derive(*meta, events, d.expiry(now))
	if err != nil {
		return Action{}, fmt.Errorf("executor: step: %w", err)
	}

	action := NextAction(state)
	if action.Kind == KindWait || action.Kind == KindDone {
		return action, nil
	}

	isRedeem := action.Kind == KindRedeemAlpha || action.Kind == KindRedeemBeta
	var resp *actionjson.Response
	if isRedeem && state.SecretKnown {
		resp, err = DispatchRedeem(action.Kind, d.Params, state.Secret)
	} else {
		resp, err = Dispatch(action, d.Params)
	}
	if err != nil {
		return action, fmt.Errorf("executor: step: dispatch %s: %w", action.Kind, err)
	}
	if resp == nil {
		return action, nil
	}

	txRef, err := d.Submit.Submit(ctx, resp)
	if err != nil {
		return action, fmt.Errorf("executor: step: submit %s: %w", action.Kind, err)
	}

	kind := eventKindForAction(action.Kind, d.Params)
	if kind == "" {
		return action, nil
	}
	revealed, err := d.confirm(ctx, action.Kind)
	if err != nil {
		return action, fmt.Errorf("executor: step: confirm %s: %w", action.Kind, err)
	}
	if isRedeem && revealed == (secret.Secret{}) {
		revealed = state.Secret
	}
	payload, err := eventPayload(kind, txRef, revealed)
	if err != nil {
		return action, fmt.Errorf("executor: step: encode event payload: %w", err)
	}
	err = d.Store.SaveEvent(store.Event{SwapID: id, Kind: kind, Payload: string(payload)})
	if err != nil && !errors.Is(err, swaperr.ErrAlreadyStored) {
		return action, fmt.Errorf("executor: step: save event: %w", err)
	}

	d.log.Info("executed swap action", "swap_id", id.String(), "action", string(action.Kind))
	return action, nil
}

// watchFact pairs an event kind with the Confirm call that detects it.
type watchFact struct {
	kind    string
	confirm func(context.Context) (secret.Secret, error)
}

// watchFacts lists every confirmable fact by the action kind that would
// normally produce it, resolving each to the event kind p's alpha/beta
// assignment actually implies (eventKindForAction) rather than assuming a
// fixed ledger for alpha.
func (d *Driver) watchFacts() []watchFact {
	kinds := []Kind{
		KindFundAlpha, KindFundBeta,
		KindRedeemAlpha, KindRedeemBeta,
		KindRefundAlpha, KindRefundBeta,
	}
	facts := make([]watchFact, 0, len(kinds))
	for _, k := range kinds {
		k := k
		facts = append(facts, watchFact{
			kind:    eventKindForAction(k, d.Params),
			confirm: func(ctx context.Context) (secret.Secret, error) { return d.confirm(ctx, k) },
		})
	}
	return facts
}

// Watch runs independently of Step/Execute's decide-and-dispatch loop,
// polling every confirmable fact for this swap until each has been
// recorded once, regardless of which party's transaction produced it. It
// is what lets a party who never dispatches a given action still learn
// the fact happened — most importantly, it is how the party who isn't
// Alice learns the secret, by observing Alice's redeem of beta directly on
// whichever ledger beta is, rather than waiting on a Driver.Step that only
// records a redeem event when it itself dispatched the redeem
// (SPEC_FULL.md section 4.2's Observer role, and section 2's
// Observer→EventStore→Executor data flow). It's safe to run alongside
// Execute for the same swap: both ultimately call Store.SaveEvent, which
// is idempotent per (swap, kind).
func (d *Driver) Watch(ctx context.Context, id swapid.ID) error {
	var wg sync.WaitGroup
	for _, f := range d.watchFacts() {
		f := f
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.watchOne(ctx, id, f)
		}()
	}
	wg.Wait()
	return ctx.Err()
}

// watchOne blocks on f.confirm until it succeeds, then records the fact,
// retrying after WatchPollInterval on a transient confirm error rather
// than abandoning the watch (the underlying Await* calls already block
// internally until the fact is true or ctx is done, so a returned error
// here means the RPC itself failed, not that the fact is false).
func (d *Driver) watchOne(ctx context.Context, id swapid.ID, f watchFact) {
	for {
		has, err := d.Store.HasEvent(id, f.kind)
		if err != nil {
			d.log.Error("watch: check event", "swap_id", id.String(), "kind", f.kind, "error", err)
		} else if has {
			return
		}

		revealed, err := f.confirm(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			d.log.Error("watch: confirm failed, retrying", "swap_id", id.String(), "kind", f.kind, "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(d.WatchPollInterval):
			}
			continue
		}

		payload, err := eventPayload(f.kind, "", revealed)
		if err != nil {
			d.log.Error("watch: encode payload", "swap_id", id.String(), "kind", f.kind, "error", err)
			return
		}
		err = d.Store.SaveEvent(store.Event{SwapID: id, Kind: f.kind, Payload: string(payload)})
		if err != nil && !errors.Is(err, swaperr.ErrAlreadyStored) {
			d.log.Error("watch: save event", "swap_id", id.String(), "kind", f.kind, "error", err)
			return
		}
		d.log.Info("observed swap fact", "swap_id", id.String(), "kind", f.kind)
		return
	}
}

// Execute runs Step on a fixed cadence until the swap reaches Done, ctx
// is cancelled, or Step returns an error. It is the resumable loop
// underlying the daemon's "trade"/"resume-only" CLI modes (spec section
// 4.4): crashing and restarting just calls Execute again, since Step
// always re-derives its decision from the stored event log.
func (d *Driver) Execute(ctx context.Context, id swapid.ID) error {
	ticker := time.NewTicker(d.PollInterval)
	defer ticker.Stop()

	for {
		action, err := d.Step(ctx, id, time.Now())
		if err != nil {
			return err
		}
		if action.Kind == KindDone {
			if err := d.Store.MarkCompleted(id); err != nil {
				return fmt.Errorf("executor: execute: %w", err)
			}
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
