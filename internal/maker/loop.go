package maker

import (
	"context"
	"math/big"

	"github.com/klingon-exchange/swapmakerd/internal/order"
	"github.com/klingon-exchange/swapmakerd/internal/swapid"
	"github.com/klingon-exchange/swapmakerd/pkg/logging"
)

// Loop serializes every balance observation and take-request decision
// through a single goroutine, grounded on the teacher's
// internal/node/retry_worker.go (a ctx/cancel pair and a run() select
// loop owning all access to shared state). Maker's own methods are
// already mutex-safe for concurrent callers, but a balance update and a
// take-request decision racing each other could admit a swap against a
// balance that a concurrent update is about to invalidate; routing both
// through one command channel makes each a point-in-time step of a
// single ordered history instead.
type Loop struct {
	maker *Maker
	log   *logging.Logger

	cmds chan command

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

type commandKind int

const (
	cmdUpdateBitcoinBalance commandKind = iota
	cmdUpdateDaiBalance
	cmdProcessTakenOrder
)

type command struct {
	kind commandKind

	amount   *big.Int
	request  order.TakeRequest
	position swapid.Position

	ordersReply   chan PublishOrders
	decisionReply chan takenOrderResult
}

type takenOrderResult struct {
	decision order.Decision
	err      error
}

// NewLoop wraps m in a Loop that is not yet running; call Start to launch
// its goroutine.
func NewLoop(m *Maker) *Loop {
	ctx, cancel := context.WithCancel(context.Background())
	return &Loop{
		maker:  m,
		log:    logging.GetDefault().Component("maker-loop"),
		cmds:   make(chan command, 64),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Start launches the loop's background goroutine.
func (l *Loop) Start() {
	go l.run()
	l.log.Info("maker loop started")
}

// Stop cancels the loop and waits for its goroutine to exit.
func (l *Loop) Stop() {
	l.cancel()
	<-l.done
	l.log.Info("maker loop stopped")
}

func (l *Loop) run() {
	defer close(l.done)
	for {
		select {
		case <-l.ctx.Done():
			return
		case cmd := <-l.cmds:
			l.handle(cmd)
		}
	}
}

func (l *Loop) handle(cmd command) {
	switch cmd.kind {
	case cmdUpdateBitcoinBalance:
		cmd.ordersReply <- l.maker.UpdateBitcoinBalance(cmd.amount)
	case cmdUpdateDaiBalance:
		cmd.ordersReply <- l.maker.UpdateDaiBalance(cmd.amount)
	case cmdProcessTakenOrder:
		decision, err := l.maker.ProcessTakenOrder(cmd.request, cmd.position)
		cmd.decisionReply <- takenOrderResult{decision: decision, err: err}
	}
}

// UpdateBitcoinBalance submits a Bitcoin balance observation to the loop
// and waits for the resulting PublishOrders.
func (l *Loop) UpdateBitcoinBalance(ctx context.Context, sats *big.Int) (PublishOrders, error) {
	reply := make(chan PublishOrders, 1)
	cmd := command{kind: cmdUpdateBitcoinBalance, amount: sats, ordersReply: reply}
	if err := l.submit(ctx, cmd); err != nil {
		return PublishOrders{}, err
	}
	select {
	case pub := <-reply:
		return pub, nil
	case <-ctx.Done():
		return PublishOrders{}, ctx.Err()
	}
}

// UpdateDaiBalance submits a DAI balance observation to the loop and waits
// for the resulting PublishOrders.
func (l *Loop) UpdateDaiBalance(ctx context.Context, wei *big.Int) (PublishOrders, error) {
	reply := make(chan PublishOrders, 1)
	cmd := command{kind: cmdUpdateDaiBalance, amount: wei, ordersReply: reply}
	if err := l.submit(ctx, cmd); err != nil {
		return PublishOrders{}, err
	}
	select {
	case pub := <-reply:
		return pub, nil
	case <-ctx.Done():
		return PublishOrders{}, ctx.Err()
	}
}

// ProcessTakenOrder submits a take request to the loop and waits for the
// maker's decision.
func (l *Loop) ProcessTakenOrder(ctx context.Context, req order.TakeRequest, position swapid.Position) (order.Decision, error) {
	reply := make(chan takenOrderResult, 1)
	cmd := command{kind: cmdProcessTakenOrder, request: req, position: position, decisionReply: reply}
	if err := l.submit(ctx, cmd); err != nil {
		return "", err
	}
	select {
	case res := <-reply:
		return res.decision, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (l *Loop) submit(ctx context.Context, cmd command) error {
	select {
	case l.cmds <- cmd:
		return nil
	case <-l.ctx.Done():
		return l.ctx.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}
