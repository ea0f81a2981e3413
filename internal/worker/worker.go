// Package worker applies orders to the operational inventory and forwards
// the durable consequences to the persistence actor.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/buildtall-systems/kitchen/internal/fsm"
	"github.com/buildtall-systems/kitchen/internal/inventory"
	"github.com/buildtall-systems/kitchen/internal/order"
	"github.com/buildtall-systems/kitchen/internal/persistence"
	"github.com/buildtall-systems/kitchen/internal/protocol"
)

// Policy decides whether an order may be partially fulfilled.
type Policy string

const (
	// BestEffort tries every item and keeps whatever could be reserved.
	BestEffort Policy = "best-effort"
	// AllOrNothing stops at the first short item and hands back every
	// reservation already made for the order.
	AllOrNothing Policy = "all-or-nothing"
)

// ParsePolicy validates a configured policy name.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(s); p {
	case BestEffort, AllOrNothing:
		return p, nil
	default:
		return "", fmt.Errorf("unknown fulfillment policy %q (want %s or %s)", s, BestEffort, AllOrNothing)
	}
}

// Recorder receives the durable side effects of an order.
type Recorder interface {
	RegisterOrder(ctx context.Context, rec order.Record) error
	DecrementInventory(ctx context.Context, item string, quantity int) (bool, error)
}

// Result is the outcome of one order.
type Result struct {
	Order    order.Order
	Reserved order.Items
	Events   []protocol.Event
}

type Worker struct {
	stock    *inventory.Store
	recorder Recorder
	policy   Policy
	mailbox  *protocol.Mailbox
	orders   *fsm.OrderStateMachine
	state    *fsm.WorkerFSM
	logger   *slog.Logger
}

func New(stock *inventory.Store, recorder Recorder, policy Policy, mailboxSize int, logger *slog.Logger) *Worker {
	w := &Worker{
		stock:    stock,
		recorder: recorder,
		policy:   policy,
		mailbox:  protocol.NewMailbox(mailboxSize),
		orders:   fsm.NewOrderStateMachine(),
		logger:   logger,
	}
	w.state = fsm.NewWorkerFSM(func(tr fsm.WorkerTransition) {
		w.logger.Debug("worker transition", "event", tr.Event, "from", tr.From, "to", tr.To, "order_id", tr.OrderID)
	})
	return w
}

// Mailbox is where the coordinator submits orders.
func (w *Worker) Mailbox() *protocol.Mailbox {
	return w.mailbox
}

// Run serves the mailbox until EndOfOrders, ctx cancellation or a durable
// failure, which is returned.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.stop(nil)
			return nil

		case msg := <-w.mailbox.C():
			switch req := msg.Request.(type) {
			case protocol.SubmitOrder:
				res, err := w.Process(ctx, req.Order)
				if errors.Is(err, order.ErrInvalidOrder) {
					w.logger.Warn("rejecting order", "order_id", req.Order.ID, "error", err)
					msg.Reply(protocol.Reply{Err: err})
					continue
				}
				if err != nil {
					msg.Reply(protocol.Reply{Status: res.Order.Status, Events: res.Events, Err: err})
					w.stop(err)
					return err
				}
				msg.Reply(protocol.Reply{Status: res.Order.Status, Events: res.Events})

			case protocol.EndOfOrders:
				if err := w.state.Stop(ctx); err != nil {
					w.logger.Warn("end of orders in unexpected state", "state", w.state.Current(), "error", err)
				}
				msg.Reply(protocol.Reply{Applied: true, Inventory: w.stock.Snapshot()})
				w.stop(nil)
				return nil

			default:
				err := fmt.Errorf("%w: %s not served by %s", protocol.ErrProtocolViolation, msg.ActionName(), protocol.RoleWorker)
				w.logger.Warn("ignoring message", "from", msg.From, "error", err)
				msg.Reply(protocol.Reply{Err: err})
			}
		}
	}
}

// stop closes the mailbox and answers whatever is still queued.
func (w *Worker) stop(reason error) {
	if reason == nil {
		reason = protocol.ErrMailboxClosed
	}
	w.mailbox.Drain(reason, func(msg protocol.Message) {
		w.logger.Warn("dropping message after stop", "action", msg.ActionName(), "from", msg.From, "msg_id", msg.ID)
		msg.Reply(protocol.Reply{Err: reason})
	})
}

// Process runs one order through its lifecycle. The returned error is nil
// unless the order was invalid or durable state could not be updated; stock
// reserved before a durable failure stays reserved.
func (w *Worker) Process(ctx context.Context, o order.Order) (Result, error) {
	if err := o.Validate(); err != nil {
		return Result{Order: o}, err
	}
	if o.Status == "" {
		o.Status = order.StatusPending
	}
	if o.Status.IsTerminal() {
		return Result{Order: o}, fmt.Errorf("%w: order %d is already %s", order.ErrInvalidOrder, o.ID, o.Status)
	}
	if o.Status != order.StatusPending {
		return Result{Order: o}, fmt.Errorf("%w: order %d is %s, want %s", order.ErrInvalidOrder, o.ID, o.Status, order.StatusPending)
	}
	if err := w.state.Accept(ctx, o.ID); err != nil {
		return Result{Order: o}, fmt.Errorf("accepting order %d: %w", o.ID, err)
	}

	res := Result{}
	log := w.logger.With("order_id", o.ID)

	from := o.Status
	if _, err := w.orders.Advance(ctx, &o, fsm.OrderEventPrepare); err != nil {
		return w.abort(ctx, res, o, fmt.Errorf("preparing order %d: %w", o.ID, err))
	}
	res.Events = append(res.Events, protocol.StatusEvent(o.ID, from, o.Status))
	log.Info("order in preparation", "items", o.Items.String())

	reserved, err := w.reserve(ctx, o)
	if err != nil {
		return w.abort(ctx, res, o, err)
	}
	res.Reserved = reserved

	status := order.Classify(len(reserved), len(o.Items))
	if _, err := w.orders.Advance(ctx, &o, fsm.OutcomeEvent(status)); err != nil {
		return w.abort(ctx, res, o, fmt.Errorf("finishing order %d: %w", o.ID, err))
	}
	snapshot := w.stock.Snapshot()
	res.Events = append(res.Events,
		protocol.StatusEvent(o.ID, order.StatusInPreparation, o.Status),
		protocol.InventoryEvent(o.ID, snapshot),
	)
	res.Order = o
	log.Info("order processed", "status", o.Status, "reserved", reserved.String())

	if err := w.state.Applied(ctx); err != nil {
		return w.abort(ctx, res, o, fmt.Errorf("order %d: %w", o.ID, err))
	}
	if err := w.record(ctx, o, reserved); err != nil {
		return w.abort(ctx, res, o, err)
	}
	if err := w.state.Recorded(ctx); err != nil {
		return w.abort(ctx, res, o, fmt.Errorf("order %d: %w", o.ID, err))
	}
	return res, nil
}

func (w *Worker) abort(ctx context.Context, res Result, o order.Order, err error) (Result, error) {
	res.Order = o
	if w.state.Abandon(ctx) {
		w.logger.Warn("order abandoned", "order_id", o.ID, "error", err)
	}
	return res, err
}

// reserve takes the order's items off the operational stock, in submission
// order, according to the policy.
func (w *Worker) reserve(ctx context.Context, o order.Order) (order.Items, error) {
	hold := w.stock.Begin()
	for _, l := range o.Items {
		if hold.Reserve(l.Item, l.Quantity) {
			continue
		}
		w.logger.Info("insufficient stock",
			"order_id", o.ID, "item", l.Item,
			"requested", l.Quantity, "available", w.stock.Available(l.Item))

		if w.policy == AllOrNothing {
			if err := hold.Release(ctx); err != nil {
				return nil, fmt.Errorf("releasing order %d: %w", o.ID, err)
			}
			return order.Items{}, nil
		}
	}
	reserved, err := hold.Commit(ctx)
	if err != nil {
		return nil, fmt.Errorf("committing order %d: %w", o.ID, err)
	}
	return reserved, nil
}

// record sends one decrement per reserved line, then the order itself with
// the originally requested items.
func (w *Worker) record(ctx context.Context, o order.Order, reserved order.Items) error {
	for _, l := range reserved {
		applied, err := w.recorder.DecrementInventory(ctx, l.Item, l.Quantity)
		if err != nil {
			return fmt.Errorf("recording %d %s for order %d: %w", l.Quantity, l.Item, o.ID, err)
		}
		if !applied {
			w.logger.Warn("durable inventory refused decrement",
				"order_id", o.ID, "item", l.Item, "quantity", l.Quantity)
		}
	}

	err := w.recorder.RegisterOrder(ctx, o.Record())
	if errors.Is(err, persistence.ErrDuplicateOrder) {
		w.logger.Warn("order already recorded", "order_id", o.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("registering order %d: %w", o.ID, err)
	}
	return nil
}
