// Package coordinator submits orders to the fulfillment worker one at a time
// and reports what the persistence actor recorded.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/buildtall-systems/kitchen/internal/order"
	"github.com/buildtall-systems/kitchen/internal/protocol"
)

// Querier reads back durable state.
type Querier interface {
	ListOrders(ctx context.Context) ([]order.Record, error)
	ListInventory(ctx context.Context) (map[string]int, error)
}

// Outcome is what became of one submitted order.
type Outcome struct {
	ID     int64
	Status order.Status
	Err    error
}

type Coordinator struct {
	worker *protocol.Mailbox
	store  Querier
	out    io.Writer
	logger *slog.Logger
}

func New(worker *protocol.Mailbox, store Querier, out io.Writer, logger *slog.Logger) *Coordinator {
	return &Coordinator{worker: worker, store: store, out: out, logger: logger}
}

// Run dispatches orders in slice order, waiting for each reply before the
// next submission, then tells the worker there are no more orders. Invalid
// orders are reported and skipped; any other failure ends the run.
func (c *Coordinator) Run(ctx context.Context, orders []order.Order) ([]Outcome, error) {
	outcomes := make([]Outcome, 0, len(orders))
	for _, o := range orders {
		c.logger.Debug("submitting order", "order_id", o.ID, "items", o.Items.String())

		r, err := protocol.Call(ctx, c.worker, protocol.RoleCoordinator, protocol.SubmitOrder{Order: o})
		RenderEvents(c.out, r.Events)
		if errors.Is(err, order.ErrInvalidOrder) {
			fmt.Fprintf(c.out, "order %d rejected: %v\n", o.ID, err)
			outcomes = append(outcomes, Outcome{ID: o.ID, Err: err})
			continue
		}
		if err != nil {
			outcomes = append(outcomes, Outcome{ID: o.ID, Status: r.Status, Err: err})
			return outcomes, fmt.Errorf("order %d: %w", o.ID, err)
		}
		outcomes = append(outcomes, Outcome{ID: o.ID, Status: r.Status})
	}

	ack, err := protocol.Call(ctx, c.worker, protocol.RoleCoordinator, protocol.EndOfOrders{})
	if err != nil {
		return outcomes, fmt.Errorf("ending orders: %w", err)
	}
	c.logger.Debug("worker acknowledged end of orders", "inventory", len(ack.Inventory))
	return outcomes, nil
}

// Report collects the final report from the store.
func (c *Coordinator) Report(ctx context.Context) Report {
	return Collect(ctx, c.store)
}
