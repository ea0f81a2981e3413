package coordinator

import (
	"context"
	"fmt"
	"io"

	"github.com/buildtall-systems/kitchen/internal/order"
)

// Report groups the recorded orders by final status. A query that failed
// leaves its section empty and its error set.
type Report struct {
	Completed   []order.Record
	Partial     []order.Record
	Unprocessed []order.Record
	// Unclassified holds records whose status is not a final one, such as
	// a pending row or a status this build does not know.
	Unclassified []order.Record
	Inventory    map[string]int

	OrdersErr    error
	InventoryErr error
}

// Collect queries orders and inventory. It never fails; see Degraded.
func Collect(ctx context.Context, q Querier) Report {
	var r Report

	recs, err := q.ListOrders(ctx)
	if err != nil {
		r.OrdersErr = fmt.Errorf("querying orders: %w", err)
	}
	for _, rec := range recs {
		switch rec.Status {
		case order.StatusCompleted:
			r.Completed = append(r.Completed, rec)
		case order.StatusPartial:
			r.Partial = append(r.Partial, rec)
		case order.StatusUnprocessed:
			r.Unprocessed = append(r.Unprocessed, rec)
		default:
			r.Unclassified = append(r.Unclassified, rec)
		}
	}

	r.Inventory, err = q.ListInventory(ctx)
	if err != nil {
		r.InventoryErr = fmt.Errorf("querying inventory: %w", err)
	}
	return r
}

// Degraded reports whether part of the report could not be read.
func (r Report) Degraded() bool {
	return r.OrdersErr != nil || r.InventoryErr != nil
}

// Render writes the report for the console.
func (r Report) Render(w io.Writer) {
	fmt.Fprintln(w, "=== final report ===")
	if r.OrdersErr != nil {
		fmt.Fprintf(w, "orders unavailable: %v\n", r.OrdersErr)
	} else {
		renderSection(w, "completed orders", r.Completed)
		renderSection(w, "partial orders", r.Partial)
		renderSection(w, "unprocessed orders", r.Unprocessed)
		if len(r.Unclassified) > 0 {
			fmt.Fprintf(w, "orders without a final status (%d):\n", len(r.Unclassified))
			for _, rec := range r.Unclassified {
				fmt.Fprintf(w, "  order %d: %s (status %q)\n", rec.ID, rec.Items.String(), rec.Status)
			}
		}
	}
	if r.InventoryErr != nil {
		fmt.Fprintf(w, "inventory unavailable: %v\n", r.InventoryErr)
		return
	}
	RenderInventory(w, "final inventory", r.Inventory)
}

func renderSection(w io.Writer, title string, recs []order.Record) {
	fmt.Fprintf(w, "%s (%d):\n", title, len(recs))
	for _, rec := range recs {
		fmt.Fprintf(w, "  order %d: %s\n", rec.ID, rec.Items.String())
	}
}
