// Package source produces the orders a session submits.
package source

import (
	"fmt"
	"math/rand/v2"

	"github.com/buildtall-systems/kitchen/internal/inventory"
	"github.com/buildtall-systems/kitchen/internal/order"
)

// Simulated returns the fixed demonstration batch.
func Simulated() []order.Order {
	return []order.Order{
		order.New(1, order.Items{{Item: "pizza", Quantity: 5}, {Item: "hamburguesa", Quantity: 2}}),
		order.New(2, order.Items{{Item: "hamburguesa", Quantity: 5}, {Item: "soda", Quantity: 5}}),
		order.New(3, order.Items{{Item: "pizza", Quantity: 3}, {Item: "soda", Quantity: 10}}),
		order.New(4, order.Items{{Item: "pizza", Quantity: 5}, {Item: "soda", Quantity: 5}}),
	}
}

// Random returns n orders with ids 1..n drawn from the menu's item names.
// Each order has between one and len(menu) distinct items, each with a
// quantity between 1 and maxQty. The same rng seed gives the same orders.
func Random(rng *rand.Rand, n int, menu map[string]int, maxQty int) ([]order.Order, error) {
	names := inventory.Names(menu)
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: empty menu", order.ErrInvalidOrder)
	}
	if maxQty < 1 {
		return nil, fmt.Errorf("%w: max quantity must be positive, got %d", order.ErrInvalidOrder, maxQty)
	}

	orders := make([]order.Order, 0, n)
	for i := range n {
		picked := rng.Perm(len(names))[:1+rng.IntN(len(names))]
		items := make(order.Items, 0, len(picked))
		for _, idx := range picked {
			items = append(items, order.Line{Item: names[idx], Quantity: 1 + rng.IntN(maxQty)})
		}
		orders = append(orders, order.New(int64(i+1), items))
	}
	return orders, nil
}
