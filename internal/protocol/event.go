package protocol

import "github.com/buildtall-systems/kitchen/internal/order"

// EventKind distinguishes entries of the worker's event stream.
type EventKind string

const (
	EventStatus    EventKind = "status"
	EventInventory EventKind = "inventory"
)

// Event is one line of narration about an order.
type Event struct {
	OrderID int64
	Kind    EventKind

	// From and To are set on status events.
	From order.Status
	To   order.Status

	// Inventory is set on inventory events.
	Inventory map[string]int
}

// StatusEvent records a transition of an order.
func StatusEvent(id int64, from, to order.Status) Event {
	return Event{OrderID: id, Kind: EventStatus, From: from, To: to}
}

// InventoryEvent records the stock right after an order was applied.
func InventoryEvent(id int64, stock map[string]int) Event {
	return Event{OrderID: id, Kind: EventInventory, Inventory: stock}
}
