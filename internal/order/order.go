package order

import (
	"errors"
	"fmt"
)

// Status is the lifecycle state of an order.
type Status string

const (
	StatusPending       Status = "pending"
	StatusInPreparation Status = "in_preparation"
	StatusCompleted     Status = "completed"
	StatusPartial       Status = "partial"
	StatusUnprocessed   Status = "unprocessed"
)

// IsTerminal reports whether no further transition can leave s.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusPartial, StatusUnprocessed:
		return true
	default:
		return false
	}
}

// ErrInvalidOrder indicates an order that cannot be submitted.
var ErrInvalidOrder = errors.New("invalid order")

// Order is a request for quantities of named items.
type Order struct {
	ID     int64
	Items  Items
	Status Status
}

// New returns a pending order.
func New(id int64, items Items) Order {
	return Order{ID: id, Items: items, Status: StatusPending}
}

// Validate checks the order can be fulfilled at all.
func (o Order) Validate() error {
	if o.ID <= 0 {
		return fmt.Errorf("%w: id must be positive, got %d", ErrInvalidOrder, o.ID)
	}
	if len(o.Items) == 0 {
		return fmt.Errorf("%w: order %d has no items", ErrInvalidOrder, o.ID)
	}
	seen := make(map[string]bool, len(o.Items))
	for _, l := range o.Items {
		if l.Item == "" {
			return fmt.Errorf("%w: order %d has an unnamed item", ErrInvalidOrder, o.ID)
		}
		if l.Quantity <= 0 {
			return fmt.Errorf("%w: order %d requests %d of %s", ErrInvalidOrder, o.ID, l.Quantity, l.Item)
		}
		if seen[l.Item] {
			return fmt.Errorf("%w: order %d lists %s twice", ErrInvalidOrder, o.ID, l.Item)
		}
		seen[l.Item] = true
	}
	return nil
}

// Record is the durable form of a processed order. Items always holds the
// originally requested quantities.
type Record struct {
	ID     int64
	Items  Items
	Status Status
}

// Record returns the durable form of o.
func (o Order) Record() Record {
	return Record{ID: o.ID, Items: o.Items.Clone(), Status: o.Status}
}

// Classify derives the final status from per-item outcomes.
func Classify(satisfied, requested int) Status {
	switch {
	case requested > 0 && satisfied == requested:
		return StatusCompleted
	case satisfied == 0:
		return StatusUnprocessed
	default:
		return StatusPartial
	}
}
