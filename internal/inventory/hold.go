package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/buildtall-systems/kitchen/internal/fsm"
	"github.com/buildtall-systems/kitchen/internal/order"
)

// ErrHoldClosed indicates a hold that was already committed or released.
var ErrHoldClosed = errors.New("hold already closed")

// Hold collects the reservations made on behalf of one order so they can be
// committed together or handed back.
type Hold struct {
	store    *Store
	sm       *fsm.HoldStateMachine
	reserved order.Items
}

// Begin opens a hold against s.
func (s *Store) Begin() *Hold {
	return &Hold{store: s, sm: fsm.NewHoldStateMachine()}
}

// Reserve reserves quantity of item and records it on the hold.
func (h *Hold) Reserve(item string, quantity int) bool {
	if h.sm.Current() != fsm.HoldStateHeld {
		return false
	}
	if !h.store.Reserve(item, quantity) {
		return false
	}
	h.reserved = append(h.reserved, order.Line{Item: item, Quantity: quantity})
	return true
}

// Commit keeps every reservation and returns them.
func (h *Hold) Commit(ctx context.Context) (order.Items, error) {
	if !h.sm.CanCommit() {
		return nil, fmt.Errorf("%w: %s", ErrHoldClosed, h.sm.Current())
	}
	if err := h.sm.Event(ctx, fsm.HoldEventCommit); err != nil {
		return nil, fmt.Errorf("committing hold: %w", err)
	}
	return h.reserved.Clone(), nil
}

// Release returns every reservation to the store, newest first.
func (h *Hold) Release(ctx context.Context) error {
	if !h.sm.CanRelease() {
		return fmt.Errorf("%w: %s", ErrHoldClosed, h.sm.Current())
	}
	if err := h.sm.Event(ctx, fsm.HoldEventRelease); err != nil {
		return fmt.Errorf("releasing hold: %w", err)
	}
	for i := len(h.reserved) - 1; i >= 0; i-- {
		h.store.Restore(h.reserved[i].Item, h.reserved[i].Quantity)
	}
	return nil
}
