package fsm

import (
	"context"
	"sync"

	"github.com/looplab/fsm"

	"github.com/buildtall-systems/kitchen/internal/order"
)

type OrderStateMachine struct {
	fsm *fsm.FSM
	mu  sync.Mutex
}

func NewOrderStateMachine() *OrderStateMachine {
	osm := &OrderStateMachine{}
	osm.fsm = fsm.NewFSM(
		OrderStatePending,
		fsm.Events{
			{Name: OrderEventPrepare, Src: []string{OrderStatePending}, Dst: OrderStateInPreparation},
			{Name: OrderEventComplete, Src: []string{OrderStateInPreparation}, Dst: OrderStateCompleted},
			{Name: OrderEventFillPartially, Src: []string{OrderStateInPreparation}, Dst: OrderStatePartial},
			{Name: OrderEventReject, Src: []string{OrderStateInPreparation}, Dst: OrderStateUnprocessed},
		},
		fsm.Callbacks{},
	)
	return osm
}

func (osm *OrderStateMachine) Transition(ctx context.Context, currentState, event string) (string, error) {
	osm.mu.Lock()
	defer osm.mu.Unlock()
	osm.fsm.SetState(currentState)
	if err := osm.fsm.Event(ctx, event); err != nil {
		return "", err
	}
	return osm.fsm.Current(), nil
}

// Advance moves o one step along the lifecycle and returns the new status.
func (osm *OrderStateMachine) Advance(ctx context.Context, o *order.Order, event string) (order.Status, error) {
	next, err := osm.Transition(ctx, string(o.Status), event)
	if err != nil {
		return o.Status, err
	}
	o.Status = order.Status(next)
	return o.Status, nil
}

// OutcomeEvent returns the event that leads from in_preparation to the given
// terminal status, or "" if status is not terminal.
func OutcomeEvent(status order.Status) string {
	switch status {
	case order.StatusCompleted:
		return OrderEventComplete
	case order.StatusPartial:
		return OrderEventFillPartially
	case order.StatusUnprocessed:
		return OrderEventReject
	default:
		return ""
	}
}
