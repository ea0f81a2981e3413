package fsm

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/looplab/fsm"

	"github.com/buildtall-systems/kitchen/internal/order"
)

func TestOrderStateMachine_ValidTransitions(t *testing.T) {
	tests := []struct {
		name         string
		currentState string
		event        string
		wantState    string
	}{
		{
			name:         "pending to in_preparation via prepare",
			currentState: OrderStatePending,
			event:        OrderEventPrepare,
			wantState:    OrderStateInPreparation,
		},
		{
			name:         "in_preparation to completed via complete",
			currentState: OrderStateInPreparation,
			event:        OrderEventComplete,
			wantState:    OrderStateCompleted,
		},
		{
			name:         "in_preparation to partial via fill_partially",
			currentState: OrderStateInPreparation,
			event:        OrderEventFillPartially,
			wantState:    OrderStatePartial,
		},
		{
			name:         "in_preparation to unprocessed via reject",
			currentState: OrderStateInPreparation,
			event:        OrderEventReject,
			wantState:    OrderStateUnprocessed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			osm := NewOrderStateMachine()

			newState, err := osm.Transition(context.Background(), tt.currentState, tt.event)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if newState != tt.wantState {
				t.Errorf("got state %q, want %q", newState, tt.wantState)
			}
		})
	}
}

func TestOrderStateMachine_InvalidTransitions(t *testing.T) {
	tests := []struct {
		name         string
		currentState string
		event        string
	}{
		{"pending cannot complete directly", OrderStatePending, OrderEventComplete},
		{"pending cannot be rejected before preparation", OrderStatePending, OrderEventReject},
		{"in_preparation cannot prepare again", OrderStateInPreparation, OrderEventPrepare},
		{"completed is terminal", OrderStateCompleted, OrderEventPrepare},
		{"partial is terminal", OrderStatePartial, OrderEventComplete},
		{"unprocessed is terminal", OrderStateUnprocessed, OrderEventFillPartially},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			osm := NewOrderStateMachine()

			_, err := osm.Transition(context.Background(), tt.currentState, tt.event)
			if err == nil {
				t.Fatalf("expected error for invalid transition %s + %s", tt.currentState, tt.event)
			}

			var invalidErr fsm.InvalidEventError
			if !errors.As(err, &invalidErr) {
				t.Errorf("expected InvalidEventError, got %T: %v", err, err)
			}
		})
	}
}

func TestOrderStateMachine_Advance(t *testing.T) {
	osm := NewOrderStateMachine()
	ctx := context.Background()
	o := order.New(7, order.Items{{Item: "pizza", Quantity: 1}})

	if _, err := osm.Advance(ctx, &o, OrderEventPrepare); err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if o.Status != order.StatusInPreparation {
		t.Fatalf("status = %s, want in_preparation", o.Status)
	}

	status, err := osm.Advance(ctx, &o, OutcomeEvent(order.StatusPartial))
	if err != nil {
		t.Fatalf("fill_partially: %v", err)
	}
	if status != order.StatusPartial || o.Status != order.StatusPartial {
		t.Errorf("status = %s / %s, want partial", status, o.Status)
	}

	// A terminal order stays where it is.
	if _, err := osm.Advance(ctx, &o, OrderEventComplete); err == nil {
		t.Error("expected error advancing a terminal order")
	}
	if o.Status != order.StatusPartial {
		t.Errorf("status changed to %s after failed transition", o.Status)
	}
}

func TestOutcomeEvent(t *testing.T) {
	tests := []struct {
		status order.Status
		want   string
	}{
		{order.StatusCompleted, OrderEventComplete},
		{order.StatusPartial, OrderEventFillPartially},
		{order.StatusUnprocessed, OrderEventReject},
		{order.StatusPending, ""},
		{order.StatusInPreparation, ""},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := OutcomeEvent(tt.status); got != tt.want {
				t.Errorf("OutcomeEvent(%s) = %q, want %q", tt.status, got, tt.want)
			}
		})
	}
}

func TestOrderStateMachine_ConcurrentAccess(t *testing.T) {
	osm := NewOrderStateMachine()
	ctx := context.Background()
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, _ = osm.Transition(ctx, OrderStatePending, OrderEventPrepare)
			_, _ = osm.Transition(ctx, OrderStateInPreparation, OrderEventComplete)
		}()
	}

	wg.Wait()
}
