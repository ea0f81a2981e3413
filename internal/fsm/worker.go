package fsm

import (
	"context"
	"fmt"
	"sync"

	"github.com/looplab/fsm"
)

// WorkerTransition is one step of the worker lifecycle.
type WorkerTransition struct {
	Event   string
	From    string
	To      string
	OrderID int64 // zero outside an order
}

// WorkerFSM tracks which order the fulfillment worker is busy with, if any.
// A worker serves one order at a time and stops for good after end of orders.
type WorkerFSM struct {
	fsm     *fsm.FSM
	mu      sync.Mutex
	orderID int64
	observe func(WorkerTransition)
}

// NewWorkerFSM returns an idle worker lifecycle. observe, if not nil, sees
// every transition after it happened. It runs with the lifecycle locked and
// must not call back into it.
func NewWorkerFSM(observe func(WorkerTransition)) *WorkerFSM {
	w := &WorkerFSM{observe: observe}
	w.fsm = fsm.NewFSM(
		WorkerStateIdle,
		fsm.Events{
			{Name: WorkerEventOrderReceived, Src: []string{WorkerStateIdle}, Dst: WorkerStatePreparing},
			{Name: WorkerEventItemsApplied, Src: []string{WorkerStatePreparing}, Dst: WorkerStateRecording},
			{Name: WorkerEventOrderRecorded, Src: []string{WorkerStateRecording}, Dst: WorkerStateIdle},
			{Name: WorkerEventEndOfOrders, Src: []string{WorkerStateIdle}, Dst: WorkerStateStopped},
			{Name: WorkerEventError, Src: []string{WorkerStatePreparing, WorkerStateRecording}, Dst: WorkerStateIdle},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				if w.observe != nil {
					w.observe(WorkerTransition{Event: e.Event, From: e.Src, To: e.Dst, OrderID: w.orderID})
				}
			},
		},
	)
	return w
}

func (w *WorkerFSM) Current() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.fsm.Current()
}

// OrderID returns the order in progress, or zero when idle or stopped.
func (w *WorkerFSM) OrderID() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.orderID
}

// Accept starts work on an order. It fails unless the worker is idle.
func (w *WorkerFSM) Accept(ctx context.Context, orderID int64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.fsm.Can(WorkerEventOrderReceived) {
		return fmt.Errorf("accepting order %d while %s with order %d: %w",
			orderID, w.fsm.Current(), w.orderID, fsm.InvalidEventError{Event: WorkerEventOrderReceived, State: w.fsm.Current()})
	}
	w.orderID = orderID
	return w.fsm.Event(ctx, WorkerEventOrderReceived)
}

// Applied marks the order's items as taken from the stock.
func (w *WorkerFSM) Applied(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.fsm.Event(ctx, WorkerEventItemsApplied)
}

// Recorded marks the order as durably recorded and frees the worker.
func (w *WorkerFSM) Recorded(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.fsm.Event(ctx, WorkerEventOrderRecorded); err != nil {
		return err
	}
	w.orderID = 0
	return nil
}

// Abandon gives up on the order in progress and returns the worker to idle.
// It reports whether an order was abandoned; an idle worker is left alone.
func (w *WorkerFSM) Abandon(ctx context.Context) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.fsm.Can(WorkerEventError) {
		return false
	}
	if err := w.fsm.Event(ctx, WorkerEventError); err != nil {
		return false
	}
	w.orderID = 0
	return true
}

// Stop ends the lifecycle. Only an idle worker can stop.
func (w *WorkerFSM) Stop(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.fsm.Event(ctx, WorkerEventEndOfOrders)
}
