package fsm

import "github.com/buildtall-systems/kitchen/internal/order"

const (
	OrderStatePending       = string(order.StatusPending)
	OrderStateInPreparation = string(order.StatusInPreparation)
	OrderStateCompleted     = string(order.StatusCompleted)
	OrderStatePartial       = string(order.StatusPartial)
	OrderStateUnprocessed   = string(order.StatusUnprocessed)
)

const (
	OrderEventPrepare       = "prepare"
	OrderEventComplete      = "complete"
	OrderEventFillPartially = "fill_partially"
	OrderEventReject        = "reject"
)

const (
	HoldStateHeld      = "held"
	HoldStateCommitted = "committed"
	HoldStateReleased  = "released"
)

const (
	HoldEventCommit  = "commit"
	HoldEventRelease = "release"
)

const (
	WorkerStateIdle      = "idle"
	WorkerStatePreparing = "preparing"
	WorkerStateRecording = "recording"
	WorkerStateStopped   = "stopped"
)

const (
	WorkerEventOrderReceived = "order_received"
	WorkerEventItemsApplied  = "items_applied"
	WorkerEventOrderRecorded = "order_recorded"
	WorkerEventEndOfOrders   = "end_of_orders"
	WorkerEventError         = "error"
)
