// Package protocol defines the messages exchanged between the coordinator,
// the fulfillment worker and the persistence actor.
//
// Requests form a closed set: only the types declared here satisfy Request.
// A role that receives a request it does not serve treats it as a protocol
// violation.
package protocol

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/buildtall-systems/kitchen/internal/order"
)

// ErrProtocolViolation indicates a message its receiver does not serve.
var ErrProtocolViolation = errors.New("protocol violation")

// Role names one participant of the pipeline.
type Role string

const (
	RoleCoordinator Role = "coordinator"
	RoleWorker      Role = "worker"
	RolePersistence Role = "persistence"
)

// Action tags the kind of a request.
type Action int

const (
	ActionSubmitOrder Action = iota + 1
	ActionEndOfOrders
	ActionRegisterOrder
	ActionDecrementInventory
	ActionQueryOrders
	ActionQueryInventory
	ActionReset
	ActionSeed
)

var actionNames = map[Action]string{
	ActionSubmitOrder:        "SubmitOrder",
	ActionEndOfOrders:        "EndOfOrders",
	ActionRegisterOrder:      "RegisterOrder",
	ActionDecrementInventory: "DecrementInventory",
	ActionQueryOrders:        "QueryOrders",
	ActionQueryInventory:     "QueryInventory",
	ActionReset:              "Reset",
	ActionSeed:               "Seed",
}

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return fmt.Sprintf("Action(%d)", int(a))
}

// Request is the payload of a message.
type Request interface {
	Action() Action
	request()
}

// SubmitOrder hands one order to the worker.
type SubmitOrder struct {
	Order order.Order
}

// EndOfOrders tells the worker no more orders follow.
type EndOfOrders struct{}

// RegisterOrder records a processed order.
type RegisterOrder struct {
	Record order.Record
}

// DecrementInventory takes a reserved quantity off the durable mirror.
type DecrementInventory struct {
	Item     string
	Quantity int
}

// QueryOrders asks for every recorded order.
type QueryOrders struct{}

// QueryInventory asks for the durable stock.
type QueryInventory struct{}

// Reset clears the durable state.
type Reset struct{}

// Seed loads starting stock into the durable mirror.
type Seed struct {
	Stock map[string]int
}

func (SubmitOrder) Action() Action        { return ActionSubmitOrder }
func (EndOfOrders) Action() Action        { return ActionEndOfOrders }
func (RegisterOrder) Action() Action      { return ActionRegisterOrder }
func (DecrementInventory) Action() Action { return ActionDecrementInventory }
func (QueryOrders) Action() Action        { return ActionQueryOrders }
func (QueryInventory) Action() Action     { return ActionQueryInventory }
func (Reset) Action() Action              { return ActionReset }
func (Seed) Action() Action               { return ActionSeed }

func (SubmitOrder) request()        {}
func (EndOfOrders) request()        {}
func (RegisterOrder) request()      {}
func (DecrementInventory) request() {}
func (QueryOrders) request()        {}
func (QueryInventory) request()     {}
func (Reset) request()              {}
func (Seed) request()               {}

// Message carries a request and, optionally, where to send the reply. A nil
// ReplyTo makes the message fire-and-forget.
type Message struct {
	ID      uuid.UUID
	From    Role
	Request Request
	ReplyTo chan<- Reply
}

// NewMessage stamps a request with a fresh id.
func NewMessage(from Role, req Request, replyTo chan<- Reply) Message {
	return Message{ID: uuid.New(), From: from, Request: req, ReplyTo: replyTo}
}

// ActionName returns the request's action, tolerating a nil request.
func (m Message) ActionName() string {
	if m.Request == nil {
		return "<nil>"
	}
	return m.Request.Action().String()
}

// Reply answers one message.
type Reply struct {
	InReplyTo uuid.UUID
	To        Role

	// Applied reports whether a conditional decrement took effect.
	Applied bool

	// Status and Events describe a processed order.
	Status order.Status
	Events []Event

	Orders    []order.Record
	Inventory map[string]int

	Err error
}

// Reply addresses r to the sender of m and delivers it without blocking.
// Reply channels made by Call hold exactly one reply. Reports whether r was
// delivered.
func (m Message) Reply(r Reply) bool {
	if m.ReplyTo == nil {
		return false
	}
	r.InReplyTo = m.ID
	r.To = m.From
	select {
	case m.ReplyTo <- r:
		return true
	default:
		return false
	}
}
