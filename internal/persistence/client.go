package persistence

import (
	"context"
	"fmt"

	"github.com/buildtall-systems/kitchen/internal/order"
	"github.com/buildtall-systems/kitchen/internal/protocol"
)

// Consistency selects whether writes wait for the actor.
type Consistency string

const (
	// Strict writes block until the actor has applied them.
	Strict Consistency = "strict"
	// Relaxed writes are queued and not acknowledged.
	Relaxed Consistency = "relaxed"
)

// ParseConsistency validates a configured consistency mode.
func ParseConsistency(s string) (Consistency, error) {
	switch c := Consistency(s); c {
	case Strict, Relaxed:
		return c, nil
	default:
		return "", fmt.Errorf("unknown consistency %q (want %s or %s)", s, Strict, Relaxed)
	}
}

// Client sends typed requests to an actor on behalf of one role.
type Client struct {
	mailbox     *protocol.Mailbox
	from        protocol.Role
	consistency Consistency
}

func NewClient(mailbox *protocol.Mailbox, from protocol.Role, consistency Consistency) *Client {
	return &Client{mailbox: mailbox, from: from, consistency: consistency}
}

// RegisterOrder records rec. Under strict consistency a duplicate id is
// reported as ErrDuplicateOrder; under relaxed consistency only the actor
// sees it.
func (c *Client) RegisterOrder(ctx context.Context, rec order.Record) error {
	req := protocol.RegisterOrder{Record: rec}
	if c.consistency == Relaxed {
		return c.mailbox.Send(ctx, protocol.NewMessage(c.from, req, nil))
	}
	_, err := protocol.Call(ctx, c.mailbox, c.from, req)
	return err
}

// DecrementInventory takes quantity of item off the durable mirror. Under
// relaxed consistency the result is unknown and true means queued.
func (c *Client) DecrementInventory(ctx context.Context, item string, quantity int) (bool, error) {
	req := protocol.DecrementInventory{Item: item, Quantity: quantity}
	if c.consistency == Relaxed {
		if err := c.mailbox.Send(ctx, protocol.NewMessage(c.from, req, nil)); err != nil {
			return false, err
		}
		return true, nil
	}
	r, err := protocol.Call(ctx, c.mailbox, c.from, req)
	if err != nil {
		return false, err
	}
	return r.Applied, nil
}

func (c *Client) ListOrders(ctx context.Context) ([]order.Record, error) {
	r, err := protocol.Call(ctx, c.mailbox, c.from, protocol.QueryOrders{})
	if err != nil {
		return nil, err
	}
	return r.Orders, nil
}

func (c *Client) ListInventory(ctx context.Context) (map[string]int, error) {
	r, err := protocol.Call(ctx, c.mailbox, c.from, protocol.QueryInventory{})
	if err != nil {
		return nil, err
	}
	return r.Inventory, nil
}

// Reset always waits for the actor, whatever the consistency.
func (c *Client) Reset(ctx context.Context) error {
	_, err := protocol.Call(ctx, c.mailbox, c.from, protocol.Reset{})
	return err
}

// Seed always waits for the actor, whatever the consistency.
func (c *Client) Seed(ctx context.Context, stock map[string]int) error {
	_, err := protocol.Call(ctx, c.mailbox, c.from, protocol.Seed{Stock: stock})
	return err
}
