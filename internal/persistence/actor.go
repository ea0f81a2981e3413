// Package persistence serializes every change to durable state behind a
// single actor goroutine. Other roles reach it only through its mailbox.
package persistence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/buildtall-systems/kitchen/internal/db"
	"github.com/buildtall-systems/kitchen/internal/order"
	"github.com/buildtall-systems/kitchen/internal/protocol"
)

// ErrStoreUnavailable indicates the durable store failed; the actor stops.
var ErrStoreUnavailable = errors.New("store unavailable")

// ErrDuplicateOrder indicates an order id that is already recorded.
var ErrDuplicateOrder = db.ErrDuplicateOrder

// Store is the durable storage the actor owns.
type Store interface {
	RegisterOrder(ctx context.Context, rec order.Record) error
	DecrementInventory(ctx context.Context, item string, quantity int) (bool, error)
	ListOrders(ctx context.Context) ([]order.Record, error)
	ListInventory(ctx context.Context) (map[string]int, error)
	Reset(ctx context.Context) error
	Seed(ctx context.Context, stock map[string]int) error
}

var _ Store = (*db.DB)(nil)

// Actor handles one request at a time, in arrival order, whoever sent it.
type Actor struct {
	store   Store
	mailbox *protocol.Mailbox
	logger  *slog.Logger
}

func NewActor(store Store, mailboxSize int, logger *slog.Logger) *Actor {
	return &Actor{
		store:   store,
		mailbox: protocol.NewMailbox(mailboxSize),
		logger:  logger,
	}
}

// Mailbox is where other roles send requests.
func (a *Actor) Mailbox() *protocol.Mailbox {
	return a.mailbox
}

// Run processes messages until ctx is done or the store fails. A store
// failure closes the mailbox with an ErrStoreUnavailable error, answers every
// queued message with it and is returned.
func (a *Actor) Run(ctx context.Context) error {
	a.logger.Debug("persistence actor started")
	for {
		select {
		case <-ctx.Done():
			a.stop(protocol.ErrMailboxClosed)
			a.logger.Debug("persistence actor stopped")
			return nil

		case msg := <-a.mailbox.C():
			err := a.handle(ctx, msg)
			if err == nil {
				continue
			}
			if ctx.Err() != nil {
				a.stop(protocol.ErrMailboxClosed)
				return nil
			}
			a.logger.Error("store failed, stopping", "error", err)
			a.stop(err)
			return err
		}
	}
}

func (a *Actor) stop(reason error) {
	a.mailbox.Drain(reason, func(msg protocol.Message) {
		a.logger.Warn("dropping message after stop",
			"action", msg.ActionName(), "from", msg.From, "msg_id", msg.ID, "reason", reason)
		msg.Reply(protocol.Reply{Err: reason})
	})
}

// handle returns an error only when the actor must stop.
func (a *Actor) handle(ctx context.Context, msg protocol.Message) error {
	log := a.logger.With("action", msg.ActionName(), "from", msg.From, "msg_id", msg.ID)

	switch req := msg.Request.(type) {
	case protocol.RegisterOrder:
		err := a.store.RegisterOrder(ctx, req.Record)
		if errors.Is(err, ErrDuplicateOrder) {
			log.Warn("duplicate order registration", "order_id", req.Record.ID)
			msg.Reply(protocol.Reply{Err: err})
			return nil
		}
		if err != nil {
			return a.fail(msg, err)
		}
		log.Debug("order registered", "order_id", req.Record.ID, "status", req.Record.Status)
		msg.Reply(protocol.Reply{Applied: true})

	case protocol.DecrementInventory:
		applied, err := a.store.DecrementInventory(ctx, req.Item, req.Quantity)
		if err != nil {
			return a.fail(msg, err)
		}
		if !applied {
			log.Warn("durable inventory out of sync, decrement refused",
				"item", req.Item, "quantity", req.Quantity)
		} else {
			log.Debug("inventory decremented", "item", req.Item, "quantity", req.Quantity)
		}
		msg.Reply(protocol.Reply{Applied: applied})

	case protocol.QueryOrders:
		records, err := a.store.ListOrders(ctx)
		if err != nil {
			return a.fail(msg, err)
		}
		msg.Reply(protocol.Reply{Orders: records})

	case protocol.QueryInventory:
		stock, err := a.store.ListInventory(ctx)
		if err != nil {
			return a.fail(msg, err)
		}
		msg.Reply(protocol.Reply{Inventory: stock})

	case protocol.Reset:
		if err := a.store.Reset(ctx); err != nil {
			return a.fail(msg, err)
		}
		log.Info("durable state cleared")
		msg.Reply(protocol.Reply{Applied: true})

	case protocol.Seed:
		if err := a.store.Seed(ctx, req.Stock); err != nil {
			return a.fail(msg, err)
		}
		log.Info("inventory seeded", "items", len(req.Stock))
		msg.Reply(protocol.Reply{Applied: true})

	default:
		err := fmt.Errorf("%w: %s not served by %s", protocol.ErrProtocolViolation, msg.ActionName(), protocol.RolePersistence)
		log.Warn("ignoring message", "error", err)
		msg.Reply(protocol.Reply{Err: err})
	}
	return nil
}

func (a *Actor) fail(msg protocol.Message, err error) error {
	fatal := fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, msg.ActionName(), err)
	msg.Reply(protocol.Reply{Err: fatal})
	return fatal
}
