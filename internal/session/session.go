// Package session wires the three roles together for one batch of orders.
package session

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/buildtall-systems/kitchen/internal/coordinator"
	"github.com/buildtall-systems/kitchen/internal/inventory"
	"github.com/buildtall-systems/kitchen/internal/logging"
	"github.com/buildtall-systems/kitchen/internal/order"
	"github.com/buildtall-systems/kitchen/internal/persistence"
	"github.com/buildtall-systems/kitchen/internal/protocol"
	"github.com/buildtall-systems/kitchen/internal/worker"
)

// Options configures a session.
type Options struct {
	Store       persistence.Store
	Stock       map[string]int // starting stock, written to the store too
	Orders      []order.Order
	Policy      worker.Policy
	Consistency persistence.Consistency
	MailboxSize int
	Out         io.Writer // console output
	Logger      *slog.Logger
}

// Summary is what a session produced.
type Summary struct {
	Outcomes []coordinator.Outcome
	Report   coordinator.Report
}

func (o *Options) defaults() {
	if o.Policy == "" {
		o.Policy = worker.BestEffort
	}
	if o.Consistency == "" {
		o.Consistency = persistence.Strict
	}
	if o.Out == nil {
		o.Out = io.Discard
	}
	if o.Logger == nil {
		o.Logger = logging.Discard()
	}
}

// Run resets and seeds the store, submits every order and prints the final
// report. The report is produced even when a role failed; the returned error
// is the first role failure, if any.
func Run(ctx context.Context, opts Options) (Summary, error) {
	opts.defaults()
	var sum Summary

	actorCtx, stopActor := context.WithCancel(ctx)
	defer stopActor()

	actor := persistence.NewActor(opts.Store, opts.MailboxSize, logging.ForRole(opts.Logger, string(protocol.RolePersistence)))
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return actor.Run(actorCtx) })

	store := persistence.NewClient(actor.Mailbox(), protocol.RoleCoordinator, persistence.Strict)
	if err := bootstrap(gctx, store, opts.Stock); err != nil {
		stopActor()
		if werr := g.Wait(); werr != nil {
			return sum, werr
		}
		return sum, err
	}

	stock := inventory.New(opts.Stock)
	w := worker.New(
		stock,
		persistence.NewClient(actor.Mailbox(), protocol.RoleWorker, opts.Consistency),
		opts.Policy,
		opts.MailboxSize,
		logging.ForRole(opts.Logger, string(protocol.RoleWorker)),
	)
	workerCtx, stopWorker := context.WithCancel(gctx)
	defer stopWorker()
	g.Go(func() error { return w.Run(workerCtx) })

	coordinator.RenderInventory(opts.Out, "initial inventory", stock.Snapshot())
	coord := coordinator.New(w.Mailbox(), store, opts.Out, logging.ForRole(opts.Logger, string(protocol.RoleCoordinator)))

	var runErr error
	sum.Outcomes, runErr = coord.Run(workerCtx, opts.Orders)
	stopWorker()

	sum.Report = coord.Report(ctx)
	sum.Report.Render(opts.Out)

	stopActor()
	if err := g.Wait(); err != nil {
		return sum, err
	}
	return sum, runErr
}

func bootstrap(ctx context.Context, store *persistence.Client, stock map[string]int) error {
	if err := store.Reset(ctx); err != nil {
		return fmt.Errorf("resetting store: %w", err)
	}
	if err := store.Seed(ctx, stock); err != nil {
		return fmt.Errorf("seeding store: %w", err)
	}
	return nil
}

// Report reads the current report through a short-lived actor, without
// changing the store.
func Report(ctx context.Context, st persistence.Store, logger *slog.Logger) (coordinator.Report, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	actor := persistence.NewActor(st, 1, logging.ForRole(logger, string(protocol.RolePersistence)))
	done := make(chan error, 1)
	go func() { done <- actor.Run(ctx) }()

	r := coordinator.Collect(ctx, persistence.NewClient(actor.Mailbox(), protocol.RoleCoordinator, persistence.Strict))
	cancel()
	return r, <-done
}
